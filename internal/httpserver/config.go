package httpserver

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// Mode selects the interface the server binds to.
type Mode int

const (
	// ModeDev binds to the loopback interface only.
	ModeDev Mode = iota
	// ModeProd binds to all interfaces.
	ModeProd
)

func (m Mode) String() string {
	switch m {
	case ModeDev:
		return "dev"
	case ModeProd:
		return "prod"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "dev" or "prod", in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "":
		return ModeDev, nil
	case "prod":
		return ModeProd, nil
	default:
		return 0, fmt.Errorf("httpserver: unknown bind mode %q", s)
	}
}

func (m Mode) bindIP() net.IP {
	if m == ModeProd {
		return net.IPv4zero
	}
	return net.IPv4(127, 0, 0, 1)
}

// Defaults used when a Config field is left at zero.
const (
	DefaultPort       = 8080
	DefaultMaxClients = 10
	DefaultBacklog    = 5
	DefaultBufferSize = 1024
)

// Config holds the parameters fixed at construction time.
type Config struct {
	// Port to bind. Zero lets the kernel pick one; see Server.Addr.
	Port int
	// MaxClients is the size of the client slot table. It never changes.
	MaxClients int
	// Backlog is passed to listen(2).
	Backlog int
	Mode    Mode
	// BufferSize is the size of the per-client read buffer.
	BufferSize int

	// Listener, when set, is used instead of the server's own socket. The
	// server takes ownership and closes it on shutdown.
	Listener net.Listener

	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxClients == 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.Backlog == 0 {
		c.Backlog = DefaultBacklog
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("httpserver: port %d out of range", c.Port)
	case c.MaxClients < 0:
		return fmt.Errorf("httpserver: max clients must be positive, got %d", c.MaxClients)
	case c.Backlog < 0:
		return fmt.Errorf("httpserver: backlog must be positive, got %d", c.Backlog)
	case c.BufferSize < 0:
		return fmt.Errorf("httpserver: buffer size must be positive, got %d", c.BufferSize)
	case c.Mode != ModeDev && c.Mode != ModeProd:
		return fmt.Errorf("httpserver: invalid mode %s", c.Mode)
	}
	return nil
}

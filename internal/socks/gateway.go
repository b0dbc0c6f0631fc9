// Package socks provides a SOCKS5 front door that only lets clients reach the
// HTTP server it was created for.
package socks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/armon/go-socks5"
	"github.com/rs/zerolog"
)

// Gateway is a SOCKS5 server whose CONNECT requests are limited to a single
// target address.
type Gateway struct {
	server *socks5.Server
	target *net.TCPAddr
	key    string
	log    zerolog.Logger
}

// NewGateway creates a gateway in front of target. Clients must XOR their
// side of the connection with key; an empty key disables that.
func NewGateway(target *net.TCPAddr, key string, logger zerolog.Logger) (*Gateway, error) {
	if target == nil {
		return nil, errors.New("socks: no target address")
	}
	logger = logger.With().Str("component", "socks").Logger()

	g := &Gateway{
		target: target,
		key:    key,
		log:    logger,
	}

	conf := &socks5.Config{
		Rules:  targetRule{target: target},
		Logger: log.New(logger, "", 0),
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, g.target.String())
		},
	}
	server, err := socks5.New(conf)
	if err != nil {
		return nil, fmt.Errorf("socks: %w", err)
	}
	g.server = server
	return g, nil
}

// Target is the only address clients may connect to.
func (g *Gateway) Target() *net.TCPAddr {
	return g.target
}

// Serve accepts SOCKS5 clients on ln until it is closed. The returned error
// is nil when ln was closed.
func (g *Gateway) Serve(ln net.Listener) error {
	g.log.Info().Str("addr", ln.Addr().String()).Str("target", g.target.String()).Msg("socks gateway listening")
	err := g.server.Serve(newListener(ln, g.key))
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// targetRule permits CONNECT to one address and nothing else.
type targetRule struct {
	target *net.TCPAddr
}

func (r targetRule) Allow(ctx context.Context, req *socks5.Request) (context.Context, bool) {
	if req.Command != socks5.ConnectCommand || req.DestAddr == nil {
		return ctx, false
	}
	if req.DestAddr.Port != r.target.Port {
		return ctx, false
	}
	if r.target.IP.IsUnspecified() {
		return ctx, req.DestAddr.IP.IsLoopback()
	}
	return ctx, req.DestAddr.IP.Equal(r.target.IP)
}

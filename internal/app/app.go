// Package app registers the demonstration routes served by tinyhttpd.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"tinyhttpd/internal/httpserver"
)

// Registrar is the part of httpserver.Server the app needs.
type Registrar interface {
	AddRoute(method httpserver.Method, path string, handler httpserver.Handler) error
}

// statsSource is implemented by registrars that expose their counters, which
// /api/status then reports for the server it was registered on.
type statsSource interface {
	Stats() httpserver.Stats
}

// Options configures App.
type Options struct {
	// StaticDir, when set, is served under StaticPrefix.
	StaticDir    string
	StaticPrefix string

	// TunnelSessions reports open tunnel sessions for /api/status. It may
	// be nil when the tunnel is off.
	TunnelSessions func() int

	Logger zerolog.Logger
}

// App holds the state behind the demo routes. One App may be registered on
// several servers; its handlers are safe for concurrent use.
type App struct {
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
	users    *userStore
	products *productStore
	static   []staticFile
}

// New creates the app and loads the static directory, if any.
func New(opts Options) (*App, error) {
	a := &App{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "app").Logger(),
		now:      time.Now,
		users:    newUserStore(maxUsers),
		products: newProductStore(maxProducts),
	}
	if opts.StaticDir != "" {
		files, err := loadStatic(opts.StaticDir, opts.StaticPrefix)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.static = files
		a.log.Info().Str("dir", opts.StaticDir).Int("files", len(files)).Msg("static files loaded")
	}
	return a, nil
}

type route struct {
	method  httpserver.Method
	path    string
	handler func() []byte
}

func (a *App) routes(stats func() httpserver.Stats) []route {
	rs := []route{
		{httpserver.GET, "/hello", a.hello},
		{httpserver.GET, "/time", a.currentTime},

		{httpserver.GET, "/api/users", a.listUsers},
		{httpserver.POST, "/api/users", a.createUser},
		{httpserver.PUT, "/api/users", a.updateUser},
		{httpserver.DELETE, "/api/users", a.deleteUser},
		{httpserver.GET, "/api/status", func() []byte { return a.status(stats) }},
		{httpserver.GET, "/api/health", a.health},

		{httpserver.GET, "/api/products", a.listProducts},
		{httpserver.GET, "/api/products/1", a.getProduct},
		{httpserver.POST, "/api/products", a.createProduct},
		{httpserver.PUT, "/api/products/1", a.updateProduct},
		{httpserver.DELETE, "/api/products/1", a.deleteProduct},
		{httpserver.GET, "/api/products/search", a.searchProducts},
		{httpserver.GET, "/api/stats", a.apiStats},
	}
	for _, f := range a.static {
		for _, p := range f.paths {
			rs = append(rs, route{httpserver.GET, p, f.produce})
		}
	}
	return rs
}

// Register adds every route to srv. When srv exposes Stats, its own counters
// are reported by /api/status.
func (a *App) Register(srv Registrar) error {
	var stats func() httpserver.Stats
	if src, ok := srv.(statsSource); ok {
		stats = src.Stats
	}
	for _, r := range a.routes(stats) {
		if err := srv.AddRoute(r.method, r.path, httpserver.HandlerFunc(r.handler)); err != nil {
			return fmt.Errorf("app: register %s %s: %w", r.method, r.path, err)
		}
	}
	return nil
}

func (a *App) hello() []byte {
	return []byte("Hello, World from tinyhttpd!")
}

func (a *App) currentTime() []byte {
	return []byte(a.now().Format("Current time: 2006-01-02 15:04:05"))
}

// document builds a JSON body with sjson, stopping at the first error.
type document struct {
	b   []byte
	err error
}

func newDocument() *document {
	return &document{b: []byte("{}")}
}

func (d *document) set(path string, value any) *document {
	if d.err == nil {
		d.b, d.err = sjson.SetBytes(d.b, path, value)
	}
	return d
}

func (d *document) setRaw(path string, raw []byte) *document {
	if d.err == nil {
		d.b, d.err = sjson.SetRawBytes(d.b, path, raw)
	}
	return d
}

func (d *document) bytes() []byte {
	if d.err != nil {
		return []byte(fmt.Sprintf(`{"error":%q}`, d.err.Error()))
	}
	return pretty.Pretty(d.b)
}

func (a *App) errorBody(message string, status int) []byte {
	return newDocument().
		set("error", message).
		set("status", status).
		set("timestamp", a.now().Unix()).
		bytes()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"tinyhttpd/internal/app"
	"tinyhttpd/internal/config"
	"tinyhttpd/internal/httpserver"
	"tinyhttpd/internal/logging"
	"tinyhttpd/internal/socks"
	"tinyhttpd/internal/tunnel"
)

// service is one long running part of the process.
type service struct {
	name string
	run  func(ctx context.Context) error
}

// run starts the HTTP server and the enabled add-ons, prints the banner to
// out and blocks until ctx is done or one of them fails.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, out io.Writer) error {
	mode, err := httpserver.ParseMode(cfg.Server.Mode)
	if err != nil {
		return err
	}

	serverCfg := httpserver.Config{
		Port:       cfg.Server.Port,
		MaxClients: cfg.Server.MaxClients,
		Backlog:    cfg.Server.Backlog,
		Mode:       mode,
		BufferSize: cfg.Server.BufferSize,
		Logger:     &logger,
	}
	srv, err := httpserver.New(serverCfg)
	if err != nil {
		return err
	}

	opts := app.Options{
		StaticDir:    cfg.Static.Dir,
		StaticPrefix: cfg.Static.Prefix,
		Logger:       logger,
	}
	var tl *tunnel.Listener
	if cfg.Tunnel.Enabled {
		ln, err := net.Listen("tcp", cfg.Tunnel.Listen)
		if err != nil {
			srv.Close()
			return fmt.Errorf("tunnel: %w", err)
		}
		tl = tunnel.Listen(ln, cfg.Tunnel.XorKey, logger)
		opts.TunnelSessions = tl.Sessions
	}
	closeAll := func() {
		if tl != nil {
			tl.Close()
		}
		srv.Close()
	}

	application, err := app.New(opts)
	if err != nil {
		closeAll()
		return err
	}
	if err := application.Register(srv); err != nil {
		closeAll()
		return err
	}

	services := []service{{name: "http", run: srv.ListenAndServe}}
	b := banner{
		addr:   srv.Addr().String(),
		mode:   mode,
		routes: srv.Routes(),
	}

	var tsrv *httpserver.Server
	if tl != nil {
		tsrv, err = newTunnelServer(serverCfg, tl, application)
		if err != nil {
			closeAll()
			return err
		}
		services = append(services, service{name: "tunnel", run: tsrv.ListenAndServe})
		b.tunnel = tl.Addr().String()
	}

	if cfg.Socks.Enabled {
		svc, addr, err := newSocksService(cfg, srv.Addr(), logger)
		if err != nil {
			if tsrv != nil {
				tsrv.Close()
			}
			closeAll()
			return err
		}
		services = append(services, svc)
		b.socks = addr
	}

	b.print(out)
	return runServices(ctx, services, logging.WithComponent(logger, "main"))
}

// newTunnelServer runs a second server on the streams accepted by tl; closing
// the returned server closes tl.
func newTunnelServer(base httpserver.Config, tl *tunnel.Listener, application *app.App) (*httpserver.Server, error) {
	base.Listener = tl
	tsrv, err := httpserver.New(base)
	if err != nil {
		return nil, err
	}
	if err := application.Register(tsrv); err != nil {
		tsrv.Close()
		return nil, err
	}
	return tsrv, nil
}

func newSocksService(cfg *config.Config, httpAddr net.Addr, logger zerolog.Logger) (service, string, error) {
	target, ok := httpAddr.(*net.TCPAddr)
	if !ok {
		return service{}, "", fmt.Errorf("socks: unsupported server address %v", httpAddr)
	}
	if target.IP.IsUnspecified() {
		target = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: target.Port}
	}

	gateway, err := socks.NewGateway(target, cfg.Tunnel.XorKey, logger)
	if err != nil {
		return service{}, "", err
	}
	ln, err := net.Listen("tcp", cfg.Socks.Listen)
	if err != nil {
		return service{}, "", fmt.Errorf("socks: %w", err)
	}

	run := func(ctx context.Context) error {
		stop := context.AfterFunc(ctx, func() { ln.Close() })
		defer stop()
		return gateway.Serve(ln)
	}
	return service{name: "socks", run: run}, ln.Addr().String(), nil
}

// runServices runs every service until ctx is done. The first failure stops
// the others and is returned.
func runServices(ctx context.Context, services []service, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, svc := range services {
		wg.Add(1)
		go func(svc service) {
			defer wg.Done()
			err := svc.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("service", svc.name).Msg("service failed")
				once.Do(func() { firstErr = fmt.Errorf("%s: %w", svc.name, err) })
			} else {
				logger.Debug().Str("service", svc.name).Msg("service stopped")
			}
			cancel()
		}(svc)
	}
	wg.Wait()
	return firstErr
}

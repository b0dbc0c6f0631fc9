package tunnel

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tinyhttpd/internal/httpserver"
)

func startTunnelServer(t *testing.T, key string) (*Listener, *httpserver.Server) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	tl := Listen(ln, key, zerolog.Nop())

	srv, err := httpserver.New(httpserver.Config{Listener: tl, MaxClients: 4})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.HandleFunc(httpserver.GET, "/hello", func() []byte {
		return []byte("Hello over yamux")
	}); err != nil {
		t.Fatalf("Failed to add route: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return tl, srv
}

func request(t *testing.T, conn net.Conn, line string) string {
	t.Helper()
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(line + "\r\nHost: tunnel\r\n\r\n")); err != nil {
		t.Fatalf("Failed to write request: %v", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return string(resp)
}

func TestHTTPOverTunnel(t *testing.T) {
	for _, key := range []string{"", "s3cret"} {
		t.Run("key="+key, func(t *testing.T) {
			tl, _ := startTunnelServer(t, key)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			session, err := Dial(ctx, tl.Addr().String(), key, zerolog.Nop())
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer session.Close()

			// several streams share one session
			for i := 0; i < 3; i++ {
				stream, err := session.Open()
				if err != nil {
					t.Fatalf("Failed to open stream: %v", err)
				}
				resp := request(t, stream, "GET /hello HTTP/1.1")
				if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n") {
					t.Fatalf("Expected 200 response, got %q", resp)
				}
				if !strings.HasSuffix(resp, "\r\n\r\nHello over yamux") {
					t.Errorf("Unexpected body in %q", resp)
				}
			}

			stream, err := session.Open()
			if err != nil {
				t.Fatalf("Failed to open stream: %v", err)
			}
			resp := request(t, stream, "GET /missing HTTP/1.1")
			if !strings.HasPrefix(resp, "HTTP/1.1 404 Not Found\r\n") {
				t.Errorf("Expected 404 response, got %q", resp)
			}
		})
	}
}

func TestListenerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	tl := Listen(ln, "", zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := Dial(ctx, tl.Addr().String(), "", zerolog.Nop())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer session.Close()

	deadline := time.Now().Add(5 * time.Second)
	for tl.Sessions() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected 1 session, got %d", tl.Sessions())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := tl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := tl.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Expected net.ErrClosed after Close, got %v", err)
	}
	if tl.Sessions() != 0 {
		t.Errorf("Expected sessions to be closed, %d left", tl.Sessions())
	}

	select {
	case <-session.CloseChan():
	case <-time.After(5 * time.Second):
		t.Error("client session was not closed by the server")
	}

	// a second Close is a no-op
	if err := tl.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr, "", zerolog.Nop()); err == nil {
		t.Error("Expected error dialing a closed port")
	}
}

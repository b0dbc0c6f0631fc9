package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"tinyhttpd/internal/common"
	"tinyhttpd/internal/httpserver"
)

// banner is the startup summary printed to the terminal.
type banner struct {
	addr   string
	mode   httpserver.Mode
	tunnel string
	socks  string
	routes []httpserver.Route
}

var methodColors = map[httpserver.Method]*color.Color{
	httpserver.GET:    color.New(color.FgGreen),
	httpserver.POST:   color.New(color.FgYellow),
	httpserver.PUT:    color.New(color.FgBlue),
	httpserver.DELETE: color.New(color.FgRed),
}

func (b banner) print(w io.Writer) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "%s %s\n", appName, common.Version)

	fmt.Fprintf(w, "  http    http://%s (%s)\n", b.addr, b.mode)
	if b.tunnel != "" {
		fmt.Fprintf(w, "  tunnel  %s\n", b.tunnel)
	}
	if b.socks != "" {
		fmt.Fprintf(w, "  socks5  %s\n", b.socks)
	}

	fmt.Fprintf(w, "\n%d routes:\n", len(b.routes))
	for _, r := range b.routes {
		method := fmt.Sprintf("%-6s", r.Method)
		if c, ok := methodColors[r.Method]; ok {
			method = c.Sprint(method)
		}
		fmt.Fprintf(w, "  %s %s\n", method, r.Path)
	}
	fmt.Fprintln(w, color.HiBlackString("Press Ctrl+C to stop"))
}

// Package common holds process information and file helpers shared by the
// command and the demo application.
package common

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// Version is overridden at build time with -ldflags "-X tinyhttpd/internal/common.Version=...".
var Version = "0.1.0"

var startTime = time.Now()

// Info holds host and process information reported by the status routes.
type Info struct {
	Hostname  string
	OS        string
	Arch      string
	Version   string
	GoVersion string
	NumCPU    int
	StartTime time.Time
}

// GetInfo returns information about the host and the running process.
func GetInfo() *Info {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Info{
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Version:   Version,
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		StartTime: startTime,
	}
}

// Uptime is the time elapsed since the process started, in whole seconds.
func (i *Info) Uptime() time.Duration {
	return time.Since(i.StartTime).Truncate(time.Second)
}

func (i *Info) String() string {
	return fmt.Sprintf(
		"Hostname: %s\n"+
			"OS: %s/%s\n"+
			"Version: %s\n"+
			"Go Version: %s\n"+
			"NumCPU: %d\n"+
			"Uptime: %s\n",
		i.Hostname,
		i.OS, i.Arch,
		i.Version,
		i.GoVersion,
		i.NumCPU,
		i.Uptime(),
	)
}

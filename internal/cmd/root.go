// Package cmd implements the tinyhttpd command line.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tinyhttpd/internal/common"
	"tinyhttpd/internal/config"
	"tinyhttpd/internal/logging"
)

const appName = "tinyhttpd"

// options holds the command line flags. Server flags only override the
// configuration when they were set explicitly.
type options struct {
	configPath string
	debug      bool

	port       int
	maxClients int
	backlog    int
	mode       string
	staticDir  string
	tunnel     bool
	socks      bool
	xorKey     string
}

// NewRootCmd creates the root command for tinyhttpd
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "A small single-loop HTTP server",
		Long: fmt.Sprintf(`%s - a small single-loop HTTP server

Serves the demo routes on a bounded client table, optionally behind a yamux
tunnel and a SOCKS5 gateway.
`, appName),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			logger, closer := logging.New(cfg.Logging, opts.debug)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	pf.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")

	f := rootCmd.Flags()
	f.IntVarP(&opts.port, "port", "p", 0, "Port to listen on (overrides config)")
	f.IntVar(&opts.maxClients, "max-clients", 0, "Size of the client table")
	f.IntVar(&opts.backlog, "backlog", 0, "Listen backlog")
	f.StringVarP(&opts.mode, "mode", "m", "", "Bind mode: dev (loopback) or prod (all interfaces)")
	f.StringVar(&opts.staticDir, "static-dir", "", "Directory of static files to serve")
	f.BoolVar(&opts.tunnel, "tunnel", false, "Also serve over a yamux tunnel")
	f.BoolVar(&opts.socks, "socks", false, "Start the SOCKS5 gateway")
	f.StringVar(&opts.xorKey, "xor-key", "", "XOR key for tunnel and SOCKS5 connections")

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// loadConfig reads the config file, if any, and applies explicitly set flags.
func (o *options) loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	if flags.Changed("max-clients") {
		cfg.Server.MaxClients = o.maxClients
	}
	if flags.Changed("backlog") {
		cfg.Server.Backlog = o.backlog
	}
	if flags.Changed("mode") {
		cfg.Server.Mode = o.mode
	}
	if flags.Changed("static-dir") {
		cfg.Static.Dir = o.staticDir
	}
	if flags.Changed("tunnel") {
		cfg.Tunnel.Enabled = o.tunnel
	}
	if flags.Changed("socks") {
		cfg.Socks.Enabled = o.socks
	}
	if flags.Changed("xor-key") {
		cfg.Tunnel.XorKey = o.xorKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := common.GetInfo()
			if verbose {
				fmt.Fprint(cmd.OutOrStdout(), info.String())
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n",
				appName, info.Version, info.GoVersion, info.OS, info.Arch)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print host and runtime details")
	return cmd
}

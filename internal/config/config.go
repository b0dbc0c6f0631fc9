// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPort overrides server.port when set.
const EnvPort = "TINYHTTPD_PORT"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Tunnel  TunnelConfig `yaml:"tunnel"`
	Socks   SocksConfig  `yaml:"socks"`
	Static  StaticConfig `yaml:"static"`
	Logging LogConfig    `yaml:"logging"`
}

// ServerConfig contains the listener and client table settings
type ServerConfig struct {
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`
	Backlog    int    `yaml:"backlog"`
	Mode       string `yaml:"mode"` // "dev" binds to loopback, "prod" to all interfaces
	BufferSize int    `yaml:"buffer_size"`
}

// TunnelConfig contains settings for serving over yamux streams
type TunnelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	XorKey  string `yaml:"xor_key"`
}

// SocksConfig contains settings for the SOCKS5 gateway
type SocksConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// StaticConfig contains settings for serving files from a directory
type StaticConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// LogConfig contains settings for logging
type LogConfig struct {
	LogToFile   bool   `yaml:"log_to_file"`
	LogFilePath string `yaml:"log_file_path"`
	MaxSize     int    `yaml:"max_size"`    // megabytes
	MaxBackups  int    `yaml:"max_backups"` // rotated files to keep
	MaxAge      int    `yaml:"max_age"`     // days
	Compress    bool   `yaml:"compress"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			MaxClients: 10,
			Backlog:    5,
			Mode:       "dev",
			BufferSize: 1024,
		},
		Tunnel: TunnelConfig{
			Listen: "127.0.0.1:8443",
		},
		Socks: SocksConfig{
			Listen: "127.0.0.1:1080",
		},
		Static: StaticConfig{
			Prefix: "/static/",
		},
		Logging: LogConfig{
			LogFilePath: "tinyhttpd.log",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			Compress:    true,
		},
	}
}

// Load reads configuration from a file on top of the default values. Keys
// present in the file win even when they hold a zero value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides
// applied, for runs without a config file.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	v := os.Getenv(EnvPort)
	if v == "" {
		return nil
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
	}
	c.Server.Port = port
	return nil
}

// Validate checks value ranges that yaml cannot express
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxClients <= 0 {
		return fmt.Errorf("server.max_clients must be positive, got %d", c.Server.MaxClients)
	}
	if c.Server.Backlog <= 0 {
		return fmt.Errorf("server.backlog must be positive, got %d", c.Server.Backlog)
	}
	if c.Server.BufferSize <= 0 {
		return fmt.Errorf("server.buffer_size must be positive, got %d", c.Server.BufferSize)
	}
	switch strings.ToLower(c.Server.Mode) {
	case "dev", "prod":
	default:
		return fmt.Errorf("server.mode must be dev or prod, got %q", c.Server.Mode)
	}
	if c.Static.Dir != "" && !strings.HasPrefix(c.Static.Prefix, "/") {
		return fmt.Errorf("static.prefix must start with /, got %q", c.Static.Prefix)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/mona/pkg/log"
)

// Config is the top-level demo configuration loaded from a YAML file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
	TLS     TLSConfig     `yaml:"tls"`
	Capture CaptureConfig `yaml:"capture"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig holds a log level and output format in pkg/log's terms.
// cmd/mona does not read it: its logger is configured from the
// --log-level and --log-json flags.
type LogConfig struct {
	Level      log.Level `yaml:"level"`
	JSONOutput bool      `yaml:"json_output"`
}

// RuntimeConfig sizes the ThreadPool and its I/O buffers.
type RuntimeConfig struct {
	Tracks       int `yaml:"tracks"`
	SocketBuffer int `yaml:"socket_buffer"`
	FileBuffer   int `yaml:"file_buffer"`
}

// TLSConfig controls whether the demo TCP server and client negotiate
// TLS, and with which hostnames the self-signed certificate is issued.
type TLSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Hosts   []string `yaml:"hosts"`
}

// CaptureConfig controls the bbolt-backed file capture decoder.
type CaptureConfig struct {
	Path      string `yaml:"path"`
	Bucket    string `yaml:"bucket"`
	ChunkSize int    `yaml:"chunk_size"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the configuration the demo binaries fall back to when
// no file is supplied.
func Default() Config {
	return Config{
		Log: LogConfig{Level: log.InfoLevel, JSONOutput: false},
		Runtime: RuntimeConfig{
			Tracks:       4,
			SocketBuffer: 64 * 1024,
			FileBuffer:   64 * 1024,
		},
		TLS: TLSConfig{Enabled: false, Hosts: []string{"localhost"}},
		Capture: CaptureConfig{
			Path:      "mona-capture.db",
			Bucket:    "capture",
			ChunkSize: 32 * 1024,
		},
		Metrics: MetricsConfig{Enabled: true, Address: ":9090"},
	}
}

// Load reads and parses a YAML configuration file, seeding fields the
// file omits from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

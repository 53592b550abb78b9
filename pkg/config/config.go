package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"logbridge/pkg/sink"
)

const (
	DefaultDataDir    = "./data"
	DefaultConnection = "session"
	DefaultWorkers    = 4
	DefaultQueueSize  = 1024
	DefaultTopic      = "/stream"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	DataDir    string        `yaml:"data_dir"`
	Connection string        `yaml:"connection"`
	Sink       SinkConfig    `yaml:"sink"`
	Source     *SourceConfig `yaml:"source,omitempty"`
	Log        LogConfig     `yaml:"log"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

type SinkConfig struct {
	Workers          int  `yaml:"workers"`
	QueueSize        int  `yaml:"queue_size"`
	CompressionLevel *int `yaml:"compression_level,omitempty"`
}

// SourceConfig describes the websocket feed whose frames are recorded.
type SourceConfig struct {
	URL     string   `yaml:"url"`
	Streams []string `yaml:"streams"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"` // "json", "console"
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config usable without a file.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOGBRIDGE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOGBRIDGE_CONNECTION"); v != "" {
		c.Connection = v
	}
	if v := os.Getenv("LOGBRIDGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Connection == "" {
		c.Connection = DefaultConnection
	}
	if c.Sink.Workers <= 0 {
		c.Sink.Workers = DefaultWorkers
	}
	if c.Sink.QueueSize <= 0 {
		c.Sink.QueueSize = DefaultQueueSize
	}
	if c.Source != nil && c.Source.Topic == "" {
		c.Source.Topic = DefaultTopic
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	if !sink.ValidName(c.Connection) {
		return fmt.Errorf("%w: connection %q must be a single path element", ErrInvalid, c.Connection)
	}
	if lvl := c.Sink.CompressionLevel; lvl != nil && (*lvl < -2 || *lvl > 9) {
		return fmt.Errorf("%w: compression_level %d out of range [-2, 9]", ErrInvalid, *lvl)
	}
	if c.Source != nil && c.Source.URL == "" {
		return fmt.Errorf("%w: source.url is required when source is set", ErrInvalid)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q", ErrInvalid, c.Log.Encoding)
	}
	return nil
}

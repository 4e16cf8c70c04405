// Package config loads gridline's server configuration from YAML, applies
// environment overrides and defaults, and watches the file for live reload
// of the fields that are safe to change without a restart.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	DataRoot string       `yaml:"data_root" default:"./data"`
	Server   ServerConfig `yaml:"server"`
	Segment  SegmentConfig `yaml:"segment"`
	Auth     AuthConfig   `yaml:"auth"`
	LogLevel string       `yaml:"log_level" default:"info"`
}

type ServerConfig struct {
	TCPAddress  string `yaml:"tcp_address" default:":8090"`
	TLSAddress  string `yaml:"tls_address"`
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`
	QUICAddress string `yaml:"quic_address" default:":8091"`
	HTTPAddress string `yaml:"http_address" default:":8092"`
	MetricsAddress string `yaml:"metrics_address" default:":9090"`
}

// SegmentConfig governs rollover, indexing, retention and flush policy,
// shared by every partition (mapped to streaming.Limits at startup).
type SegmentConfig struct {
	SizeBytes         int64         `yaml:"size_bytes" default:"1073741824"`
	IndexStrideBytes  int64         `yaml:"index_stride_bytes" default:"4096"`
	MaxPartitionBytes int64         `yaml:"max_partition_bytes" default:"0"`
	MessageExpiry     time.Duration `yaml:"message_expiry" default:"0"`
	FlushEveryN       int           `yaml:"flush_every_n" default:"1000"`
	FlushEvery        time.Duration `yaml:"flush_every" default:"1s"`
	DurableAck        bool          `yaml:"durable_ack" default:"false"`
	ClosedSegmentLRU  int           `yaml:"closed_segment_lru" default:"16"`
	RetentionInterval time.Duration `yaml:"retention_interval" default:"30s"`
}

type AuthConfig struct {
	Enabled      bool   `yaml:"enabled" default:"true"`
	RootUsername string `yaml:"root_username" default:"root"`
	RootPassword string `yaml:"root_password" default:"gridline"`
	JWTSecret    string `yaml:"jwt_secret"`
	JWTTTL       time.Duration `yaml:"jwt_ttl" default:"24h"`
}

// Load reads a YAML file, applies defaults for zero-valued fields, then
// layers on environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{Auth: AuthConfig{Enabled: true}}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg)
	loadFromEnv(cfg)
	return cfg, nil
}

// applyDefaults fills zero-valued fields, documented per field by the
// `default:"..."` tag above (read by eye, not reflection).
func applyDefaults(c *Config) {
	if c.DataRoot == "" {
		c.DataRoot = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.TCPAddress == "" {
		c.Server.TCPAddress = ":8090"
	}
	if c.Server.QUICAddress == "" {
		c.Server.QUICAddress = ":8091"
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8092"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Segment.SizeBytes == 0 {
		c.Segment.SizeBytes = 1 << 30
	}
	if c.Segment.IndexStrideBytes == 0 {
		c.Segment.IndexStrideBytes = 4096
	}
	if c.Segment.FlushEveryN == 0 {
		c.Segment.FlushEveryN = 1000
	}
	if c.Segment.FlushEvery == 0 {
		c.Segment.FlushEvery = time.Second
	}
	if c.Segment.ClosedSegmentLRU == 0 {
		c.Segment.ClosedSegmentLRU = 16
	}
	if c.Segment.RetentionInterval == 0 {
		c.Segment.RetentionInterval = 30 * time.Second
	}
	if c.Auth.RootUsername == "" {
		c.Auth.RootUsername = "root"
	}
	if c.Auth.RootPassword == "" {
		c.Auth.RootPassword = "gridline"
	}
	if c.Auth.JWTTTL == 0 {
		c.Auth.JWTTTL = 24 * time.Hour
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "gridline-dev-secret"
	}
}

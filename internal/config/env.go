package config

import "os"

// loadFromEnv overrides config fields from GRIDLINE_* environment variables,
// applied after file defaults.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("GRIDLINE_DATA_ROOT"); v != "" {
		cfg.DataRoot = v
	}
	if v := os.Getenv("GRIDLINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GRIDLINE_TCP_ADDRESS"); v != "" {
		cfg.Server.TCPAddress = v
	}
	if v := os.Getenv("GRIDLINE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("GRIDLINE_ROOT_PASSWORD"); v != "" {
		cfg.Auth.RootPassword = v
	}
	if v := os.Getenv("GRIDLINE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// GetEnvOrDefault returns an environment variable or a fallback.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

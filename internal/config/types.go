// Package config contains all configuration types and loading logic.
package config

// ServerConfig holds server-level configuration.
type ServerConfig struct {
	ListenAddress string `toml:"listen_address" mapstructure:"listen_address"`
	BindIP        string `toml:"bind_ip" mapstructure:"bind_ip"`
	PIDFilePath   string `toml:"pidfilepath" mapstructure:"pidfilepath"`
	CORSOrigins   string `toml:"cors_origins" mapstructure:"cors_origins"`
}

// MappingConfig is one extra extension to MIME type association.
type MappingConfig struct {
	Extension string `toml:"extension" mapstructure:"extension"`
	Type      string `toml:"type" mapstructure:"type"`
}

// DatabaseConfig selects where the MIME database comes from and where it is saved.
type DatabaseConfig struct {
	// Seed is "defaults", "empty" or "backend".
	Seed        string          `toml:"seed" mapstructure:"seed"`
	Backend     string          `toml:"backend" mapstructure:"backend"`
	Path        string          `toml:"path" mapstructure:"path"`
	AutoReindex bool            `toml:"auto_reindex" mapstructure:"auto_reindex"`
	Mappings    []MappingConfig `toml:"mapping" mapstructure:"mapping"`
}

// ExtraMappings returns the configured mappings keyed by extension.
// A later entry for the same extension replaces an earlier one.
func (d DatabaseConfig) ExtraMappings() map[string]string {
	extra := make(map[string]string, len(d.Mappings))
	for _, m := range d.Mappings {
		extra[m.Extension] = m.Type
	}
	return extra
}

// TimeoutConfig holds timeout configuration.
type TimeoutConfig struct {
	Read     string `mapstructure:"readtimeout" toml:"readtimeout"`
	Write    string `mapstructure:"writetimeout" toml:"writetimeout"`
	Idle     string `mapstructure:"idletimeout" toml:"idletimeout"`
	Shutdown string `mapstructure:"shutdown" toml:"shutdown"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled        bool   `toml:"enabled" mapstructure:"enabled"`
	Path           string `toml:"path" mapstructure:"path"`
	SystemInterval string `toml:"system_interval" mapstructure:"system_interval"`
}

// CacheConfig holds lookup cache configuration.
type CacheConfig struct {
	Enabled         bool   `toml:"enabled" mapstructure:"enabled"`
	TTL             string `toml:"ttl" mapstructure:"ttl"`
	CleanupInterval string `toml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// SQLiteConfig holds the SQLite backend configuration.
type SQLiteConfig struct {
	DBPath string `toml:"db_path" mapstructure:"db_path"`
}

// RedisConfig holds the Redis backend configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// SecurityConfig holds API authentication configuration.
type SecurityConfig struct {
	EnableJWT     bool   `toml:"enablejwt" mapstructure:"enablejwt"`
	JWTSecret     string `toml:"jwtsecret" mapstructure:"jwtsecret"`
	JWTAlgorithm  string `toml:"jwtalgorithm" mapstructure:"jwtalgorithm"`
	JWTExpiration string `toml:"jwtexpiration" mapstructure:"jwtexpiration"`
}

// BuildConfig holds build information.
type BuildConfig struct {
	Version string `mapstructure:"version"`
}

// Config is the top-level configuration struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Cache    CacheConfig    `mapstructure:"cache"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Build    BuildConfig    `mapstructure:"build"`
}

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// Seed modes for database.seed.
const (
	SeedDefaults = "defaults"
	SeedEmpty    = "empty"
	SeedBackend  = "backend"
)

// Backend names for database.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// LoadConfig loads configuration from a TOML file using viper.
// Environment variables prefixed with MIMEDB_ override file values,
// e.g. MIMEDB_DATABASE_BACKEND=redis.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = "./config.toml"
	}

	if !fileExists(configFile) {
		return nil, fmt.Errorf("configuration file not found: %s", configFile)
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("toml")
	v.SetEnvPrefix("MIMEDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&conf)

	log.Infof("Configuration loaded from %s", configFile)
	return &conf, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	conf := &Config{}
	conf.Database.AutoReindex = true
	conf.Metrics.Enabled = true
	conf.Cache.Enabled = true
	applyDefaults(conf)
	return conf
}

// setViperDefaults covers the boolean keys whose zero value is not the default.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("database.auto_reindex", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("cache.enabled", true)
}

func applyDefaults(conf *Config) {
	if conf.Server.ListenAddress == "" {
		conf.Server.ListenAddress = "8080"
	}
	if conf.Server.BindIP == "" {
		conf.Server.BindIP = "0.0.0.0"
	}

	if conf.Database.Seed == "" {
		conf.Database.Seed = SeedDefaults
	}
	if conf.Database.Backend == "" {
		conf.Database.Backend = BackendFile
	}
	if conf.Database.Path == "" {
		conf.Database.Path = "./mime.types"
	}

	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	if conf.Logging.MaxSize == 0 {
		conf.Logging.MaxSize = 100
	}
	if conf.Logging.MaxBackups == 0 {
		conf.Logging.MaxBackups = 7
	}
	if conf.Logging.MaxAge == 0 {
		conf.Logging.MaxAge = 30
	}

	if conf.Timeouts.Read == "" {
		conf.Timeouts.Read = "30s"
	}
	if conf.Timeouts.Write == "" {
		conf.Timeouts.Write = "30s"
	}
	if conf.Timeouts.Idle == "" {
		conf.Timeouts.Idle = "120s"
	}
	if conf.Timeouts.Shutdown == "" {
		conf.Timeouts.Shutdown = "30s"
	}

	if conf.Metrics.Path == "" {
		conf.Metrics.Path = "/metrics"
	}
	if conf.Metrics.SystemInterval == "" {
		conf.Metrics.SystemInterval = "15s"
	}

	if conf.Cache.TTL == "" {
		conf.Cache.TTL = "10m"
	}
	if conf.Cache.CleanupInterval == "" {
		conf.Cache.CleanupInterval = "30m"
	}

	if conf.SQLite.DBPath == "" {
		conf.SQLite.DBPath = "./mimedb.sqlite"
	}

	if conf.Redis.Addr == "" {
		conf.Redis.Addr = "localhost:6379"
	}
	if conf.Redis.Key == "" {
		conf.Redis.Key = "mimedb:types"
	}

	if conf.Security.JWTAlgorithm == "" {
		conf.Security.JWTAlgorithm = "HS256"
	}
	if conf.Security.JWTExpiration == "" {
		conf.Security.JWTExpiration = "24h"
	}

	if conf.Build.Version == "" {
		conf.Build.Version = "1.0.0"
	}
}

// ValidateConfig performs basic configuration validation.
func ValidateConfig(c *Config) error {
	if c.Server.ListenAddress == "" {
		return errors.New("server.listen_address is required")
	}

	switch c.Database.Seed {
	case SeedDefaults, SeedEmpty, SeedBackend:
	default:
		return fmt.Errorf("database.seed must be one of %q, %q, %q: got %q",
			SeedDefaults, SeedEmpty, SeedBackend, c.Database.Seed)
	}

	switch c.Database.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path is required for the file backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLite.DBPath) == "" {
			return errors.New("sqlite.db_path is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown database.backend %q", c.Database.Backend)
	}

	for i, m := range c.Database.Mappings {
		if m.Extension == "" || m.Type == "" {
			return fmt.Errorf("database.mapping[%d]: extension and type are required", i)
		}
	}

	durations := map[string]string{
		"timeouts.readtimeout":    c.Timeouts.Read,
		"timeouts.writetimeout":   c.Timeouts.Write,
		"timeouts.idletimeout":    c.Timeouts.Idle,
		"timeouts.shutdown":       c.Timeouts.Shutdown,
		"cache.ttl":               c.Cache.TTL,
		"cache.cleanup_interval":  c.Cache.CleanupInterval,
		"metrics.system_interval": c.Metrics.SystemInterval,
		"security.jwtexpiration":  c.Security.JWTExpiration,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
	}

	if c.Security.EnableJWT && strings.TrimSpace(c.Security.JWTSecret) == "" {
		return errors.New("security.jwtsecret is required when security.enablejwt is true")
	}

	return nil
}

// MustDuration parses a duration that ValidateConfig has already checked.
func MustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warnf("Invalid duration %q, using 0: %v", s, err)
		return 0
	}
	return d
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GenerateMinimalConfig returns a minimal example configuration string.
func GenerateMinimalConfig() string {
	return `# mimedb - Minimal Configuration

[server]
listen_address = "8080"
bind_ip = "0.0.0.0"
pidfilepath = "/var/run/mimedb.pid"

[database]
# defaults | empty | backend
seed = "defaults"
# file | sqlite | redis
backend = "file"
path = "./mime.types"
auto_reindex = true

[[database.mapping]]
extension = "md"
type = "text/markdown"

[logging]
level = "info"
file = ""
max_size = 100
max_backups = 7
max_age = 30
compress = true

[timeouts]
readtimeout = "30s"
writetimeout = "30s"
idletimeout = "120s"
shutdown = "30s"

[metrics]
enabled = true
path = "/metrics"
system_interval = "15s"

[cache]
enabled = true
ttl = "10m"
cleanup_interval = "30m"

[sqlite]
db_path = "./mimedb.sqlite"

[redis]
addr = "localhost:6379"
password = ""
db = 0
key = "mimedb:types"

[security]
enablejwt = false
jwtsecret = ""
jwtalgorithm = "HS256"
jwtexpiration = "24h"

[build]
version = "1.0.0"
`
}

// CreateMinimalConfig writes the minimal configuration to path.
func CreateMinimalConfig(path string) error {
	if path == "" {
		path = "config.toml"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	_, err = fmt.Fprint(w, GenerateMinimalConfig())
	if err != nil {
		return err
	}
	return w.Flush()
}

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError describes a configuration that could not be loaded or is
// invalid.
type ConfigError struct {
	Op     string
	Reason string
	Err    error
}

func (c ConfigError) Error() string {
	if c.Err != nil {
		return fmt.Sprintf("%s: %s: %s", c.Op, c.Reason, c.Err)
	}
	return fmt.Sprintf("%s: %s", c.Op, c.Reason)
}

func (c ConfigError) Unwrap() error { return c.Err }

type Config struct {
	Auth   AuthConfig   `yaml:"auth"`
	BOS    BOSConfig    `yaml:"bos"`
	Server ServerConfig `yaml:"server"`
	Cookie CookieConfig `yaml:"cookie"`
	Store  StoreConfig  `yaml:"store"`
	Status StatusConfig `yaml:"status"`
	Log    LogConfig    `yaml:"log"`
}

type AuthConfig struct {
	Listen string `yaml:"listen"`
}

type BOSConfig struct {
	Listen string `yaml:"listen"`
	// Advertise is the host:port handed to clients after login. Empty
	// derives it from Listen.
	Advertise string `yaml:"advertise"`
}

type ServerConfig struct {
	MaxConnections        int           `yaml:"max_connections"`
	ReadTimeout           time.Duration `yaml:"read_timeout"`
	AcceptRate            float64       `yaml:"accept_rate"`
	AcceptBurst           int           `yaml:"accept_burst"`
	ReusePort             bool          `yaml:"reuse_port"`
	StrictInboundSequence bool          `yaml:"strict_inbound_sequence"`
	SendLoginErrors       bool          `yaml:"send_login_errors"`
	LoginErrorURL         string        `yaml:"login_error_url"`
	RequireCookie         bool          `yaml:"require_cookie"`
}

type CookieConfig struct {
	// Key is the hex-encoded 16-byte key sealing login cookies. Empty
	// generates a random key on startup.
	Key string        `yaml:"key"`
	TTL time.Duration `yaml:"ttl"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Seed lists accounts created on startup. Existing accounts are left
	// untouched.
	Seed []SeedUser `yaml:"seed"`
}

type SeedUser struct {
	UIN      string `yaml:"uin"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type StatusConfig struct {
	// Listen is the address of the status HTTP server. Empty disables it.
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

func LoadConfig(path string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, ConfigError{"load_config", "config file not found", err}
			}
			return nil, ConfigError{"load_config", "failed to read config file", err}
		}
		if err = yaml.Unmarshal(data, config); err != nil {
			return nil, ConfigError{"parse_config", "invalid YAML format in config file", err}
		}
	}

	if err := overrideFromEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(config *Config) {
	config.Auth.Listen = ":5190"
	config.BOS.Listen = ":5191"

	config.Server.MaxConnections = 10
	config.Server.AcceptBurst = 1

	config.Cookie.TTL = 5 * time.Minute

	config.Store.Driver = DriverMemory

	config.Log.Level = "info"
	config.Log.Format = "console"
}

func overrideFromEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, into *string) {
		if v, ok := lookup(key); ok && v != "" {
			*into = v
		}
	}
	var err error
	boolean := func(key string, into *bool) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			var b bool
			if b, err = strconv.ParseBool(v); err != nil {
				err = ConfigError{"env_override", key + " must be a boolean", err}
				return
			}
			*into = b
		}
	}
	integer := func(key string, into *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			var n int
			if n, err = strconv.Atoi(v); err != nil {
				err = ConfigError{"env_override", key + " must be an integer", err}
				return
			}
			*into = n
		}
	}
	duration := func(key string, into *time.Duration) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			var d time.Duration
			if d, err = time.ParseDuration(v); err != nil {
				err = ConfigError{"env_override", key + " must be a duration", err}
				return
			}
			*into = d
		}
	}

	str("GOSCAR_AUTH_LISTEN", &config.Auth.Listen)
	str("GOSCAR_BOS_LISTEN", &config.BOS.Listen)
	str("GOSCAR_BOS_ADVERTISE", &config.BOS.Advertise)
	integer("GOSCAR_MAX_CONNECTIONS", &config.Server.MaxConnections)
	duration("GOSCAR_READ_TIMEOUT", &config.Server.ReadTimeout)
	boolean("GOSCAR_STRICT_INBOUND_SEQUENCE", &config.Server.StrictInboundSequence)
	boolean("GOSCAR_SEND_LOGIN_ERRORS", &config.Server.SendLoginErrors)
	boolean("GOSCAR_REQUIRE_COOKIE", &config.Server.RequireCookie)
	str("GOSCAR_COOKIE_KEY", &config.Cookie.Key)
	duration("GOSCAR_COOKIE_TTL", &config.Cookie.TTL)
	str("GOSCAR_STORE_DRIVER", &config.Store.Driver)
	str("GOSCAR_STORE_DSN", &config.Store.DSN)
	str("GOSCAR_STATUS_LISTEN", &config.Status.Listen)
	str("GOSCAR_LOG_LEVEL", &config.Log.Level)
	str("GOSCAR_LOG_FORMAT", &config.Log.Format)
	return err
}

// CookieKey decodes Cookie.Key. A nil key is returned when none is
// configured.
func (c *Config) CookieKey() ([]byte, error) {
	if c.Cookie.Key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Cookie.Key)
	if err != nil {
		return nil, ConfigError{"validate_config", "cookie.key must be hex encoded", err}
	}
	if len(key) != 16 {
		return nil, ConfigError{Op: "validate_config", Reason: "cookie.key must have 16 bytes"}
	}
	return key, nil
}

func (c *Config) Validate() error {
	if c.Auth.Listen == "" || c.BOS.Listen == "" {
		return ConfigError{Op: "validate_config", Reason: "auth.listen and bos.listen are required"}
	}
	if c.Server.MaxConnections < 0 {
		return ConfigError{Op: "validate_config", Reason: "max_connections must not be negative"}
	}
	if c.Server.ReadTimeout < 0 || c.Cookie.TTL < 0 {
		return ConfigError{Op: "validate_config", Reason: "durations must not be negative"}
	}
	if c.Server.AcceptRate < 0 {
		return ConfigError{Op: "validate_config", Reason: "accept_rate must not be negative"}
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return ConfigError{Op: "validate_config", Reason: "store.dsn is required by the postgres driver"}
		}
	default:
		return ConfigError{Op: "validate_config", Reason: fmt.Sprintf("unknown store driver %q", c.Store.Driver)}
	}
	for i, u := range c.Store.Seed {
		if u.UIN == "" || u.Email == "" || u.Password == "" {
			return ConfigError{Op: "validate_config", Reason: fmt.Sprintf("store.seed[%d] needs uin, email and password", i)}
		}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return ConfigError{Op: "validate_config", Reason: fmt.Sprintf("unknown log format %q", c.Log.Format)}
	}
	if _, err := c.CookieKey(); err != nil {
		return err
	}
	return nil
}

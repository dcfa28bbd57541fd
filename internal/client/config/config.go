package config

import "time"

// Cancel policies applied when a pending registration choice is abandoned.
const (
	CancelKeep     = "keep"
	CancelRollback = "rollback"
)

// Config holds runtime settings for the promoconsig CLI.
//
// APIURL serves the token and profile endpoints; ConsigAPIURL serves the
// registration endpoints. RequestTimeout bounds every HTTP exchange.
type Config struct {
	APIURL         string
	ConsigAPIURL   string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
	ClientIP       string

	StorageBackend string
	StorageDSN     string
	RedisAddr      string
	RedisPassword  string
	RedisPrefix    string

	UseKeyring   bool
	CancelPolicy string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with values suitable for the local stub backend.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://127.0.0.1:8089"
	c.ConsigAPIURL = "http://127.0.0.1:8089"
	c.ClientID = "consignado-web-app"
	c.ClientSecret = "123456"
	c.RequestTimeout = 15 * time.Second
	c.StorageBackend = "sqlite"
	c.StorageDSN = "promoconsig.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "promoconsig:"
	c.UseKeyring = true
	c.CancelPolicy = CancelKeep
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

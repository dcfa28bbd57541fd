package stubapi

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/azfinis/promoconsig/internal/flagx"
	"github.com/azfinis/promoconsig/internal/timex"
)

// Config holds runtime settings for the stub backend.
// Defaults are for local development only.
type Config struct {
	Addr         string
	ClientID     string
	ClientSecret string
	SecretKey    string
	TokenTTL     time.Duration
	FixturesFile string
	LogLevel     string
}

func (c *Config) LoadDefaults() {
	c.Addr = "127.0.0.1:8089"
	c.ClientID = "consignado-web-app"
	c.ClientSecret = "123456"
	c.SecretKey = "stub-secret"
	c.TokenTTL = 30 * time.Minute
	c.LogLevel = "info"
}

type jsonConfig struct {
	Addr         string         `json:"addr"`
	ClientID     string         `json:"client_id"`
	ClientSecret string         `json:"client_secret"`
	SecretKey    string         `json:"secret_key"`
	TokenTTL     timex.Duration `json:"token_ttl"`
	FixturesFile string         `json:"fixtures_file"`
	LogLevel     string         `json:"log_level"`
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}

func parseJSON(cfg *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.Addr, jc.Addr)
	setIf(&cfg.ClientID, jc.ClientID)
	setIf(&cfg.ClientSecret, jc.ClientSecret)
	setIf(&cfg.SecretKey, jc.SecretKey)
	setIf(&cfg.FixturesFile, jc.FixturesFile)
	setIf(&cfg.LogLevel, jc.LogLevel)
	if jc.TokenTTL.Duration > 0 {
		cfg.TokenTTL = jc.TokenTTL.Duration
	}
}

func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-k"})

	fs := flag.NewFlagSet("stubapi", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.FixturesFile, "f", cfg.FixturesFile, "fixtures JSON file")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "token signing key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

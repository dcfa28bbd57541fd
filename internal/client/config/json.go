package config

import (
	"encoding/json"
	"os"

	"github.com/azfinis/promoconsig/internal/flagx"
	"github.com/azfinis/promoconsig/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// leave the corresponding Config field untouched.
type JsonConfig struct {
	APIURL         string         `json:"api_url"`
	ConsigAPIURL   string         `json:"consig_api_url"`
	ClientID       string         `json:"client_id"`
	ClientSecret   string         `json:"client_secret"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	ClientIP       string         `json:"client_ip"`
	StorageBackend string         `json:"storage_backend"`
	StorageDSN     string         `json:"storage_dsn"`
	RedisAddr      string         `json:"redis_addr"`
	RedisPassword  string         `json:"redis_password"`
	RedisPrefix    string         `json:"redis_prefix"`
	UseKeyring     *bool          `json:"use_keyring"`
	CancelPolicy   string         `json:"cancel_policy"`
	LogLevel       string         `json:"log_level"`
	LogFormat      string         `json:"log_format"`
}

// parseJson overlays cfg with values loaded from the JSON config file, if one
// is selected. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.APIURL, jc.APIURL)
	setIf(&cfg.ConsigAPIURL, jc.ConsigAPIURL)
	setIf(&cfg.ClientID, jc.ClientID)
	setIf(&cfg.ClientSecret, jc.ClientSecret)
	setIf(&cfg.ClientIP, jc.ClientIP)
	setIf(&cfg.StorageBackend, jc.StorageBackend)
	setIf(&cfg.StorageDSN, jc.StorageDSN)
	setIf(&cfg.RedisAddr, jc.RedisAddr)
	setIf(&cfg.RedisPassword, jc.RedisPassword)
	setIf(&cfg.RedisPrefix, jc.RedisPrefix)
	setIf(&cfg.CancelPolicy, jc.CancelPolicy)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.LogFormat, jc.LogFormat)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UseKeyring != nil {
		cfg.UseKeyring = *jc.UseKeyring
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

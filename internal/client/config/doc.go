// Package config loads runtime configuration for the promoconsig CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config, or $PROMOCONSIG_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   login/profile API base URL
//	-m string   consignment API base URL
//	-t int      request timeout (seconds)
//	-s string   storage backend: sqlite, redis or memory
//	-d string   SQLite DSN
//	-r string   Redis address
//
// # JSON schema
//
// Durations accept strings like "15s" or integer nanoseconds. client_ip may be
// "auto" to forward the machine's outbound address:
//
//	{
//	  "api_url": "https://api.example.com",
//	  "consig_api_url": "https://consig.example.com",
//	  "client_id": "consignado-web-app",
//	  "client_secret": "...",
//	  "request_timeout": "15s",
//	  "client_ip": "10.0.0.7",
//	  "storage_backend": "redis",
//	  "storage_dsn": "promoconsig.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_password": "",
//	  "redis_prefix": "promoconsig:",
//	  "use_keyring": true,
//	  "cancel_policy": "rollback",
//	  "log_level": "debug",
//	  "log_format": "json"
//	}
package config

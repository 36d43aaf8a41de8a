// Package config loads runtime configuration for the shelfctl CLI.
//
// Sources, in increasing precedence: built-in defaults, an optional JSON
// file selected with -c or -config, then command-line flags.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "tenant": "acme",
//	  "session_db": "shelfctl.db",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
package config

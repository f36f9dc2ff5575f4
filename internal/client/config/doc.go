// Package config loads runtime configuration for the SendVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the upload service
//	-b string   backend: rest or s3
//	-p int      maximum parallel chunk transfers
//	-r int      attempts per chunk before the transfer fails
//	-e int      default retention for completed uploads (hours)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for retention, so values can be either
// strings like "24h" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.sendvault.example",
//	  "backend": "rest",
//	  "concurrency": 3,
//	  "max_attempts": 3,
//	  "default_expiration": "24h",
//	  "s3": {
//	    "endpoint": "https://s3.example",
//	    "region": "us-east-1",
//	    "bucket": "sendvault",
//	    "access_key": "...",
//	    "secret_key": "..."
//	  }
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config

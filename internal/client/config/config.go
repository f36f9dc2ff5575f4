package config

import "time"

// Config holds runtime settings for the SendVault CLI.
//
// Fields:
//   - APIBaseURL: base URL of the hosted upload service.
//   - Backend: "rest" for the hosted service, "s3" for a direct
//     S3-compatible backend (settings under S3).
//   - Concurrency: maximum simultaneous chunk transfers.
//   - MaxAttempts: per-chunk attempt budget before the transfer fails.
//   - DatabaseDSN: sqlite DSN for the local session store; empty means the
//     default file under the user cache directory.
//   - StagingDir: where encrypted envelopes are staged for resumable
//     uploads; empty means the default subdirectory under the user cache
//     directory.
//   - DefaultExpiration: retention requested for completed uploads.
type Config struct {
	APIBaseURL        string
	Backend           string
	Concurrency       int
	MaxAttempts       int
	DatabaseDSN       string
	StagingDir        string
	DefaultExpiration time.Duration
	S3                S3Settings
}

// S3Settings configures the direct S3-compatible backend. Only consulted
// when Backend is "s3".
type S3Settings struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.Backend = "rest"
	c.Concurrency = 3
	c.MaxAttempts = 3
	c.DefaultExpiration = 24 * time.Hour
	c.S3.Region = "us-east-1"
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

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/sendvault/internal/flagx"
	"github.com/dmitrijs2005/sendvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so retention can be given either as a string like "24h" or
// as integer nanoseconds; parsed values are copied into the runtime Config.
type JsonConfig struct {
	APIBaseURL        string         `json:"api_base_url"`
	Backend           string         `json:"backend"`
	Concurrency       int            `json:"concurrency"`
	MaxAttempts       int            `json:"max_attempts"`
	DatabaseDSN       string         `json:"database_dsn"`
	StagingDir        string         `json:"staging_dir"`
	DefaultExpiration timex.Duration `json:"default_expiration"`
	S3                struct {
		Endpoint  string `json:"endpoint"`
		Region    string `json:"region"`
		Bucket    string `json:"bucket"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"s3"`
}

// parseJson overlays Config with values loaded from the JSON file selected
// via -c / -config. Missing file path means no JSON stage. Zero values in the
// file leave the current Config value untouched, so a partial file only
// overrides what it names.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.Backend != "" {
		cfg.Backend = jc.Backend
	}
	if jc.Concurrency > 0 {
		cfg.Concurrency = jc.Concurrency
	}
	if jc.MaxAttempts > 0 {
		cfg.MaxAttempts = jc.MaxAttempts
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.StagingDir != "" {
		cfg.StagingDir = jc.StagingDir
	}
	if jc.DefaultExpiration.Duration > 0 {
		cfg.DefaultExpiration = time.Duration(jc.DefaultExpiration.Duration)
	}
	if jc.S3.Endpoint != "" {
		cfg.S3.Endpoint = jc.S3.Endpoint
	}
	if jc.S3.Region != "" {
		cfg.S3.Region = jc.S3.Region
	}
	if jc.S3.Bucket != "" {
		cfg.S3.Bucket = jc.S3.Bucket
	}
	if jc.S3.AccessKey != "" {
		cfg.S3.AccessKey = jc.S3.AccessKey
	}
	if jc.S3.SecretKey != "" {
		cfg.S3.SecretKey = jc.S3.SecretKey
	}
}

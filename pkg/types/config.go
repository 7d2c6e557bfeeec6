// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by the scholarly-graph backends.
type HTTPConfig struct {
	// Timeout is the HTTP read timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Proxy is an optional proxy URL, e.g. "http://127.0.0.1:7890".
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// Backend names a scholarly-graph provider.
type Backend string

const (
	BackendSemanticScholar Backend = "S2"
	BackendOpenAlex        Backend = "OpenAlex"
)

// GraphConfig holds settings for the bulk fetch client.
type GraphConfig struct {
	HTTPConfig `yaml:",inline"`

	// Backend selects the provider: S2 or OpenAlex (default S2).
	Backend Backend `json:"backend" yaml:"backend"`

	// APIKey is the static key sent with bulk requests. Bulk search and
	// recommendations fail closed when it is empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent as mailto parameter for OpenAlex polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// ChunkSize is the number of identifiers per batch request (default 30).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// RequestsPerSecond throttles outgoing requests (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// QueriesConfig locates the query directories.
type QueriesConfig struct {
	// Root is the directory that holds one subdirectory per query.
	Root string `json:"root" yaml:"root"`

	// Prefix is prepended to the query name to form its directory name
	// (default "Query-").
	Prefix string `json:"prefix" yaml:"prefix"`
}

// CacheConfig holds expansion cache settings.
type CacheConfig struct {
	// MaxAgeDays is the age after which the whole cache file is discarded
	// (default 31).
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// MaxAge returns the cache max age as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	days := c.MaxAgeDays
	if days <= 0 {
		days = 31
	}
	return time.Duration(days) * 24 * time.Hour
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Env selects the encoder: prod (JSON) or dev (console).
	Env string `json:"env" yaml:"env"`

	// Level overrides the level: debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// Config groups all settings of the engine.
type Config struct {
	Queries QueriesConfig `json:"queries" yaml:"queries"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Graph   GraphConfig   `json:"graph" yaml:"graph"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

package client

import (
	"crypto/tls"

	"github.com/imdario/mergo"
)

// Config defines properties that configure NNTP session behaviour.
type Config struct {
	// TimeoutSecs bounds each individual read from or write to the
	// transport. Zero (after defaulting) disables the deadline.
	TimeoutSecs int
	// TLS wraps the connection in TLS before the greeting is read.
	TLS bool
	// TLSConfig overrides the TLS client configuration. Ignored unless TLS
	// is set.
	TLSConfig *tls.Config
	// Username and Password are presented when the server challenges with
	// status 480. Authentication is never performed eagerly.
	Username string
	Password string
}

// DefaultConfig holds the defaults applied to unspecified Config values.
var DefaultConfig = &Config{
	TimeoutSecs: 30,
}

// resolveConfig copies cfg (nil means all defaults) and fills unspecified
// values from DefaultConfig.
func resolveConfig(cfg *Config) *Config {
	resolved := &Config{}
	if cfg != nil {
		*resolved = *cfg
	}
	_ = mergo.Merge(resolved, DefaultConfig)
	return resolved
}

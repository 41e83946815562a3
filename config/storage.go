package config

import (
	"strings"
	"time"
)

// StorageConfig contains configuration for the remote file gateway holding
// thesis PDFs.
type StorageConfig struct {
	// BaseURL is the provider API base, e.g. "https://storage.example.com/api/v2".
	BaseURL string `env:"BASE_URL"`

	// AppKey is the bearer credential for the provider API.
	AppKey string `env:"APP_KEY"`

	// LinkExpr is the JMESPath expression locating the download URL inside
	// the provider's link-resolution response.
	LinkExpr string `env:"LINK_EXPR" envDefault:"url"`

	// LinkTTL is how long resolved download links are cached. It must stay
	// below the provider's own link expiry.
	LinkTTL time.Duration `env:"LINK_TTL" envDefault:"10m"`

	// UserAgent is presented on downloads; some providers reject anonymous fetches.
	UserAgent string `env:"USER_AGENT" envDefault:""`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if s.LinkTTL <= 0 {
		s.LinkTTL = 10 * time.Minute
	}
}

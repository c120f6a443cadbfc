// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and LEADSCORE_ env vars.
//   - A loaded Config is never mutated; components receive it by value or
//     take the fields they need.
package config

import (
	"time"
)

// Credential sources.
const (
	CredentialsEnv     = "env"
	CredentialsKeyring = "keyring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// RefreshToken, ClientID and ClientSecret authenticate against the vendor
	// OAuth endpoint.
	RefreshToken string `koanf:"refresh_token"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// CredentialsSource is "env" (config/env only) or "keyring" (fill empty
	// secrets from the OS keyring).
	CredentialsSource string `koanf:"credentials_source"`

	// KeyringService groups the secrets in the OS keyring.
	KeyringService string `koanf:"keyring_service"`

	// TemplateURL is the download URL of the presentation template.
	TemplateURL string `koanf:"template_url"`

	// TokenURL is the OAuth token endpoint.
	TokenURL string `koanf:"token_url"`

	// UploadURL is the document storage upload endpoint.
	UploadURL string `koanf:"upload_url"`

	// CRMBaseURL is the CRM API root, e.g. https://crm.zoho.eu/crm/v2.1.
	CRMBaseURL string `koanf:"crm_base_url"`

	// ParentFolderID is the storage folder receiving generated reports.
	ParentFolderID string `koanf:"workdrive_parent_id"`

	// AttachmentTitle labels the CRM attachment.
	AttachmentTitle string `koanf:"attachment_title"`

	// RequestTimeoutMS bounds every outbound vendor call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// TemplateCacheTTLMS enables the template cache when > 0.
	TemplateCacheTTLMS int `koanf:"template_cache_ttl_ms"`

	// RateLimitRPS and RateLimitBurst bound outbound calls per vendor host.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// AttachLedgerSize bounds the remembered lead/file attachment pairs.
	AttachLedgerSize int `koanf:"attach_ledger_size"`

	// LayoutPath optionally points at a YAML slot layout overriding the
	// embedded default.
	LayoutPath string `koanf:"layout_path"`

	// MaxBodyBytes caps the accepted request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MaxResponseBytes caps how much of any vendor response is read.
	MaxResponseBytes int64 `koanf:"max_response_bytes"`
}

// New creates a Config populated with defaults. Secrets and the template URL
// have no default and must be supplied.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":5000",
		CredentialsSource:  CredentialsEnv,
		KeyringService:     "leadscore",
		TokenURL:           "https://accounts.zoho.eu/oauth/v2/token",
		UploadURL:          "https://www.zohoapis.eu/workdrive/api/v1/upload",
		CRMBaseURL:         "https://crm.zoho.eu/crm/v2.1",
		ParentFolderID:     "llh3437476bee74254a74bb10fa12dfe1c7ef",
		AttachmentTitle:    "Lead Score Matrix PPT",
		RequestTimeoutMS:   30_000,
		TemplateCacheTTLMS: 0,
		RateLimitRPS:       5,
		RateLimitBurst:     5,
		AttachLedgerSize:   10_000,
		MaxBodyBytes:       1 << 20,
		MaxResponseBytes:   64 << 20,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// TemplateCacheTTL returns TemplateCacheTTLMS as a duration.
func (c *Config) TemplateCacheTTL() time.Duration {
	return time.Duration(c.TemplateCacheTTLMS) * time.Millisecond
}

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/zalando/go-keyring"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEADSCORE_"

// Keyring account names used when CredentialsSource is "keyring".
const (
	keyringRefreshToken = "refresh_token"
	keyringClientID     = "client_id"
	keyringClientSecret = "client_secret"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEADSCORE_CONFIG is set
//  3. env (prefix LEADSCORE_)
//
// Missing credentials or template URL fail the load.
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LEADSCORE_TEMPLATE_URL -> template_url (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.CredentialsSource == CredentialsKeyring {
		if err := fillFromKeyring(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing required value in one error.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key, val string
	}{
		{"addr", c.Addr},
		{"refresh_token", c.RefreshToken},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"template_url", c.TemplateURL},
		{"token_url", c.TokenURL},
		{"upload_url", c.UploadURL},
		{"crm_base_url", c.CRMBaseURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	switch c.CredentialsSource {
	case CredentialsEnv, CredentialsKeyring:
	default:
		return fmt.Errorf("%w: unknown credentials_source %q", ErrInvalidConfig, c.CredentialsSource)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// fillFromKeyring reads secrets left empty by file/env from the OS keyring.
func fillFromKeyring(c *Config) error {
	slots := []struct {
		account string
		dst     *string
	}{
		{keyringRefreshToken, &c.RefreshToken},
		{keyringClientID, &c.ClientID},
		{keyringClientSecret, &c.ClientSecret},
	}
	for _, s := range slots {
		if strings.TrimSpace(*s.dst) != "" {
			continue
		}
		v, err := keyring.Get(c.KeyringService, s.account)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				continue // reported by Validate
			}
			return fmt.Errorf("%w: keyring %s/%s: %w", ErrLoadConfig, c.KeyringService, s.account, err)
		}
		*s.dst = strings.TrimSpace(v)
	}
	return nil
}

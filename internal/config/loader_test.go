package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/leadscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.CredentialsSource, convey.ShouldEqual, config.CredentialsEnv)
			convey.So(cfg.TokenURL, convey.ShouldEqual, "https://accounts.zoho.eu/oauth/v2/token")
			convey.So(cfg.RequestTimeout().Seconds(), convey.ShouldEqual, 30)
			convey.So(cfg.TemplateCacheTTL(), convey.ShouldEqual, 0)
			convey.So(cfg.RefreshToken, convey.ShouldBeEmpty)
			convey.So(cfg.TemplateURL, convey.ShouldBeEmpty)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When required credentials are missing", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails fast naming every missing key", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "refresh_token")
				convey.So(err.Error(), convey.ShouldContainSubstring, "client_id")
				convey.So(err.Error(), convey.ShouldContainSubstring, "client_secret")
				convey.So(err.Error(), convey.ShouldContainSubstring, "template_url")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setRequiredEnv()
			_ = os.Setenv("LEADSCORE_ADDR", ":8080")
			_ = os.Setenv("LEADSCORE_REQUEST_TIMEOUT_MS", "5000")
			_ = os.Setenv("LEADSCORE_TEMPLATE_CACHE_TTL_MS", "60000")
			_ = os.Setenv("LEADSCORE_RATE_LIMIT_RPS", "2.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RefreshToken, convey.ShouldEqual, "refresh")
				convey.So(cfg.TemplateURL, convey.ShouldEqual, "https://download.example/tpl")
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 5000)
				convey.So(cfg.TemplateCacheTTLMS, convey.ShouldEqual, 60000)
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
refresh_token: "file-refresh"
client_id: "file-client"
client_secret: "file-secret"
template_url: "https://download.example/file-tpl"
attachment_title: "Rapport"
log_format: json
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LEADSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ClientID, convey.ShouldEqual, "file-client")
				convey.So(cfg.AttachmentTitle, convey.ShouldEqual, "Rapport")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.UploadURL, convey.ShouldEqual, config.New().UploadURL) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
refresh_token: "file-refresh"
client_id: "file-client"
client_secret: "file-secret"
template_url: "https://download.example/file-tpl"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LEADSCORE_CONFIG", tmpFile)
			_ = os.Setenv("LEADSCORE_TEMPLATE_URL", "https://download.example/env-tpl")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")                                     // From file
				convey.So(cfg.TemplateURL, convey.ShouldEqual, "https://download.example/env-tpl") // From env
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LEADSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LEADSCORE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			setRequiredEnv()
			_ = os.Setenv("LEADSCORE_REQUEST_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown credentials source", func() {
			setRequiredEnv()
			_ = os.Setenv("LEADSCORE_CREDENTIALS_SOURCE", "vault")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "credentials_source")
			})
		})
	})
}

func TestConfigLoaderKeyring(t *testing.T) {
	convey.Convey("Given secrets stored in the OS keyring", t, func() {
		keyring.MockInit()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		_ = keyring.Set("leadscore", "refresh_token", "kr-refresh")
		_ = keyring.Set("leadscore", "client_id", "kr-client")
		_ = keyring.Set("leadscore", "client_secret", "kr-secret")

		_ = os.Setenv("LEADSCORE_CREDENTIALS_SOURCE", "keyring")
		_ = os.Setenv("LEADSCORE_TEMPLATE_URL", "https://download.example/tpl")

		convey.Convey("When env leaves the secrets empty", func() {
			cfg, err := config.Load(context.Background())

			convey.Convey("Then they are read from the keyring", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RefreshToken, convey.ShouldEqual, "kr-refresh")
				convey.So(cfg.ClientID, convey.ShouldEqual, "kr-client")
				convey.So(cfg.ClientSecret, convey.ShouldEqual, "kr-secret")
			})
		})

		convey.Convey("When env sets a secret explicitly", func() {
			_ = os.Setenv("LEADSCORE_CLIENT_ID", "env-client")
			cfg, err := config.Load(context.Background())

			convey.Convey("Then env wins over the keyring", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ClientID, convey.ShouldEqual, "env-client")
				convey.So(cfg.ClientSecret, convey.ShouldEqual, "kr-secret")
			})
		})

		convey.Convey("When a secret is absent from the keyring", func() {
			_ = keyring.Delete("leadscore", "client_secret")
			_, err := config.Load(context.Background())

			convey.Convey("Then validation reports it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "client_secret")
			})
		})
	})
}

// Helper functions.

func setRequiredEnv() {
	_ = os.Setenv("LEADSCORE_REFRESH_TOKEN", "refresh")
	_ = os.Setenv("LEADSCORE_CLIENT_ID", "client")
	_ = os.Setenv("LEADSCORE_CLIENT_SECRET", "secret")
	_ = os.Setenv("LEADSCORE_TEMPLATE_URL", "https://download.example/tpl")
}

func clearConfigEnvVars() {
	envVars := []string{
		"LEADSCORE_CONFIG",
		"LEADSCORE_ADDR",
		"LEADSCORE_REFRESH_TOKEN",
		"LEADSCORE_CLIENT_ID",
		"LEADSCORE_CLIENT_SECRET",
		"LEADSCORE_TEMPLATE_URL",
		"LEADSCORE_REQUEST_TIMEOUT_MS",
		"LEADSCORE_TEMPLATE_CACHE_TTL_MS",
		"LEADSCORE_RATE_LIMIT_RPS",
		"LEADSCORE_CREDENTIALS_SOURCE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "leadscore-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}

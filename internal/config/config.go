// Package config loads the command-line tool's settings from a .env file and
// the process environment into an explicit Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	githubapp "github.com/OpsMx/githubapp-client"
)

// Field names a configuration input by its environment variable.
type Field string

const (
	FieldPrivateKey     Field = "DEMO_GITHUBAPP_PRIVATE_KEY"
	FieldPrivateKeyPath Field = "DEMO_GITHUBAPP_PRIVATE_KEY_PATH"
	FieldAppID          Field = "DEMO_GITHUBAPP_APPID"
	FieldInstallationID Field = "DEMO_GITHUBAPP_INSTALLATIONID"
	FieldOrg            Field = "DEMO_GITHUB_REPO_OWNER"
	FieldRepoName       Field = "DEMO_GITHUB_REPO_NAME"
	FieldBaseURL        Field = "GITHUB_API_URL"
	FieldTimeout        Field = "GITHUBAPP_TIMEOUT"
	FieldConcurrency    Field = "GITHUBAPP_CONCURRENCY"
	FieldRateLimit      Field = "GITHUBAPP_RATE_LIMIT"
	FieldLogEnv         Field = "LOG_ENV"
	FieldLogLevel       Field = "LOG_LEVEL"
)

// Config is built once at startup and passed down explicitly.
type Config struct {
	AppID          string
	PrivateKeyPEM  []byte
	InstallationID int64 // 0 when unset
	Org            string
	RepoName       string
	BaseURL        string
	Timeout        time.Duration
	Concurrency    int
	RateLimit      float64 // requests per second, 0 disables pacing
	LogEnv         string
	LogLevel       string
}

// Load reads envFile (if present) and overlays the process environment on it.
// Process variables win, matching godotenv.Load.
func Load(envFile string) (*Config, error) {
	fileValues := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, githubapp.WrapClientError(githubapp.ErrCodeConfigurationError, "failed to read "+envFile, err)
		}
	}

	return FromEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileValues[key]
	})
}

// FromEnv builds a Config from getenv. Values are parsed, not required;
// see Require.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(f Field) string { return strings.TrimSpace(getenv(string(f))) }

	cfg := &Config{
		AppID:       get(FieldAppID),
		Org:         get(FieldOrg),
		RepoName:    get(FieldRepoName),
		BaseURL:     envOr(get(FieldBaseURL), githubapp.DefaultBaseURL),
		Timeout:     githubapp.DefaultTimeout,
		Concurrency: githubapp.DefaultConcurrency,
		LogEnv:      envOr(get(FieldLogEnv), "dev"),
		LogLevel:    envOr(get(FieldLogLevel), "info"),
	}

	if key := getenv(string(FieldPrivateKey)); strings.TrimSpace(key) != "" {
		cfg.PrivateKeyPEM = []byte(key)
	} else if path := get(FieldPrivateKeyPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, githubapp.WrapClientError(githubapp.ErrCodeConfigurationError, "failed to read "+string(FieldPrivateKeyPath), err)
		}
		cfg.PrivateKeyPEM = data
	}

	if v := get(FieldInstallationID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, invalid(FieldInstallationID, v)
		}
		cfg.InstallationID = id
	}

	if v := get(FieldTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, invalid(FieldTimeout, v)
		}
		cfg.Timeout = d
	}

	if v := get(FieldConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, invalid(FieldConcurrency, v)
		}
		cfg.Concurrency = n
	}

	if v := get(FieldRateLimit); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 {
			return nil, invalid(FieldRateLimit, v)
		}
		cfg.RateLimit = r
	}

	return cfg, nil
}

// Require fails with a configuration error naming every missing field.
// FieldPrivateKey is satisfied by either the inline key or the key path.
func (c *Config) Require(fields ...Field) error {
	var missing []string
	for _, f := range fields {
		if !c.has(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return githubapp.NewClientErrorWithDetails(githubapp.ErrCodeConfigurationError,
			"missing required configuration", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) has(f Field) bool {
	switch f {
	case FieldPrivateKey, FieldPrivateKeyPath:
		return len(c.PrivateKeyPEM) > 0
	case FieldAppID:
		return c.AppID != ""
	case FieldInstallationID:
		return c.InstallationID > 0
	case FieldOrg:
		return c.Org != ""
	case FieldRepoName:
		return c.RepoName != ""
	case FieldBaseURL:
		return c.BaseURL != ""
	default:
		return true
	}
}

// ClientConfig converts the loaded settings into the client's configuration.
func (c *Config) ClientConfig(httpClient *http.Client, logger *zap.Logger) githubapp.Config {
	return githubapp.Config{
		AppID:         c.AppID,
		PrivateKeyPEM: c.PrivateKeyPEM,
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		Concurrency:   c.Concurrency,
		HTTPClient:    httpClient,
		Logger:        logger,
	}
}

func invalid(f Field, value string) error {
	return githubapp.NewClientErrorWithDetails(githubapp.ErrCodeConfigurationError,
		fmt.Sprintf("invalid %s", f), value)
}

func envOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

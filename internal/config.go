package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/vault"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Steam   SteamConfig       `yaml:"steam"`
	Vault   VaultConfig       `yaml:"vault"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Export  ExportConfig      `yaml:"export"`
	Import  ImportConfig      `yaml:"import"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Steam, &c.Vault, &c.Catalog, &c.Export, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Collation is the BCP 47 tag used to sort game names.
	Collation string `yaml:"collation"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Collation, validation.By(languageTag)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SteamConfig configures the Steam Web API client.
type SteamConfig struct {
	BaseURL           string         `yaml:"base_url"`
	Timeout           time.Duration  `yaml:"timeout"`
	UserAgent         string         `yaml:"user_agent"`
	RequestsPerSecond float64        `yaml:"requests_per_second"`
	Coverage          steam.Coverage `yaml:"coverage"`
}

// Validate validates the Steam configuration.
func (c *SteamConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
	)
}

// VaultConfig locates the credential vault.
type VaultConfig struct {
	// Dir holds the encrypted credential blob.
	Dir string `yaml:"dir"`
	// KeyPath is the master key file used where no OS key store applies.
	KeyPath string `yaml:"key_path"`
}

// BlobPath returns the full path of the credential blob.
func (c *VaultConfig) BlobPath() string {
	return filepath.Join(c.Dir, vault.BlobFile)
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.KeyPath, validation.Required),
	)
}

// CatalogConfig holds the SQLite catalog cache location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig holds the artifact output directory.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// ImportConfig configures the CSV inbox. An empty WatchDir disables it.
type ImportConfig struct {
	WatchDir string `yaml:"watch_dir"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, for loopback use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

func languageTag(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := language.Parse(s); err != nil {
		return fmt.Errorf("not a BCP 47 language tag: %w", err)
	}
	return nil
}

func httpURL(v any) error {
	s, _ := v.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	dir := vault.DefaultDir()
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			HTTP:      HTTPConfig{Port: 8080},
			Collation: "en",
		},
		Steam: SteamConfig{
			BaseURL:           steam.DefaultBaseURL,
			Timeout:           30 * time.Second,
			UserAgent:         "idlepick/" + Version,
			RequestsPerSecond: 1,
			Coverage:          steam.DefaultCoverage(),
		},
		Vault: VaultConfig{
			Dir:     dir,
			KeyPath: filepath.Join(dir, "master.key"),
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(dir, "catalog.db"),
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

package internal

import (
	"fmt"
	"log/slog"
	"net/netip"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recipebox/internal/api"
)

// Auth modes.
const (
	AuthModeOpen     = "open"
	AuthModePassword = "password"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Library LibraryConfig     `yaml:"library"`
	Scaling ScalingConfig     `yaml:"scaling"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	return c.Scaling.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	HTTP      HTTPConfig `yaml:"http"`
	PublicURL string     `yaml:"public_url"`
	CORS      CORSConfig `yaml:"cors"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PublicURL, validation.Required),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
//
// TrustedProxies lists the addresses or CIDR ranges of reverse proxies whose
// X-Forwarded-For and X-Real-IP headers are believed. Empty means the TCP
// peer is always the client.
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TrustedPrefixes returns TrustedProxies parsed. Validate reports bad entries.
func (c *HTTPConfig) TrustedPrefixes() []netip.Prefix {
	prefixes, _ := api.ParseTrustedProxies(c.TrustedProxies)
	return prefixes
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	if _, err := api.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("http: trusted_proxies: %w", err)
	}
	return nil
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the recipe routes are guarded:
//   - "open" (default): no password required.
//   - "password": requests carry the shared password; Password must be set.
//
// Password may be plain text or a bcrypt hash. VerifyRate caps password
// checks per client IP per minute.
type AuthConfig struct {
	Mode       string `yaml:"mode"`
	Password   string `yaml:"password"`
	VerifyRate int    `yaml:"verify_rate"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeOpen
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeOpen, AuthModePassword)),
		validation.Field(&c.VerifyRate, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModePassword && c.Password == "" {
		return fmt.Errorf("auth: mode is %q but password is empty", AuthModePassword)
	}
	return nil
}

// PasswordRequired returns true when the recipe routes are guarded.
func (c *AuthConfig) PasswordRequired() bool {
	return c.Mode == AuthModePassword
}

// LibraryConfig holds the recipe file library settings. An empty Path
// disables the library.
type LibraryConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Enabled reports whether a library directory is configured.
func (c *LibraryConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("library: watch is enabled but path is empty")
	}
	return nil
}

// ScalingConfig bounds the serving counts accepted for scaled views.
type ScalingConfig struct {
	MaxServings int `yaml:"max_servings"`
}

// Validate validates the scaling configuration.
func (c *ScalingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxServings, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			PublicURL: "http://localhost:8080",
		},
		SQLite: SQLiteConfig{
			Path: "./recipebox.db",
		},
		Auth: AuthConfig{
			Mode:       AuthModeOpen,
			VerifyRate: 10,
		},
		Library: LibraryConfig{
			Path:  "./library",
			Watch: true,
		},
		Scaling: ScalingConfig{
			MaxServings: 100,
		},
	}
}

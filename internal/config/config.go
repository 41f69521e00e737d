package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration. Every key can be overridden with an
// APP_ environment variable, e.g. APP_STORE_DSN for store.dsn.
type Config struct {
	App struct {
		Env       string
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"app"`

	Store struct {
		Driver  string
		DSN     string `mapstructure:"dsn"`
		Migrate bool
	} `mapstructure:"store"`

	Registry struct {
		SettingsPath   string `mapstructure:"settings_path"`
		OutputRoot     string `mapstructure:"output_root"`
		Format         string
		PDFFontRegular string `mapstructure:"pdf_font_regular"`
		PDFFontBold    string `mapstructure:"pdf_font_bold"`
		HistorySize    int    `mapstructure:"history_size"`
	} `mapstructure:"registry"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "data/abonents.db")
	v.SetDefault("store.migrate", true)
	v.SetDefault("registry.settings_path", "data/settings.json")
	v.SetDefault("registry.output_root", "")
	v.SetDefault("registry.format", "xlsx")
	v.SetDefault("registry.pdf_font_regular", "")
	v.SetDefault("registry.pdf_font_bold", "")
	v.SetDefault("registry.history_size", 50)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("metrics.enabled", true)
}

// Load reads the optional config file at path and applies APP_* overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("config: decode: %w", err)
	}
	return c, c.Validate()
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "sqlite3", "postgres":
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("config: store.dsn required")
	}
	switch strings.ToLower(c.Registry.Format) {
	case "", "xlsx", "pdf":
	default:
		return fmt.Errorf("config: unsupported registry.format %q", c.Registry.Format)
	}
	return nil
}

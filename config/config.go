// Package config loads dashboard client settings from a YAML file and
// STANDUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STANDUP_BASE_URL.
const EnvPrefix = "STANDUP"

// Config is the on-disk configuration.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	RequiredOrg       string        `mapstructure:"required_org"`
	RedirectOnFailure bool          `mapstructure:"redirect_on_failure"`
	ErrorRoute        string        `mapstructure:"error_route"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	UseFixtures       bool          `mapstructure:"use_fixtures"`
	JWKSURL           string        `mapstructure:"jwks_url"`
	LogLevel          string        `mapstructure:"log_level"`

	Paths struct {
		WhoAmI   string `mapstructure:"whoami"`
		Generate string `mapstructure:"generate"`
		Task     string `mapstructure:"task"`
	} `mapstructure:"paths"`

	Cache struct {
		Path string        `mapstructure:"path"`
		TTL  time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
}

// keys lists every setting so AutomaticEnv can see nested keys
// that are absent from the file.
var keys = []string{
	"base_url", "token", "required_org", "redirect_on_failure", "error_route",
	"poll_interval", "use_fixtures", "jwks_url", "log_level",
	"paths.whoami", "paths.generate", "paths.task",
	"cache.path", "cache.ttl",
}

// Load reads path (if non-empty) and applies environment overrides.
// Without a path, ./standup.yaml is used when present.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("error_route", standup.DefaultErrorRoute)
	v.SetDefault("poll_interval", standup.DefaultPollInterval)
	v.SetDefault("cache.ttl", standup.DefaultCacheTTL)
	v.SetDefault("paths.whoami", standup.DefaultWhoAmIPath)
	v.SetDefault("paths.generate", standup.DefaultGeneratePath)
	v.SetDefault("paths.task", standup.DefaultTaskPath)
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("standup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("standup/config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("standup/config: decode: %w", err)
	}
	return c, nil
}

// Client converts c into client settings.
func (c Config) Client() standup.Config {
	return standup.Config{
		BaseURL:           c.BaseURL,
		WhoAmIPath:        c.Paths.WhoAmI,
		GeneratePath:      c.Paths.Generate,
		TaskPath:          c.Paths.Task,
		PollInterval:      c.PollInterval,
		CacheTTL:          c.Cache.TTL,
		CachePath:         c.Cache.Path,
		RequiredOrg:       c.RequiredOrg,
		RedirectOnFailure: c.RedirectOnFailure,
		ErrorRoute:        c.ErrorRoute,
		UseFixtures:       c.UseFixtures,
	}.WithDefaults()
}

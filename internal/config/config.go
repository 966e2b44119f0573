// Package config loads CLI configuration from a config file, environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
)

const envPrefix = "OBLIGACJESKARBOWE"

// Config holds everything the CLI needs to talk to the brokerage.
type Config struct {
	BaseURL     string `mapstructure:"base_url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	NtfyTopic   string `mapstructure:"ntfy_topic"`
	SessionPath string `mapstructure:"session_path"`
	// Kids feeds the family-benefit calculator; only the config file can
	// set it.
	Kids []Kid `mapstructure:"kids"`
}

// Kid is one family-benefit recipient, birth date in YYYY-MM-DD.
type Kid struct {
	Name      string `mapstructure:"name"`
	BirthDate string `mapstructure:"birth_date"`
}

// Load reads configuration in precedence order: explicit file (if path is
// non-empty), then environment variables prefixed OBLIGACJESKARBOWE_,
// with a .env in the working directory loaded first if present.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("base_url", "https://www.zakup.obligacjeskarbowe.pl")
	v.SetDefault("session_path", protocol.DefaultStorePath())

	// AutomaticEnv alone does not bind keys that are absent from the
	// config file, so bind each one explicitly.
	for _, key := range []string{"base_url", "username", "password", "ntfy_topic", "session_path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName("obligacjeskarbowe")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".config"))
		v.AddConfigPath(".")
		// Best effort; the env-only setup is fully supported.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// ValidateLogin checks the fields required to start a login.
func (c *Config) ValidateLogin() error {
	switch {
	case c.Username == "":
		return fmt.Errorf("username is required (%s_USERNAME)", envPrefix)
	case c.Password == "":
		return fmt.Errorf("password is required (%s_PASSWORD)", envPrefix)
	case c.NtfyTopic == "":
		return fmt.Errorf("ntfy topic is required (%s_NTFY_TOPIC)", envPrefix)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds application configuration. Values come from (in precedence
// order) environment variables with the TEMPORA_ prefix, the config file, and
// built-in defaults.
type Settings struct {
	// Backend selects the record storage: "sqlite" or "json".
	Backend string `mapstructure:"backend"`
	// DataDir holds the database / record files.
	DataDir string `mapstructure:"data_dir"`
	Debug   bool   `mapstructure:"debug"`

	Zebra ZebraSettings `mapstructure:"zebra"`

	// DefaultRoleID / DefaultRoleName configure the role used for frames
	// started without an explicit one. A zero id means no default role.
	DefaultRoleID   int    `mapstructure:"default_role_id"`
	DefaultRoleName string `mapstructure:"default_role_name"`
}

// ZebraSettings configures the remote system of record.
type ZebraSettings struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	// Timezone is the business timezone timesheet dates live in.
	Timezone string `mapstructure:"timezone"`
}

// Load reads settings from the config file and environment.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetDefault("backend", "sqlite")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("debug", false)
	v.SetDefault("zebra.base_url", "")
	v.SetDefault("zebra.token", "")
	v.SetDefault("zebra.timezone", "Europe/Zurich")
	v.SetDefault("default_role_id", 0)
	v.SetDefault("default_role_name", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configHome, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configHome, "tempora"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TEMPORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return settings, nil
}

// BusinessLocation resolves the configured business timezone.
func (s *Settings) BusinessLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Zebra.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid zebra timezone %q: %w", s.Zebra.Timezone, err)
	}
	return loc, nil
}

// DBPath returns the sqlite database location.
func (s *Settings) DBPath() string {
	return filepath.Join(s.DataDir, "tempora.db")
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".tempora"
	}
	return filepath.Join(homeDir, ".tempora")
}

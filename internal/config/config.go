package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CheckIn  CheckInConfig  `mapstructure:"checkin"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CheckInConfig tunes the history retention sweeper. The two windows are
// independent policies over the same log: RecentWindow backs the short-lived
// "recent activity" view, WeeklyWindow the weekly history view.
type CheckInConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	RecentWindow  time.Duration `mapstructure:"recent_window"`
	WeeklyWindow  time.Duration `mapstructure:"weekly_window"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Env overrides, e.g. server.address -> SERVER_ADDRESS,
	// checkin.sweep_interval -> CHECKIN_SWEEP_INTERVAL.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "gym_sync")
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("checkin.sweep_interval", "30s")
	viper.SetDefault("checkin.recent_window", "5m")
	viper.SetDefault("checkin.weekly_window", "168h")

	err = viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// No config file; env vars and defaults are enough.
		err = nil
	} else if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if err = config.CheckIn.validate(); err != nil {
		return
	}
	return config, nil
}

// validate keeps the sweeper's staleness bound honest: an entry can outlive
// its window by up to one tick, so the tick must fit inside the smallest
// window in use.
func (c CheckInConfig) validate() error {
	if c.SweepInterval <= 0 || c.RecentWindow <= 0 || c.WeeklyWindow <= 0 {
		return fmt.Errorf("checkin intervals must be positive")
	}
	smallest := c.RecentWindow
	if c.WeeklyWindow < smallest {
		smallest = c.WeeklyWindow
	}
	if c.SweepInterval > smallest {
		return fmt.Errorf("checkin.sweep_interval (%s) must not exceed the smallest retention window (%s)",
			c.SweepInterval, smallest)
	}
	return nil
}

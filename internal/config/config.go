package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Decisioning struct {
		Client                  string `mapstructure:"client"`
		OrganizationID          string `mapstructure:"organization_id"`
		Environment             string `mapstructure:"environment"`
		CDNEnvironment          string `mapstructure:"cdn_environment"`
		PropertyToken           string `mapstructure:"property_token"`
		ArtifactLocation        string `mapstructure:"artifact_location"`
		PollingIntervalSeconds  int    `mapstructure:"polling_interval_seconds"`
		MaximumWaitReadySeconds int    `mapstructure:"maximum_wait_ready_seconds"`
	} `mapstructure:"decisioning"`
}

func Load() Config {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Decisioning.Environment == "" {
		c.Decisioning.Environment = "production"
	}
	if c.Decisioning.PollingIntervalSeconds <= 0 {
		c.Decisioning.PollingIntervalSeconds = 300
	}
}

func (c Config) PollingInterval() time.Duration {
	return time.Duration(c.Decisioning.PollingIntervalSeconds) * time.Second
}

func (c Config) MaximumWaitReady() time.Duration {
	return time.Duration(c.Decisioning.MaximumWaitReadySeconds) * time.Second
}

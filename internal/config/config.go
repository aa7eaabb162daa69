// Package config loads and validates the dispatcher's environment-only
// configuration surface, the way internal/source/server.Config binds
// and preflights its flags in the teacher repository — except this
// spec defines no CLI flags, so Bind's job is done here by
// viper.AutomaticEnv() instead of pflag.
package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	HTTPPort         uint16
	MaxDBConnections uint32
	MVPDatabaseURL   string
	PDDatabaseURL    string
	LogLevel         log.Level
}

// newViper builds the viper instance with the spec's env-var names and
// defaults wired up.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_PORT", 8081)
	v.SetDefault("MAX_DB_CONNECTIONS", 10)
	v.SetDefault("LOG_LEVEL", "trace")
	return v
}

// resolve turns a populated viper instance into a Config, or reports
// which required setting is missing/invalid. It contains no I/O and
// is what the tests exercise directly.
func resolve(v *viper.Viper) (*Config, error) {
	mvpURL := v.GetString("MVP_DATABASE_URL")
	if mvpURL == "" {
		return nil, errors.New("MVP_DATABASE_URL is not set")
	}
	pdURL := v.GetString("PD_DATABASE_URL")
	if pdURL == "" {
		return nil, errors.New("PD_DATABASE_URL is not set")
	}

	level, err := log.ParseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid LOG_LEVEL")
	}

	return &Config{
		HTTPPort:         uint16(v.GetUint32("HTTP_PORT")),
		MaxDBConnections: v.GetUint32("MAX_DB_CONNECTIONS"),
		MVPDatabaseURL:   mvpURL,
		PDDatabaseURL:    pdURL,
		LogLevel:         level,
	}, nil
}

// Load reads the environment variables named in the spec, applies
// their defaults, and validates the result. Missing required
// variables are a startup invariant violation, not a recoverable
// error: Load panics (via logrus.Fatal, which itself calls os.Exit)
// exactly as the original fetch_env_params does with Rust's panic!.
func Load() *Config {
	cfg, err := resolve(newViper())
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

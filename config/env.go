package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Structs

// Env holds information specific to the system where the demo is deployed.
// This enables host adaptions without needing to maintain two different
// config files. Values present in the .env file take precedence over their
// TOML counterparts.
type Env struct {
	LogLevel       string
	PrometheusAddr string
}

// Functions

// LoadEnv reads in all defined values from the supplied .env file.
func LoadEnv(envFile string) (*Env, error) {

	// Load environment file.
	if err := godotenv.Load(envFile); err != nil {
		return nil, errors.Wrapf(err, "failed to read in .env file at '%s'", envFile)
	}

	env := new(Env)

	// Fill variables from .env into struct.
	env.LogLevel = os.Getenv("LOG_LEVEL")
	env.PrometheusAddr = os.Getenv("PROMETHEUS_ADDR")

	return env, nil
}

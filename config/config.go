package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Structs

// Config holds all information parsed from
// supplied config file.
type Config struct {
	Simulation Simulation
	Replicas   []Replica
	Grid       Grid
	Counter    Counter
	Text       Text
	Workload   Workload
}

// Simulation is the engine related part of the
// TOML config file.
type Simulation struct {
	Variant        string
	TickIntervalMS int
	PrometheusAddr string
}

// Replica describes one participant of the simulated
// network: its stable name, its outbound delay and
// whether it starts out connected.
type Replica struct {
	Name      string
	DelayMS   int
	Connected bool
}

// Grid configures the bounds of the paint grid variant.
type Grid struct {
	Width  int
	Height int
}

// Counter configures the initial value shared by the
// counter and guarded counter variants.
type Counter struct {
	Initial int
}

// Text configures the initial content of both text variants.
type Text struct {
	Initial string
}

// Workload configures the built-in operation generator
// that stands in for interactive input.
type Workload struct {
	Enabled        bool
	TickIntervalMS int
	Seed           int64
}

// Variables

// Variants enumerates the names accepted in
// Simulation.Variant.
var Variants = []string{
	"counter",
	"guarded-counter",
	"grid",
	"naive-text",
	"sequence-text",
}

// Functions

// LoadConfig takes in the path to the main config file in TOML syntax and
// places the values from the file in the corresponding struct, applying
// defaults and validating the result.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	if _, err := toml.DecodeFile(configFile, conf); err != nil {
		return nil, errors.Wrapf(err, "failed to read in TOML config file at '%s'", configFile)
	}

	// Fill in defaults for omitted values.

	if conf.Simulation.TickIntervalMS == 0 {
		conf.Simulation.TickIntervalMS = 10
	}

	if conf.Grid.Width == 0 {
		conf.Grid.Width = 50
	}

	if conf.Grid.Height == 0 {
		conf.Grid.Height = 50
	}

	if conf.Workload.TickIntervalMS == 0 {
		conf.Workload.TickIntervalMS = 200
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// validate enforces the structural invariants the engine
// relies on, failing fast on the first violation.
func (c *Config) validate() error {

	if !isKnownVariant(c.Simulation.Variant) {
		return errors.Errorf("unknown variant '%s', expected one of %v", c.Simulation.Variant, Variants)
	}

	if c.Simulation.TickIntervalMS < 1 {
		return errors.Errorf("tick interval must be positive, got %d ms", c.Simulation.TickIntervalMS)
	}

	if len(c.Replicas) < 2 {
		return errors.Errorf("need at least 2 replicas, got %d", len(c.Replicas))
	}

	seen := make(map[string]bool, len(c.Replicas))
	for _, r := range c.Replicas {

		if r.Name == "" {
			return errors.New("replica name must not be empty")
		}

		if seen[r.Name] {
			return errors.Errorf("duplicate replica name '%s'", r.Name)
		}
		seen[r.Name] = true

		if r.DelayMS < 0 {
			return errors.Errorf("replica '%s' has negative delay %d ms", r.Name, r.DelayMS)
		}
	}

	if (c.Grid.Width < 1) || (c.Grid.Height < 1) {
		return errors.Errorf("grid bounds must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}

	return nil
}

// TickInterval returns the engine cadence as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Simulation.TickIntervalMS) * time.Millisecond
}

// WorkloadInterval returns the generator cadence as a duration.
func (c *Config) WorkloadInterval() time.Duration {
	return time.Duration(c.Workload.TickIntervalMS) * time.Millisecond
}

// Delay returns a replica's outbound delay as a duration.
func (r Replica) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

func isKnownVariant(name string) bool {

	for _, v := range Variants {

		if v == name {
			return true
		}
	}

	return false
}

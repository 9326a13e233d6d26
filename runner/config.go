package runner

import (
	"github.com/kbukum/testkit/config"
	"github.com/kbukum/testkit/snapshot"
	"github.com/kbukum/testkit/validation"
)

// Config controls one run.
type Config struct {
	StopOnFailure bool
	WorkerCount   int `validate:"min=1"`
	// SuiteFilter is a doublestar glob matched against "suite/name".
	// Empty selects every unit.
	SuiteFilter string `validate:"omitempty,glob"`
}

// ApplyDefaults sets WorkerCount to 1 when unset.
func (c *Config) ApplyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// ConfigFrom converts a loaded RunConfig.
func ConfigFrom(rc config.RunConfig) Config {
	return Config{
		StopOnFailure: rc.StopOnFailure,
		WorkerCount:   rc.WorkerCount,
		SuiteFilter:   rc.SuiteFilter,
	}
}

// StoreConfigFrom returns the view pool settings of a loaded RunConfig.
func StoreConfigFrom(rc config.RunConfig) snapshot.StoreConfig {
	return snapshot.StoreConfig{MaxViews: rc.MaxViews, ViewWait: rc.ViewWait}
}

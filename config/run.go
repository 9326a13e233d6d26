package config

import (
	"fmt"
	"time"

	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/observability"
	"github.com/kbukum/testkit/validation"
)

// DefaultViewWait bounds how long a worker waits for a free working view.
const DefaultViewWait = 30 * time.Second

// RunConfig is the file/env representation of one engine run.
type RunConfig struct {
	StopOnFailure bool          `yaml:"stop_on_failure" mapstructure:"stop_on_failure"`
	WorkerCount   int           `yaml:"worker_count" mapstructure:"worker_count" validate:"min=1"`
	SuiteFilter   string        `yaml:"suite_filter" mapstructure:"suite_filter" validate:"omitempty,glob"`
	MaxViews      int           `yaml:"max_views" mapstructure:"max_views" validate:"gte=0"`
	ViewWait      time.Duration `yaml:"view_wait" mapstructure:"view_wait" validate:"gte=0"`
	Logging       logger.Config `yaml:"logging" mapstructure:"logging"`

	Telemetry observability.TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills zero values.
func (c *RunConfig) ApplyDefaults() {
	if c.WorkerCount == 0 {
		c.WorkerCount = 1
	}
	if c.ViewWait == 0 {
		c.ViewWait = DefaultViewWait
	}
	c.Logging.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the configuration. Call ApplyDefaults first.
func (c *RunConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.telemetry: %w", err)
	}
	return nil
}

// LoadRun loads, defaults and validates a RunConfig.
func LoadRun(name string, opts ...LoaderOption) (*RunConfig, error) {
	var cfg RunConfig
	if err := Load(name, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package sqlstore

import (
	"fmt"
	"time"

	"github.com/kbukum/testkit/validation"
)

// Config holds sqlite backend configuration.
type Config struct {
	// Dir is where the temporary baseline file is created. Empty means os.TempDir.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=silent error warn info"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`

	// BusyTimeout is how long sqlite waits on a locked database (e.g. "5s").
	BusyTimeout string `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.BusyTimeout == "" {
		c.BusyTimeout = "5s"
	}
}

// Validate checks that fields are present and parseable.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return fmt.Errorf("invalid slow_query_threshold %q: %w", c.SlowQueryThreshold, err)
	}
	if _, err := time.ParseDuration(c.BusyTimeout); err != nil {
		return fmt.Errorf("invalid busy_timeout %q: %w", c.BusyTimeout, err)
	}
	return nil
}

func (c *Config) busyTimeoutMillis() int64 {
	d, err := time.ParseDuration(c.BusyTimeout)
	if err != nil {
		return 5000
	}
	return d.Milliseconds()
}

func (c *Config) slowThreshold() time.Duration {
	d, err := time.ParseDuration(c.SlowQueryThreshold)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/testkit/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestRunConfigApplyDefaults(t *testing.T) {
	var cfg RunConfig
	cfg.ApplyDefaults()
	if cfg.WorkerCount != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.WorkerCount)
	}
	if cfg.ViewWait != DefaultViewWait {
		t.Errorf("expected %v, got %v", DefaultViewWait, cfg.ViewWait)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults, got %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid filter", func(c *RunConfig) { c.SuiteFilter = "posts/*" }, ""},
		{"negative workers", func(c *RunConfig) { c.WorkerCount = -1 }, "worker_count"},
		{"bad filter", func(c *RunConfig) { c.SuiteFilter = "[" }, "suite_filter"},
		{"negative max views", func(c *RunConfig) { c.MaxViews = -2 }, "max_views"},
		{"bad log level", func(c *RunConfig) { c.Logging.Level = "loud" }, "config.logging"},
		{"bad sample rate", func(c *RunConfig) { c.Telemetry.SampleRate = 2 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg RunConfig
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRunFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "testkit.yml", `
stop_on_failure: true
worker_count: 3
suite_filter: "posts/**"
view_wait: 5s
logging:
  level: debug
  format: json
`)

	cfg, err := LoadRun("testkit", WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if !cfg.StopOnFailure || cfg.WorkerCount != 3 || cfg.SuiteFilter != "posts/**" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ViewWait != 5*time.Second {
		t.Errorf("expected 5s view wait, got %v", cfg.ViewWait)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRunEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "testkit.yml", "worker_count: 2\n")
	t.Setenv("TESTKIT_WORKER_COUNT", "6")
	t.Setenv("TESTKIT_LOGGING_LEVEL", "warn")

	cfg, err := LoadRun("testkit", WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if cfg.WorkerCount != 6 {
		t.Errorf("expected env to override worker count, got %d", cfg.WorkerCount)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env to override logging level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRunDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "TESTKIT_STOP_ON_FAILURE=true\n")
	t.Cleanup(func() { os.Unsetenv("TESTKIT_STOP_ON_FAILURE") })

	cfg, err := LoadRun("testkit", WithConfigFile(filepath.Join(dir, "none.yml")), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if !cfg.StopOnFailure {
		t.Error("expected .env value to be applied")
	}
}

func TestLoadRunInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "testkit.yml", "worker_count: -4\n")

	_, err := LoadRun("testkit", WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg RunConfig
	if err := Load("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env")); err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "testkit.yml", "worker_count: [1\n")

	var cfg RunConfig
	if err := Load("testkit", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./testdata/testkit.yml": true,
		"./config/testkit.yml":   true,
		"./config/.env":          true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("testkit", LoaderConfig{})
	if files.ConfigFile != "./testdata/testkit.yml" {
		t.Errorf("expected ./testdata/testkit.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./config/.env" {
		t.Errorf("expected ./config/.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPaths(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{}}
	files := resolver.ResolveFiles("testkit", LoaderConfig{ConfigFile: "a.yml", EnvFile: "b.env"})
	if files.ConfigFile != "a.yml" || files.EnvFile != "b.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("LOGGING_NO_COLOR")
	want := []string{"logging_no_color", "logging.no_color", "logging.no.color"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variant %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if v := envKeyVariants("WORKERS"); len(v) != 1 || v[0] != "workers" {
		t.Errorf("unexpected single-part variants: %v", v)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/testkit.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/testkit.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("options not applied: %+v", lc)
	}
}

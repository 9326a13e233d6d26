package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/testkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "unit").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorNoneOf(t *testing.T) {
	if New().NoneOf("name", "create_post", "/").HasErrors() {
		t.Error("expected no error")
	}
	if !New().NoneOf("name", "posts/create", "/").HasErrors() {
		t.Error("expected error for name containing a slash")
	}
}

func TestValidatorMinAndOneOf(t *testing.T) {
	v := New().Min("workers", 0, 1).OneOf("mode", "loose", []string{"strict", "spy"})
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(v.Errors()))
	}
	if New().OneOf("mode", "", []string{"strict"}).HasErrors() {
		t.Error("expected empty value to be skipped")
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := New().
		Required("name", "").
		Custom(false, "hooks", "body is required").
		Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "name: is required") || !strings.Contains(err.Error(), "hooks: body is required") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error")
	}
}

type sampleConfig struct {
	WorkerCount int           `mapstructure:"worker_count" validate:"min=1"`
	SuiteFilter string        `mapstructure:"suite_filter" validate:"omitempty,glob"`
	ViewWait    time.Duration `mapstructure:"view_wait" validate:"gte=0"`
	Mode        string        `validate:"omitempty,oneof=strict spy"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		cfg     sampleConfig
		wantErr string
	}{
		{"valid", sampleConfig{WorkerCount: 2, SuiteFilter: "posts/**"}, ""},
		{"zero workers", sampleConfig{WorkerCount: 0}, "worker_count: must be at least 1"},
		{"bad glob", sampleConfig{WorkerCount: 1, SuiteFilter: "posts/[a"}, "suite_filter: must be a valid glob pattern"},
		{"negative wait", sampleConfig{WorkerCount: 1, ViewWait: -time.Second}, "view_wait"},
		{"bad mode", sampleConfig{WorkerCount: 1, Mode: "loose"}, "mode: must be one of: strict spy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, err.Error())
			}
			if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
				t.Errorf("expected INVALID_INPUT, got %s", errors.CodeOf(err))
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("WorkerCount"); got != "worker_count" {
		t.Errorf("got %q", got)
	}
}

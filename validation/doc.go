// Package validation validates engine inputs such as run configuration and
// unit descriptors.
//
// Struct tag validation uses go-playground/validator and reports failures as
// INVALID_INPUT AppErrors. The programmatic Validator collects field errors
// for checks that are awkward to express as tags.
//
//	type RunConfig struct {
//	    WorkerCount int    `validate:"min=1"`
//	    SuiteFilter string `validate:"omitempty,glob"`
//	}
//	err := validation.Validate(cfg)
package validation

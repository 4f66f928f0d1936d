package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "system.num_gpus")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks the Config for invalid values. testing selects the
// stricter rules of a test session, which needs an input folder.
func (c *Config) Validate(testing bool) error {
	var errs ValidationErrors

	if c.System.NumGPUs < 1 {
		errs = append(errs, ValidationError{
			Field:   "system.num_gpus",
			Value:   c.System.NumGPUs,
			Message: "must be at least 1",
		})
	}

	if c.System.BatchSizePerGPU < 1 {
		errs = append(errs, ValidationError{
			Field:   "system.batch_size_per_gpu",
			Value:   c.System.BatchSizePerGPU,
			Message: "must be at least 1",
		})
	}

	if _, ok := c.Input(); testing && !ok {
		errs = append(errs, ValidationError{
			Field:   "system.search_path.run.inputs",
			Value:   c.System.SearchPath.Run.Inputs,
			Message: "test sessions need an input folder",
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

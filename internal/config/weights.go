// Package config reads and validates the scoring weight table.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// idPattern matches valid issue IDs: alphanumeric, underscores, and hyphens.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// weightsFile is the on-disk schema of a weight table override file.
type weightsFile struct {
	// Weights maps issue IDs to score multipliers. An issue absent from
	// the table scores with weight 1.0.
	Weights map[string]float64 `yaml:"weights" validate:"required,min=1,dive,keys,vitals_id,endkeys,gt=0,lte=10"`
}

// DefaultWeights returns the built-in weight table. Values are
// calibration, not structure: any issue ID missing here scores at 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"firewall_disabled":       2.0,
		"port_open_3389":          2.0,
		"port_open_23":            2.0,
		"os_updates_pending":      1.5,
		"disk_smart_failure":      1.5,
		"excessive_startup_items": 0.8,
	}
}

// LoadWeights reads a YAML weight file and merges it over the defaults.
// File entries override default entries with the same ID. A malformed
// file is a configuration error: the caller must not enter service.
func LoadWeights(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file %q: %w", path, err)
	}

	var parsed weightsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %q: %w", path, err)
	}

	if err := validateWeights(parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	merged := DefaultWeights()
	for id, w := range parsed.Weights {
		merged[id] = w
	}
	return merged, nil
}

// validateWeights runs schema validation over a parsed weights file.
func validateWeights(parsed weightsFile) error {
	v := validator.New()
	_ = v.RegisterValidation("vitals_id", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})

	if err := v.Struct(parsed); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors converts validator errors into user-friendly messages.
func formatValidationErrors(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var messages []string
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}

	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// formatFieldError converts a single field validation error to a human-readable message.
func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "weights section is required"
	case "min":
		return "weights must contain at least one entry"
	case "gt":
		return fmt.Sprintf("weight for %v must be greater than 0", fe.Value())
	case "lte":
		return fmt.Sprintf("weight %v exceeds the maximum of %s", fe.Value(), fe.Param())
	case "vitals_id":
		return fmt.Sprintf("issue ID %q must be alphanumeric with underscores and hyphens only", fe.Value())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}

package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidationFailed is returned when struct validation fails.
var ErrValidationFailed = errors.New("validation failed")

var configValidator *validator.Validate

func init() {
	configValidator = validator.New()

	_ = configValidator.RegisterValidation("backendtype", validateBackendType)
	_ = configValidator.RegisterValidation("duration_gte", validateDurationGTE)
}

// ValidateConfig validates a configuration struct using struct tags
func ValidateConfig(cfg any) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := errors.AsType[validator.ValidationErrors](err)
	if !ok {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatValidationError(e))
	}

	return fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(messages, "\n  "))
}

func formatValidationError(e validator.FieldError) string {
	field := e.Namespace()
	param := e.Param()
	value := e.Value()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: required field is empty", field)
	case "gte":
		return fmt.Sprintf("%s: must be >= %s (got: %v)", field, param, value)
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s] (got: %v)", field, param, value)
	case "url":
		return fmt.Sprintf("%s: must be a valid URL (got: %v)", field, value)
	case "backendtype":
		return fmt.Sprintf("%s: must be one of [%s] (got: %v)", field, strings.Join(BackendTypes, " "), value)
	case "duration_gte":
		return fmt.Sprintf("%s: duration must be >= %s (got: %v)", field, param, value)
	default:
		return fmt.Sprintf("%s: validation '%s' failed (got: %v)", field, e.Tag(), value)
	}
}

func validateBackendType(fl validator.FieldLevel) bool {
	return slices.Contains(BackendTypes, strings.ToLower(fl.Field().String()))
}

func validateDurationGTE(fl validator.FieldLevel) bool {
	dur, ok := fl.Field().Interface().(time.Duration)
	if !ok {
		return true
	}
	minDur, err := time.ParseDuration(fl.Param())
	if err != nil {
		return false
	}
	return dur >= minDur
}

// UnknownKeyWarning represents a warning about an unknown configuration key
type UnknownKeyWarning struct {
	Section    string
	Key        string
	Suggestion string
}

func (w UnknownKeyWarning) String() string {
	if w.Suggestion != "" {
		return fmt.Sprintf("Unknown key %q in [%s] (did you mean %q?)", w.Key, w.Section, w.Suggestion)
	}
	return fmt.Sprintf("Unknown key %q in [%s]", w.Key, w.Section)
}

// GenerateUnknownKeyWarnings generates warnings for unknown keys with suggestions
func GenerateUnknownKeyWarnings(section string, unusedKeys []string, knownKeys []string) []UnknownKeyWarning {
	warnings := make([]UnknownKeyWarning, 0, len(unusedKeys))
	for _, key := range unusedKeys {
		warnings = append(warnings, UnknownKeyWarning{
			Section:    section,
			Key:        key,
			Suggestion: findClosestMatch(key, knownKeys),
		})
	}
	return warnings
}

// findClosestMatch returns the candidate with the smallest edit distance,
// or "" when none is within 3 edits (40% of the key for long keys).
func findClosestMatch(key string, candidates []string) string {
	key = strings.ToLower(key)
	threshold := 3
	if len(key) > 5 {
		threshold = len(key) * 2 / 5
	}

	bestMatch := ""
	bestDistance := len(key) + 1
	for _, candidate := range candidates {
		candidate = strings.ToLower(candidate)
		distance := levenshteinDistance(key, candidate)
		if distance < bestDistance && distance <= threshold {
			bestDistance = distance
			bestMatch = candidate
		}
	}
	return bestMatch
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

package policy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Policy errors.
var (
	// ErrUnknownSetting is returned for a setting key that Config does not have.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSetting is returned when a setting value has the wrong type or
	// would make the effective configuration invalid.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrUnknownPreset is returned for a preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown preset")
)

// ValidationError lists the constraints a configuration violates.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Violations, "; "))
}

// Unwrap lets errors.Is match ErrInvalidSetting.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidSetting
}

// configValidator reports field names by their JSON setting key.
var configValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.Split(fld.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidateConfig checks cfg against the allowed ranges and returns one
// human-readable message per violated constraint. An empty result means the
// configuration is valid. It never panics on malformed input.
func ValidateConfig(cfg Config) []string {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, describe(fe))
	}
	return violations
}

// describe turns a validator field error into a sentence.
func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must not be empty", field)
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s constraint", field, fe.Tag())
	}
}

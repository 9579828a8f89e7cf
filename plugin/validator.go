package plugin

import (
	"errors"
	"fmt"

	validatorV10 "github.com/go-playground/validator/v10"

	apperrors "github.com/leeforge/hookforge/errors"
)

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
}

// Validate checks v against its validate tags. Failures come back as a
// validation AppError carrying message and the offending fields.
func Validate(message string, v any) error {
	if err := validator.Struct(v); err != nil {
		return validationError(message, err, nil)
	}
	return nil
}

// validationError turns a validator failure into a validation AppError whose
// details name every offending field.
func validationError(message string, err error, details map[string]any) *apperrors.AppError {
	out := apperrors.Validation(message, err)
	if len(details) > 0 {
		out.WithDetails(details)
	}
	var fieldErrs validatorV10.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Namespace()] = getValidationMessage(fe)
		}
		out.WithDetail("fields", fields)
	}
	return out
}

func getValidationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

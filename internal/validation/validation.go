package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all callers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so errors line up with the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates v and returns every field error found, in declaration order.
// A nil result means v is valid.
func Struct(v interface{}) []models.FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.FieldError{{Code: "invalid", Message: err.Error()}}
	}

	errs := make([]models.FieldError, 0, len(ve))
	for _, fe := range ve {
		errs = append(errs, models.FieldError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: formatValidationError(fe),
		})
	}
	return errs
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "e164":
		return "must be a phone number in international format"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

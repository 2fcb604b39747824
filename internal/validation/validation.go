// Package validation checks inputs before they reach storage. Failures come
// back as VALIDATION_ERROR application errors with a readable message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"bookdot/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var accountIDRegex = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("accountid", func(fl validator.FieldLevel) bool {
		return accountIDRegex.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates v against its validate tags.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return models.NewValidationError(message(verrs[0]))
	}
	return models.NewValidationError(err.Error())
}

// AccountID checks the NNNN-NNNN-NNNN-NNNN account id format.
func AccountID(id string) error {
	if !accountIDRegex.MatchString(strings.TrimSpace(id)) {
		return models.NewValidationError("account id must look like 1234-5678-9012-3456")
	}
	return nil
}

// NotBlank fails when value is empty or only whitespace.
func NotBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return models.NewValidationError(field + " cannot be empty")
	}
	return nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "notblank", "required":
		return field + " cannot be empty"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "accountid":
		return "account id must look like 1234-5678-9012-3456"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

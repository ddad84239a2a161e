package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storerate/internal/apperrors"
	"storerate/internal/models"
)

const validationFailed = "Validation failed"

// newValidator returns a validator that reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a ValidationError. When
// message is empty the first field message is used as the summary.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewInternal("", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	first := ""
	for _, fe := range fieldErrs {
		msg := fieldMessage(fe)
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = msg
		}
		if first == "" {
			first = msg
		}
	}
	if message == "" {
		message = first
	}
	return apperrors.NewValidation(message, fields)
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Field() {
	case "username":
		if fe.Tag() != "required" {
			return "Username must be between 3 and 30 characters"
		}
	case "email":
		if fe.Tag() == "email" {
			return "Invalid email format"
		}
	case "password":
		if fe.Tag() == "min" {
			return "Password must be at least 8 characters long"
		}
	case "rating":
		return fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating)
	case "name":
		if fe.Tag() != "required" {
			return "Name must be between 2 and 100 characters"
		}
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		if fe.Param() == "1" {
			return label + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

func fieldLabel(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "id" {
			words[i] = "ID"
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	if len(words) > 0 && words[0] != "" {
		return strings.Join(words, " ")
	}
	return field
}

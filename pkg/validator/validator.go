package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

// Validatable types can check their own enumerations for the "enum" tag.
type Validatable interface {
	Valid() bool
}

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})

	validate.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		if v, ok := fl.Field().Interface().(Validatable); ok {
			return v.Valid()
		}
		return false
	})

	// Report json names so messages match what clients send
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
	}
	for _, fe := range validationErrs {
		errs = append(errs, &ErrorResponse{
			FailedField: fe.Field(),
			Tag:         fe.Tag(),
			Value:       fe.Param(),
		})
	}
	return errs
}

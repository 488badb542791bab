package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/livesale/livesale-api/internal/pkg/phone"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Credit source type validation
	validate.RegisterValidation("source_type", func(fl validator.FieldLevel) bool {
		sourceType := fl.Field().String()
		validTypes := []string{"promotion", "compensation", "return_shipper", "manual"}
		for _, t := range validTypes {
			if sourceType == t {
				return true
			}
		}
		return false
	})

	// Customer phone validation (any normalizable form is accepted)
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := phone.Normalize(fl.Field().String())
		return err == nil
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "source_type":
			errors[field] = "Invalid source type. Must be: promotion, compensation, return_shipper, or manual"
		case "phone":
			errors[field] = "Invalid phone number"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the struct tags and translates failures into field errors.
// It returns nil when the struct is valid.
func ValidateStruct(s interface{}) apperr.FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	errs := apperr.FieldErrors{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range ve {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			errs.Add(field, field+" is required")
		case "email":
			errs.Add(field, "invalid email format")
		case "min":
			errs.Add(field, field+" must be at least "+fe.Param()+" characters")
		case "max":
			errs.Add(field, field+" must be at most "+fe.Param()+" characters")
		case "oneof":
			errs.Add(field, field+" must be one of: "+fe.Param())
		case "eqfield":
			errs.Add(field, field+" does not match")
		default:
			errs.Add(field, field+" is invalid")
		}
	}
	return errs
}

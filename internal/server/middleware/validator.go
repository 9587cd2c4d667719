package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()

	commonTags := []string{
		"json",
		"param",
		"query",
		"header",
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range commonTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	// objectid accepts a hex encoded mongo id, or a list of them
	validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		switch v := fl.Field().Interface().(type) {
		case string:
			return primitive.IsValidObjectID(v)
		case []string:
			for _, s := range v {
				if !primitive.IsValidObjectID(s) {
					return false
				}
			}
			return true
		}
		return false
	})

	v := &Validator{
		validate: validate,
	}

	return v
}

// Validate reports the first failing field in client terms, e.g.
// "visitorId is required".
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "objectid":
		return fmt.Errorf("%s is not a valid id", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Errorf("%s must be %s %s", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

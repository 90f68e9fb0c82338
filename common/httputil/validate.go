package httputil

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidationMessage turns a validator error into a client message. Missing
// fields and empty lists collapse into missingMsg; other failures name the
// first bad field.
func ValidationMessage(err error, missingMsg string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return missingMsg
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" || (fe.Tag() == "min" && fe.Kind() == reflect.Slice) {
			return missingMsg
		}
	}
	return fmt.Sprintf("Invalid value for field: %s", verrs[0].Field())
}

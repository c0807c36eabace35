package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Field names are reported by
// their json tag so messages line up with request bodies.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// FieldErrors maps a json field name to a human-readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, m := range fe {
		parts = append(parts, k+": "+m)
	}
	return strings.Join(parts, "; ")
}

// Struct validates s using its validate tags. Tag failures come back as FieldErrors;
// messages use the field's `label` tag when present.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = message(label(t, fe), fe.Tag())
	}
	return out
}

func label(t reflect.Type, fe validator.FieldError) string {
	if f, ok := t.FieldByName(fe.StructField()); ok {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
	}
	return fe.StructField()
}

func message(label, tag string) string {
	switch tag {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid " + strings.ToLower(label) + " format"
	}
	return fmt.Sprintf("%s failed '%s'", label, tag)
}

package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Errors name fields by their
// JSON key so messages match what the caller sent.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

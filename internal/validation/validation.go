// Package validation wires go-playground/validator for both request bodies (gin `binding:`
// tags) and store writes (`validate:` tags). A field's `msg:` tag, when present, replaces the
// generated message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"teamhub/internal/apperr"
)

var (
	hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	phoneRe    = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

var (
	store     *validator.Validate
	storeOnce sync.Once
	ginOnce   sync.Once
)

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	// ошибки регистрации возможны только при пустом теге
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return hexColorRe.MatchString(fl.Field().String())
	})
	// пустой телефон означает "не указан"
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || phoneRe.MatchString(s)
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
}

// RegisterGin installs the custom rules on gin's binding engine. Safe to call repeatedly.
func RegisterGin() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
}

func storeValidator() *validator.Validate {
	storeOnce.Do(func() {
		store = validator.New()
		register(store)
	})
	return store
}

// Check runs the `validate:` rules of obj and returns the failures.
func Check(obj interface{}) []apperr.FieldError {
	err := storeValidator().Struct(obj)
	if err == nil {
		return nil
	}
	return FieldErrors(obj, err)
}

// Struct is Check wrapped into a validation error.
func Struct(obj interface{}) error {
	if fields := Check(obj); len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

// FieldErrors converts a bind or validation error for obj into field errors.
// Anything that is not a rule failure (malformed JSON, wrong types) is reported on "body".
func FieldErrors(obj interface{}, err error) []apperr.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Field: "body", Message: "invalid JSON body"}}
	}
	root := reflect.TypeOf(obj)
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fieldPath(fe.Namespace()), Message: message(root, fe)})
	}
	return out
}

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// fieldPath turns "TaskInput.subtasks[2].title" into "subtasks.title".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	var b strings.Builder
	skip := false
	for _, r := range ns {
		switch {
		case r == '[':
			skip = true
		case r == ']':
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// message looks up the msg tag of the failing field by walking its struct namespace.
func message(root reflect.Type, fe validator.FieldError) string {
	t := root
	var field *reflect.StructField
	parts := strings.Split(fe.StructNamespace(), ".")
	for _, p := range parts[1:] {
		if i := strings.IndexByte(p, '['); i >= 0 {
			p = p[:i]
		}
		t = elem(t)
		if t.Kind() != reflect.Struct {
			field = nil
			break
		}
		f, ok := t.FieldByName(p)
		if !ok {
			field = nil
			break
		}
		field = &f
		t = f.Type
	}
	if field != nil {
		if m := field.Tag.Get("msg"); m != "" {
			return m
		}
	}
	return generic(fe)
}

func elem(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

func generic(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s cannot be less than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid %s", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

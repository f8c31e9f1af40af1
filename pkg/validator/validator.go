package validator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError is a single rejected field, named by its JSON key.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Missing reports whether the field was absent or blank.
func (f FieldError) Missing() bool {
	return f.Rule == "required" || f.Rule == "notblank"
}

// Message renders the failure for API clients.
func (f FieldError) Message() string {
	field := strings.ToLower(strings.ReplaceAll(f.Field, "_", " "))
	if field == "" {
		field = "field"
	}
	switch {
	case f.Missing():
		return field + " is required"
	case f.Rule == "email":
		return field + " must be a valid email address"
	case f.Rule == "max":
		return fmt.Sprintf("%s must be at most %s characters", field, f.Param)
	case f.Rule == "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, f.Param)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, f.Rule)
	}
}

// FieldErrors lists every failing field in declaration order.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Message()
	}
	return strings.Join(parts, "; ")
}

// AllMissing reports whether every failure is a missing field.
func (fe FieldErrors) AllMissing() bool {
	for _, f := range fe {
		if !f.Missing() {
			return false
		}
	}
	return len(fe) > 0
}

// ValidateStruct runs the `validate` tags of s. Rule failures come back as FieldErrors.
func ValidateStruct(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(FieldErrors, len(ve))
	for i, fe := range ve {
		out[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return out
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return engine().RegisterValidation(tag, fn)
}

// notBlank rejects strings that are empty once surrounding whitespace is removed.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

// maxBytes bounds the encoded length of a string, unlike `max` which counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil || fl.Field().Kind() != reflect.String {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("notblank", notBlank)
		_ = validate.RegisterValidation("maxbytes", maxBytes)
	})
	return validate
}

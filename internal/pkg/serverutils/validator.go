package serverutils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	validate   = newValidator()
	uaePhoneRe = regexp.MustCompile(`^(\+971|971|0)?[2-9][0-9]{8}$`)

	// today is swapped in tests.
	today = time.Now
)

func newValidator() *validator.Validate {
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

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(dto.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.Time
	}, dto.Date{})

	_ = v.RegisterValidation("uae_phone", func(fl validator.FieldLevel) bool {
		return IsUAEPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !entity.NormalizeDate(t).Before(entity.NormalizeDate(today()))
	})

	return v
}

// IsUAEPhone accepts +971 / 971 / 0 prefixed numbers, whitespace ignored.
func IsUAEPhone(s string) bool {
	return uaePhoneRe.MatchString(strings.Join(strings.Fields(s), ""))
}

// ValidateRequest runs the struct tags and reports every failing field at once.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Internal("validation failed", err)
	}

	fields := make([]apperror.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, apperror.FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return apperror.Validation("Validation failed", fields)
}

// fieldPath drops the root struct name and any embedded struct from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.TrimPrefix(ns, "PlayerRequest.")
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uae_phone":
		return "must be a valid UAE phone number"
	case "notpast":
		return "cannot be in the past"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if isList {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "alpha":
		return "must contain letters only"
	default:
		return "is invalid"
	}
}

package validation

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"glampbook/internal/app/middleware"
	"glampbook/internal/pkg/errs"
)

var ErrInvalidMessage = errs.Mark(errs.New("validation: invalid request"), errs.ErrInvalidInput)

// StructValidator checks the `validate` tags of commands and queries.
type StructValidator struct {
	v *validator.Validate
}

func New() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &StructValidator{v: v}
}

// Validate returns ErrInvalidMessage listing every failing field.
func (s *StructValidator) Validate(ctx context.Context, message any) error {
	if message == nil {
		return nil
	}
	rv := reflect.ValueOf(message)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := s.v.StructCtx(ctx, rv.Interface())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.Mark(errs.Wrap(err, "validation"), errs.ErrInvalidInput)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, describe(fe))
	}
	return errs.Wrap(ErrInvalidMessage, strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "gtfield":
		return field + " must be after " + fe.Param()
	case "datetime":
		return field + " must match " + fe.Param()
	default:
		return field + " failed " + fe.Tag()
	}
}

var _ middleware.Validator = (*StructValidator)(nil)

package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

// RegisterValidations adds the domain-specific rules used by struct tags.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("ridetype", func(fl validator.FieldLevel) bool {
		return domain.IsRideType(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register ridetype: %w", err)
	}
	return nil
}

// NewValidator returns a validator with the domain rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// validationError turns validator output into a user-facing ValidationError.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ValidationError(op, "%s", err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "ridetype":
			msgs = append(msgs, field+" must be one of: "+strings.Join(domain.RideTypes, ", "))
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		case "min", "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "max", "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return domain.ValidationError(op, "%s", strings.Join(msgs, "; "))
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

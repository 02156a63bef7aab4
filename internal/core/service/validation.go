package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationMessage flattens validator errors into "field is required; ...".
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, field+" failed validation ("+fe.Tag()+")")
		}
	}
	return strings.Join(msgs, "; ")
}

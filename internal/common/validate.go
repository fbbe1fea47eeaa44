package common

import (
	"net/http"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the shared validator over a decoded payload and maps
// the first failure onto a field-keyed validation rejection.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &AppError{
			Code:       CodeValidation,
			Message:    "invalid payload",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]string{"field": fe.Field(), "rule": fe.Tag()},
		}
	}
	return Validation("invalid payload", err)
}

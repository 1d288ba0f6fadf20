package app

import (
	"errors"

	"olivetrace/domain"
	"olivetrace/pkg/httperror"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// kilograms accepts a non-negative decimal amount such as "12.5".
	_ = v.RegisterValidation("kilograms", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseKilograms(fl.Field().String())
		return err == nil
	})

	return v
}

func validateRequest(code string, req any) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return httperror.BadRequest(
				code+".validation_failed",
				"Validation failed for the request",
				ve.Error(),
			)
		}

		return httperror.InternalServerError(
			code+".validation_error",
			"An unexpected validation error occurred",
			err,
		)
	}
	return nil
}

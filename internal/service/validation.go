package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct оборачивает ошибки валидатора в ErrValidation с перечислением полей
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return fmt.Errorf("%w: invalid email", apperrors.ErrValidation)
	}
	return nil
}

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator/v10 tags against a request DTO and folds the
// first failure into a client-presentable message.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s must not exceed %s characters", field, fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "email":
		return fmt.Errorf("invalid email format")
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

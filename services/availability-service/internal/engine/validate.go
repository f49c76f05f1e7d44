package engine

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct reports the first failing field as a validation error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("", "%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fe.Field(), "is required")
	case "uuid":
		return apperr.Validation(fe.Field(), "must be a UUID")
	case "email":
		return apperr.Validation(fe.Field(), "must be a valid email address")
	case "min", "gte":
		return apperr.Validation(fe.Field(), "must be at least %s", fe.Param())
	case "max", "lte":
		return apperr.Validation(fe.Field(), "must be at most %s", fe.Param())
	}
	return apperr.Validation(fe.Field(), "failed %s check", fe.Tag())
}

// checkHostID rejects ids that cannot name a host row, so a malformed id is a
// caller error instead of a storage failure.
func checkHostID(hostID string) error {
	if strings.TrimSpace(hostID) == "" {
		return apperr.Validation("host_id", "is required")
	}
	if _, err := uuid.Parse(hostID); err != nil {
		return apperr.Validation("host_id", "must be a UUID")
	}
	return nil
}

package userkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	msgBlank   = "can't be blank"
	msgTaken   = "has already been taken"
	msgInvalid = "is invalid"
)

var fieldNames = map[string]string{
	"Username": "username",
	"Email":    "email",
	"FullName": "full_name",
}

// Validate normalizes the user's identity fields and checks them. Messages are
// stored on user.Errors; the boolean reports validity. Only storage failures are
// returned as errors.
//
// The uniqueness check here is advisory. Concurrent registrations are still
// rejected by the unique constraint when the row is written.
func (s *Service) Validate(ctx context.Context, u *User) (bool, error) {
	u.normalize()
	u.Errors = nil

	if err := s.validate.StructCtx(ctx, u); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return false, fmt.Errorf("failed to validate user: %w", err)
		}
		for _, fe := range verrs {
			u.Errors.Add(fieldName(fe.Field()), validationMessage(fe))
		}
	}

	if u.Username != "" && len(u.Errors.On("username")) == 0 {
		taken, err := s.store.UsernameTaken(ctx, u.Username, u.ID)
		if err != nil {
			return false, err
		}
		if taken {
			u.Errors.Add("username", msgTaken)
		}
	}

	return !u.Errors.Any(), nil
}

func fieldName(structField string) string {
	if name, ok := fieldNames[structField]; ok {
		return name
	}
	return structField
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgBlank
	case "max":
		return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
	default:
		return msgInvalid
	}
}

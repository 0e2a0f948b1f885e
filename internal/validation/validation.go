package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"jmkresearch-backend/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
	})
	return validate
}

// Struct validates a request DTO and returns a Validation error naming every
// failing field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("invalid request: %v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
	}
	return apperrors.Validation("invalid request: %s", strings.Join(fields, ", "))
}

// ObjectID parses a hex id, reporting the field name on failure.
func ObjectID(field, value string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidID(field, value)
	}
	return oid, nil
}

// ObjectIDs parses a list of hex ids, collapsing duplicates while keeping order.
func ObjectIDs(field string, values []string) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]bool, len(values))
	out := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		oid, err := ObjectID(field, v)
		if err != nil {
			return nil, err
		}
		if seen[oid] {
			continue
		}
		seen[oid] = true
		out = append(out, oid)
	}
	return out, nil
}

// OptionalObjectID parses an optional reference; empty means unset.
func OptionalObjectID(field, value string) (*primitive.ObjectID, error) {
	if value == "" {
		return nil, nil
	}
	oid, err := ObjectID(field, value)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TextCodeNotFound     = "NOT_FOUND"
	TextCodeConflict     = "CONFLICT"
	TextCodeForbidden    = "FORBIDDEN"
	TextCodeUnauthorized = "UNAUTHORIZED"
	TextCodeValidation   = "VALIDATION_ERROR"
	TextCodeInternal     = "INTERNAL_ERROR"
)

func NotFound(entity, id string) error {
	return goerrors.New(fmt.Sprintf("%s not found: %s", entity, id), goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeNotFound)
}

func Conflict(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode(TextCodeConflict)
}

func Forbidden(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodeForbidden)
}

func Unauthorized(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

func Validation(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
}

func Internal(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodeInternal)
}

// InvalidID reports a malformed object id in the named field.
func InvalidID(field, value string) error {
	return Validation("invalid %s: %q is not a valid id", field, value)
}

// FromMongo translates driver errors: missing documents become NotFound,
// duplicate keys become Conflict and anything else is Internal.
func FromMongo(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return NotFound(entity, id)
	case mongo.IsDuplicateKeyError(err):
		return Conflict("%s already exists", entity)
	}
	return Internal(err, fmt.Sprintf("%s storage failure", entity))
}

func IsCategory(err error, category goerrors.Category) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == category
	}
	return false
}

func IsNotFound(err error) bool     { return IsCategory(err, goerrors.CategoryNotFound) }
func IsConflict(err error) bool     { return IsCategory(err, goerrors.CategoryConflict) }
func IsForbidden(err error) bool    { return IsCategory(err, goerrors.CategoryAuthz) }
func IsUnauthorized(err error) bool { return IsCategory(err, goerrors.CategoryAuth) }
func IsValidation(err error) bool   { return IsCategory(err, goerrors.CategoryValidation) }

// Status returns the HTTP status, text code and message to expose for err.
func Status(err error) (int, string, string) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		code := rich.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		if code >= http.StatusInternalServerError {
			return code, rich.TextCode, "internal server error"
		}
		return code, rich.TextCode, rich.Message
	}
	return http.StatusInternalServerError, TextCodeInternal, "internal server error"
}

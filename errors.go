package authclient

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeConflict           = "ACCOUNT_CONFLICT"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidCode        = "INVALID_RESET_CODE"
	TextCodeWeakPassword       = "WEAK_PASSWORD"
	TextCodeTransport          = "TRANSPORT_ERROR"
)

// ErrValidation is returned when a payload is rejected, locally or remotely.
var ErrValidation = goerrors.New("invalid request payload", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrConflict is returned when registering an account that already exists.
var ErrConflict = goerrors.New("account already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned when login is rejected.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(http.StatusUnauthorized)

// ErrInvalidCode is returned when a password reset code is wrong or expired.
var ErrInvalidCode = goerrors.New("invalid password reset code", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeBadRequest)

// ErrWeakPassword is returned when the new password fails the server policy.
var ErrWeakPassword = goerrors.New("password does not meet requirements", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTransport covers network failures and unexpected server responses.
var ErrTransport = goerrors.New("identity service request failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeTransport).
	WithCode(http.StatusBadGateway)

// IsValidationError reports a user correctable payload error
func IsValidationError(err error) bool {
	return hasTextCode(err, TextCodeValidation)
}

// IsConflictError reports a duplicate account
func IsConflictError(err error) bool {
	return hasTextCode(err, TextCodeConflict)
}

// IsInvalidCredentials reports a rejected login
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsInvalidCode reports a rejected reset code
func IsInvalidCode(err error) bool {
	return hasTextCode(err, TextCodeInvalidCode)
}

// IsWeakPassword reports a password policy failure
func IsWeakPassword(err error) bool {
	return hasTextCode(err, TextCodeWeakPassword)
}

// IsTransportError reports a network or unexpected server failure
func IsTransportError(err error) bool {
	return hasTextCode(err, TextCodeTransport)
}

// FieldErrors returns per field messages attached to a validation error.
func FieldErrors(err error) map[string]string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// withDetails clones a sentinel so callers never mutate the shared value
func withDetails(base *goerrors.Error, source error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

func newValidationError(err error) error {
	if err == nil {
		return nil
	}
	return withDetails(ErrValidation, err, map[string]any{
		"fields": validationFields(err),
	})
}

func validationFields(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validation.Errors)
	if !ok {
		out["form"] = err.Error()
		return out
	}
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}

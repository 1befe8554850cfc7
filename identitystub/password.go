package identitystub

import (
	"errors"
	"fmt"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

var (
	ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest)
	ErrPasswordTooLong = goerrors.New("password exceeds 72 bytes", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest)
	ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth)
)

// HashPassword will generate a password hash
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// passwordPolicy returns ASP.NET Identity style error codes keyed by code
func passwordPolicy(password string, minLength int) map[string][]string {
	out := map[string][]string{}

	if len([]rune(password)) < minLength {
		out["PasswordTooShort"] = []string{fmt.Sprintf("Passwords must be at least %d characters.", minLength)}
	}
	if len(password) > MaxPasswordBytes {
		out["PasswordTooLong"] = []string{fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes)}
	}

	var hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	if !hasDigit {
		out["PasswordRequiresDigit"] = []string{"Passwords must have at least one digit ('0'-'9')."}
	}
	if !hasSymbol {
		out["PasswordRequiresNonAlphanumeric"] = []string{"Passwords must have at least one non alphanumeric character."}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

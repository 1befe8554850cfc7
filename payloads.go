package authclient

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

const maskedSecret = "********"

// MaxPasswordBytes is the bcrypt input limit enforced by the identity service
const MaxPasswordBytes = 72

// LoginRequest payload
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (r LoginRequest) masked() LoginRequest {
	r.Password = maskedSecret
	return r
}

// RegisterRequest is the account creation payload. ConfirmPassword is only
// checked locally and never sent.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
	Phone           string `json:"phone"`
}

// Validate runs the rules with the default config
func (r RegisterRequest) Validate() error {
	return r.ValidateWith(nil)
}

// ValidateWith runs the rules using the password length and phone region
// from cfg.
func (r RegisterRequest) ValidateWith(cfg Config) error {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 256), is.Email),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(cfg.GetMinPasswordLength(), 0),
			validation.By(ValidateMaxBytes(MaxPasswordBytes)),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Required, validation.By(ValidateMobilePhone(cfg.GetPhoneRegion()))),
	)
}

func (r RegisterRequest) masked() RegisterRequest {
	r.Password = maskedSecret
	if r.ConfirmPassword != "" {
		r.ConfirmPassword = maskedSecret
	}
	return r
}

// ForgotPasswordRequest asks the service to send a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	ResetCode   string `json:"resetCode"`
	NewPassword string `json:"newPassword"`
}

// Validate will run validation rules. Password strength is left to the
// service so that it can report ErrWeakPassword.
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.ResetCode, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

func (r ResetPasswordRequest) masked() ResetPasswordRequest {
	r.NewPassword = maskedSecret
	r.ResetCode = maskedSecret
	return r
}

// ValidateStringEquals will check that both values match. Empty values
// pass so the field stays optional.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateMaxBytes rejects strings longer than max bytes. Length counts
// runes, which lets multibyte input past a byte limit.
func ValidateMaxBytes(max int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > max {
			return fmt.Errorf("must be no more than %d bytes", max)
		}
		return nil
	}
}

// ValidateMobilePhone accepts mobile numbers of the given region
func ValidateMobilePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return err
		}
		return nil
	}
}

// NormalizePhone parses a national or international number and returns it
// in E.164 form. Only mobile numbers valid for region are accepted.
func NormalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", errors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumberForRegion(num, region) {
		return "", errors.New("must be a valid phone number for region " + region)
	}

	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", errors.New("must be a mobile phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

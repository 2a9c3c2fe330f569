package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "cardledger/internal/errors"

	"github.com/shopspring/decimal"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	cardHolderRegex = regexp.MustCompile(`^[A-Z]{2,} [A-Z]{2,}$`)
)

// Validator collects field errors for request input.
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error reported for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns nil when valid, otherwise an INVALID_CARD_DATA error listing the fields.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	details := make(map[string]interface{}, len(v.Errors))
	for field, msg := range v.Errors {
		details[field] = msg
	}
	return apperrors.ErrInvalidCardData.With(details)
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// Required checks if a string is not empty
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// MinLength checks if a string has at least n characters
func (v *Validator) MinLength(field string, value string, n int) {
	v.Check(len(value) >= n, field, fmt.Sprintf("must be at least %d characters long", n))
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// IntRange checks if an integer is between min and max inclusive.
func (v *Validator) IntRange(field string, value, min, max int) {
	v.Check(value >= min && value <= max, field, fmt.Sprintf("must be between %d and %d", min, max))
}

// PositiveAmount checks an amount is > 0 and carries at most two fractional digits.
func (v *Validator) PositiveAmount(field string, value decimal.Decimal) {
	v.Check(value.Sign() > 0, field, "must be greater than 0")
	v.Check(value.Equal(value.Truncate(2)), field, "must have at most 2 fractional digits")
}

// OptionalPositiveAmount is PositiveAmount for nullable ceilings.
func (v *Validator) OptionalPositiveAmount(field string, value *decimal.Decimal) {
	if value != nil {
		v.PositiveAmount(field, *value)
	}
}

// CardHolder checks the "NAME SURNAME" upper-case latin format.
func (v *Validator) CardHolder(field, holder string) {
	v.MinLength(field, holder, MinCardHolderLength)
	v.MaxLength(field, holder, MaxCardHolderLength)
	v.Check(cardHolderRegex.MatchString(holder), field, "must be NAME SURNAME in upper-case latin letters")
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.MinLength(field, password, MinPasswordLength)
	v.MaxLength(field, password, MaxPasswordLength)

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
}

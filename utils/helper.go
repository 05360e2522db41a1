package utils

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

var ErrInvalidPhoneNumber = errors.New("phone number is not valid")

// NormalizePhoneNumber parses phoneNumber in countryCode and returns it in E.164 form.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(strings.TrimSpace(phoneNumber), countryCode)
	if err != nil {
		return "", ErrInvalidPhoneNumber
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ErrInvalidPhoneNumber
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func DereferencePtr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

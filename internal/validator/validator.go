package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidCurrency      = errors.New("invalid currency code")
	ErrInvalidBankAccount   = errors.New("invalid bank account number")
	ErrMissingAccountHolder = errors.New("missing bank account holder")
)

var (
	uuidRegex        = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	currencyRegex    = regexp.MustCompile(`^[A-Z]{3}$`)
	bankAccountRegex = regexp.MustCompile(`^[0-9]{6,20}$`)
)

func ValidateID(id string) error {
	if !uuidRegex.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return ErrInvalidCurrency
	}
	return nil
}

func ValidateBankAccount(number, holder string) error {
	if !bankAccountRegex.MatchString(number) {
		return ErrInvalidBankAccount
	}
	if holder == "" {
		return ErrMissingAccountHolder
	}
	return nil
}

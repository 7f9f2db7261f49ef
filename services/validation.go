package services

import (
	"errors"
	"strings"
)

const (
	MinPartySize = 1
	MaxPartySize = 15
)

func validatePartySize(n int) error {
	if n < MinPartySize || n > MaxPartySize {
		return userErr(ErrValidation, "party size must be between %d and %d", MinPartySize, MaxPartySize)
	}
	return nil
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", userErr(ErrValidation, "confirmation code is required")
	}
	return code, nil
}

func tableLookupError(id uint, err error) error {
	if errors.Is(err, ErrNotFound) {
		return userErr(ErrNotFound, "table %d not found", id)
	}
	return err
}

func customerLookupError(id uint, err error) error {
	if errors.Is(err, ErrNotFound) {
		return userErr(ErrNotFound, "customer %d not found", id)
	}
	return err
}

func codeLookupError(code string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return userErr(ErrNotFound, "no booking with code %s", code)
	}
	return err
}

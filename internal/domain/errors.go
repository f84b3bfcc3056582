package domain

import "errors"

var (
	// ErrNoData is returned when the API response carries no current reading.
	ErrNoData = errors.New("no current reading")
	// ErrAuthExhausted is returned after every credential was rejected.
	ErrAuthExhausted = errors.New("all credentials rejected")
)

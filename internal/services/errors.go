package services

import (
	"errors"
	"fmt"
)

// The three caller-facing error categories. Handlers map them to 400,
// 422 and 409; anything else is an infrastructure failure (500) with no
// partial state committed. The categories are never merged: a conflict
// tells the caller to retry, a business-rule violation tells them the
// operation can never succeed as submitted.
var (
	ErrValidation   = errors.New("validation failed")
	ErrBusinessRule = errors.New("business rule violated")

	// ErrConcurrentUpdate means the entry changed between the first
	// validation and the pre-write re-check. The request had no effect;
	// the caller should re-read and retry.
	ErrConcurrentUpdate = errors.New("entry was modified concurrently, please retry")

	ErrNotFound = errors.New("not found")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// rulef builds a business-rule rejection. Messages carry the violated
// rule and the current figures so the caller can show them verbatim.
func rulef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBusinessRule, fmt.Sprintf(format, args...))
}

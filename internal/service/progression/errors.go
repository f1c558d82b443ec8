package progression

import (
	"errors"
	"fmt"
)

// Business-rule rejections. State is never mutated when these are returned.
var (
	// ErrInsufficientXP means the spendable balance does not cover the cost.
	ErrInsufficientXP = errors.New("insufficient XP")

	// ErrAlreadyOwned means the island was purchased before.
	ErrAlreadyOwned = errors.New("island already owned")
)

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

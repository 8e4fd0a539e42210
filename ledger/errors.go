package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrActivityNotFound means the requested activity key or id is not in
	// the current catalog snapshot.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrLogNotFound means the nullify target does not exist.
	ErrLogNotFound = errors.New("log entry not found")
	// ErrLogAlreadyInvalid means the nullify target was already nullified.
	ErrLogAlreadyInvalid = errors.New("log entry already nullified")
	// ErrCharacterRequired means a purchase was requested without a character.
	ErrCharacterRequired = errors.New("character required for this operation")
)

// AffordabilityError reports that committing an entry would drive a balance
// negative. The operation is aborted before any mutation.
type AffordabilityError struct {
	Currency string // "cc" or "credits"
	Need     int
	Have     int
}

func (e *AffordabilityError) Error() string {
	return fmt.Sprintf("insufficient %s: need %d, have %d", e.Currency, e.Need, e.Have)
}

// IsAffordability reports whether err is an AffordabilityError.
func IsAffordability(err error) bool {
	var ae *AffordabilityError
	return errors.As(err, &ae)
}

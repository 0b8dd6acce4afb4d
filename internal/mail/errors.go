package mail

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded gates an account whose daily limit is spent. The
// dispatcher skips the account and moves on; it is never surfaced to
// callers as anything but a per-recipient failure.
var ErrQuotaExceeded = errors.New("mail: account daily limit reached")

// AuthError reports a credential rejected by the relay. Recoverable:
// the dispatcher continues with the next-priority account.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mail: auth failed for %s: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DeliveryError reports a failed delivery attempt: connection setup,
// recipient rejection or a transient relay failure. Recoverable.
type DeliveryError struct {
	Account   string
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Recipient != "" {
		return fmt.Sprintf("mail: delivery to %s via %s failed: %v", e.Recipient, e.Account, e.Err)
	}
	return fmt.Sprintf("mail: delivery via %s failed: %v", e.Account, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

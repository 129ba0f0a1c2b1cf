package email

import (
	"errors"
	"fmt"
)

var (
	// ErrDelivery marks any failure to hand a message to the SMTP server
	ErrDelivery = errors.New("email delivery failed")

	// ErrNotConfigured is the cause reported when no SMTP host is set
	ErrNotConfigured = errors.New("email is not configured")
)

// DeliveryError reports a message that could not be delivered
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email to %s not delivered: %v", e.Recipient, e.Err)
}

// Is lets errors.Is match both ErrDelivery and the underlying cause
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

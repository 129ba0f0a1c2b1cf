package sheet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInputValidation is the class of errors for unusable uploads
var ErrInputValidation = errors.New("input validation failed")

// InputValidationError describes why an uploaded file was rejected.
// Row is the 1-based line in the file (the header is row 1), or 0 when the
// problem is not tied to a row.
type InputValidationError struct {
	Reason  string
	Missing []string
	Row     int
}

func (e *InputValidationError) Error() string {
	msg := e.Reason
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("%s (missing: %s)", msg, strings.Join(e.Missing, ", "))
	}
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	return msg
}

func (e *InputValidationError) Unwrap() error {
	return ErrInputValidation
}

func invalid(reason string) error {
	return &InputValidationError{Reason: reason}
}

func invalidRow(row int, format string, args ...interface{}) error {
	return &InputValidationError{Reason: fmt.Sprintf(format, args...), Row: row}
}

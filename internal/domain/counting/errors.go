package counting

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownArea is returned when an area has no items in the master list
	ErrUnknownArea = errors.New("unknown area")

	// ErrSessionNotFinished is returned when merging a session that is still active
	ErrSessionNotFinished = errors.New("session is not finished")

	// ErrMergeConsistency is the class of errors raised when a session does not
	// map one-to-one onto the master list
	ErrMergeConsistency = errors.New("merge consistency violation")

	// ErrInvalidCommand is returned for malformed session commands
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidSnapshot is returned when a snapshot cannot be restored
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Merge consistency reasons
const (
	ReasonNotInMaster        = "not found in master list"
	ReasonDuplicateInSession = "duplicated in session"
	ReasonDuplicateInMaster  = "duplicated in master list"
)

// MergeConsistencyError reports the first item that prevents a one-to-one merge
type MergeConsistencyError struct {
	Area        string
	Description string
	Reason      string
}

func (e *MergeConsistencyError) Error() string {
	return fmt.Sprintf("cannot merge area %q: item %q %s", e.Area, e.Description, e.Reason)
}

func (e *MergeConsistencyError) Unwrap() error {
	return ErrMergeConsistency
}

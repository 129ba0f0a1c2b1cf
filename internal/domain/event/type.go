package event

// Type identifies the type of domain event
type Type string

const (
	TypeRunCreated      Type = "run.created"
	TypeRunDeleted      Type = "run.deleted"
	TypeAreaOpened      Type = "area.opened"
	TypeAreaFinished    Type = "area.finished"
	TypeAreaReopened    Type = "area.reopened"
	TypeAreaRestarted   Type = "area.restarted"
	TypeAreaMerged      Type = "area.merged"
	TypeMergeFailed     Type = "area.merge_failed"
	TypeResultsExported Type = "results.exported"
	TypeResultsEmailed  Type = "results.emailed"
	TypeDeliveryFailed  Type = "results.delivery_failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRunCreated,
		TypeRunDeleted,
		TypeAreaOpened,
		TypeAreaFinished,
		TypeAreaReopened,
		TypeAreaRestarted,
		TypeAreaMerged,
		TypeMergeFailed,
		TypeResultsExported,
		TypeResultsEmailed,
		TypeDeliveryFailed:
		return true
	default:
		return false
	}
}

// AllTypes lists every event type, used to register catch-all handlers
func AllTypes() []Type {
	return []Type{
		TypeRunCreated,
		TypeRunDeleted,
		TypeAreaOpened,
		TypeAreaFinished,
		TypeAreaReopened,
		TypeAreaRestarted,
		TypeAreaMerged,
		TypeMergeFailed,
		TypeResultsExported,
		TypeResultsEmailed,
		TypeDeliveryFailed,
	}
}

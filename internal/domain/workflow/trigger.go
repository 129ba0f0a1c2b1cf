package workflow

// Trigger is an event that moves a session between lifecycle states
type Trigger string

const (
	// TriggerFinish closes the session, either past the last item or on demand
	TriggerFinish Trigger = "FINISH"
	// TriggerReopen returns a finished session to Active so counts can be corrected
	TriggerReopen Trigger = "REOPEN"
	// TriggerRestart discards all counts and starts the area again
	TriggerRestart Trigger = "RESTART"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

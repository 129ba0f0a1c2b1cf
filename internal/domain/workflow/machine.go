package workflow

// StateMachine tracks the current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the configured target state
	Fire(trigger Trigger) error

	// PermittedTriggers returns the triggers that can be fired in the current state, sorted
	PermittedTriggers() []Trigger
}

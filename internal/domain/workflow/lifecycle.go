package workflow

// sessionLifecycle is the transition table shared by every counting session.
//
//	ACTIVE   --FINISH-->  FINISHED
//	FINISHED --FINISH-->  FINISHED   (re-finishing is idempotent)
//	FINISHED --REOPEN-->  ACTIVE
//	*        --RESTART--> ACTIVE
var sessionLifecycle = func() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateActive).
		Permit(TriggerFinish, StateFinished).
		Permit(TriggerRestart, StateActive)
	b.Configure(StateFinished).
		Permit(TriggerFinish, StateFinished).
		Permit(TriggerReopen, StateActive).
		Permit(TriggerRestart, StateActive)
	return b
}()

// NewSessionLifecycle returns a state machine for one counting session
func NewSessionLifecycle(initial State) StateMachine {
	return sessionLifecycle.Build(initial)
}

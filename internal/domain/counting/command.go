package counting

import (
	"fmt"

	"github.com/garyjia/stocktake/internal/domain/workflow"
)

// CommandType names a user action on a session
type CommandType string

const (
	CommandDigit    CommandType = "digit"
	CommandClear    CommandType = "clear"
	CommandNext     CommandType = "next"
	CommandPrevious CommandType = "previous"
	CommandJump     CommandType = "jump"
	CommandFinish   CommandType = "finish"
	CommandRestart  CommandType = "restart"
)

// Command is one discrete keypad or navigation action. Digit is used by
// CommandDigit and Index by CommandJump.
type Command struct {
	Type  CommandType `json:"type"`
	Digit int         `json:"digit,omitempty"`
	Index int         `json:"index,omitempty"`
}

// Digit returns a digit-entry command
func Digit(d int) Command { return Command{Type: CommandDigit, Digit: d} }

// Jump returns a jump-to-index command
func Jump(index int) Command { return Command{Type: CommandJump, Index: index} }

// Simple returns a command that carries no argument
func Simple(t CommandType) Command { return Command{Type: t} }

// Validate checks the command is well formed
func (c Command) Validate() error {
	switch c.Type {
	case CommandDigit:
		if c.Digit < 0 || c.Digit > 9 {
			return fmt.Errorf("%w: digit %d out of range 0-9", ErrInvalidCommand, c.Digit)
		}
	case CommandClear, CommandNext, CommandPrevious, CommandJump, CommandFinish, CommandRestart:
	default:
		return fmt.Errorf("%w: unknown command type %q", ErrInvalidCommand, c.Type)
	}
	return nil
}

// Outcome describes the lifecycle change caused by a command
type Outcome struct {
	Command Command
	From    workflow.State
	To      workflow.State
}

// JustFinished reports whether the command moved the session into Finished
func (o Outcome) JustFinished() bool {
	return o.From != workflow.StateFinished && o.To == workflow.StateFinished
}

// Reopened reports whether the command moved a finished session back to Active
func (o Outcome) Reopened() bool {
	return o.From == workflow.StateFinished && o.To == workflow.StateActive
}

// Apply validates and executes a command. Only malformed commands fail; every
// well-formed command is applied, clamping or ignoring where the state
// does not allow it.
func (s *Session) Apply(cmd Command) (Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Command: cmd, From: s.State()}

	switch cmd.Type {
	case CommandDigit:
		s.EnterDigit(cmd.Digit)
	case CommandClear:
		s.Clear()
	case CommandNext:
		s.Advance()
	case CommandPrevious:
		s.Retreat()
	case CommandJump:
		s.JumpTo(cmd.Index)
	case CommandFinish:
		s.FinishNow()
	case CommandRestart:
		s.Restart()
	}

	out.To = s.State()
	return out, nil
}

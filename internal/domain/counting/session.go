// Package counting holds the per-area counting session and the registry that
// merges sessions back into the master item list.
package counting

import (
	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/garyjia/stocktake/internal/domain/workflow"
)

// MaxQuantity caps a single count. Digits that would push a count past it are ignored.
const MaxQuantity = 999_999_999

// Session is the counting state for one area. It is not safe for concurrent
// use; callers serialise access per run.
type Session struct {
	area    string
	items   []entity.Item
	cursor  int
	machine workflow.StateMachine
}

// NewSession creates an active session over items in the given order.
// Negative quantities are clamped to zero.
func NewSession(area string, items []entity.Item) *Session {
	own := make([]entity.Item, len(items))
	for i, it := range items {
		it.Area = area
		if it.Quantity < 0 {
			it.Quantity = 0
		}
		own[i] = it
	}

	return &Session{
		area:    area,
		items:   own,
		machine: workflow.NewSessionLifecycle(workflow.StateActive),
	}
}

// Area returns the area this session counts
func (s *Session) Area() string { return s.area }

// Len returns the number of items in the session
func (s *Session) Len() int { return len(s.items) }

// Cursor returns the index of the current item
func (s *Session) Cursor() int { return s.cursor }

// Position returns the 1-based position of the cursor and the item count,
// as shown to the counter ("item 3 of 12")
func (s *Session) Position() (int, int) {
	if len(s.items) == 0 {
		return 0, 0
	}
	return s.cursor + 1, len(s.items)
}

// State returns the lifecycle state
func (s *Session) State() workflow.State { return s.machine.State() }

// Finished reports whether the session is in the Finished state
func (s *Session) Finished() bool { return s.machine.State() == workflow.StateFinished }

// Current returns the item under the cursor
func (s *Session) Current() (entity.Item, bool) {
	if len(s.items) == 0 {
		return entity.Item{}, false
	}
	return s.items[s.cursor], true
}

// Items returns a copy of the session items with their current counts
func (s *Session) Items() []entity.Item {
	return entity.CloneItems(s.items)
}

// Quantities returns the current counts in item order
func (s *Session) Quantities() []int {
	q := make([]int, len(s.items))
	for i, it := range s.items {
		q[i] = it.Quantity
	}
	return q
}

// Summary aggregates the current counts
func (s *Session) Summary() entity.AreaSummary {
	return entity.Summarize(s.area, s.Quantities())
}

func (s *Session) editable() bool {
	return len(s.items) > 0 && !s.Finished()
}

// EnterDigit appends d to the current count. A count of exactly 0 is treated
// as empty, so entering 5 on a zero count yields 5. Ignored when finished,
// when d is not a single digit, or when the result would exceed MaxQuantity.
func (s *Session) EnterDigit(d int) {
	if !s.editable() || d < 0 || d > 9 {
		return
	}

	current := s.items[s.cursor].Quantity
	if current > (MaxQuantity-d)/10 {
		return
	}
	s.items[s.cursor].Quantity = current*10 + d
}

// Clear resets the current count to 0. Ignored when finished.
func (s *Session) Clear() {
	if !s.editable() {
		return
	}
	s.items[s.cursor].Quantity = 0
}

// Advance moves to the next item, or finishes the session when the cursor is
// on the last item. Ignored when already finished.
func (s *Session) Advance() {
	if s.Finished() {
		return
	}
	if s.cursor < len(s.items)-1 {
		s.cursor++
		return
	}
	s.fire(workflow.TriggerFinish)
}

// Retreat moves to the previous item. A finished session is reopened first so
// the previous count can be corrected.
func (s *Session) Retreat() {
	s.reopen()
	if s.cursor > 0 {
		s.cursor--
	}
}

// JumpTo moves the cursor to index, clamped to the item range. A finished
// session is reopened first.
func (s *Session) JumpTo(index int) {
	if len(s.items) == 0 {
		return
	}
	s.reopen()

	switch {
	case index < 0:
		index = 0
	case index > len(s.items)-1:
		index = len(s.items) - 1
	}
	s.cursor = index
}

// FinishNow finishes the session from any position. Idempotent.
func (s *Session) FinishNow() {
	s.fire(workflow.TriggerFinish)
}

// Restart zeroes every count, rewinds the cursor and returns to Active
func (s *Session) Restart() {
	for i := range s.items {
		s.items[i].Quantity = 0
	}
	s.cursor = 0
	s.fire(workflow.TriggerRestart)
}

func (s *Session) reopen() {
	if s.Finished() {
		s.fire(workflow.TriggerReopen)
	}
}

// fire only issues triggers the lifecycle permits, so the error is unreachable.
func (s *Session) fire(t workflow.Trigger) {
	if s.machine.CanFire(t) {
		_ = s.machine.Fire(t)
	}
}

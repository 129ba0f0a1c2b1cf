package counting

import (
	"fmt"

	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/garyjia/stocktake/internal/domain/workflow"
)

// SessionSnapshot is the serialisable state of one session
type SessionSnapshot struct {
	Area       string `json:"area"`
	Quantities []int  `json:"quantities"`
	Cursor     int    `json:"cursor"`
	Finished   bool   `json:"finished"`
}

// Snapshot is the serialisable state of a registry
type Snapshot struct {
	Items    []entity.Item     `json:"items"`
	Sessions []SessionSnapshot `json:"sessions"`
}

// Snapshot captures the master list and every opened session, in area order
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{Items: r.Items()}
	for _, area := range r.areas {
		s, ok := r.sessions[area]
		if !ok {
			continue
		}
		snap.Sessions = append(snap.Sessions, SessionSnapshot{
			Area:       area,
			Quantities: s.Quantities(),
			Cursor:     s.cursor,
			Finished:   s.Finished(),
		})
	}
	return snap
}

// RestoreRegistry rebuilds a registry from a snapshot, validating that every
// session still lines up with the master list.
func RestoreRegistry(snap Snapshot) (*Registry, error) {
	r := NewRegistry(snap.Items)

	for _, ss := range snap.Sessions {
		if _, dup := r.sessions[ss.Area]; dup {
			return nil, fmt.Errorf("%w: area %q appears twice", ErrInvalidSnapshot, ss.Area)
		}

		s, err := r.seed(ss.Area)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if len(ss.Quantities) != s.Len() {
			return nil, fmt.Errorf("%w: area %q has %d quantities for %d items",
				ErrInvalidSnapshot, ss.Area, len(ss.Quantities), s.Len())
		}
		if ss.Cursor < 0 || ss.Cursor >= s.Len() {
			return nil, fmt.Errorf("%w: area %q cursor %d out of range", ErrInvalidSnapshot, ss.Area, ss.Cursor)
		}

		for i, q := range ss.Quantities {
			if q < 0 || q > MaxQuantity {
				return nil, fmt.Errorf("%w: area %q quantity %d out of range", ErrInvalidSnapshot, ss.Area, q)
			}
			s.items[i].Quantity = q
		}
		s.cursor = ss.Cursor
		if ss.Finished {
			s.machine = workflow.NewSessionLifecycle(workflow.StateFinished)
		}

		r.sessions[ss.Area] = s
	}

	return r, nil
}

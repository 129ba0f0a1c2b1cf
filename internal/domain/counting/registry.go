package counting

import (
	"fmt"

	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/garyjia/stocktake/internal/export"
)

// TotalLabel is the area name used for the all-areas total
const TotalLabel = "All Areas"

// Registry owns the master item list of one stocktake run and the sessions
// opened against it. One registry per run; it is not safe for concurrent use.
type Registry struct {
	items    []entity.Item
	areas    []string
	byArea   map[string][]int
	byKey    map[entity.Key][]int
	sessions map[string]*Session
}

// NewRegistry builds a registry over a copy of items. Areas are ordered by
// first appearance.
func NewRegistry(items []entity.Item) *Registry {
	r := &Registry{
		items:    make([]entity.Item, len(items)),
		byArea:   make(map[string][]int),
		byKey:    make(map[entity.Key][]int),
		sessions: make(map[string]*Session),
	}

	for i, it := range items {
		if it.Quantity < 0 {
			it.Quantity = 0
		}
		r.items[i] = it

		if _, seen := r.byArea[it.Area]; !seen {
			r.areas = append(r.areas, it.Area)
		}
		r.byArea[it.Area] = append(r.byArea[it.Area], i)
		r.byKey[it.Key()] = append(r.byKey[it.Key()], i)
	}

	return r
}

// Areas returns the area names in first-appearance order
func (r *Registry) Areas() []string {
	out := make([]string, len(r.areas))
	copy(out, r.areas)
	return out
}

// HasArea reports whether the master list has items for area
func (r *Registry) HasArea(area string) bool {
	_, ok := r.byArea[area]
	return ok
}

// Items returns a copy of the master list
func (r *Registry) Items() []entity.Item {
	return entity.CloneItems(r.items)
}

// Session returns the session for area without creating one
func (r *Registry) Session(area string) (*Session, bool) {
	s, ok := r.sessions[area]
	return s, ok
}

// SessionFor returns the session for area, creating it from the master list
// on first use. An existing session is never re-seeded.
func (r *Registry) SessionFor(area string) (*Session, error) {
	if s, ok := r.sessions[area]; ok {
		return s, nil
	}

	s, err := r.seed(area)
	if err != nil {
		return nil, err
	}
	r.sessions[area] = s
	return s, nil
}

func (r *Registry) seed(area string) (*Session, error) {
	idx, ok := r.byArea[area]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}

	items := make([]entity.Item, len(idx))
	for i, pos := range idx {
		items[i] = r.items[pos]
	}
	return NewSession(area, items), nil
}

// Restart resets the session for area to a zero-filled state, creating it if needed
func (r *Registry) Restart(area string) (*Session, error) {
	s, err := r.SessionFor(area)
	if err != nil {
		return nil, err
	}
	s.Restart()
	return s, nil
}

// MergeFinished writes a finished session's counts into the master list.
// Every session item must match exactly one master row on (area, description)
// and appear only once in the session. The whole session is checked before
// any row is written, so a failed merge leaves the master list unchanged.
func (r *Registry) MergeFinished(s *Session) error {
	if !s.Finished() {
		return fmt.Errorf("%w: area %q", ErrSessionNotFinished, s.Area())
	}

	targets := make([]int, len(s.items))
	seen := make(map[entity.Key]bool, len(s.items))

	for i, it := range s.items {
		key := entity.Key{Area: s.Area(), Description: it.Description}

		if seen[key] {
			return &MergeConsistencyError{Area: key.Area, Description: key.Description, Reason: ReasonDuplicateInSession}
		}
		seen[key] = true

		positions := r.byKey[key]
		switch len(positions) {
		case 0:
			return &MergeConsistencyError{Area: key.Area, Description: key.Description, Reason: ReasonNotInMaster}
		case 1:
			targets[i] = positions[0]
		default:
			return &MergeConsistencyError{Area: key.Area, Description: key.Description, Reason: ReasonDuplicateInMaster}
		}
	}

	for i, pos := range targets {
		r.items[pos].Quantity = s.items[i].Quantity
	}
	return nil
}

// AreaSummary returns the summary for one area, using the live session when
// the area has been opened and the master list otherwise.
func (r *Registry) AreaSummary(area string) (entity.AreaSummary, error) {
	if !r.HasArea(area) {
		return entity.AreaSummary{}, fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}
	if s, ok := r.sessions[area]; ok {
		return s.Summary(), nil
	}

	sum := entity.AreaSummary{Area: area}
	for _, pos := range r.byArea[area] {
		sum.Add(r.items[pos].Quantity)
	}
	return sum, nil
}

// GlobalSummary returns one summary per area in first-appearance order
func (r *Registry) GlobalSummary() []entity.AreaSummary {
	out := make([]entity.AreaSummary, 0, len(r.areas))
	for _, area := range r.areas {
		sum, _ := r.AreaSummary(area)
		out = append(out, sum)
	}
	return out
}

// Total folds every area summary into a single row labelled TotalLabel
func (r *Registry) Total() entity.AreaSummary {
	total := entity.AreaSummary{Area: TotalLabel}
	for _, s := range r.GlobalSummary() {
		total.TotalItems += s.TotalItems
		total.TotalQuantity += s.TotalQuantity
		total.ZeroCountItems += s.ZeroCountItems
	}
	return total
}

// ExportAll renders the master list as CSV in original order
func (r *Registry) ExportAll() ([]byte, error) {
	return export.CSV(r.items)
}

// ExportArea renders one area as CSV, using live session counts when the
// area has been opened.
func (r *Registry) ExportArea(area string) ([]byte, error) {
	if s, ok := r.sessions[area]; ok {
		return export.CSV(s.items)
	}

	idx, ok := r.byArea[area]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}
	items := make([]entity.Item, len(idx))
	for i, pos := range idx {
		items[i] = r.items[pos]
	}
	return export.CSV(items)
}

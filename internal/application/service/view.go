package service

import (
	"time"

	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/domain/entity"
)

// RunView is the read model of a run
type RunView struct {
	ID         string               `json:"id"`
	SourceName string               `json:"source_name"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Areas      []entity.AreaSummary `json:"areas"`
	Total      entity.AreaSummary   `json:"total"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// SessionView is the read model of one counting session
type SessionView struct {
	RunID    string              `json:"run_id"`
	Area     string              `json:"area"`
	State    string              `json:"state"`
	Finished bool                `json:"finished"`
	Cursor   int                 `json:"cursor"`
	Position int                 `json:"position"`
	Count    int                 `json:"count"`
	Current  *entity.Item        `json:"current,omitempty"`
	Items    []entity.Item       `json:"items"`
	Summary  *entity.AreaSummary `json:"summary,omitempty"`
}

// SummaryView is the all-areas summary of a run
type SummaryView struct {
	RunID string               `json:"run_id"`
	Areas []entity.AreaSummary `json:"areas"`
	Total entity.AreaSummary   `json:"total"`
}

// ExportFile is a rendered CSV download. ArchivedPath is set when a copy
// was kept in the export archive.
type ExportFile struct {
	FileName     string
	ContentType  string
	Data         []byte
	ArchivedPath string
}

// EmailResult reports the outcome of an email request. Delivery failures
// are carried in Warning and never change run state.
type EmailResult struct {
	Sent      bool   `json:"sent"`
	Recipient string `json:"recipient"`
	FileName  string `json:"file_name"`
	Warning   string `json:"warning,omitempty"`
}

func newRunView(r *Run) *RunView {
	return &RunView{
		ID:         r.ID,
		SourceName: r.SourceName,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Areas:      r.registry.GlobalSummary(),
		Total:      r.registry.Total(),
	}
}

func newSessionView(runID string, s *counting.Session) *SessionView {
	pos, count := s.Position()
	v := &SessionView{
		RunID:    runID,
		Area:     s.Area(),
		State:    s.State().String(),
		Finished: s.Finished(),
		Cursor:   s.Cursor(),
		Position: pos,
		Count:    count,
		Items:    s.Items(),
	}
	if cur, ok := s.Current(); ok {
		v.Current = &cur
	}
	if s.Finished() {
		sum := s.Summary()
		v.Summary = &sum
	}
	return v
}

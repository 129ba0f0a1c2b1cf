package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/stocktake/internal/application/dispatcher"
	"github.com/garyjia/stocktake/internal/application/port"
	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/domain/entity"
	"github.com/garyjia/stocktake/internal/domain/event"
	"github.com/garyjia/stocktake/internal/export"
	"github.com/garyjia/stocktake/internal/sheet"
	"github.com/garyjia/stocktake/pkg/utils"
)

var (
	// ErrRunNotFound is returned for unknown or deleted run IDs
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRecipient is returned when the email address is malformed
	ErrInvalidRecipient = errors.New("invalid recipient")
)

const defaultEmailSubject = "Stocktake results"

// Run is one uploaded master list with its registry. All access to the
// registry goes through mu.
type Run struct {
	ID         string
	SourceName string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	mu       sync.Mutex
	registry *counting.Registry
}

// StocktakeService manages stocktake runs
type StocktakeService interface {
	CreateRun(ctx context.Context, filename string, data []byte) (*RunView, error)
	GetRun(ctx context.Context, runID string) (*RunView, error)
	ListRuns(ctx context.Context) ([]*RunView, error)
	DeleteRun(ctx context.Context, runID string) error
	OpenArea(ctx context.Context, runID, area string) (*SessionView, error)
	ApplyCommand(ctx context.Context, runID, area string, cmd counting.Command) (*SessionView, error)
	Summary(ctx context.Context, runID string) (*SummaryView, error)
	ExportAll(ctx context.Context, runID string) (*ExportFile, error)
	ExportArea(ctx context.Context, runID, area string) (*ExportFile, error)
	EmailResults(ctx context.Context, runID, recipient string) (*EmailResult, error)
}

type stocktakeServiceImpl struct {
	repo       port.RunRepository
	mailer     port.Mailer
	dispatcher dispatcher.Dispatcher
	logger     Logger
	archive    port.FileStore
	tx         port.TransactionManager

	now          func() time.Time
	emailSubject string

	mu   sync.RWMutex
	runs map[string]*Run
}

// Option configures the stocktake service
type Option func(*stocktakeServiceImpl)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *stocktakeServiceImpl) {
		s.now = now
	}
}

// WithEmailSubject sets the subject line of results emails
func WithEmailSubject(subject string) Option {
	return func(s *stocktakeServiceImpl) {
		if subject != "" {
			s.emailSubject = subject
		}
	}
}

// WithArchive keeps a copy of every export in store
func WithArchive(store port.FileStore) Option {
	return func(s *stocktakeServiceImpl) {
		s.archive = store
	}
}

// MergeHandlerName is the dispatcher name of the handler that folds a
// finished area into the run's master list
const MergeHandlerName = "merge-finished-area"

// WithTransactions runs every repository write through tm
func WithTransactions(tm port.TransactionManager) Option {
	return func(s *stocktakeServiceImpl) {
		s.tx = tm
	}
}

// NewStocktakeService creates a StocktakeService and registers its merge
// handler on d
func NewStocktakeService(
	repo port.RunRepository,
	mailer port.Mailer,
	d dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) StocktakeService {
	s := &stocktakeServiceImpl{
		repo:         repo,
		mailer:       mailer,
		dispatcher:   d,
		logger:       logger,
		now:          time.Now,
		emailSubject: defaultEmailSubject,
		runs:         make(map[string]*Run),
	}

	for _, opt := range opts {
		opt(s)
	}

	d.SubscribeNamed(event.TypeAreaFinished, MergeHandlerName, s.handleAreaFinished)

	return s
}

// CreateRun parses an uploaded item list and starts a new run
func (s *stocktakeServiceImpl) CreateRun(ctx context.Context, filename string, data []byte) (*RunView, error) {
	items, err := sheet.Parse(filename, data)
	if err != nil {
		s.logger.Warn("Rejected item list", "file", filename, "error", err)
		return nil, fmt.Errorf("import %s: %w", filename, err)
	}

	var warnings []string
	for _, key := range sheet.Duplicates(items) {
		w := fmt.Sprintf("duplicate item %q in area %q", key.Description, key.Area)
		warnings = append(warnings, w)
		s.logger.Warn("Duplicate item in list", "file", filename, "area", key.Area, "description", key.Description)
	}

	now := s.now()
	run := &Run{
		ID:         uuid.NewString(),
		SourceName: filename,
		CreatedAt:  now,
		UpdatedAt:  now,
		registry:   counting.NewRegistry(items),
	}

	rec := s.record(run)
	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, rec)
	})
	if err != nil {
		s.logger.Error("Failed to save run", "run_id", run.ID, "error", err)
		return nil, fmt.Errorf("save run: %w", err)
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	s.logger.Info("Run created",
		"run_id", run.ID,
		"file", filename,
		"items", len(items),
		"areas", len(run.registry.Areas()),
	)
	s.notify(ctx, event.NewEvent(event.TypeRunCreated, run.ID, "", map[string]interface{}{
		"source_name": filename,
		"items":       len(items),
	}))

	view := newRunView(run)
	view.Warnings = warnings
	return view, nil
}

// GetRun returns the run overview
func (s *stocktakeServiceImpl) GetRun(ctx context.Context, runID string) (*RunView, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return newRunView(run), nil
}

// ListRuns returns every stored run, newest first
func (s *stocktakeServiceImpl) ListRuns(ctx context.Context) ([]*RunView, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	views := make([]*RunView, 0, len(records))
	for _, rec := range records {
		view, err := s.GetRun(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// DeleteRun forgets a run and its sessions
func (s *stocktakeServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.load(ctx, runID); err != nil {
		return err
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, runID); err != nil && !errors.Is(err, port.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete run", "run_id", runID, "error", err)
		return fmt.Errorf("delete run: %w", err)
	}

	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()

	s.logger.Info("Run deleted", "run_id", runID)
	s.notify(ctx, event.NewEvent(event.TypeRunDeleted, runID, "", nil))
	return nil
}

// OpenArea returns the session for area, seeding it on first use
func (s *stocktakeServiceImpl) OpenArea(ctx context.Context, runID, area string) (*SessionView, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	_, existed := run.registry.Session(area)
	sess, err := run.registry.SessionFor(area)
	if err != nil {
		return nil, err
	}

	if !existed {
		s.logger.Info("Area opened", "run_id", runID, "area", area, "items", sess.Len())
		s.notify(ctx, event.NewEvent(event.TypeAreaOpened, runID, area, map[string]interface{}{
			"items": sess.Len(),
		}))
		if err := s.save(ctx, run); err != nil {
			return nil, err
		}
	}

	return newSessionView(runID, sess), nil
}

// ApplyCommand applies one keypad or navigation command to an area session.
// When the command finishes the session, the area.finished handlers run
// before the call returns; a merge failure is returned, but the session
// counts are kept.
func (s *stocktakeServiceImpl) ApplyCommand(ctx context.Context, runID, area string, cmd counting.Command) (*SessionView, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	sess, err := run.registry.SessionFor(area)
	if err != nil {
		return nil, err
	}

	out, err := sess.Apply(cmd)
	if err != nil {
		return nil, err
	}

	// finish on an already finished area dispatches again, so a merge that
	// failed earlier is retried without reopening the area
	var handlerErr error
	switch {
	case out.JustFinished(), cmd.Type == counting.CommandFinish && sess.Finished():
		sum := sess.Summary()
		s.logger.Info("Area finished",
			"run_id", runID,
			"area", area,
			"total_quantity", sum.TotalQuantity,
			"zero_count_items", sum.ZeroCountItems,
		)
		handlerErr = s.dispatcher.Dispatch(ctx, event.NewEvent(event.TypeAreaFinished, runID, area, map[string]interface{}{
			"total_items":    sum.TotalItems,
			"total_quantity": sum.TotalQuantity,
		}))
	case cmd.Type == counting.CommandRestart:
		s.notify(ctx, event.NewEvent(event.TypeAreaRestarted, runID, area, nil))
	case out.Reopened():
		s.notify(ctx, event.NewEvent(event.TypeAreaReopened, runID, area, nil))
	}

	if err := s.save(ctx, run); err != nil {
		return nil, err
	}
	if handlerErr != nil {
		return nil, handlerErr
	}

	return newSessionView(runID, sess), nil
}

// Summary returns per-area and total summaries
func (s *stocktakeServiceImpl) Summary(ctx context.Context, runID string) (*SummaryView, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	return &SummaryView{
		RunID: runID,
		Areas: run.registry.GlobalSummary(),
		Total: run.registry.Total(),
	}, nil
}

// ExportAll renders the merged master list as a CSV download
func (s *stocktakeServiceImpl) ExportAll(ctx context.Context, runID string) (*ExportFile, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	data, err := run.registry.ExportAll()
	run.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("export run: %w", err)
	}

	file := &ExportFile{
		FileName:    export.AllAreasFileName(s.now()),
		ContentType: export.ContentType,
		Data:        data,
	}
	s.exported(ctx, runID, "", file)
	return file, nil
}

// ExportArea renders one area's current counts as a CSV download
func (s *stocktakeServiceImpl) ExportArea(ctx context.Context, runID, area string) (*ExportFile, error) {
	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	data, err := run.registry.ExportArea(area)
	run.mu.Unlock()
	if err != nil {
		return nil, err
	}

	file := &ExportFile{
		FileName:    export.AreaFileName(area),
		ContentType: export.ContentType,
		Data:        data,
	}
	s.exported(ctx, runID, area, file)
	return file, nil
}

// exported archives file when an archive is configured and emits
// results.exported. A failed archive write does not fail the export.
func (s *stocktakeServiceImpl) exported(ctx context.Context, runID, area string, file *ExportFile) {
	if s.archive != nil {
		path, err := s.archive.Save(ctx, file.FileName, file.Data)
		if err != nil {
			s.logger.Warn("Failed to archive export", "run_id", runID, "file", file.FileName, "error", err)
		} else {
			file.ArchivedPath = path
		}
	}

	s.notify(ctx, event.NewEvent(event.TypeResultsExported, runID, area, map[string]interface{}{
		"file_name":     file.FileName,
		"bytes":         len(file.Data),
		"archived_path": file.ArchivedPath,
	}))
}

// EmailResults sends the all-areas CSV to recipient. A delivery failure is
// returned as the mailer's error alongside a result carrying the warning.
func (s *stocktakeServiceImpl) EmailResults(ctx context.Context, runID, recipient string) (*EmailResult, error) {
	recipient = strings.TrimSpace(recipient)
	if err := utils.ValidateEmail(recipient); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	run, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	data, err := run.registry.ExportAll()
	body := emailBody(run.SourceName, run.registry.GlobalSummary(), run.registry.Total())
	run.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("export run: %w", err)
	}

	fileName := export.AllAreasFileName(s.now())
	result := &EmailResult{Recipient: recipient, FileName: fileName}

	msg := &port.Message{
		To:      recipient,
		Subject: s.emailSubject,
		Body:    body,
		Attachments: []port.Attachment{{
			FileName:    fileName,
			ContentType: export.ContentType,
			Data:        data,
		}},
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		result.Warning = err.Error()
		s.logger.Warn("Results email not delivered", "run_id", runID, "recipient", recipient, "error", err)
		s.notify(ctx, event.NewEvent(event.TypeDeliveryFailed, runID, "", map[string]interface{}{
			"recipient": recipient,
			"error":     err.Error(),
		}))
		return result, err
	}

	result.Sent = true
	s.logger.Info("Results emailed", "run_id", runID, "recipient", recipient, "file", fileName)
	s.notify(ctx, event.NewEvent(event.TypeResultsEmailed, runID, "", map[string]interface{}{
		"recipient": recipient,
		"bytes":     len(data),
	}))
	return result, nil
}

// handleAreaFinished merges the finished session into the master list. It
// runs inside ApplyCommand, which already holds the run lock.
func (s *stocktakeServiceImpl) handleAreaFinished(ctx context.Context, evt *event.Event) error {
	s.mu.RLock()
	run, ok := s.runs[evt.RunID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, evt.RunID)
	}

	sess, ok := run.registry.Session(evt.Area)
	if !ok {
		return fmt.Errorf("%w: %q", counting.ErrUnknownArea, evt.Area)
	}

	if err := run.registry.MergeFinished(sess); err != nil {
		s.logger.Error("Merge failed", "run_id", evt.RunID, "area", evt.Area, "error", err)
		s.notify(ctx, event.NewEvent(event.TypeMergeFailed, evt.RunID, evt.Area, map[string]interface{}{
			"error": err.Error(),
		}))
		return err
	}

	s.logger.Info("Area merged", "run_id", evt.RunID, "area", evt.Area, "items", sess.Len())
	s.notify(ctx, event.NewEvent(event.TypeAreaMerged, evt.RunID, evt.Area, map[string]interface{}{
		"items": sess.Len(),
	}))
	return nil
}

// load returns the cached run, restoring it from the repository if needed
func (s *stocktakeServiceImpl) load(ctx context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok {
		return run, nil
	}

	rec, err := s.repo.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	reg, err := counting.RestoreRegistry(rec.Snapshot)
	if err != nil {
		s.logger.Error("Stored run is corrupt", "run_id", runID, "error", err)
		return nil, fmt.Errorf("restore run %s: %w", runID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.runs[runID]; ok {
		return cached, nil
	}
	run = &Run{
		ID:         rec.ID,
		SourceName: rec.SourceName,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		registry:   reg,
	}
	s.runs[runID] = run
	return run, nil
}

// save must be called with run.mu held
func (s *stocktakeServiceImpl) save(ctx context.Context, run *Run) error {
	run.UpdatedAt = s.now()
	rec := s.record(run)
	err := s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, rec)
	})
	if err != nil {
		s.logger.Error("Failed to save run", "run_id", run.ID, "error", err)
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *stocktakeServiceImpl) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

func (s *stocktakeServiceImpl) record(run *Run) *port.RunRecord {
	return &port.RunRecord{
		ID:         run.ID,
		SourceName: run.SourceName,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
		Snapshot:   run.registry.Snapshot(),
	}
}

// notify dispatches an informational event; handler errors are only logged
func (s *stocktakeServiceImpl) notify(ctx context.Context, evt *event.Event) {
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Warn("Event handler failed", "event_type", evt.Type, "run_id", evt.RunID, "error", err)
	}
}

func emailBody(source string, areas []entity.AreaSummary, total entity.AreaSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stocktake results for %s\n\n", source)
	for _, a := range areas {
		fmt.Fprintf(&b, "%s: %d items, total quantity %d, %d not counted\n",
			a.Area, a.TotalItems, a.TotalQuantity, a.ZeroCountItems)
	}
	fmt.Fprintf(&b, "\n%s: %d items, total quantity %d, %d not counted\n",
		total.Area, total.TotalItems, total.TotalQuantity, total.ZeroCountItems)
	b.WriteString("\nThe full results are attached as CSV.\n")
	return b.String()
}

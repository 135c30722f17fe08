// Package pipeline runs a schedule through extraction, AI header
// standardization, user review, editing and AI grouping.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"nrm-schedules/internal/cache"
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/csvparse"
	"nrm-schedules/internal/events"
	"nrm-schedules/internal/metrics"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/review"
	"nrm-schedules/internal/storage"
	"nrm-schedules/internal/wizard"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ScheduleRepo interface {
	CreateSchedule(ctx context.Context, s *models.Schedule) error
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	SaveSchedule(ctx context.Context, s *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

type Classifier interface {
	StandardizeHeaders(ctx context.Context, headers []string) (map[string]string, error)
	GroupRows(ctx context.Context, rows []models.Row) ([]models.Group, error)
}

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (cache.Lease, error)
}

type Options struct {
	MaxUploadBytes int64
	LockTTL        time.Duration
}

type Service struct {
	repo   ScheduleRepo
	blobs  storage.Store
	states wizard.Store
	ai     Classifier
	locker Locker
	events events.Publisher
	opts   Options
}

func NewService(repo ScheduleRepo, blobs storage.Store, states wizard.Store, ai Classifier, locker Locker, pub events.Publisher, opts Options) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	return &Service{
		repo:   repo,
		blobs:  blobs,
		states: states,
		ai:     ai,
		locker: locker,
		events: pub,
		opts:   opts,
	}
}

type UploadInput struct {
	OwnerID   string
	ProjectID string
	FileName  string
	Data      []byte
	Metadata  models.ScheduleMetadata
}

// Upload validates and parses a CSV, stores the raw file and the extracted
// rows, and leaves the wizard at the extraction review step.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.Schedule, *wizard.State, error) {
	if err := csvparse.Validate(in.FileName, int64(len(in.Data)), s.opts.MaxUploadBytes); err != nil {
		return nil, nil, err
	}
	table, err := csvparse.Parse(bytesReader(in.Data))
	if err != nil {
		return nil, nil, err
	}
	if len(table.Rows) == 0 {
		return nil, nil, ErrNoRows
	}

	sched := &models.Schedule{
		ProjectID: in.ProjectID,
		OwnerID:   in.OwnerID,
		FileName:  path.Base(in.FileName),
	}
	sched.ID = uuid.NewString()
	sched.Metadata = jsonMetadata(in.Metadata)

	rawURL, err := s.blobs.Put(ctx, storage.ObjectKey(in.OwnerID, "schedules/raw", in.FileName), "text/csv", in.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("storing raw csv: %w", err)
	}
	sched.RawURL = rawURL

	state := wizard.New(sched.ID)
	if err := s.extractInto(ctx, sched, state, table); err != nil {
		return nil, nil, err
	}
	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return nil, nil, fmt.Errorf("creating schedule: %w", err)
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, nil, fmt.Errorf("saving wizard state: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues("csv").Inc()
	metrics.RowsExtracted.Add(float64(len(table.Rows)))
	s.publish(ctx, events.ScheduleUploaded, sched, map[string]any{"rows": len(table.Rows)})
	return sched, state, nil
}

// Extract re-parses the stored raw upload after a reset.
func (s *Service) Extract(ctx context.Context, id string) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepUpload); err != nil {
		return nil, err
	}
	if sched.RawURL == "" {
		return nil, ErrNoRawFile
	}

	raw, err := s.blobs.Get(ctx, sched.RawURL)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "extract", err)
	}
	table, err := csvparse.Parse(bytesReader(raw))
	if err != nil {
		return nil, s.fail(ctx, sched, state, "extract", err)
	}
	if err := s.extractInto(ctx, sched, state, table); err != nil {
		return nil, s.fail(ctx, sched, state, "extract", err)
	}
	return state, s.persist(ctx, sched, state)
}

func (s *Service) extractInto(ctx context.Context, sched *models.Schedule, state *wizard.State, table csvparse.Table) error {
	url, err := storage.PutJSON(ctx, s.blobs, storage.ObjectKey(sched.OwnerID, "schedules/extracted", "rows.json"), table.Rows)
	if err != nil {
		return fmt.Errorf("storing extracted rows: %w", err)
	}
	sched.ExtractedURL = url
	sched.SourceHeaders = table.Headers
	sched.Headers = table.Headers
	sched.RowCount = len(table.Rows)
	sched.LastError = ""

	state.Headers = table.Headers
	state.Extracted = table.Rows
	if err := state.Advance(wizard.StepReviewExtraction); err != nil {
		return err
	}
	sched.Step = int(state.Step)
	return nil
}

// ProposeRenames asks the AI service for canonical headers and opens the review.
func (s *Service) ProposeRenames(ctx context.Context, id string) (*wizard.State, error) {
	ctx, release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepReviewExtraction); err != nil {
		return nil, err
	}

	mapping, err := s.ai.StandardizeHeaders(ctx, state.Headers)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "standardize headers", err)
	}

	state.Review = review.New(mapping)
	if err := state.Advance(wizard.StepReviewRenames); err != nil {
		return nil, err
	}
	sched.Step = int(state.Step)
	return state, s.persist(ctx, sched, state)
}

// Decide records accept/reject decisions for proposed renames.
func (s *Service) Decide(ctx context.Context, id string, decisions map[string]review.Decision) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepReviewRenames); err != nil {
		return nil, err
	}
	if state.Review == nil {
		return nil, wizard.ErrWrongStep
	}
	for header, d := range decisions {
		if err := state.Review.Set(header, d); err != nil {
			return nil, err
		}
	}
	return state, s.persist(ctx, sched, state)
}

// CompleteReview applies the decided mapping. It fails with review.ErrPending
// while any proposal is undecided.
func (s *Service) CompleteReview(ctx context.Context, id string) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepReviewRenames); err != nil {
		return nil, err
	}
	if state.Review == nil {
		return nil, wizard.ErrWrongStep
	}
	mapping, err := state.Review.Complete()
	if err != nil {
		return nil, err
	}

	headers, rows := review.Apply(state.Headers, state.Extracted, mapping)
	url, err := storage.PutJSON(ctx, s.blobs, storage.ObjectKey(sched.OwnerID, "schedules/standardized", "rows.json"), rows)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "store standardized rows", err)
	}

	state.StandardizedHeaders = headers
	state.Standardized = rows
	if err := state.Advance(wizard.StepEditStandardized); err != nil {
		return nil, err
	}
	sched.StandardizedURL = url
	sched.Headers = headers
	sched.Step = int(state.Step)

	if err := s.persist(ctx, sched, state); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ScheduleStandardized, sched, map[string]any{"mapping": mapping})
	return state, nil
}

type CellEdit struct {
	Row    int    `json:"row"`
	Column string `json:"column" validate:"required"`
	Value  string `json:"value"`
}

// EditRows merges user cell edits into the standardized rows.
func (s *Service) EditRows(ctx context.Context, id string, edits []CellEdit) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepEditStandardized); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(state.StandardizedHeaders))
	for _, h := range state.StandardizedHeaders {
		known[h] = true
	}
	for _, e := range edits {
		if e.Row < 0 || e.Row >= len(state.Standardized) {
			return nil, fmt.Errorf("%w: row %d out of range", ErrBadEdit, e.Row)
		}
		if !known[e.Column] {
			return nil, fmt.Errorf("%w: unknown column %q", ErrBadEdit, e.Column)
		}
	}
	for _, e := range edits {
		state.Standardized[e.Row][e.Column] = e.Value
	}

	oldURL := sched.StandardizedURL
	url, err := storage.PutJSON(ctx, s.blobs, storage.ObjectKey(sched.OwnerID, "schedules/standardized", "rows.json"), state.Standardized)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "store edited rows", err)
	}
	sched.StandardizedURL = url
	if err := s.persist(ctx, sched, state); err != nil {
		return nil, err
	}
	s.discard(ctx, oldURL)
	return state, nil
}

// Group asks the AI service to assign standardized rows to NRM sections.
func (s *Service) Group(ctx context.Context, id string) (*wizard.State, error) {
	ctx, release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepEditStandardized); err != nil {
		return nil, err
	}

	groups, err := s.ai.GroupRows(ctx, state.Standardized)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "group rows", err)
	}
	url, err := storage.PutJSON(ctx, s.blobs, storage.ObjectKey(sched.OwnerID, "schedules/grouped", "groups.json"), groups)
	if err != nil {
		return nil, s.fail(ctx, sched, state, "store groups", err)
	}

	state.Groups = groups
	if err := state.Advance(wizard.StepViewGroupings); err != nil {
		return nil, err
	}
	sched.GroupedURL = url
	sched.Step = int(state.Step)

	if err := s.persist(ctx, sched, state); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ScheduleGrouped, sched, map[string]any{"groups": len(groups)})
	return state, nil
}

// Back returns to the previous step, dropping what the current step produced.
func (s *Service) Back(ctx context.Context, id string) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch state.Step {
	case wizard.StepViewGroupings:
		s.discard(ctx, sched.GroupedURL)
		sched.GroupedURL = ""
	case wizard.StepEditStandardized:
		s.discard(ctx, sched.StandardizedURL)
		sched.StandardizedURL = ""
		sched.Headers = state.Headers
	case wizard.StepReviewExtraction:
		s.discardProcessed(ctx, sched)
	}
	state.Back()
	if state.Step == wizard.StepReviewRenames && state.Review == nil {
		state.Back()
	}
	sched.Step = int(state.Step)
	return state, s.persist(ctx, sched, state)
}

// Reset returns the wizard to the upload step and clears every processed row-set.
func (s *Service) Reset(ctx context.Context, id string) (*wizard.State, error) {
	sched, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	state.Reset()
	s.discardProcessed(ctx, sched)
	sched.Step = int(state.Step)
	sched.LastError = ""
	if err := s.persist(ctx, sched, state); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ScheduleReset, sched, nil)
	return state, nil
}

// State returns the wizard state, rebuilding it from stored blobs when the
// cached copy has expired.
func (s *Service) State(ctx context.Context, id string) (*wizard.State, error) {
	_, state, err := s.load(ctx, id)
	return state, err
}

// Rows returns the most processed flat row-set available and its headers.
func (s *Service) Rows(ctx context.Context, id string) ([]string, []models.Row, error) {
	_, state, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if state.Standardized != nil {
		return state.StandardizedHeaders, state.Standardized, nil
	}
	return state.Headers, state.Extracted, nil
}

// Groups returns the AI groupings once the wizard has reached the last step.
func (s *Service) Groups(ctx context.Context, id string) ([]models.Group, error) {
	_, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := state.Require(wizard.StepViewGroupings); err != nil {
		return nil, err
	}
	return state.Groups, nil
}

// UpdateMetadata replaces the user-facing name, tags, icon and color.
func (s *Service) UpdateMetadata(ctx context.Context, id string, meta models.ScheduleMetadata) (*models.Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	sched.Metadata = jsonMetadata(meta)
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("saving schedule: %w", err)
	}
	return sched, nil
}

// Delete removes the schedule document, its blobs and any cached wizard state.
func (s *Service) Delete(ctx context.Context, id string) error {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	if err := s.states.Delete(ctx, id); err != nil {
		config.GetLogger().WithField("schedule_id", id).Warn("failed to delete wizard state: " + err.Error())
	}
	for _, url := range []string{sched.RawURL, sched.ExtractedURL, sched.StandardizedURL, sched.GroupedURL} {
		s.discard(ctx, url)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Schedule, *wizard.State, error) {
	sched, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	state, err := s.states.Load(ctx, id)
	if err == nil {
		return sched, state, nil
	}
	if !errors.Is(err, wizard.ErrNotFound) {
		return nil, nil, err
	}

	state, err = s.rebuild(ctx, sched)
	if err != nil {
		return nil, nil, err
	}
	return sched, state, nil
}

// rebuild restores wizard state from the schedule document and its blobs.
// Rename proposals are not persisted, so a review in progress restarts at
// extraction review.
func (s *Service) rebuild(ctx context.Context, sched *models.Schedule) (*wizard.State, error) {
	state := wizard.New(sched.ID)
	state.Error = sched.LastError
	if sched.ExtractedURL == "" {
		return state, nil
	}

	var rows []models.Row
	if err := storage.GetJSON(ctx, s.blobs, sched.ExtractedURL, &rows); err != nil {
		return nil, fmt.Errorf("loading extracted rows: %w", err)
	}
	state.Extracted = rows
	state.Headers = []string(sched.SourceHeaders)
	if len(state.Headers) == 0 {
		state.Headers = headersOf(rows)
	}
	state.Step = wizard.StepReviewExtraction

	if sched.StandardizedURL != "" {
		if err := storage.GetJSON(ctx, s.blobs, sched.StandardizedURL, &state.Standardized); err != nil {
			return nil, fmt.Errorf("loading standardized rows: %w", err)
		}
		state.StandardizedHeaders = []string(sched.Headers)
		state.Step = wizard.StepEditStandardized
	}
	if sched.GroupedURL != "" {
		if err := storage.GetJSON(ctx, s.blobs, sched.GroupedURL, &state.Groups); err != nil {
			return nil, fmt.Errorf("loading groups: %w", err)
		}
		state.Step = wizard.StepViewGroupings
	}
	return state, nil
}

// fail converts an external failure into a wizard reset and a user-facing message.
func (s *Service) fail(ctx context.Context, sched *models.Schedule, state *wizard.State, op string, cause error) error {
	if lost := context.Cause(ctx); errors.Is(lost, cache.ErrLockLost) {
		return lost
	}
	stepErr := &StepError{Step: state.Step, Op: op, Err: cause}
	config.LogError("pipeline", op, "schedule "+sched.ID, map[string]any{"step": state.Step.String()}, cause)

	state.Fail(stepErr)
	s.discardProcessed(ctx, sched)
	sched.Step = int(state.Step)
	sched.LastError = stepErr.Error()
	if err := s.persist(ctx, sched, state); err != nil {
		config.LogError("pipeline", "fail", "persisting reset", nil, err)
	}
	return stepErr
}

func (s *Service) persist(ctx context.Context, sched *models.Schedule, state *wizard.State) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return fmt.Errorf("saving schedule: %w", err)
	}
	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("saving wizard state: %w", err)
	}
	return nil
}

// lock holds the schedule lock for one AI operation, refreshing it at a third
// of its TTL. A failed refresh cancels the returned context with ErrLockLost,
// and persist refuses to write on a cancelled context.
func (s *Service) lock(ctx context.Context, id string) (context.Context, func(), error) {
	lease, err := s.locker.Obtain(ctx, "schedule:"+id, s.opts.LockTTL)
	if err != nil {
		return nil, nil, err
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.opts.LockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-lockCtx.Done():
				return
			case <-ticker.C:
				if err := lease.Refresh(lockCtx, s.opts.LockTTL); err != nil {
					config.GetLogger().WithField("schedule_id", id).Warn("schedule lock lost: " + err.Error())
					cancel(fmt.Errorf("%w: %v", cache.ErrLockLost, err))
					return
				}
			}
		}
	}()

	return lockCtx, func() {
		close(done)
		cancel(nil)
		if err := lease.Release(context.Background()); err != nil {
			config.GetLogger().WithField("schedule_id", id).Warn("failed to release schedule lock: " + err.Error())
		}
	}, nil
}

func (s *Service) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.blobs.Delete(ctx, url); err != nil {
		config.GetLogger().WithField("url", url).Warn("failed to delete blob: " + err.Error())
	}
}

// discardProcessed deletes the extracted, standardized and grouped blobs and
// clears their URLs. The raw upload is kept so extraction can run again.
func (s *Service) discardProcessed(ctx context.Context, sched *models.Schedule) {
	for _, url := range []string{sched.ExtractedURL, sched.StandardizedURL, sched.GroupedURL} {
		s.discard(ctx, url)
	}
	clearProcessed(sched)
}

func (s *Service) publish(ctx context.Context, kind string, sched *models.Schedule, details any) {
	err := s.events.Publish(ctx, events.Event{
		Type:      kind,
		EntityID:  sched.ID,
		ProjectID: sched.ProjectID,
		UserID:    sched.OwnerID,
		Details:   details,
	})
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{"event": kind, "schedule_id": sched.ID}).
			Warn("failed to publish event: " + err.Error())
	}
}

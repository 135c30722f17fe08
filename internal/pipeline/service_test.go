package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nrm-schedules/internal/cache"
	"nrm-schedules/internal/csvparse"
	"nrm-schedules/internal/events"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/review"
	"nrm-schedules/internal/storage"
	"nrm-schedules/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu    sync.Mutex
	items map[string]models.Schedule
}

func (f *fakeRepo) CreateSchedule(_ context.Context, s *models.Schedule) error {
	return f.SaveSchedule(context.Background(), s)
}

func (f *fakeRepo) GetSchedule(_ context.Context, id string) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (f *fakeRepo) SaveSchedule(_ context.Context, s *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[s.ID] = *s
	return nil
}

func (f *fakeRepo) DeleteSchedule(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

type memStates struct {
	items map[string]*wizard.State
}

func (m *memStates) Load(_ context.Context, id string) (*wizard.State, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, wizard.ErrNotFound
	}
	return s, nil
}

func (m *memStates) Save(_ context.Context, s *wizard.State) error {
	m.items[s.ScheduleID] = s
	return nil
}

func (m *memStates) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type fakeAI struct {
	mapping map[string]string
	groups  []models.Group
	err     error
	gotRows []models.Row
	// delay holds each call open; a cancelled context ends it early.
	delay time.Duration
}

func (f *fakeAI) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}

func (f *fakeAI) StandardizeHeaders(ctx context.Context, headers []string) (map[string]string, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.mapping, nil
}

func (f *fakeAI) GroupRows(ctx context.Context, rows []models.Row) ([]models.Group, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.gotRows = rows
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

type fakeLocker struct {
	held       map[string]bool
	refreshErr error
	refreshes  atomic.Int32
}

var errLocked = errors.New("locked")

func (f *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (cache.Lease, error) {
	if f.held[key] {
		return nil, errLocked
	}
	f.held[key] = true
	return &fakeLease{locker: f, key: key}, nil
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (l *fakeLease) Refresh(context.Context, time.Duration) error {
	l.locker.refreshes.Add(1)
	return l.locker.refreshErr
}

func (l *fakeLease) Release(context.Context) error {
	delete(l.locker.held, l.key)
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *fakeRepo
	states *memStates
	ai     *fakeAI
	blobs  *storage.MemoryStore
	locker *fakeLocker
	pub    *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		repo:   &fakeRepo{items: map[string]models.Schedule{}},
		states: &memStates{items: map[string]*wizard.State{}},
		ai: &fakeAI{
			mapping: map[string]string{"desc": "Description", "qty": "Quantity"},
			groups:  []models.Group{{Section: "2.5 External walls", Rows: []models.Row{{"Description": "Wall A"}}}},
		},
		blobs:  storage.NewMemoryStore(),
		locker: &fakeLocker{held: map[string]bool{}},
		pub:    &recordingPublisher{},
	}
	f.svc = NewService(f.repo, f.blobs, f.states, f.ai, f.locker, f.pub, Options{MaxUploadBytes: 1 << 20})
	return f
}

const sampleCSV = "desc,qty\nWall A,3\nWall B,5\n"

func (f *fixture) upload(t *testing.T) *models.Schedule {
	t.Helper()
	sched, state, err := f.svc.Upload(context.Background(), UploadInput{
		OwnerID:   "u1",
		ProjectID: "p1",
		FileName:  "walls.csv",
		Data:      []byte(sampleCSV),
	})
	require.NoError(t, err)
	require.Equal(t, wizard.StepReviewExtraction, state.Step)
	return sched
}

func TestUpload(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)

	stored, err := f.repo.GetSchedule(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RowCount)
	assert.Equal(t, []string{"desc", "qty"}, []string(stored.Headers))
	assert.Equal(t, int(wizard.StepReviewExtraction), stored.Step)
	assert.NotEmpty(t, stored.RawURL)
	assert.NotEmpty(t, stored.ExtractedURL)

	var rows []models.Row
	require.NoError(t, storage.GetJSON(context.Background(), f.blobs, stored.ExtractedURL, &rows))
	assert.Equal(t, []models.Row{{"desc": "Wall A", "qty": "3"}, {"desc": "Wall B", "qty": "5"}}, rows)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.ScheduleUploaded, f.pub.events[0].Type)
}

func TestUpload_ValidationHappensBeforeStorage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.Upload(ctx, UploadInput{OwnerID: "u1", FileName: "walls.txt", Data: []byte(sampleCSV)})
	assert.ErrorIs(t, err, csvparse.ErrNotCSV)

	_, _, err = f.svc.Upload(ctx, UploadInput{OwnerID: "u1", FileName: "walls.csv"})
	assert.ErrorIs(t, err, csvparse.ErrEmpty)

	_, _, err = f.svc.Upload(ctx, UploadInput{OwnerID: "u1", FileName: "walls.csv", Data: []byte("desc,qty\n")})
	assert.ErrorIs(t, err, ErrNoRows)

	assert.Equal(t, 0, f.blobs.Len())
}

func TestFullFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)

	state, err := f.svc.ProposeRenames(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReviewRenames, state.Step)
	assert.Len(t, state.Review.PendingHeaders(), 2)

	_, err = f.svc.CompleteReview(ctx, sched.ID)
	assert.ErrorIs(t, err, review.ErrPending)

	_, err = f.svc.Decide(ctx, sched.ID, map[string]review.Decision{"desc": review.Accepted, "qty": review.Rejected})
	require.NoError(t, err)

	state, err = f.svc.CompleteReview(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepEditStandardized, state.Step)
	assert.Equal(t, []string{"Description", "qty"}, state.StandardizedHeaders)
	assert.Equal(t, models.Row{"Description": "Wall A", "qty": "3"}, state.Standardized[0])

	state, err = f.svc.EditRows(ctx, sched.ID, []CellEdit{{Row: 1, Column: "qty", Value: "6"}})
	require.NoError(t, err)
	assert.Equal(t, "6", state.Standardized[1]["qty"])

	state, err = f.svc.Group(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepViewGroupings, state.Step)
	assert.Equal(t, f.ai.groups, state.Groups)
	assert.Equal(t, "6", f.ai.gotRows[1]["qty"])

	stored, _ := f.repo.GetSchedule(ctx, sched.ID)
	assert.NotEmpty(t, stored.GroupedURL)
	assert.Equal(t, int(wizard.StepViewGroupings), stored.Step)
	assert.Empty(t, f.locker.held)
}

func TestEditRows_RejectsBadEdits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	_, err := f.svc.ProposeRenames(ctx, sched.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, sched.ID, map[string]review.Decision{"desc": review.Accepted, "qty": review.Accepted})
	require.NoError(t, err)
	_, err = f.svc.CompleteReview(ctx, sched.ID)
	require.NoError(t, err)

	_, err = f.svc.EditRows(ctx, sched.ID, []CellEdit{{Row: 5, Column: "Quantity", Value: "1"}})
	assert.ErrorIs(t, err, ErrBadEdit)

	_, err = f.svc.EditRows(ctx, sched.ID, []CellEdit{{Row: 0, Column: "Quantity", Value: "9"}, {Row: 0, Column: "nope", Value: "1"}})
	assert.ErrorIs(t, err, ErrBadEdit)

	rows := f.states.items[sched.ID].Standardized
	assert.Equal(t, "3", rows[0]["Quantity"])
}

func TestServiceFailureResetsWizard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	f.ai.err = errors.New("model overloaded")

	_, err := f.svc.ProposeRenames(ctx, sched.ID)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, wizard.StepReviewExtraction, stepErr.Step)

	state := f.states.items[sched.ID]
	assert.Equal(t, wizard.StepUpload, state.Step)
	assert.Contains(t, state.Error, "model overloaded")
	assert.Nil(t, state.Extracted)

	stored, _ := f.repo.GetSchedule(ctx, sched.ID)
	assert.Equal(t, 0, stored.Step)
	assert.Empty(t, stored.ExtractedURL)
	assert.Contains(t, stored.LastError, "model overloaded")
	assert.Empty(t, f.locker.held)

	f.ai.err = nil
	state, err = f.svc.Extract(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReviewExtraction, state.Step)
	assert.Len(t, state.Extracted, 2)
}

func TestWrongStepIsRejected(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)

	_, err := f.svc.Group(context.Background(), sched.ID)
	assert.ErrorIs(t, err, wizard.ErrWrongStep)
}

func TestConcurrentAIOperationIsLocked(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)
	f.locker.held["schedule:"+sched.ID] = true

	_, err := f.svc.ProposeRenames(context.Background(), sched.ID)
	assert.ErrorIs(t, err, errLocked)
}

func TestResetAndBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	_, err := f.svc.ProposeRenames(ctx, sched.ID)
	require.NoError(t, err)

	state, err := f.svc.Back(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReviewExtraction, state.Step)
	assert.Nil(t, state.Review)

	state, err = f.svc.Reset(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, &wizard.State{ScheduleID: sched.ID, Step: wizard.StepUpload}, state)

	stored, _ := f.repo.GetSchedule(ctx, sched.ID)
	assert.Equal(t, 0, stored.Step)
	assert.Empty(t, stored.ExtractedURL)
	assert.NotEmpty(t, stored.RawURL)
}

func TestStateIsRebuiltFromBlobs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	_, err := f.svc.ProposeRenames(ctx, sched.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, sched.ID, map[string]review.Decision{"desc": review.Accepted, "qty": review.Accepted})
	require.NoError(t, err)
	_, err = f.svc.CompleteReview(ctx, sched.ID)
	require.NoError(t, err)

	delete(f.states.items, sched.ID)

	state, err := f.svc.State(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepEditStandardized, state.Step)
	assert.Equal(t, []string{"desc", "qty"}, state.Headers)
	assert.Equal(t, []string{"Description", "Quantity"}, state.StandardizedHeaders)
	assert.Len(t, state.Standardized, 2)

	// The review is not persisted, so going back skips past it.
	state, err = f.svc.Back(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReviewExtraction, state.Step)
}

func TestRows(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)

	headers, rows, err := f.svc.Rows(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"desc", "qty"}, headers)
	assert.Len(t, rows, 2)

	_, _, err = f.svc.Rows(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGroupsRequireLastStep(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)

	_, err := f.svc.Groups(context.Background(), sched.ID)
	assert.ErrorIs(t, err, wizard.ErrWrongStep)
}

func TestUpdateMetadata(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)

	meta := models.ScheduleMetadata{CustomName: "Level 2 doors", Tags: []string{"doors"}, Color: "#ff0000"}
	updated, err := f.svc.UpdateMetadata(context.Background(), sched.ID, meta)
	require.NoError(t, err)
	assert.Equal(t, meta, updated.Metadata.Data())

	stored, _ := f.repo.GetSchedule(context.Background(), sched.ID)
	assert.Equal(t, "Level 2 doors", stored.Metadata.Data().CustomName)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	require.Equal(t, 2, f.blobs.Len())

	require.NoError(t, f.svc.Delete(ctx, sched.ID))
	assert.Equal(t, 0, f.blobs.Len())
	assert.NotContains(t, f.states.items, sched.ID)

	_, err := f.repo.GetSchedule(ctx, sched.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, sched.ID), models.ErrNotFound)
}

func (f *fixture) withLockTTL(ttl time.Duration) {
	f.svc = NewService(f.repo, f.blobs, f.states, f.ai, f.locker, f.pub, Options{MaxUploadBytes: 1 << 20, LockTTL: ttl})
}

func TestLockIsRefreshedDuringLongOperation(t *testing.T) {
	f := newFixture()
	f.withLockTTL(30 * time.Millisecond)
	f.ai.delay = 100 * time.Millisecond
	sched := f.upload(t)

	state, err := f.svc.ProposeRenames(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReviewRenames, state.Step)
	assert.GreaterOrEqual(t, f.locker.refreshes.Load(), int32(2))
	assert.Empty(t, f.locker.held)
}

func TestLostLockStopsOperationWithoutWriting(t *testing.T) {
	f := newFixture()
	f.withLockTTL(30 * time.Millisecond)
	sched := f.upload(t)
	f.ai.delay = time.Second
	f.locker.refreshErr = cache.ErrLockLost

	_, err := f.svc.ProposeRenames(context.Background(), sched.ID)
	assert.ErrorIs(t, err, cache.ErrLockLost)

	stored, _ := f.repo.GetSchedule(context.Background(), sched.ID)
	assert.Equal(t, int(wizard.StepReviewExtraction), stored.Step)
	assert.NotEmpty(t, stored.ExtractedURL)
	assert.Empty(t, stored.LastError)
	assert.Equal(t, wizard.StepReviewExtraction, f.states.items[sched.ID].Step)
	assert.Empty(t, f.locker.held)
}

func TestResetDeletesProcessedBlobs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sched := f.upload(t)
	require.Equal(t, 2, f.blobs.Len())

	_, err := f.svc.Reset(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.blobs.Len())

	stored, _ := f.repo.GetSchedule(ctx, sched.ID)
	_, err = f.blobs.Get(ctx, stored.RawURL)
	assert.NoError(t, err)
}

func TestFailureDeletesProcessedBlobs(t *testing.T) {
	f := newFixture()
	sched := f.upload(t)
	f.ai.err = errors.New("model overloaded")

	_, err := f.svc.ProposeRenames(context.Background(), sched.ID)
	require.Error(t, err)
	assert.Equal(t, 1, f.blobs.Len())
}

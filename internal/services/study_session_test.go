package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytime-backend/internal/lock"
	"studytime-backend/internal/models"
	"studytime-backend/internal/repository"
	"studytime-backend/internal/repository/memory"
	"studytime-backend/internal/tracking"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) IDGenerator {
	var n int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, msg models.WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("publish failed")
	}
	p.events = append(p.events, userID+":"+msg.Type)
	return nil
}

type fixture struct {
	svc    *StudySessionService
	store  *memory.Store
	clock  *fakeClock
	events *recordingPublisher
	locker lock.Locker
}

func newFixture(t *testing.T, opts ...StudySessionOption) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, lock.NewLocal(), opts...)
}

// newFixtureWith builds a fixture whose transactions go through wrapTx when
// it is set, and whose mutations serialize on locker.
func newFixtureWith(t *testing.T, wrapTx func(repository.Transactor) repository.Transactor, locker lock.Locker, opts ...StudySessionOption) *fixture {
	t.Helper()

	store := memory.New()
	clock := &fakeClock{now: t0}
	events := &recordingPublisher{}

	for _, subj := range []models.Subject{
		{ID: "subject-alice", UserID: "alice", Name: "Algebra", Color: "#ff0000", IsActive: true},
		{ID: "subject-bob", UserID: "bob", Name: "Biology", Color: "#00ff00", IsActive: true},
	} {
		subj := subj
		require.NoError(t, store.Subjects().Create(context.Background(), &subj))
	}

	var tx repository.Transactor = store
	if wrapTx != nil {
		tx = wrapTx(store)
	}

	opts = append([]StudySessionOption{WithClock(clock), WithIDGenerator(sequentialIDs("id"))}, opts...)
	svc := NewStudySessionService(store.Sessions(), store.Breaks(), store.Subjects(), tx, locker, events, nil, opts...)
	return &fixture{svc: svc, store: store, clock: clock, events: events, locker: locker}
}

func (f *fixture) start(t *testing.T, userID string) *models.SessionView {
	t.Helper()
	view, err := f.svc.Start(context.Background(), userID, "subject-"+userID)
	require.NoError(t, err)
	return view
}

func TestStartCreatesActiveSession(t *testing.T) {
	f := newFixture(t)

	view := f.start(t, "alice")

	assert.Equal(t, models.StatusActive, view.Status)
	assert.True(t, view.StartTime.Equal(t0))
	assert.Nil(t, view.EndTime)
	assert.Nil(t, view.TotalDuration)
	assert.Nil(t, view.EffectiveStudyTime)
	assert.Zero(t, view.BreakCount)
	assert.Zero(t, view.AccumulatedPauseTime)
	assert.Equal(t, []string{"alice:session_started"}, f.events.events)
}

func TestStartRejectsSecondInFlightSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.start(t, "alice")
	_, err := f.svc.Pause(ctx, "alice", first.ID, false)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, "alice", "subject-alice")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	sessions, err := f.svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestStartSubjectChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "alice", "missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = f.svc.Start(ctx, "alice", "subject-bob")
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	active, err := f.svc.GetActive(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestConcurrentStartAllowsOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		succeeded int32
		conflicts int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Start(ctx, "alice", "subject-alice")
			var conflict *ConflictError
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.As(err, &conflict):
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded)
	assert.EqualValues(t, 9, conflicts)
}

func TestBreakScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")

	f.clock.Advance(10 * time.Second)
	paused, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, paused.Status)
	assert.Equal(t, 1, paused.BreakCount)
	assert.True(t, paused.HasActiveBreak)
	require.NotNil(t, paused.PausedAt)
	assert.True(t, paused.PausedAt.Equal(t0.Add(10*time.Second)))

	f.clock.Advance(5 * time.Second)
	resumed, err := f.svc.Resume(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.False(t, resumed.HasActiveBreak)
	assert.Equal(t, 5, resumed.AccumulatedBreakTime)
	assert.Zero(t, resumed.AccumulatedPauseTime)

	f.clock.Advance(2 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stopped.Status)
	require.NotNil(t, stopped.TotalDuration)
	require.NotNil(t, stopped.EffectiveStudyTime)
	assert.Equal(t, 17, *stopped.TotalDuration)
	assert.Equal(t, 12, *stopped.EffectiveStudyTime)
	assert.Equal(t, 1, stopped.BreakCount)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	require.NotNil(t, breaks[0].Duration)
	assert.Equal(t, 5, *breaks[0].Duration)

	assert.Equal(t, []string{
		"alice:session_started",
		"alice:session_paused",
		"alice:session_resumed",
		"alice:session_stopped",
	}, f.events.events)
}

func TestSilentPauseScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")

	f.clock.Advance(10 * time.Second)
	paused, err := f.svc.Pause(ctx, "alice", s.ID, false)
	require.NoError(t, err)
	assert.Zero(t, paused.BreakCount)
	assert.False(t, paused.HasActiveBreak)

	f.clock.Advance(5 * time.Second)
	resumed, err := f.svc.Resume(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, resumed.AccumulatedPauseTime)
	assert.Zero(t, resumed.AccumulatedBreakTime)

	f.clock.Advance(5 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, *stopped.TotalDuration)
	assert.Equal(t, 5, stopped.AccumulatedPauseTime)
	assert.Equal(t, 15, *stopped.EffectiveStudyTime)
	assert.Zero(t, stopped.BreakCount)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestNeverPausedEffectiveEqualsTotal(t *testing.T) {
	f := newFixture(t)

	s := f.start(t, "alice")
	f.clock.Advance(42*time.Second + 700*time.Millisecond)

	stopped, err := f.svc.Stop(context.Background(), "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, *stopped.TotalDuration)
	assert.Equal(t, *stopped.TotalDuration, *stopped.EffectiveStudyTime)
}

func TestStopDuringOpenBreakClosesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	f.clock.Advance(10 * time.Second)
	_, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, *stopped.TotalDuration)
	assert.Equal(t, 10, *stopped.EffectiveStudyTime)
	assert.Nil(t, stopped.PausedAt)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.False(t, breaks[0].IsOpen())
	assert.Equal(t, 4, *breaks[0].Duration)
}

func TestStopDuringSilentPauseCountsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	f.clock.Advance(10 * time.Second)
	_, err := f.svc.Pause(ctx, "alice", s.ID, false)
	require.NoError(t, err)

	f.clock.Advance(6 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, *stopped.TotalDuration)
	assert.Equal(t, 6, stopped.AccumulatedPauseTime)
	assert.Equal(t, 10, *stopped.EffectiveStudyTime)
}

func TestMultipleBreaksAreSummed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	for i := 0; i < 3; i++ {
		f.clock.Advance(10 * time.Second)
		_, err := f.svc.Pause(ctx, "alice", s.ID, true)
		require.NoError(t, err)
		f.clock.Advance(3 * time.Second)
		_, err = f.svc.Resume(ctx, "alice", s.ID)
		require.NoError(t, err)
	}

	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stopped.BreakCount)
	assert.Equal(t, 39, *stopped.TotalDuration)
	assert.Equal(t, 30, *stopped.EffectiveStudyTime)
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")

	_, err := f.svc.Resume(ctx, "alice", s.ID)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, tracking.ErrInvalidState)

	_, err = f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Pause(ctx, "alice", s.ID, true)
	require.ErrorAs(t, err, &invalid)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, breaks, 1)

	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.BreakCount)

	_, err = f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)

	_, err = f.svc.Stop(ctx, "alice", s.ID)
	require.ErrorAs(t, err, &invalid)
	_, err = f.svc.Pause(ctx, "alice", s.ID, false)
	require.ErrorAs(t, err, &invalid)
	_, err = f.svc.Resume(ctx, "alice", s.ID)
	require.ErrorAs(t, err, &invalid)
}

func TestForeignUserIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	var forbidden *ForbiddenError

	_, err := f.svc.Pause(ctx, "bob", s.ID, true)
	require.ErrorAs(t, err, &forbidden)

	_, err = f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)
	_, err = f.svc.Resume(ctx, "bob", s.ID)
	require.ErrorAs(t, err, &forbidden)

	_, err = f.svc.Stop(ctx, "bob", s.ID)
	require.ErrorAs(t, err, &forbidden)
	require.ErrorAs(t, f.svc.Delete(ctx, "bob", s.ID), &forbidden)

	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, stored.Status)
	assert.True(t, stored.PausedAt.Equal(t0))
	assert.Equal(t, 1, stored.BreakCount)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Nil(t, breaks[0].EndTime, "the foreign resume must not close the break")
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Pause(context.Background(), "alice", "nope", true)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetActiveLiveFigures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active, err := f.svc.GetActive(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, active)

	s := f.start(t, "alice")
	f.clock.Advance(10 * time.Second)
	_, err = f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Second)
	active, err = f.svc.GetActive(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.HasActiveBreak)
	assert.Equal(t, 3, active.AccumulatedBreakTime)
	assert.Zero(t, active.AccumulatedPauseTime)

	_, err = f.svc.Resume(ctx, "alice", s.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)
	_, err = f.svc.Pause(ctx, "alice", s.ID, false)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Second)
	active, err = f.svc.GetActive(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, active.HasActiveBreak)
	assert.Equal(t, 3, active.AccumulatedBreakTime)
	assert.Equal(t, 4, active.AccumulatedPauseTime)

	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.AccumulatedPauseTime, "live pause time must not be persisted")
}

func TestClampedEffectiveTime(t *testing.T) {
	f := newFixture(t, WithClampedEffectiveTime(true))
	ctx := context.Background()

	s := f.start(t, "alice")
	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	stored.AccumulatedPauseTime = 100
	require.NoError(t, f.store.Sessions().Update(ctx, stored))

	f.clock.Advance(10 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Zero(t, *stopped.EffectiveStudyTime)
}

func TestDeleteRemovesBreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	_, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "alice", s.ID))

	_, err = f.store.Sessions().FindByID(ctx, s.ID)
	assert.Error(t, err)
	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)

	// The user can start again.
	f.start(t, "alice")
}

func TestReapStaleStopsOldSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.start(t, "alice")
	f.clock.Advance(2 * time.Hour)
	fresh := f.start(t, "bob")

	n, err := f.svc.ReapStale(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.store.Sessions().FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, 7200, *stored.TotalDuration)

	stored, err = f.store.Sessions().FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.events.fail = true

	_, err := f.svc.Start(context.Background(), "alice", "subject-alice")
	assert.NoError(t, err)
}

func TestSubjectServiceCreateAndList(t *testing.T) {
	store := memory.New()
	svc := NewSubjectService(store.Subjects(), store.Semesters(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", models.CreateSubjectRequest{Name: "", Color: "red"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "color")

	created, err := svc.Create(ctx, "alice", models.CreateSubjectRequest{Name: "Physics", Color: "#123abc"})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "alice", created.UserID)

	subjects, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Physics", subjects[0].Name)

	subjects, err = svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, subjects)
	assert.Empty(t, subjects)
}

func TestLockTimeoutIsConflict(t *testing.T) {
	f := newFixture(t, WithLockWait(20*time.Millisecond))
	ctx := context.Background()

	unlock, err := f.locker.Lock(ctx, "study_session:alice")
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.Start(ctx, "alice", "subject-alice")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// Other users are not blocked.
	_, err = f.svc.Start(ctx, "bob", "subject-bob")
	require.NoError(t, err)
}

var errStorage = errors.New("storage unavailable")

// failingTx wraps a Transactor so the next failures session updates made
// inside a transaction return errStorage.
type failingTx struct {
	inner    repository.Transactor
	failures int
}

func (f *failingTx) WithinTx(ctx context.Context, fn func(repository.SessionStore, repository.BreakStore) error) error {
	return f.inner.WithinTx(ctx, func(sessions repository.SessionStore, breaks repository.BreakStore) error {
		return fn(&failingSessions{SessionStore: sessions, tx: f}, breaks)
	})
}

type failingSessions struct {
	repository.SessionStore
	tx *failingTx
}

func (s *failingSessions) Update(ctx context.Context, sess *models.StudySession) error {
	if s.tx.failures > 0 {
		s.tx.failures--
		return errStorage
	}
	return s.SessionStore.Update(ctx, sess)
}

func newFailingFixture(t *testing.T) (*fixture, *failingTx) {
	t.Helper()

	ftx := &failingTx{}
	f := newFixtureWith(t, func(inner repository.Transactor) repository.Transactor {
		ftx.inner = inner
		return ftx
	}, lock.NewLocal())
	return f, ftx
}

func TestFailedPauseLeavesNoBreak(t *testing.T) {
	f, ftx := newFailingFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	f.clock.Advance(10 * time.Second)

	ftx.failures = 1
	_, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.ErrorIs(t, err, errStorage)

	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Zero(t, stored.BreakCount)
	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)

	// The retry succeeds and the session accounts as if never paused before.
	view, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)
	assert.True(t, view.HasActiveBreak)
	assert.Equal(t, 1, view.BreakCount)

	f.clock.Advance(5 * time.Second)
	_, err = f.svc.Resume(ctx, "alice", s.ID)
	require.NoError(t, err)
	f.clock.Advance(6 * time.Second)

	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, *stopped.TotalDuration)
	assert.Equal(t, 16, *stopped.EffectiveStudyTime)
}

func TestFailedResumeKeepsBreakOpen(t *testing.T) {
	f, ftx := newFailingFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	_, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	ftx.failures = 1
	_, err = f.svc.Resume(ctx, "alice", s.ID)
	require.ErrorIs(t, err, errStorage)

	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Nil(t, breaks[0].EndTime)
	assert.Nil(t, breaks[0].Duration)

	view, err := f.svc.Resume(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, view.AccumulatedBreakTime)
	assert.Zero(t, view.AccumulatedPauseTime)

	f.clock.Advance(10 * time.Second)
	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, *stopped.TotalDuration)
	assert.Equal(t, 10, *stopped.EffectiveStudyTime)
	assert.Zero(t, stopped.AccumulatedPauseTime)
}

func TestFailedStopKeepsSessionPaused(t *testing.T) {
	f, ftx := newFailingFixture(t)
	ctx := context.Background()

	s := f.start(t, "alice")
	f.clock.Advance(10 * time.Second)
	_, err := f.svc.Pause(ctx, "alice", s.ID, true)
	require.NoError(t, err)
	f.clock.Advance(4 * time.Second)

	ftx.failures = 1
	_, err = f.svc.Stop(ctx, "alice", s.ID)
	require.ErrorIs(t, err, errStorage)

	stored, err := f.store.Sessions().FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, stored.Status)
	breaks, err := f.store.Breaks().FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Nil(t, breaks[0].EndTime)

	stopped, err := f.svc.Stop(ctx, "alice", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, *stopped.TotalDuration)
	assert.Equal(t, 10, *stopped.EffectiveStudyTime)
	assert.Zero(t, stopped.AccumulatedPauseTime)
}

func TestRedisLockTimeoutIsConflict(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	wait := 200 * time.Millisecond
	locker := lock.NewRedis(client, 10*time.Second, wait)
	f := newFixtureWith(t, nil, locker, WithLockWait(wait))
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "study_session:alice")
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.Start(ctx, "alice", "subject-alice")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestStartRejectsDeletedSubject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	subj, err := f.store.Subjects().FindByID(ctx, "subject-alice")
	require.NoError(t, err)
	subj.IsActive = false
	require.NoError(t, f.store.Subjects().Update(ctx, subj))

	_, err = f.svc.Start(ctx, "alice", "subject-alice")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

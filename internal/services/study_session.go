package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studytime-backend/internal/lock"
	"studytime-backend/internal/models"
	"studytime-backend/internal/repository"
	"studytime-backend/internal/tracking"
)

// EventPublisher delivers live session updates to a user's clients.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, msg models.WSMessage) error
}

// StudySessionService runs the session lifecycle: Start, Pause, Resume and
// Stop, plus the read-side enrichment of the in-flight session. Mutations
// for one user are serialized through the locker, every state check happens
// before the first write, and the writes of one operation share a
// transaction.
type StudySessionService struct {
	sessions repository.SessionStore
	breaks   repository.BreakStore
	subjects repository.SubjectStore
	tx       repository.Transactor
	locker   lock.Locker
	events   EventPublisher
	logger   *zap.Logger
	clock    Clock
	newID    IDGenerator
	stopOpts tracking.StopOptions
	lockWait time.Duration
}

type StudySessionOption func(*StudySessionService)

func WithClock(c Clock) StudySessionOption {
	return func(s *StudySessionService) { s.clock = c }
}

func WithIDGenerator(gen IDGenerator) StudySessionOption {
	return func(s *StudySessionService) { s.newID = gen }
}

// WithClampedEffectiveTime floors effective study time at zero on Stop.
func WithClampedEffectiveTime(clamp bool) StudySessionOption {
	return func(s *StudySessionService) { s.stopOpts.ClampEffective = clamp }
}

// WithLockWait bounds how long a mutation waits for another one on the same
// user to finish.
func WithLockWait(d time.Duration) StudySessionOption {
	return func(s *StudySessionService) { s.lockWait = d }
}

func NewStudySessionService(
	sessions repository.SessionStore,
	breaks repository.BreakStore,
	subjects repository.SubjectStore,
	tx repository.Transactor,
	locker lock.Locker,
	events EventPublisher,
	logger *zap.Logger,
	opts ...StudySessionOption,
) *StudySessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StudySessionService{
		sessions: sessions,
		breaks:   breaks,
		subjects: subjects,
		tx:       tx,
		locker:   locker,
		events:   events,
		logger:   logger,
		clock:    SystemClock,
		newID:    NewUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StudySessionService) Start(ctx context.Context, userID, subjectID string) (*models.SessionView, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, err = s.sessions.FindActiveByUserID(ctx, userID)
	if err == nil {
		return nil, errInFlight()
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Subject not found"}
		}
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}
	if subject.UserID != userID {
		return nil, &ForbiddenError{Message: "Subject does not belong to you"}
	}
	if !subject.IsActive {
		return nil, &NotFoundError{Message: "Subject not found"}
	}

	session := tracking.NewSession(s.newID(), userID, subjectID, s.clock.Now())
	if err := s.sessions.Create(ctx, &session); err != nil {
		if errors.Is(err, repository.ErrInFlightSession) {
			return nil, errInFlight()
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	view := &models.SessionView{StudySession: session}
	s.logger.Info("study session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.String("subject_id", subjectID),
	)
	s.publish(ctx, userID, models.EventSessionStarted, view)
	return view, nil
}

// Pause suspends an active session. With isBreak an open Break is recorded
// and counted; without it the session is silently paused and the time is
// accounted on Resume or Stop.
func (s *StudySessionService) Pause(ctx context.Context, userID, sessionID string, isBreak bool) (*models.SessionView, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	paused, err := tracking.Pause(*session, now)
	if err != nil {
		return nil, invalidState(err)
	}

	breaks, err := s.breaks.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load breaks: %w", err)
	}

	var br models.Break
	if isBreak {
		if tracking.SummarizeBreaks(breaks, now).HasOpen() {
			return nil, invalidState(repository.ErrOpenBreak)
		}
		br = tracking.NewBreak(s.newID(), session.ID, now)
		paused.BreakCount++
	}

	err = s.tx.WithinTx(ctx, func(sessions repository.SessionStore, breakStore repository.BreakStore) error {
		if isBreak {
			if err := breakStore.Create(ctx, &br); err != nil {
				if errors.Is(err, repository.ErrOpenBreak) {
					return invalidState(err)
				}
				return fmt.Errorf("failed to create break: %w", err)
			}
		}
		if err := sessions.Update(ctx, &paused); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if isBreak {
		breaks = append(breaks, br)
	}

	summary := tracking.SummarizeBreaks(breaks, now)
	view := &models.SessionView{
		StudySession:         paused,
		AccumulatedBreakTime: summary.EndedSeconds,
		HasActiveBreak:       summary.HasOpen(),
	}
	s.logger.Info("study session paused",
		zap.String("session_id", session.ID),
		zap.Bool("is_break", isBreak),
	)
	s.publish(ctx, userID, models.EventSessionPaused, view)
	return view, nil
}

// Resume ends the open break if there is one, otherwise folds the silent
// pause into AccumulatedPauseTime, and reactivates the session.
func (s *StudySessionService) Resume(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resumed, err := tracking.Resume(*session, now)
	if err != nil {
		return nil, invalidState(err)
	}

	breaks, err := s.breaks.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load breaks: %w", err)
	}

	summary := tracking.SummarizeBreaks(breaks, now)
	var ended *models.Break
	if summary.HasOpen() {
		b, err := tracking.EndBreak(breaks[summary.Open], now)
		if err != nil {
			return nil, invalidState(err)
		}
		ended = &b
	} else {
		resumed.AccumulatedPauseTime += tracking.SilentPauseSeconds(*session, false, now)
	}

	if err := s.commit(ctx, &resumed, ended); err != nil {
		return nil, err
	}
	if ended != nil {
		breaks[summary.Open] = *ended
	}

	view := &models.SessionView{
		StudySession:         resumed,
		AccumulatedBreakTime: tracking.SummarizeBreaks(breaks, now).EndedSeconds,
		HasActiveBreak:       false,
	}
	s.logger.Info("study session resumed",
		zap.String("session_id", session.ID),
		zap.Int("accumulated_pause_time", resumed.AccumulatedPauseTime),
	)
	s.publish(ctx, userID, models.EventSessionResumed, view)
	return view, nil
}

// Stop closes any open break, accounts an ongoing silent pause and
// finalizes the session.
func (s *StudySessionService) Stop(ctx context.Context, userID, sessionID string) (*models.StudySession, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.stopLocked(ctx, session)
}

func (s *StudySessionService) stopLocked(ctx context.Context, session *models.StudySession) (*models.StudySession, error) {
	now := s.clock.Now()
	if session.Status == models.StatusCompleted {
		_, err := tracking.Stop(*session, now, 0, 0, s.stopOpts)
		return nil, invalidState(err)
	}

	breaks, err := s.breaks.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load breaks: %w", err)
	}

	summary := tracking.SummarizeBreaks(breaks, now)
	totalBreak := summary.EndedSeconds
	if summary.HasOpen() {
		totalBreak += summary.OpenSeconds
	}

	final := *session
	final.AccumulatedPauseTime += tracking.SilentPauseSeconds(*session, summary.HasOpen(), now)
	stopped, err := tracking.Stop(final, now, totalBreak, final.AccumulatedPauseTime, s.stopOpts)
	if err != nil {
		return nil, invalidState(err)
	}

	var ended *models.Break
	if summary.HasOpen() {
		b, err := tracking.EndBreak(breaks[summary.Open], now)
		if err != nil {
			return nil, invalidState(err)
		}
		ended = &b
	}

	if err := s.commit(ctx, &stopped, ended); err != nil {
		return nil, err
	}

	s.logger.Info("study session stopped",
		zap.String("session_id", stopped.ID),
		zap.Int("total_duration", *stopped.TotalDuration),
		zap.Int("effective_study_time", *stopped.EffectiveStudyTime),
		zap.Int("break_time", totalBreak),
		zap.Int("pause_time", stopped.AccumulatedPauseTime),
	)
	s.publish(ctx, stopped.UserID, models.EventSessionStopped, stopped)
	return &stopped, nil
}

// GetActive returns the user's in-flight session with live break and pause
// figures, or nil when there is none. Nothing is persisted.
func (s *StudySessionService) GetActive(ctx context.Context, userID string) (*models.SessionView, error) {
	session, err := s.sessions.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}

	breaks, err := s.breaks.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load breaks: %w", err)
	}

	now := s.clock.Now()
	summary := tracking.SummarizeBreaks(breaks, now)

	view := &models.SessionView{
		StudySession:         *session,
		AccumulatedBreakTime: summary.EndedSeconds,
		HasActiveBreak:       summary.HasOpen() && session.Status == models.StatusPaused,
	}
	if summary.HasOpen() {
		view.AccumulatedBreakTime += summary.OpenSeconds
	}
	view.AccumulatedPauseTime += tracking.SilentPauseSeconds(*session, summary.HasOpen(), now)
	return view, nil
}

// List returns the user's sessions, newest first.
func (s *StudySessionService) List(ctx context.Context, userID string) ([]models.StudySession, error) {
	sessions, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.StudySession{}
	}
	return sessions, nil
}

// Delete removes a session and its breaks.
func (s *StudySessionService) Delete(ctx context.Context, userID, sessionID string) error {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	breaks, err := s.breaks.FindBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load breaks: %w", err)
	}
	err = s.tx.WithinTx(ctx, func(sessions repository.SessionStore, breakStore repository.BreakStore) error {
		for _, br := range breaks {
			if err := breakStore.Delete(ctx, br.ID); err != nil {
				return fmt.Errorf("failed to delete break %s: %w", br.ID, err)
			}
		}
		if err := sessions.Delete(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, userID, models.EventSessionDeleted, map[string]string{"id": session.ID})
	return nil
}

// ReapStale stops every in-flight session that started before cutoff and
// returns how many were stopped.
func (s *StudySessionService) ReapStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.sessions.FindInFlightStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	stopped := 0
	for _, sess := range stale {
		if _, err := s.Stop(ctx, sess.UserID, sess.ID); err != nil {
			s.logger.Warn("failed to stop stale session",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			continue
		}
		stopped++
	}
	return stopped, nil
}

func (s *StudySessionService) loadOwned(ctx context.Context, userID, sessionID string) (*models.StudySession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !tracking.OwnedBy(*session, userID) {
		return nil, &ForbiddenError{Message: "Session does not belong to you"}
	}
	return session, nil
}

// commit persists session and, when set, the break it closed as one unit.
func (s *StudySessionService) commit(ctx context.Context, session *models.StudySession, ended *models.Break) error {
	return s.tx.WithinTx(ctx, func(sessions repository.SessionStore, breaks repository.BreakStore) error {
		if ended != nil {
			if err := breaks.Update(ctx, ended); err != nil {
				return fmt.Errorf("failed to update break: %w", err)
			}
		}
		if err := sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
}

func (s *StudySessionService) lockUser(ctx context.Context, userID string) (func(), error) {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}

	unlock, err := s.locker.Lock(ctx, "study_session:"+userID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, &ConflictError{Message: "Another request for your session is in progress. Please retry."}
		}
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	return unlock, nil
}

func (s *StudySessionService) publish(ctx context.Context, userID, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, userID, models.WSMessage{Type: eventType, Payload: payload})
	if err != nil {
		s.logger.Warn("failed to publish session event",
			zap.String("user_id", userID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func errInFlight() error {
	return &ConflictError{Message: "You already have an active session. Please stop it before starting a new one."}
}

func invalidState(err error) error {
	return &InvalidStateError{Message: err.Error(), Err: err}
}

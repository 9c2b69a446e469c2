// Package memory is an in-process implementation of the repository stores.
// It enforces the same uniqueness rules as the PostgreSQL schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"studytime-backend/internal/models"
	"studytime-backend/internal/repository"
)

// Store holds sessions, breaks, subjects and semesters. The zero value is
// not usable; call New.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]models.StudySession
	breaks    map[string]models.Break
	subjects  map[string]models.Subject
	semesters map[string]models.Semester
}

func New() *Store {
	return &Store{
		sessions:  make(map[string]models.StudySession),
		breaks:    make(map[string]models.Break),
		subjects:  make(map[string]models.Subject),
		semesters: make(map[string]models.Semester),
	}
}

var _ repository.Transactor = (*Store)(nil)

// Sessions returns a view of the store satisfying repository.SessionStore.
func (s *Store) Sessions() *SessionStore { return &SessionStore{s: s} }

// Breaks returns a view of the store satisfying repository.BreakStore.
func (s *Store) Breaks() *BreakStore { return &BreakStore{s: s} }

// Subjects returns a view of the store satisfying repository.SubjectStore.
func (s *Store) Subjects() *SubjectStore { return &SubjectStore{s} }

// Semesters returns a view of the store satisfying repository.SemesterStore.
func (s *Store) Semesters() *SemesterStore { return &SemesterStore{s} }

// WithinTx records an undo step for every write fn makes and replays them
// in reverse if fn fails.
func (s *Store) WithinTx(_ context.Context, fn func(repository.SessionStore, repository.BreakStore) error) error {
	j := &journal{}
	if err := fn(&SessionStore{s: s, j: j}, &BreakStore{s: s, j: j}); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

// journal collects undo steps. Steps run with Store.mu held.
type journal struct {
	undo []func()
}

func (j *journal) record(step func()) {
	if j != nil {
		j.undo = append(j.undo, step)
	}
}

type SessionStore struct {
	s *Store
	j *journal
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (r *SessionStore) Create(_ context.Context, sess *models.StudySession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.inFlightConflict(*sess) {
		return repository.ErrInFlightSession
	}
	r.s.sessions[sess.ID] = *sess

	id := sess.ID
	r.j.record(func() { delete(r.s.sessions, id) })
	return nil
}

func (r *SessionStore) FindByID(_ context.Context, id string) (*models.StudySession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (r *SessionStore) FindActiveByUserID(_ context.Context, userID string) (*models.StudySession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sess := range r.s.sessions {
		if sess.UserID == userID && inFlight(sess) {
			return &sess, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SessionStore) FindByUserID(_ context.Context, userID string) ([]models.StudySession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.StudySession
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *SessionStore) FindInFlightStartedBefore(_ context.Context, cutoff time.Time) ([]models.StudySession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.StudySession
	for _, sess := range r.s.sessions {
		if inFlight(sess) && sess.StartTime.Before(cutoff) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *SessionStore) Update(_ context.Context, sess *models.StudySession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.sessions[sess.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.inFlightConflict(*sess) {
		return repository.ErrInFlightSession
	}
	r.s.sessions[sess.ID] = *sess

	r.j.record(func() { r.s.sessions[old.ID] = old })
	return nil
}

func (r *SessionStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if old, ok := r.s.sessions[id]; ok {
		delete(r.s.sessions, id)
		r.j.record(func() { r.s.sessions[id] = old })
	}
	return nil
}

type BreakStore struct {
	s *Store
	j *journal
}

var _ repository.BreakStore = (*BreakStore)(nil)

func (r *BreakStore) Create(_ context.Context, b *models.Break) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if b.EndTime == nil {
		for _, other := range r.s.breaks {
			if other.SessionID == b.SessionID && other.EndTime == nil {
				return repository.ErrOpenBreak
			}
		}
	}
	r.s.breaks[b.ID] = *b

	id := b.ID
	r.j.record(func() { delete(r.s.breaks, id) })
	return nil
}

func (r *BreakStore) FindByID(_ context.Context, id string) (*models.Break, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.breaks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *BreakStore) FindBySessionID(_ context.Context, sessionID string) ([]models.Break, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Break
	for _, b := range r.s.breaks {
		if b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *BreakStore) Update(_ context.Context, b *models.Break) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.breaks[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.s.breaks[b.ID] = *b

	r.j.record(func() { r.s.breaks[old.ID] = old })
	return nil
}

func (r *BreakStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if old, ok := r.s.breaks[id]; ok {
		delete(r.s.breaks, id)
		r.j.record(func() { r.s.breaks[id] = old })
	}
	return nil
}

type SubjectStore struct{ s *Store }

var _ repository.SubjectStore = (*SubjectStore)(nil)

func (r *SubjectStore) Create(_ context.Context, subj *models.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.subjects[subj.ID] = *subj
	return nil
}

func (r *SubjectStore) FindByID(_ context.Context, id string) (*models.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	subj, ok := r.s.subjects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &subj, nil
}

func (r *SubjectStore) FindByUserID(_ context.Context, userID string) ([]models.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Subject
	for _, subj := range r.s.subjects {
		if subj.UserID == userID {
			out = append(out, subj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *SubjectStore) Update(_ context.Context, subj *models.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subjects[subj.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.subjects[subj.ID] = *subj
	return nil
}

type SemesterStore struct{ s *Store }

var _ repository.SemesterStore = (*SemesterStore)(nil)

func (r *SemesterStore) Create(_ context.Context, sem *models.Semester) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.semesters[sem.ID] = *sem
	return nil
}

func (r *SemesterStore) FindByID(_ context.Context, id string) (*models.Semester, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sem, ok := r.s.semesters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sem, nil
}

func (r *SemesterStore) FindByUserID(_ context.Context, userID string) ([]models.Semester, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Semester
	for _, sem := range r.s.semesters {
		if sem.UserID == userID {
			out = append(out, sem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *SemesterStore) Update(_ context.Context, sem *models.Semester) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.semesters[sem.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.semesters[sem.ID] = *sem
	return nil
}

func (r *SemesterStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.semesters, id)
	for subjID, subj := range r.s.subjects {
		if subj.SemesterID != nil && *subj.SemesterID == id {
			subj.SemesterID = nil
			r.s.subjects[subjID] = subj
		}
	}
	return nil
}

// inFlightConflict reports whether storing sess would give its user a second
// in-flight session. Callers hold mu.
func (s *Store) inFlightConflict(sess models.StudySession) bool {
	if !inFlight(sess) {
		return false
	}
	for id, other := range s.sessions {
		if id != sess.ID && other.UserID == sess.UserID && inFlight(other) {
			return true
		}
	}
	return false
}

func inFlight(s models.StudySession) bool {
	return s.Status == models.StatusActive || s.Status == models.StatusPaused
}

// Package boltstore persists sessions, breaks, subjects and semesters in a
// single BoltDB file. Records are stored as JSON keyed by ID.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"studytime-backend/internal/models"
	"studytime-backend/internal/repository"
)

var (
	sessionsBucket  = []byte("sessions")
	breaksBucket    = []byte("breaks")
	subjectsBucket  = []byte("subjects")
	semestersBucket = []byte("semesters")
)

var errDatabaseLocked = errors.New(
	"database file is locked: is another server instance using it?",
)

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
}

// Open creates or opens the database file and its buckets.
func Open(path string) (*Client, error) {
	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseOpen) || errors.Is(err, bolt.ErrTimeout) {
			return nil, errDatabaseLocked
		}
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucket, breaksBucket, subjectsBucket, semestersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Client{db}, nil
}

var _ repository.Transactor = (*Client)(nil)

func (c *Client) Sessions() *SessionStore { return &SessionStore{c: c} }

func (c *Client) Breaks() *BreakStore { return &BreakStore{c: c} }

func (c *Client) Subjects() *SubjectStore { return &SubjectStore{c} }

func (c *Client) Semesters() *SemesterStore { return &SemesterStore{c} }

// WithinTx runs fn inside one read-write transaction. Bolt rolls it back
// when fn returns an error.
func (c *Client) WithinTx(_ context.Context, fn func(repository.SessionStore, repository.BreakStore) error) error {
	return c.Update(func(tx *bolt.Tx) error {
		return fn(&SessionStore{c: c, tx: tx}, &BreakStore{c: c, tx: tx})
	})
}

// update runs fn in tx when the store is bound to one, otherwise in a new
// read-write transaction.
func (c *Client) update(tx *bolt.Tx, fn func(*bolt.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	return c.Update(fn)
}

func (c *Client) view(tx *bolt.Tx, fn func(*bolt.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	return c.View(fn)
}

type SessionStore struct {
	c  *Client
	tx *bolt.Tx
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (r *SessionStore) Create(_ context.Context, s *models.StudySession) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if err := checkInFlight(b, s); err != nil {
			return err
		}
		return put(b, s.ID, s)
	})
}

func (r *SessionStore) FindByID(_ context.Context, id string) (*models.StudySession, error) {
	var s models.StudySession
	err := r.c.view(r.tx, func(tx *bolt.Tx) error {
		return get(tx.Bucket(sessionsBucket), id, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionStore) FindActiveByUserID(_ context.Context, userID string) (*models.StudySession, error) {
	sessions, err := r.filter(func(s models.StudySession) bool {
		return s.UserID == userID && inFlight(s)
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, repository.ErrNotFound
	}
	return &sessions[0], nil
}

func (r *SessionStore) FindByUserID(_ context.Context, userID string) ([]models.StudySession, error) {
	sessions, err := r.filter(func(s models.StudySession) bool { return s.UserID == userID })
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.After(sessions[j].StartTime) })
	return sessions, nil
}

func (r *SessionStore) FindInFlightStartedBefore(_ context.Context, cutoff time.Time) ([]models.StudySession, error) {
	sessions, err := r.filter(func(s models.StudySession) bool {
		return inFlight(s) && s.StartTime.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func (r *SessionStore) Update(_ context.Context, s *models.StudySession) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b.Get([]byte(s.ID)) == nil {
			return repository.ErrNotFound
		}
		if err := checkInFlight(b, s); err != nil {
			return err
		}
		return put(b, s.ID, s)
	})
}

func (r *SessionStore) Delete(_ context.Context, id string) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
}

func (r *SessionStore) filter(keep func(models.StudySession) bool) ([]models.StudySession, error) {
	var out []models.StudySession
	err := r.c.view(r.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(_, v []byte) error {
			var s models.StudySession
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if keep(s) {
				out = append(out, s)
			}
			return nil
		})
	})
	return out, err
}

type BreakStore struct {
	c  *Client
	tx *bolt.Tx
}

var _ repository.BreakStore = (*BreakStore)(nil)

func (r *BreakStore) Create(_ context.Context, br *models.Break) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(breaksBucket)
		if br.EndTime == nil {
			err := b.ForEach(func(_, v []byte) error {
				var other models.Break
				if err := json.Unmarshal(v, &other); err != nil {
					return err
				}
				if other.SessionID == br.SessionID && other.EndTime == nil {
					return repository.ErrOpenBreak
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return put(b, br.ID, br)
	})
}

func (r *BreakStore) FindByID(_ context.Context, id string) (*models.Break, error) {
	var br models.Break
	err := r.c.view(r.tx, func(tx *bolt.Tx) error {
		return get(tx.Bucket(breaksBucket), id, &br)
	})
	if err != nil {
		return nil, err
	}
	return &br, nil
}

func (r *BreakStore) FindBySessionID(_ context.Context, sessionID string) ([]models.Break, error) {
	var out []models.Break
	err := r.c.view(r.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(breaksBucket).ForEach(func(_, v []byte) error {
			var br models.Break
			if err := json.Unmarshal(v, &br); err != nil {
				return err
			}
			if br.SessionID == sessionID {
				out = append(out, br)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *BreakStore) Update(_ context.Context, br *models.Break) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(breaksBucket)
		if b.Get([]byte(br.ID)) == nil {
			return repository.ErrNotFound
		}
		return put(b, br.ID, br)
	})
}

func (r *BreakStore) Delete(_ context.Context, id string) error {
	return r.c.update(r.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(breaksBucket).Delete([]byte(id))
	})
}

type SubjectStore struct{ c *Client }

var _ repository.SubjectStore = (*SubjectStore)(nil)

func (r *SubjectStore) Create(_ context.Context, s *models.Subject) error {
	return r.c.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(subjectsBucket), s.ID, s)
	})
}

func (r *SubjectStore) FindByID(_ context.Context, id string) (*models.Subject, error) {
	var s models.Subject
	err := r.c.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(subjectsBucket), id, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubjectStore) FindByUserID(_ context.Context, userID string) ([]models.Subject, error) {
	var out []models.Subject
	err := r.c.View(func(tx *bolt.Tx) error {
		return tx.Bucket(subjectsBucket).ForEach(func(_, v []byte) error {
			var s models.Subject
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if s.UserID == userID {
				out = append(out, s)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *SubjectStore) Update(_ context.Context, s *models.Subject) error {
	return r.c.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(subjectsBucket)
		if b.Get([]byte(s.ID)) == nil {
			return repository.ErrNotFound
		}
		return put(b, s.ID, s)
	})
}

type SemesterStore struct{ c *Client }

var _ repository.SemesterStore = (*SemesterStore)(nil)

func (r *SemesterStore) Create(_ context.Context, s *models.Semester) error {
	return r.c.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(semestersBucket), s.ID, s)
	})
}

func (r *SemesterStore) FindByID(_ context.Context, id string) (*models.Semester, error) {
	var s models.Semester
	err := r.c.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(semestersBucket), id, &s)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SemesterStore) FindByUserID(_ context.Context, userID string) ([]models.Semester, error) {
	var out []models.Semester
	err := r.c.View(func(tx *bolt.Tx) error {
		return tx.Bucket(semestersBucket).ForEach(func(_, v []byte) error {
			var s models.Semester
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if s.UserID == userID {
				out = append(out, s)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *SemesterStore) Update(_ context.Context, s *models.Semester) error {
	return r.c.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(semestersBucket)
		if b.Get([]byte(s.ID)) == nil {
			return repository.ErrNotFound
		}
		return put(b, s.ID, s)
	})
}

// Delete removes the semester and clears it from its subjects in the same
// transaction.
func (r *SemesterStore) Delete(_ context.Context, id string) error {
	return r.c.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(semestersBucket).Delete([]byte(id)); err != nil {
			return err
		}

		subjects := tx.Bucket(subjectsBucket)
		var detached []models.Subject
		err := subjects.ForEach(func(_, v []byte) error {
			var s models.Subject
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if s.SemesterID != nil && *s.SemesterID == id {
				s.SemesterID = nil
				detached = append(detached, s)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for i := range detached {
			if err := put(subjects, detached[i].ID, &detached[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(b *bolt.Bucket, id string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), value)
}

func get(b *bolt.Bucket, id string, v any) error {
	value := b.Get([]byte(id))
	if value == nil {
		return repository.ErrNotFound
	}
	return json.Unmarshal(value, v)
}

// checkInFlight rejects s if another in-flight session of the same user is
// already stored.
func checkInFlight(b *bolt.Bucket, s *models.StudySession) error {
	if !inFlight(*s) {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		if string(k) == s.ID {
			return nil
		}
		var other models.StudySession
		if err := json.Unmarshal(v, &other); err != nil {
			return err
		}
		if other.UserID == s.UserID && inFlight(other) {
			return repository.ErrInFlightSession
		}
		return nil
	})
}

func inFlight(s models.StudySession) bool {
	return s.Status == models.StatusActive || s.Status == models.StatusPaused
}

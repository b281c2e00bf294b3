package inmemdb

import (
	"context"
	"time"

	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) checkin.SessionRepository {
	return &sessionRepository{db: db.session}
}

func sessionKey(activityID string, date time.Time) string {
	return activityID + "|" + date.UTC().Format("2006-01-02")
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess checkin.Session) (checkin.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := sessionKey(sess.ActivityID, sess.Date)
	if sess.IsActive {
		if blockerID, ok := repo.db.activeKeys[key]; ok {
			blocker := repo.db.table[blockerID]
			if blocker.Open(sess.CreatedAt) {
				return checkin.Session{}, checkin.ErrSessionAlreadyActive
			}
			// expired but never swept; release the slot
			blocker.IsActive = false
			blocker.UpdatedAt = sess.CreatedAt
			delete(repo.db.activeKeys, key)
		}
		repo.db.activeKeys[key] = sess.ID
	}
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (checkin.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return checkin.Session{}, checkin.ErrSessionNotFound
}

func (repo *sessionRepository) GetSessionByToken(ctx context.Context, tok string) (checkin.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.Token == tok {
			return *sess, nil
		}
	}
	return checkin.Session{}, checkin.ErrSessionNotFound
}

func (repo *sessionRepository) DeactivateSession(ctx context.Context, id string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[id]
	if !ok {
		return checkin.ErrSessionNotFound
	}
	if sess.IsActive {
		sess.IsActive = false
		sess.UpdatedAt = at
		delete(repo.db.activeKeys, sessionKey(sess.ActivityID, sess.Date))
	}
	return nil
}

func (repo *sessionRepository) AddPresentStudent(ctx context.Context, sessionID, studentID string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[sessionID]
	if !ok {
		return checkin.ErrSessionNotFound
	}
	for _, id := range sess.PresentIDs {
		if id == studentID {
			return nil
		}
	}
	sess.PresentIDs = append(sess.PresentIDs, studentID)
	sess.UpdatedAt = at
	return nil
}

func (repo *sessionRepository) DeactivateExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, sess := range repo.db.table {
		if sess.IsActive && sess.ExpiresAt.Before(before) {
			sess.IsActive = false
			sess.UpdatedAt = before
			delete(repo.db.activeKeys, sessionKey(sess.ActivityID, sess.Date))
			n++
		}
	}
	return n, nil
}

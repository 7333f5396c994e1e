// Package storage provides the single file-backed store for the wellness
// dashboard. It uses BoltDB to keep user accounts, session tokens, prediction
// audit rows, medication reminders and daily symptom logs, each in its own
// bucket.
//
// Every write is a single per-row insert; no cross-request ordering or
// transactional guarantee is required beyond per-row atomicity.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	usersBucket       = "users"       // username -> User
	sessionsBucket    = "sessions"    // token -> Session
	predictionsBucket = "predictions" // userID_timestamp -> PredictionRow
	remindersBucket   = "reminders"   // userID_reminderID -> Reminder
	symptomsBucket    = "symptoms"    // userID_date -> SymptomEntry
)

var (
	ErrUserExists      = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Store provides persistent storage backed by a single BoltDB file.
type Store struct {
	db *bbolt.DB
}

// New opens the database under dataPath and creates the buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "voicewell.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersBucket, sessionsBucket, predictionsBucket, remindersBucket, symptomsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// User is an account row. PasswordHash is a bcrypt hash, never the password.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts a new account. Fails with ErrUserExists when the
// username is taken.
func (s *Store) CreateUser(username, email string, passwordHash []byte) (User, error) {
	var user User
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(usersBucket))
		if b.Get([]byte(username)) != nil {
			return ErrUserExists
		}

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		user = User{
			ID:           id,
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    time.Now().UTC(),
		}

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return b.Put([]byte(username), data)
	})
	return user, err
}

// GetUser looks an account up by username.
func (s *Store) GetUser(username string) (User, error) {
	var user User
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(usersBucket)).Get([]byte(username))
		if data == nil {
			return ErrUserNotFound
		}
		return json.Unmarshal(data, &user)
	})
	return user, err
}

// Session ties an opaque token to an account until it expires.
type Session struct {
	Token     string    `json:"token"`
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PutSession stores a session row keyed by its token.
func (s *Store) PutSession(sess Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		return tx.Bucket([]byte(sessionsBucket)).Put([]byte(sess.Token), data)
	})
}

// GetSession resolves a token. Expired sessions are deleted on access and
// reported as ErrSessionNotFound.
func (s *Store) GetSession(token string) (Session, error) {
	var sess Session
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket))
		data := b.Get([]byte(token))
		if data == nil {
			return ErrSessionNotFound
		}
		if err := json.Unmarshal(data, &sess); err != nil {
			return err
		}
		if time.Now().After(sess.ExpiresAt) {
			_ = b.Delete([]byte(token))
			return ErrSessionNotFound
		}
		return nil
	})
	return sess, err
}

// DeleteSession removes a token (logout).
func (s *Store) DeleteSession(token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Delete([]byte(token))
	})
}

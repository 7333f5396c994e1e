package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

// ErrReminderNotFound is returned when a reminder ID does not exist for the
// given user.
var ErrReminderNotFound = errors.New("reminder not found")

// Reminder is a medication reminder row owned by a single user.
type Reminder struct {
	ID           uint64 `json:"id"`
	UserID       uint64 `json:"user_id"`
	Title        string `json:"title"`
	Dosage       string `json:"dosage,omitempty"`
	ScheduleTime string `json:"schedule_time"` // "08:00"
	ScheduleDays string `json:"schedule_days"` // "Mon,Wed,Fri"
	Active       bool   `json:"active"`
}

// CreateReminder inserts a reminder and assigns its ID.
func (s *Store) CreateReminder(rem Reminder) (Reminder, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(remindersBucket))

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		rem.ID = id

		data, err := json.Marshal(rem)
		if err != nil {
			return fmt.Errorf("marshal reminder: %w", err)
		}
		return b.Put(reminderKey(rem.UserID, rem.ID), data)
	})
	return rem, err
}

// UpdateReminder overwrites an existing reminder row.
func (s *Store) UpdateReminder(rem Reminder) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(remindersBucket))
		key := reminderKey(rem.UserID, rem.ID)
		if b.Get(key) == nil {
			return ErrReminderNotFound
		}
		data, err := json.Marshal(rem)
		if err != nil {
			return fmt.Errorf("marshal reminder: %w", err)
		}
		return b.Put(key, data)
	})
}

// DeleteReminder removes a reminder owned by the user.
func (s *Store) DeleteReminder(userID, id uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(remindersBucket))
		key := reminderKey(userID, id)
		if b.Get(key) == nil {
			return ErrReminderNotFound
		}
		return b.Delete(key)
	})
}

// ListReminders returns all reminders owned by the user.
func (s *Store) ListReminders(userID uint64) ([]Reminder, error) {
	var reminders []Reminder

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(remindersBucket)).Cursor()
		prefix := []byte(fmt.Sprintf("%d_", userID))

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rem Reminder
			if err := json.Unmarshal(v, &rem); err != nil {
				continue
			}
			reminders = append(reminders, rem)
		}
		return nil
	})

	return reminders, err
}

func reminderKey(userID, id uint64) []byte {
	return []byte(fmt.Sprintf("%d_%d", userID, id))
}

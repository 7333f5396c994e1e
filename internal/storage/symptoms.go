package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

// ErrSymptomEntryNotFound is returned when no log exists for the given user
// and date.
var ErrSymptomEntryNotFound = errors.New("symptom entry not found")

// SymptomEntry is a daily self-assessment row owned by a single user. One
// entry per calendar day; saving the same date again overwrites it. Scores
// are 0-10 severity scales except Mood, which runs 0 (very poor) to 10
// (excellent).
type SymptomEntry struct {
	UserID       uint64 `json:"user_id"`
	Date         string `json:"date"` // "2006-01-02"
	Tremor       int    `json:"tremor"`
	Rigidity     int    `json:"rigidity"`
	Bradykinesia int    `json:"bradykinesia"`
	Speech       int    `json:"speech"`
	Mood         int    `json:"mood"`
	Notes        string `json:"notes,omitempty"`
}

// UpsertSymptoms saves the day's assessment, replacing any earlier entry for
// the same date.
func (s *Store) UpsertSymptoms(entry SymptomEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal symptom entry: %w", err)
		}
		return tx.Bucket([]byte(symptomsBucket)).Put(symptomKey(entry.UserID, entry.Date), data)
	})
}

// ListSymptoms returns a user's entries with from <= date <= to, ordered by
// date. ISO dates sort lexicographically, so one cursor range scan suffices.
func (s *Store) ListSymptoms(userID uint64, from, to string) ([]SymptomEntry, error) {
	var entries []SymptomEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(symptomsBucket)).Cursor()

		prefix := []byte(fmt.Sprintf("%d_", userID))
		startKey := symptomKey(userID, from)
		endKey := symptomKey(userID, to)

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			var entry SymptomEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})

	return entries, err
}

// DeleteSymptoms removes the entry for one date.
func (s *Store) DeleteSymptoms(userID uint64, date string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(symptomsBucket))
		key := symptomKey(userID, date)
		if b.Get(key) == nil {
			return ErrSymptomEntryNotFound
		}
		return b.Delete(key)
	})
}

func symptomKey(userID uint64, date string) []byte {
	return []byte(fmt.Sprintf("%d_%s", userID, date))
}

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"voicewell/internal/model"

	"go.etcd.io/bbolt"
)

// PredictionRow is one served prediction persisted for history and audit.
type PredictionRow struct {
	UserID    uint64                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Result    model.PredictionResult `json:"result"`
}

// StorePrediction appends an audit row keyed "userID_timestamp" for
// efficient per-user range scans.
func (s *Store) StorePrediction(row PredictionRow) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal prediction row: %w", err)
		}

		key := fmt.Sprintf("%d_%d", row.UserID, row.Timestamp.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetPredictions returns a user's audit rows within a time range, inclusive
// of both ends, ordered by timestamp.
func (s *Store) GetPredictions(userID uint64, start, end time.Time) ([]PredictionRow, error) {
	var rows []PredictionRow

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		prefix := []byte(fmt.Sprintf("%d_", userID))
		startKey := []byte(fmt.Sprintf("%d_%d", userID, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%d_%d", userID, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var row PredictionRow
			if err := json.Unmarshal(v, &row); err != nil {
				continue // Skip malformed records
			}
			rows = append(rows, row)
		}

		return nil
	})

	return rows, err
}

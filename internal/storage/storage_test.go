package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicewell/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "alice@example.com", []byte("$2a$10$hash"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := s.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, []byte("$2a$10$hash"), got.PasswordHash)

	_, err = s.CreateUser("alice", "other@example.com", []byte("x"))
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.GetUser("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	sess := Session{
		Token:     "tok-1",
		UserID:    7,
		Username:  "alice",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, s.PutSession(sess))

	got, err := s.GetSession("tok-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.UserID)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, s.DeleteSession("tok-1"))
	_, err = s.GetSession("tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpiredSessionRemovedOnAccess(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutSession(Session{
		Token:     "stale",
		UserID:    7,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := s.GetSession("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleted on first access, still gone afterwards.
	_, err = s.GetSession("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPredictionHistoryRange(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.StorePrediction(PredictionRow{
			UserID:    1,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Result: model.PredictionResult{
				Label:      model.LabelHealthy,
				Confidence: 0.2 + float64(i)*0.1,
				Timestamp:  base.Add(time.Duration(i) * time.Hour),
			},
		}))
	}
	// A different user's row must not leak into user 1's history.
	require.NoError(t, s.StorePrediction(PredictionRow{
		UserID:    11,
		Timestamp: base,
		Result:    model.PredictionResult{Label: model.LabelParkinsons, Confidence: 0.9},
	}))

	rows, err := s.GetPredictions(1, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, base, rows[0].Timestamp)
	assert.Equal(t, base.Add(time.Hour), rows[1].Timestamp)
	for _, row := range rows {
		assert.Equal(t, uint64(1), row.UserID)
	}

	all, err := s.GetPredictions(1, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.GetPredictions(2, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSymptomLogUpsertAndRange(t *testing.T) {
	s := newTestStore(t)

	for day, entry := range map[string]SymptomEntry{
		"2026-03-01": {Tremor: 3, Rigidity: 2, Bradykinesia: 4, Speech: 1, Mood: 6},
		"2026-03-02": {Tremor: 4, Rigidity: 3, Bradykinesia: 4, Speech: 2, Mood: 5},
		"2026-03-05": {Tremor: 2, Rigidity: 2, Bradykinesia: 3, Speech: 1, Mood: 7},
	} {
		entry.UserID = 1
		entry.Date = day
		require.NoError(t, s.UpsertSymptoms(entry))
	}
	// Another user's log on an overlapping date.
	require.NoError(t, s.UpsertSymptoms(SymptomEntry{UserID: 2, Date: "2026-03-02", Mood: 9}))

	entries, err := s.ListSymptoms(1, "2026-03-01", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-03-01", entries[0].Date)
	assert.Equal(t, "2026-03-02", entries[1].Date)
	for _, e := range entries {
		assert.Equal(t, uint64(1), e.UserID)
	}

	// Saving the same date again overwrites, never duplicates.
	require.NoError(t, s.UpsertSymptoms(SymptomEntry{
		UserID: 1, Date: "2026-03-02", Tremor: 7, Notes: "worse in the morning",
	}))
	entries, err = s.ListSymptoms(1, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Tremor)
	assert.Equal(t, "worse in the morning", entries[0].Notes)

	all, err := s.ListSymptoms(1, "0000-00-00", "9999-12-31")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSymptomLogDelete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertSymptoms(SymptomEntry{UserID: 1, Date: "2026-03-01", Mood: 5}))
	require.NoError(t, s.DeleteSymptoms(1, "2026-03-01"))
	assert.ErrorIs(t, s.DeleteSymptoms(1, "2026-03-01"), ErrSymptomEntryNotFound)

	entries, err := s.ListSymptoms(1, "0000-00-00", "9999-12-31")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReminderCRUD(t *testing.T) {
	s := newTestStore(t)

	rem, err := s.CreateReminder(Reminder{
		UserID:       1,
		Title:        "Levodopa",
		Dosage:       "100mg",
		ScheduleTime: "08:00",
		ScheduleDays: "Mon,Wed,Fri",
		Active:       true,
	})
	require.NoError(t, err)
	assert.NotZero(t, rem.ID)

	other, err := s.CreateReminder(Reminder{UserID: 2, Title: "Vitamin D", ScheduleTime: "09:00"})
	require.NoError(t, err)

	list, err := s.ListReminders(1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Levodopa", list[0].Title)

	rem.Dosage = "150mg"
	rem.Active = false
	require.NoError(t, s.UpdateReminder(rem))

	list, err = s.ListReminders(1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "150mg", list[0].Dosage)
	assert.False(t, list[0].Active)

	err = s.UpdateReminder(Reminder{UserID: 1, ID: 999, Title: "ghost"})
	assert.ErrorIs(t, err, ErrReminderNotFound)

	require.NoError(t, s.DeleteReminder(1, rem.ID))
	assert.ErrorIs(t, s.DeleteReminder(1, rem.ID), ErrReminderNotFound)

	list, err = s.ListReminders(1)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Other user's reminder untouched.
	list, err = s.ListReminders(2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}

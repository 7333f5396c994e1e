package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicewell/internal/model"
)

func TestLoginTagsLaterRequests(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req["username"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token":      "tok-123",
				"expires_at": time.Now().Add(time.Hour),
			})
		case "/api/predict":
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(model.PredictionResult{
				Label:      model.LabelHealthy,
				Confidence: 0.27,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	require.NoError(t, c.Login("alice", "correct-horse"))

	result, err := c.Predict(map[string]float64{"HNR": 26.77})
	require.NoError(t, err)
	assert.Equal(t, model.LabelHealthy, result.Label)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestLoginReportsServerRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	err := c.Login("alice", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPredictSurfacesValidationError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing required fields: HNR", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	_, err := c.Predict(map[string]float64{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields: HNR")
}

func TestPredictCSVSendsRawPayload(t *testing.T) {
	payload := "h1,h2\n1,2\n"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predict/csv", r.URL.Path)
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(BatchResponse{
			Results:   []model.PredictionResult{{Label: model.LabelParkinsons, Confidence: 0.93}},
			RowErrors: []string{"row 2: field HNR: value \"oops\" is not a finite number"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	batch, err := c.PredictCSV([]byte(payload))
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, model.LabelParkinsons, batch.Results[0].Label)
	require.Len(t, batch.RowErrors, 1)
}

func TestModelInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/model/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"version":   "test-0001",
			"algorithm": "LogisticRegression",
			"threshold": 0.5,
		})
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	info, err := c.ModelInfo()
	require.NoError(t, err)
	assert.Equal(t, "test-0001", info["version"])
	assert.Equal(t, 0.5, info["threshold"])
}

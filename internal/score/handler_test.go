package score

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sod/frsod/internal/database"
	"github.com/go-sod/frsod/internal/model"
	modeldb "github.com/go-sod/frsod/internal/model/database"
	"github.com/go-sod/frsod/internal/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{
		FileName:    filepath.Join(t.TempDir(), "score.db"),
		OpenTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	reg, err := registry.New(modeldb.New(db))
	require.NoError(t, err)
	require.NoError(t, reg.Run(ctx))

	h, err := NewHandler(cfg, reg)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func fitModel(t *testing.T, h http.Handler, body string) fitResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/models", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp fitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const blobsBody = `{
	"name": "blobs",
	"algorithm": "frnn",
	"k": 3,
	"train": [[0, 0], [0.2, 0.1], [4.8, 5], [5.1, 4.9], [9.9, 10.2], [10.1, 9.8]],
	"labels": [0, 0, 1, 1, 2, 2]
}`

func TestHandler_Classifier(t *testing.T) {
	h := newTestHandler(t, &Config{RequestTimeout: 5 * time.Second, MaxQueryRows: 10})
	fit := fitModel(t, h, blobsBody)
	assert.Equal(t, 3, fit.Classes)

	query := `{"data": [[0.1, 0.1], [5, 5], [10, 10]]}`

	w := do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/predict", query)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var classes classesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &classes))
	assert.Equal(t, []int{0, 1, 2}, classes.Classes)

	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/scores", query)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scores scoresResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scores))
	require.Len(t, scores.Scores, 3)
	for _, row := range scores.Scores {
		assert.Len(t, row, 3)
	}

	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/proba", query)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var proba probaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proba))
	for _, row := range proba.Probabilities {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}

	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/predict", `{"data": []}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/anomaly", query)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Models, 1)
	assert.Equal(t, fit.ID, list.Models[0].ID)
	assert.Equal(t, 6, list.Models[0].Rows)
	assert.Equal(t, 2, list.Models[0].Features)
	assert.Equal(t, "MIN", string(list.Models[0].TNorm))

	w = do(t, h, http.MethodDelete, "/models/"+fit.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/predict", query)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Novelty(t *testing.T) {
	h := newTestHandler(t, &Config{RequestTimeout: 5 * time.Second})
	fit := fitModel(t, h, `{
		"algorithm": "NND",
		"k": 2,
		"normalise": false,
		"train": [[0, 0.1], [0.2, -0.1], [-0.1, 0], [0.1, 0.2]]
	}`)
	assert.Equal(t, 0, fit.Classes)

	w := do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/anomaly", `{"data": [[0, 0], [3, 3]]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp anomalyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []float64{0, 1}, resp.Anomaly)

	w = do(t, h, http.MethodPost, "/models/"+fit.ID.String()+"/proba", `{"data": [[0, 0]]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Errors(t *testing.T) {
	h := newTestHandler(t, &Config{RequestTimeout: 5 * time.Second, MaxQueryRows: 2, MaxClasses: 8})
	fit := fitModel(t, h, blobsBody)
	scoresPath := "/models/" + fit.ID.String() + "/scores"

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		noJSON   bool
		expected int
	}{
		{name: "label_mismatch", method: http.MethodPost, path: "/models", body: `{"train": [[0], [1]], "labels": [0]}`, expected: http.StatusBadRequest},
		{name: "empty_train", method: http.MethodPost, path: "/models", body: `{"train": [], "labels": []}`, expected: http.StatusBadRequest},
		{name: "ragged_train", method: http.MethodPost, path: "/models", body: `{"train": [[0, 1], [1]], "labels": [0, 1]}`, expected: http.StatusBadRequest},
		{name: "unknown_algorithm", method: http.MethodPost, path: "/models", body: `{"algorithm": "LOF", "train": [[0]]}`, expected: http.StatusBadRequest},
		{name: "zero_k_uses_default", method: http.MethodPost, path: "/models", body: `{"algorithm": "NN", "train": [[0], [1]], "labels": [0, 1]}`, expected: http.StatusCreated},
		{name: "too_many_classes", method: http.MethodPost, path: "/models", body: `{"train": [[0], [1]], "labels": [0, 4000000000]}`, expected: http.StatusBadRequest},
		{name: "negative_k", method: http.MethodPost, path: "/models", body: `{"k": -1, "train": [[0]], "labels": [0]}`, expected: http.StatusBadRequest},
		{name: "malformed_json", method: http.MethodPost, path: "/models", body: `{"train": [[0]`, expected: http.StatusBadRequest},
		{name: "unknown_field", method: http.MethodPost, path: "/models", body: `{"rows": 1}`, expected: http.StatusBadRequest},
		{name: "not_json", method: http.MethodPost, path: "/models", body: `{}`, noJSON: true, expected: http.StatusUnsupportedMediaType},
		{name: "unknown_model", method: http.MethodPost, path: "/models/" + uuid.NewString() + "/scores", body: `{"data": [[0, 0]]}`, expected: http.StatusNotFound},
		{name: "bad_model_id", method: http.MethodPost, path: "/models/nope/scores", body: `{"data": [[0, 0]]}`, expected: http.StatusNotFound},
		{name: "feature_mismatch", method: http.MethodPost, path: scoresPath, body: `{"data": [[0, 0, 0]]}`, expected: http.StatusBadRequest},
		{name: "too_many_rows", method: http.MethodPost, path: scoresPath, body: `{"data": [[0, 0], [1, 1], [2, 2]]}`, expected: http.StatusBadRequest},
		{name: "wrong_method", method: http.MethodGet, path: scoresPath, expected: http.StatusMethodNotAllowed},
		{name: "delete_unknown", method: http.MethodDelete, path: "/models/" + uuid.NewString(), expected: http.StatusNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if test.noJSON {
				r := httptest.NewRequest(test.method, test.path, bytes.NewBufferString(test.body))
				w = httptest.NewRecorder()
				h.ServeHTTP(w, r)
			} else {
				w = do(t, h, test.method, test.path, test.body)
			}
			assert.Equal(t, test.expected, w.Code, w.Body.String())
			if test.expected >= 400 && test.expected != http.StatusMethodNotAllowed {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

type slowScorer struct {
	registry.Scorer
	fitErr chan error
}

func (s *slowScorer) Fit(ctx context.Context, _ *model.Spec) (*registry.Entry, error) {
	<-ctx.Done()
	s.fitErr <- ctx.Err()
	return nil, ctx.Err()
}

func TestHandler_FitTimeout(t *testing.T) {
	scorer := &slowScorer{fitErr: make(chan error, 1)}
	h, err := NewHandler(&Config{RequestTimeout: 20 * time.Millisecond}, scorer)
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/models", blobsBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	select {
	case err := <-scorer.fitErr:
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("fit did not see the request deadline")
	}
}

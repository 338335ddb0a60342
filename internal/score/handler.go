// Package score serves model registration and scoring over HTTP.
package score

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/httputil"
	"github.com/go-sod/frsod/internal/logging"
	"github.com/go-sod/frsod/internal/model"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/registry"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/go-sod/frsod/pkg/math/vector"
	"github.com/google/uuid"
)

const maxBodyBytes = 64 * 1024 * 1024

type Config struct {
	RequestTimeout time.Duration `envconfig:"FRSOD_SCORE_REQUEST_TIMEOUT" default:"30s"`
	MaxQueryRows   int           `envconfig:"FRSOD_SCORE_MAX_QUERY_ROWS" default:"10000"`
	MaxClasses     int           `envconfig:"FRSOD_SCORE_MAX_CLASSES" default:"1024"`
}

type fitRequest struct {
	Name      string      `json:"name"`
	Algorithm string      `json:"algorithm"`
	K         int         `json:"k"`
	Metric    string      `json:"metric"`
	TNorm     string      `json:"tnorm"`
	Normalise *bool       `json:"normalise"`
	Train     [][]float64 `json:"train"`
	Labels    []int       `json:"labels"`
}

type fitResponse struct {
	ID      uuid.UUID `json:"id"`
	Classes int       `json:"classes"`
}

type modelItem struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name,omitempty"`
	Algorithm   predictor.AlgType `json:"algorithm"`
	K           int               `json:"k"`
	Metric      geom.Metric       `json:"metric"`
	TNorm       fuzzy.TNorm       `json:"tnorm,omitempty"`
	Normalise   bool              `json:"normalise"`
	Rows        int               `json:"rows"`
	Features    int               `json:"features"`
	Classes     int               `json:"classes"`
	Fingerprint string            `json:"fingerprint"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type listResponse struct {
	Models []modelItem `json:"models"`
}

type queryRequest struct {
	Data [][]float64 `json:"data"`
}

type scoresResponse struct {
	Scores [][]float64 `json:"scores"`
}

type classesResponse struct {
	Classes []int `json:"classes"`
}

type probaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

type anomalyResponse struct {
	Anomaly []float64 `json:"anomaly"`
}

// NewHandler routes the model API onto a mux.
func NewHandler(cfg *Config, scorer registry.Scorer) (http.Handler, error) {
	if scorer == nil {
		return nil, errors.New("registry instance is not created")
	}
	h := &handler{cfg: cfg, scorer: scorer}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /models", h.fit)
	mux.HandleFunc("GET /models", h.list)
	mux.HandleFunc("DELETE /models/{id}", h.delete)
	mux.HandleFunc("POST /models/{id}/scores", h.scores)
	mux.HandleFunc("POST /models/{id}/predict", h.predict)
	mux.HandleFunc("POST /models/{id}/proba", h.proba)
	mux.HandleFunc("POST /models/{id}/anomaly", h.anomaly)
	return mux, nil
}

type handler struct {
	cfg    *Config
	scorer registry.Scorer
}

// decode reads a JSON body into v, writing the error response itself.
func (h *handler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !httputil.IsJSON(r) {
		httputil.RespError(ctx, w, http.StatusUnsupportedMediaType, "content-type is not application/json")
		return false
	}
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return false
	}
	return true
}

// call runs fn within the request timeout. The scoring code does not watch
// the context, so an expired call is abandoned rather than interrupted; fn
// gets the deadline so it can skip side effects once the caller is gone.
func (h *handler) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if h.cfg.RequestTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(ctx)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handler) respErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrModelNotFound):
		httputil.RespNotFound(ctx, w, "%v", err)
	case errors.Is(err, predictor.ErrEmptyInput),
		errors.Is(err, predictor.ErrInvalidInput),
		errors.Is(err, predictor.ErrLabelLengthMismatch),
		errors.Is(err, matrix.ErrRagged),
		errors.Is(err, matrix.ErrShapeMismatch),
		errors.Is(err, vector.ErrLengthMismatch):
		httputil.RespBadRequest(ctx, w, "%v", err)
	case errors.Is(err, predictor.ErrNotFitted):
		httputil.RespError(ctx, w, http.StatusConflict, "%v", err)
	case errors.Is(err, registry.ErrClosed), errors.Is(err, context.DeadlineExceeded):
		httputil.RespError(ctx, w, http.StatusServiceUnavailable, "%v", err)
	default:
		httputil.RespInternalError(ctx, w, "request failed: %v", err)
	}
}

func (h *handler) fit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req fitRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	spec, err := req.spec()
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	if err := spec.CheckClasses(h.cfg.MaxClasses); err != nil {
		h.respErr(ctx, w, err)
		return
	}

	var entry *registry.Entry
	err = h.call(ctx, func(ctx context.Context) (err error) {
		entry, err = h.scorer.Fit(ctx, spec)
		return err
	})
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusCreated, fitResponse{ID: entry.Spec.ID, Classes: entry.Classes()})
}

func (req fitRequest) spec() (*model.Spec, error) {
	s := model.NewSpec(req.Name)
	var err error
	if req.Algorithm != "" {
		if s.Algorithm, err = predictor.ParseAlgType(req.Algorithm); err != nil {
			return nil, predictor.InvalidInputf("%v", err)
		}
	}
	if req.Metric != "" {
		if s.Metric, err = geom.ParseMetric(req.Metric); err != nil {
			return nil, predictor.InvalidInputf("%v", err)
		}
	}
	if req.TNorm != "" {
		if s.TNorm, err = fuzzy.ParseTNorm(req.TNorm); err != nil {
			return nil, predictor.InvalidInputf("%v", err)
		}
	}
	if req.K < 0 {
		return nil, predictor.InvalidInputf("k must be at least 1")
	}
	if s.Train, err = matrix.FromRows(req.Train); err != nil {
		return nil, err
	}
	s.K = req.K
	s.Normalise = req.Normalise == nil || *req.Normalise
	s.Labels = req.Labels
	return s, nil
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries := h.scorer.List()
	resp := listResponse{Models: make([]modelItem, 0, len(entries))}
	for _, e := range entries {
		item := modelItem{
			ID:          e.Spec.ID,
			Name:        e.Spec.Name,
			Algorithm:   e.Spec.Algorithm,
			K:           e.Spec.K,
			Metric:      e.Spec.Metric,
			TNorm:       e.Spec.TNorm,
			Normalise:   e.Spec.Normalise,
			Rows:        e.Spec.Rows(),
			Features:    e.Spec.Features(),
			Classes:     e.Classes(),
			Fingerprint: e.Spec.Fingerprint(),
			CreatedAt:   e.Spec.CreatedAt,
		}
		if err := e.Err(); err != nil {
			item.Error = err.Error()
		}
		resp.Models = append(resp.Models, item)
	}
	httputil.RespJSON(ctx, w, http.StatusOK, resp)
}

func (h *handler) modelID(ctx context.Context, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.RespNotFound(ctx, w, "%v: %q", registry.ErrModelNotFound, r.PathValue("id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.modelID(ctx, w, r)
	if !ok {
		return
	}
	if err := h.scorer.Delete(ctx, id); err != nil {
		h.respErr(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// query decodes the model id and the query rows. An empty data array yields
// a zero-row matrix with the model's feature count.
func (h *handler) query(w http.ResponseWriter, r *http.Request) (uuid.UUID, *matrix.Matrix, bool) {
	ctx := r.Context()
	id, ok := h.modelID(ctx, w, r)
	if !ok {
		return uuid.Nil, nil, false
	}
	entry, err := h.scorer.Get(id)
	if err != nil {
		h.respErr(ctx, w, err)
		return uuid.Nil, nil, false
	}

	var req queryRequest
	if !h.decode(ctx, w, r, &req) {
		return uuid.Nil, nil, false
	}
	if h.cfg.MaxQueryRows > 0 && len(req.Data) > h.cfg.MaxQueryRows {
		httputil.RespBadRequest(ctx, w, "data is too large, max allowed rows is %d", h.cfg.MaxQueryRows)
		return uuid.Nil, nil, false
	}
	if len(req.Data) == 0 {
		return id, matrix.New(0, entry.Spec.Features()), true
	}
	x, err := matrix.FromRows(req.Data)
	if err != nil {
		h.respErr(ctx, w, err)
		return uuid.Nil, nil, false
	}
	logging.FromContext(ctx).Debugf("scoring %d rows against model %s", x.Rows(), id)
	return id, x, true
}

func (h *handler) scores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, x, ok := h.query(w, r)
	if !ok {
		return
	}
	var out *matrix.Matrix
	err := h.call(ctx, func(ctx context.Context) (err error) {
		out, err = h.scorer.Scores(ctx, id, x)
		return err
	})
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, scoresResponse{Scores: out.ToRows()})
}

func (h *handler) predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, x, ok := h.query(w, r)
	if !ok {
		return
	}
	var out []int
	err := h.call(ctx, func(ctx context.Context) (err error) {
		out, err = h.scorer.Predict(ctx, id, x)
		return err
	})
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, classesResponse{Classes: out})
}

func (h *handler) proba(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, x, ok := h.query(w, r)
	if !ok {
		return
	}
	var out *matrix.Matrix
	err := h.call(ctx, func(ctx context.Context) (err error) {
		out, err = h.scorer.Proba(ctx, id, x)
		return err
	})
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, probaResponse{Probabilities: out.ToRows()})
}

func (h *handler) anomaly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, x, ok := h.query(w, r)
	if !ok {
		return
	}
	var out []float64
	err := h.call(ctx, func(ctx context.Context) (err error) {
		out, err = h.scorer.Anomaly(ctx, id, x)
		return err
	})
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, anomalyResponse{Anomaly: out})
}

// Package httputil writes JSON responses and maps request decoding errors
// to status codes.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-sod/frsod/internal/logging"
)

const contentTypeJSON = "application/json"

type errorBody struct {
	Error string `json:"error"`
}

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	t := r.Header.Get("content-type")
	return len(t) >= len(contentTypeJSON) && strings.EqualFold(t[:len(contentTypeJSON)], contentTypeJSON)
}

func DecodeErr(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		syntaxErr      *json.SyntaxError
		unmarshalError *json.UnmarshalTypeError
		maxBytesErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxErr):
		RespBadRequest(ctx, w, "malformed json at position %v", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		RespBadRequest(ctx, w, "malformed json")
	case errors.As(err, &unmarshalError):
		RespBadRequest(ctx, w, "invalid value %v at position %v", unmarshalError.Field, unmarshalError.Offset)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		RespBadRequest(ctx, w, "unknown field %s", fieldName)
	case errors.Is(err, io.EOF):
		RespBadRequest(ctx, w, "body must not be empty")
	case errors.As(err, &maxBytesErr):
		RespError(ctx, w, http.StatusRequestEntityTooLarge, "body must not be larger than %d bytes", maxBytesErr.Limit)
	default:
		RespInternalError(ctx, w, "failed to decode json %v", err)
	}
}

// RespError writes {"error": msg} with status.
func RespError(ctx context.Context, w http.ResponseWriter, status int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.FromContext(ctx).Debugf("response %d: %s", status, msg)
	writeJSON(ctx, w, status, errorBody{Error: msg})
}

func RespBadRequest(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	RespError(ctx, w, http.StatusBadRequest, format, args...)
}

func RespNotFound(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	RespError(ctx, w, http.StatusNotFound, format, args...)
}

// RespInternalError logs the cause and hides it from the client.
func RespInternalError(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	logging.FromContext(ctx).Errorf(format, args...)
	writeJSON(ctx, w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func RespJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	writeJSON(ctx, w, status, v)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logging.FromContext(ctx).Errorf("failed to encode output json %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

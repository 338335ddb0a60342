package server

import (
	"context"
	"net/http"

	"github.com/go-sod/frsod/internal/httputil"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports ok until ctx is done, then 503.
func HandleHealth(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			httputil.RespJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "shutting down"})
		default:
			httputil.RespJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
		}
	})
}

package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/mauv0809/ripple-snapshot/internal/public"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// RefreshHandler runs one snapshot refresh for external schedulers. A refresh
// skipped because another publisher holds the lock is still a 200.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		isDryRun := isDryRunFromContext(r)
		log.Info("Received refresh request", "dry_run", isDryRun)

		res, err := s.Refresher.Refresh(r.Context(), isDryRun)
		if err != nil {
			log.Error("Refresh request failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Snapshot refresh failed"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) PublicLeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Reader.Stable(r.Context())
		respond(w, res, err)
	}
}

func (s *Server) PublicDangerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Reader.Danger(r.Context())
		respond(w, res, err)
	}
}

func (s *Server) PublicMetadataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Reader.Meta(r.Context())
		respond(w, res, err)
	}
}

func respond(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, public.ErrDisabled):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: public.DisabledDetail})
	case err != nil:
		log.Error("Public read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Leaderboard is temporarily unavailable"})
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to encode response", "error", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Warn("Failed to write response", "error", err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"focuswatch/internal/database"
	"focuswatch/models"
)

// SessionSource exposes the current focus session.
type SessionSource interface {
	Current() (models.FocusSession, bool)
}

// TrailerSource exposes the trailer pipeline state.
type TrailerSource interface {
	State() models.TrailerState
}

// CacheSource exposes cache row counts.
type CacheSource interface {
	Counts() (map[database.Namespace]int, error)
}

// StatusHandler reports the live state of the service.
type StatusHandler struct {
	Sessions  SessionSource
	Trailer   TrailerSource
	Cache     CacheSource
	StartedAt time.Time
	Version   string
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptimeSeconds"`
	Session       *models.FocusSession       `json:"session,omitempty"`
	TrailerState  models.TrailerState        `json:"trailerState"`
	CacheCounts   map[database.Namespace]int `json:"cacheCounts"`
}

func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Cache.Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := StatusResponse{
		Version:       h.Version,
		UptimeSeconds: int64(time.Since(h.StartedAt).Seconds()),
		TrailerState:  h.Trailer.State(),
		CacheCounts:   counts,
	}
	if session, ok := h.Sessions.Current(); ok {
		resp.Session = &session
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

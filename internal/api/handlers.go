// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/log"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	controller.Status
	Running bool `json:"running"`
}

// ControlResponse is the body of start and stop.
type ControlResponse struct {
	// Changed is false when the call was a no-op.
	Changed bool             `json:"changed"`
	State   controller.State `json:"state"`
	Running bool             `json:"running"`
}

func (s *Server) currentStatus() StatusResponse {
	st, ok := s.hub.Latest()
	if !ok {
		st = controller.Status{State: s.ctrl.State(), UpdatedAt: time.Now().UTC()}
		if err := s.ctrl.LastError(); err != nil {
			st.LastError = err.Error()
		}
	}
	return StatusResponse{Status: st, Running: s.ctrl.Running()}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentStatus())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	changed := s.ctrl.Start()
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.start").
		Bool("changed", changed).
		Msg("start requested")

	code := http.StatusOK
	if changed {
		code = http.StatusAccepted
	}
	writeJSON(w, code, ControlResponse{Changed: changed, State: s.ctrl.State(), Running: s.ctrl.Running()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	changed := s.ctrl.Stop()
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.stop").
		Bool("changed", changed).
		Msg("stop requested")

	writeJSON(w, http.StatusOK, ControlResponse{Changed: changed, State: s.ctrl.State(), Running: s.ctrl.Running()})
}

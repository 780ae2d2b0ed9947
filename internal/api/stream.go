// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
)

// handleStatusStream pushes every published status as a JSON text frame.
// The first frame is the current status.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().Str(log.FieldEvent, "stream.open").Str("remote_addr", r.RemoteAddr).Msg("status stream opened")

	sub := s.hub.Subscribe()
	defer sub.Close()

	pongWait := 2 * s.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Client frames are ignored; reading surfaces close and disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = conn.Close()
		<-closed
	}()

	if _, ok := s.hub.Latest(); !ok {
		if err := s.writeFrame(conn, s.currentStatus()); err != nil {
			return
		}
	}

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			logger.Debug().Str(log.FieldEvent, "stream.closed").Msg("status stream closed by client")
			return
		case st, ok := <-sub.C():
			if !ok {
				return
			}
			if err := s.writeFrame(conn, StatusResponse{Status: st, Running: st.State != controller.StateIdle}); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, v StatusResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/rhythmserver/lobby"
	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
)

const maxLobbyBody = 64 << 10

func (s *GameServer) handleGetRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.opts.Lobby.ListRooms(r.Context())
	if err != nil {
		logger.Log.Errorf("list rooms: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLobbyBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	resp, err := s.opts.Lobby.CreateRoom(&req)
	if errors.Is(err, lobby.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.Log.Errorf("create room: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorMessage{Message: message})
}

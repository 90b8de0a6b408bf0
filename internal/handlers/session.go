// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcrit/critical/internal/auth"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/session"
)

// CreateSessionRequest is the POST /session/create body.
type CreateSessionRequest struct {
	RoomID           string                 `json:"roomId"`
	GameID           string                 `json:"gameId"`
	PlayerIDs        []string               `json:"playerIds"`
	Config           map[string]interface{} `json:"config,omitempty"`
	SpectatePasscode string                 `json:"spectatePasscode,omitempty"`
}

// CreateSessionResponse returns the new session id plus one
// session-scoped token per human seat.
type CreateSessionResponse struct {
	SessionID uuid.UUID         `json:"sessionId"`
	GameID    string            `json:"gameId"`
	Tokens    map[string]string `json:"tokens"`
}

// CreateSessionHandler opens a new session in a room.
func CreateSessionHandler(logger *logrus.Logger, facade *session.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.RoomID == "" || req.GameID == "" || len(req.PlayerIDs) == 0 {
			http.Error(w, "roomId, gameId and playerIds are required", http.StatusBadRequest)
			return
		}

		sess, err := facade.Create(r.Context(), session.CreateRequest{
			RoomID:           req.RoomID,
			GameID:           req.GameID,
			PlayerIDs:        req.PlayerIDs,
			Config:           req.Config,
			SpectatePasscode: req.SpectatePasscode,
		})
		if err != nil {
			switch {
			case errors.Is(err, session.ErrRoomBusy):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				if ruleErr, ok := engine.AsRuleError(err); ok {
					http.Error(w, ruleErr.Reason, http.StatusBadRequest)
					return
				}
				logger.WithError(err).Error("session create failed")
				http.Error(w, "failed to create session", http.StatusInternalServerError)
			}
			return
		}

		resp := CreateSessionResponse{
			SessionID: sess.ID,
			GameID:    sess.GameID,
			Tokens:    map[string]string{},
		}
		for _, pid := range sess.PlayerIDs {
			if session.IsBotID(pid) {
				continue
			}
			token, err := auth.CreateSessionJWT(pid, sess.ID.String())
			if err != nil {
				logger.WithError(err).Error("failed to mint session token")
				http.Error(w, "failed to create session", http.StatusInternalServerError)
				return
			}
			resp.Tokens[pid] = token
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

// GetSessionHandler returns the public summary of one session, with
// the state already run through the spectator sanitizer.
func GetSessionHandler(logger *logrus.Logger, facade *session.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/session/")
		if idStr == "" || strings.Contains(idStr, "/") {
			http.Error(w, "session id required (/session/{id})", http.StatusBadRequest)
			return
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}
		summary, err := facade.Snapshot(id)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("session snapshot failed")
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ListGamesHandler returns the registered engines.
func ListGamesHandler(registry *engine.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.List())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

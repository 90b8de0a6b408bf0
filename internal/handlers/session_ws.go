// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcrit/critical/internal/auth"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/middleware"
	"github.com/playcrit/critical/internal/session"
)

// SessionMessage is the envelope for incoming WebSocket messages. Type
// carries the action name; Payload the action arguments.
type SessionMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// sessionConns tracks the live sockets for one session.
type sessionConns struct {
	players    map[string]*websocket.Conn
	spectators map[*websocket.Conn]bool
}

// Hub fans sanitized state out to connected sockets. It satisfies
// session.Broadcaster.
type Hub struct {
	mu       sync.Mutex
	logger   *logrus.Logger
	sessions map[uuid.UUID]*sessionConns
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		logger:   logger,
		sessions: make(map[uuid.UUID]*sessionConns),
	}
}

func (h *Hub) conns(sessionID uuid.UUID) *sessionConns {
	sc, ok := h.sessions[sessionID]
	if !ok {
		sc = &sessionConns{
			players:    make(map[string]*websocket.Conn),
			spectators: make(map[*websocket.Conn]bool),
		}
		h.sessions[sessionID] = sc
	}
	return sc
}

// RegisterPlayer binds a player's socket, displacing any previous
// connection for the same seat.
func (h *Hub) RegisterPlayer(sessionID uuid.UUID, playerID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sc := h.conns(sessionID)
	if old, ok := sc.players[playerID]; ok && old != c {
		old.Close(websocket.StatusPolicyViolation, "Seat taken over by a newer connection.")
	}
	sc.players[playerID] = c
}

func (h *Hub) RegisterSpectator(sessionID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns(sessionID).spectators[c] = true
}

func (h *Hub) Unregister(sessionID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sc, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for pid, conn := range sc.players {
		if conn == c {
			delete(sc.players, pid)
		}
	}
	delete(sc.spectators, c)
	if len(sc.players) == 0 && len(sc.spectators) == 0 {
		delete(h.sessions, sessionID)
	}
}

// ToPlayer sends a state document to one seated player.
func (h *Hub) ToPlayer(sessionID uuid.UUID, playerID string, payload interface{}) {
	h.mu.Lock()
	sc, ok := h.sessions[sessionID]
	var c *websocket.Conn
	if ok {
		c = sc.players[playerID]
	}
	h.mu.Unlock()
	if c == nil {
		return
	}
	h.send(c, map[string]interface{}{"type": "state", "state": payload})
}

// ToSpectators sends the redacted state document to every spectator.
func (h *Hub) ToSpectators(sessionID uuid.UUID, payload interface{}) {
	h.mu.Lock()
	sc, ok := h.sessions[sessionID]
	var targets []*websocket.Conn
	if ok {
		for c := range sc.spectators {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	msg := map[string]interface{}{"type": "state", "state": payload}
	for _, c := range targets {
		h.send(c, msg)
	}
}

// send marshals and writes asynchronously so broadcast callers never
// block on a slow socket.
func (h *Hub) send(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Errorf("Failed to marshal outbound message: %v", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.Write(ctx, websocket.MessageText, data); err != nil {
			h.logger.Warnf("Failed to write WebSocket message: %v", err)
		}
	}()
}

// SessionWSHandler upgrades the HTTP connection to WebSocket for one
// game session. Players authenticate with a session-scoped JWT;
// everyone else joins as a spectator, passcode permitting.
func SessionWSHandler(logger *logrus.Logger, facade *session.Facade, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/session/ws/")
		if i := strings.IndexByte(idStr, '/'); i >= 0 {
			idStr = idStr[:i]
		}
		sessionID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "Invalid session_id format", http.StatusBadRequest)
			return
		}

		sess, ok := facade.Session(sessionID)
		if !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}

		playerID, role, err := resolveViewer(r, sess.ID.String(), sess.PasscodeHash, facade)
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for session %s: %v", sessionID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogSessionSocketConnect(logger, r.RemoteAddr, sessionID.String(), role)

		if role == "player" {
			hub.RegisterPlayer(sessionID, playerID, c)
		} else {
			hub.RegisterSpectator(sessionID, c)
		}
		defer hub.Unregister(sessionID, c)

		// Send the viewer their current view before entering the loop.
		if view, err := facade.View(sessionID, playerID); err == nil {
			sendWsMessage(c, map[string]interface{}{"type": "state", "state": json.RawMessage(view)})
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readSessionMessages(ctx, c, facade, sessionID, playerID, role, logger)
		middleware.LogSessionSocketDisconnect(logger, r.RemoteAddr, sessionID.String(), role, nil)
	}
}

// resolveViewer authenticates the request. A valid session JWT for a
// seated player grants the player role. Anyone else becomes a
// spectator; private sessions additionally demand the passcode query
// parameter.
func resolveViewer(r *http.Request, sessionID, passcodeHash string, facade *session.Facade) (playerID, role string, err error) {
	if token := sessionToken(r); token != "" {
		pid, sid, jwtErr := auth.AuthenticateSessionJWT(token)
		if jwtErr == nil && sid == sessionID {
			return pid, "player", nil
		}
	}

	if passcodeHash != "" {
		passcode := r.URL.Query().Get("passcode")
		ok, cmpErr := auth.ComparePasscodeAndHash(passcode, passcodeHash)
		if cmpErr != nil || !ok {
			return "", "", errSpectateDenied
		}
	}
	return "", "spectator", nil
}

var errSpectateDenied = &spectateError{}

type spectateError struct{}

func (*spectateError) Error() string { return "spectate passcode required or incorrect" }

// readSessionMessages reads client messages until the socket closes,
// dispatching actions through the facade. Rule rejections go back to
// the acting socket only; state fanout happens inside the facade.
func readSessionMessages(ctx context.Context, c *websocket.Conn, facade *session.Facade, sessionID uuid.UUID, playerID, role string, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for %s in session %s.", playerID, sessionID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for %s in session %s.", playerID, sessionID)
			} else {
				logger.Warnf("Error reading from WebSocket for %s in session %s: %v", playerID, sessionID, err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg SessionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(c, "Invalid JSON format.")
			continue
		}

		switch msg.Type {
		case "ping":
			sendWsMessage(c, map[string]string{"type": "pong"})

		case "":
			sendWsError(c, "Message type is required.")

		default:
			if role != "player" {
				sendWsError(c, "Spectators cannot act.")
				continue
			}
			res, err := facade.Dispatch(ctx, sessionID, playerID, engine.Action{
				Name:    msg.Type,
				Payload: msg.Payload,
			})
			if err != nil {
				sendWsError(c, err.Error())
				continue
			}
			ack := map[string]interface{}{"type": "action_ack", "action": msg.Type}
			if len(res.Data) > 0 {
				ack["data"] = res.Data
			}
			if res.GameOver {
				ack["gameOver"] = true
				ack["winners"] = res.Winners
			}
			sendWsMessage(c, ack)
		}
	}
}

// sendWsMessage marshals a message and writes it with a timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			logrus.Warnf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(c *websocket.Conn, errorMsg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

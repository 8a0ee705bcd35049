package handlers

import (
	"encoding/json"
	"net/http"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *services.WSHub
	tokens   middleware.TokenValidator
	profiles ProfileService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. checkOrigin may be nil to allow all origins.
func NewWebSocketHandler(
	hub *services.WSHub,
	tokens middleware.TokenValidator,
	profiles ProfileService,
	checkOrigin func(r *http.Request) bool,
) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub:      hub,
		tokens:   tokens,
		profiles: profiles,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	session, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := session.UserID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Disconnect(userID, conn)

	// The client learns right away whether it still has to pick a display name
	profileMsg := services.WSMessage{Type: services.EventProfile}
	if profile, err := h.profiles.GetProfile(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile for WebSocket")
		profileMsg = services.WSMessage{Type: services.EventError, Message: "failed to load profile"}
	} else {
		profileMsg.Data = profile
	}
	if err := h.hub.SendToUser(userID, profileMsg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send profile message")
		return
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			h.send(userID, services.WSMessage{Type: "pong"})
		default:
			h.sendError(userID, "Unknown message type")
		}
	}
}

func (h *WebSocketHandler) send(userID string, msg services.WSMessage) {
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to send WebSocket message")
	}
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	h.send(userID, services.WSMessage{Type: services.EventError, Message: message})
}

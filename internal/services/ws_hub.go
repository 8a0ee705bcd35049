package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"groupsnap-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket event types
const (
	EventProfile      = "profile"
	EventSignedOut    = "signed_out"
	EventMemberJoined = "member_joined"
	EventPhotoAdded   = "photo_added"
	EventError        = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	GroupID string      `json:"group_id,omitempty"`
	UserID  string      `json:"user_id,omitempty"`
	PhotoID string      `json:"photo_id,omitempty"`
	URL     string      `json:"url,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// wsConn is the part of *websocket.Conn the hub writes to
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type hubConn struct {
	conn wsConn
	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*hubConn
	members     *MembershipService
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(members *MembershipService) *WSHub {
	return &WSHub{
		connections: make(map[string]*hubConn),
		members:     members,
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.register(userID, conn)
}

func (h *WSHub) register(userID string, conn wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, ok := h.connections[userID]; ok {
		existing.conn.Close()
	}

	h.connections[userID] = &hubConn{conn: conn}
	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.connections[userID]; ok {
		c.conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// Disconnect closes conn and removes it if it is still the user's current connection
func (h *WSHub) Disconnect(userID string, conn *websocket.Conn) {
	h.disconnect(userID, conn)
}

func (h *WSHub) disconnect(userID string, conn wsConn) {
	h.mu.Lock()
	if c, ok := h.connections[userID]; ok && c.conn == conn {
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()
	conn.Close()
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	c, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		h.disconnect(userID, c.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// BroadcastToGroup sends message to every connected member of groupID except skipUserID.
// It returns the number of members the message was delivered to.
func (h *WSHub) BroadcastToGroup(ctx context.Context, groupID, skipUserID string, message WSMessage) (int, error) {
	ids, err := h.members.MemberIDs(ctx, groupID)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range ids {
		if id == skipUserID || !h.IsOnline(id) {
			continue
		}
		if err := h.SendToUser(id, message); err != nil {
			log.Warn().Err(err).Str("user_id", id).Str("group_id", groupID).Msg("Failed to deliver group event")
			continue
		}
		sent++
	}
	return sent, nil
}

// HandleAuthEvent pushes session changes to the user's open connection
// and closes it on sign-out. It matches AuthListener.
func (h *WSHub) HandleAuthEvent(event AuthEvent, session *models.Session) {
	if event != AuthSignedOut || !h.IsOnline(session.UserID) {
		return
	}
	if err := h.SendToUser(session.UserID, WSMessage{Type: EventSignedOut}); err != nil {
		log.Debug().Err(err).Str("user_id", session.UserID).Msg("Failed to send signed_out")
		return
	}
	h.Unregister(session.UserID)
}

// ProfilePusher returns a listener that sends a freshly signed-in user their profile
func (h *WSHub) ProfilePusher(profiles *UserService) AuthListener {
	return func(event AuthEvent, session *models.Session) {
		if event != AuthSignedIn || !h.IsOnline(session.UserID) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		profile, err := profiles.GetProfile(ctx, session.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", session.UserID).Msg("Failed to load profile for sign-in event")
			return
		}
		if err := h.SendToUser(session.UserID, WSMessage{Type: EventProfile, UserID: session.UserID, Data: profile}); err != nil {
			log.Debug().Err(err).Str("user_id", session.UserID).Msg("Failed to send profile")
		}
	}
}

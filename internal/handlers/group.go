package handlers

import (
	"context"
	"net/http"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// GroupManager creates, joins and lists groups
type GroupManager interface {
	CreateGroup(ctx context.Context, name, creatorUserID string) (*services.GroupCreation, error)
	JoinGroup(ctx context.Context, code, userID string) (*models.Group, error)
	ListUserGroups(ctx context.Context, userID string) ([]*models.Group, error)
}

// Broadcaster pushes realtime events to a group's connected members
type Broadcaster interface {
	BroadcastToGroup(ctx context.Context, groupID, skipUserID string, message services.WSMessage) (int, error)
}

// GroupHandler handles group-related HTTP requests
type GroupHandler struct {
	groups GroupManager
	events Broadcaster
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groups GroupManager, events Broadcaster) *GroupHandler {
	return &GroupHandler{
		groups: groups,
		events: events,
	}
}

type createGroupRequest struct {
	GroupName string `json:"group_name"`
}

type joinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

// CreateGroup handles POST /api/v1/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid create group request")
		return
	}

	res, err := h.groups.CreateGroup(r.Context(), req.GroupName, userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create group")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", res.Group.ID).
		Str("join_code", res.Group.JoinCode).
		Msg("Group created")

	respondJSON(w, http.StatusCreated, res)
}

// JoinGroup handles POST /api/v1/groups/join
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req joinGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid join request")
		return
	}

	group, err := h.groups.JoinGroup(r.Context(), req.JoinCode, userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to join group")
		return
	}

	log.Info().Str("user_id", userID).Str("group_id", group.ID).Msg("User joined group")

	msg := services.WSMessage{Type: services.EventMemberJoined, GroupID: group.ID, UserID: userID}
	if _, err := h.events.BroadcastToGroup(r.Context(), group.ID, userID, msg); err != nil {
		log.Warn().Err(err).Str("group_id", group.ID).Msg("Failed to broadcast member_joined")
	}

	respondJSON(w, http.StatusOK, group)
}

// ListGroups handles GET /api/v1/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	groups, err := h.groups.ListUserGroups(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list groups")
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

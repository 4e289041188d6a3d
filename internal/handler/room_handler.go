package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/middleware"
	"github.com/hearthside/hearthside-backend/internal/service"
)

// RoomHandler handles family-scoped chat room endpoints
type RoomHandler struct {
	rooms service.RoomService
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(rooms service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

// ListRooms handles GET /api/families/:slug/chat/rooms
// @Summary List the caller's chat rooms
// @Description Lists non-archived rooms the caller belongs to, most recent activity first
// @Tags chat-rooms
// @Produce json
// @Param slug path string true "Family slug"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)

	rooms, err := h.rooms.ListRooms(family, userID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, rooms)
}

// CreateRoom handles POST /api/families/:slug/chat/rooms
// @Summary Create a chat room
// @Description Creates a group or announcement room; the creator becomes its first admin
// @Tags chat-rooms
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param request body domain.CreateRoomRequest true "Room payload"
// @Success 201 {object} common.Response
// @Failure 422 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	room, err := h.rooms.CreateRoom(family, userID, &req)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Created(c, room)
}

// FindOrCreateDirect handles POST /api/families/:slug/chat/direct
// @Summary Open a direct room
// @Description Returns the 1:1 room with another family member, creating it on first use
// @Tags chat-rooms
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param request body handler.directRequest true "Other user"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/direct [post]
func (h *RoomHandler) FindOrCreateDirect(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)

	var req directRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	room, err := h.rooms.FindOrCreateDirect(family, userID, req.OtherUserID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, room)
}

type directRequest struct {
	OtherUserID uint64 `json:"other_user_id" binding:"required"`
}

// GetRoom handles GET /api/families/:slug/chat/rooms/:id
// @Summary Fetch one room
// @Tags chat-rooms
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	room, err := h.rooms.GetRoom(family, roomID, userID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, room)
}

// UpdateRoom handles PUT /api/families/:slug/chat/rooms/:id
// @Summary Update room settings
// @Description Creator or room admin only; empty patches are rejected
// @Tags chat-rooms
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param request body domain.UpdateRoomRequest true "Patch payload"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id} [put]
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	room, err := h.rooms.UpdateRoom(family, roomID, userID, &req)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, room)
}

// ArchiveRoom handles DELETE /api/families/:slug/chat/rooms/:id
// @Summary Archive a room
// @Description Hides the room and blocks new messages; creator, room admin or family owner only
// @Tags chat-rooms
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id} [delete]
func (h *RoomHandler) ArchiveRoom(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.rooms.ArchiveRoom(family, roomID, userID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"archived": true})
}

// PurgeRoom handles DELETE /api/families/:slug/chat/rooms/:id/purge
// @Summary Permanently delete a room
// @Description Removes the room with all its messages, reactions and members; family owner only
// @Tags chat-rooms
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/purge [delete]
func (h *RoomHandler) PurgeRoom(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.rooms.PurgeRoom(family, roomID, userID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"purged": true})
}

// MarkRead handles POST /api/families/:slug/chat/rooms/:id/read
// @Summary Mark a room read
// @Description Sets the caller's read marker to now and resets their unread counter
// @Tags chat-rooms
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/read [post]
func (h *RoomHandler) MarkRead(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.rooms.MarkRead(family, roomID, userID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"read": true})
}

// Typing handles POST /api/families/:slug/chat/rooms/:id/typing
// @Summary Send a typing indicator
// @Description Pure fan-out; nothing is persisted
// @Tags chat-rooms
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param request body domain.TypingRequest true "Typing state"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/typing [post]
func (h *RoomHandler) Typing(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.rooms.Typing(family, roomID, userID, req.IsTyping); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"sent": true})
}

// ListMembers handles GET /api/families/:slug/chat/rooms/:id/members
// @Summary List room members
// @Tags chat-members
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members [get]
func (h *RoomHandler) ListMembers(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	members, err := h.rooms.ListMembers(family, roomID, userID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, members)
}

// AddMembers handles POST /api/families/:slug/chat/rooms/:id/members
// @Summary Add members to a room
// @Description Room admin only; every user id must belong to the family
// @Tags chat-members
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param request body domain.AddMembersRequest true "User ids"
// @Success 200 {object} common.Response
// @Failure 409 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members [post]
func (h *RoomHandler) AddMembers(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	added, err := h.rooms.AddMembers(family, roomID, userID, req.UserIDs)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, added)
}

// RemoveMember handles DELETE /api/families/:slug/chat/rooms/:id/members/:user_id
// @Summary Remove a member from a room
// @Description Room admin only; no-op when the target is not a member
// @Tags chat-members
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param user_id path int true "Target user ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members/{user_id} [delete]
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	removed, err := h.rooms.RemoveMember(family, roomID, userID, targetID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"removed": removed})
}

// ToggleAdmin handles POST /api/families/:slug/chat/rooms/:id/members/:user_id/admin
// @Summary Toggle a member's admin flag
// @Tags chat-members
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param user_id path int true "Target user ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members/{user_id}/admin [post]
func (h *RoomHandler) ToggleAdmin(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	isAdmin, err := h.rooms.ToggleAdmin(family, roomID, userID, targetID)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"is_admin": isAdmin})
}

// Mute handles POST /api/families/:slug/chat/rooms/:id/members/:user_id/mute
// @Summary Mute a member
// @Description Admins may mute anyone; members may mute themselves. Zero duration mutes indefinitely
// @Tags chat-members
// @Accept json
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param user_id path int true "Target user ID"
// @Param request body domain.MuteRequest true "Mute duration"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members/{user_id}/mute [post]
func (h *RoomHandler) Mute(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	var req domain.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	member, err := h.rooms.Mute(family, roomID, userID, targetID, req.DurationMinutes)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, member)
}

// Unmute handles DELETE /api/families/:slug/chat/rooms/:id/members/:user_id/mute
// @Summary Unmute a member
// @Tags chat-members
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Param user_id path int true "Target user ID"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/members/{user_id}/mute [delete]
func (h *RoomHandler) Unmute(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	if err := h.rooms.Unmute(family, roomID, userID, targetID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"muted": false})
}

// Leave handles POST /api/families/:slug/chat/rooms/:id/leave
// @Summary Leave a room
// @Description Fails when the caller is the only admin of a multi-member room
// @Tags chat-members
// @Produce json
// @Param slug path string true "Family slug"
// @Param id path int true "Room ID"
// @Success 200 {object} common.Response
// @Failure 422 {object} common.Response
// @Security BearerAuth
// @Router /families/{slug}/chat/rooms/{id}/leave [post]
func (h *RoomHandler) Leave(c *gin.Context) {
	family := middleware.GetFamily(c)
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.rooms.Leave(family, roomID, userID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"left": true})
}

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

// MessageHandler handles chat message endpoints
type MessageHandler struct {
	messages service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// ListMessages handles GET /api/chat/rooms/:id/messages
// @Summary List room messages
// @Description Newest first, cursor pagination via before_id; soft-deleted messages are excluded
// @Tags chat-messages
// @Produce json
// @Param id path int true "Room ID"
// @Param before_id query int false "Return messages older than this id"
// @Param per_page query int false "Page size, max 100"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /chat/rooms/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	beforeID, _ := strconv.ParseUint(c.Query("before_id"), 10, 64)
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	messages, meta, err := h.messages.List(roomID, userID, beforeID, perPage)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.SuccessWithMeta(c, messages, meta)
}

// SendMessage handles POST /api/chat/rooms/:id/messages
// @Summary Send a message
// @Description Persists the message, bumps the room's last-message pointer and other members' unread counters atomically
// @Tags chat-messages
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param request body domain.SendMessageRequest true "Message payload"
// @Success 201 {object} common.Response
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /chat/rooms/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	msg, err := h.messages.Send(roomID, userID, &req)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Created(c, msg)
}

// SearchMessages handles GET /api/chat/rooms/:id/messages/search
// @Summary Search room messages
// @Description Full-text when the search index is configured, LIKE fallback otherwise
// @Tags chat-messages
// @Produce json
// @Param id path int true "Room ID"
// @Param q query string true "Search query"
// @Param limit query int false "Max results"
// @Success 200 {object} common.Response
// @Security BearerAuth
// @Router /chat/rooms/{id}/messages/search [get]
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.messages.Search(roomID, userID, query, limit)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, messages)
}

// EditMessage handles PUT /api/chat/messages/:id
// @Summary Edit a message
// @Description Author only, within 24 hours of creation
// @Tags chat-messages
// @Accept json
// @Produce json
// @Param id path int true "Message ID"
// @Param request body domain.EditMessageRequest true "New body"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /chat/messages/{id} [put]
func (h *MessageHandler) EditMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	msg, err := h.messages.Edit(messageID, userID, &req)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, msg)
}

// DeleteMessage handles DELETE /api/chat/messages/:id
// @Summary Delete a message
// @Description Soft delete by the author or a room admin; the body is scrubbed, the row stays
// @Tags chat-messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /chat/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.Delete(messageID, userID); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"deleted": true})
}

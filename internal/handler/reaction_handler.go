package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/middleware"
	"github.com/hearthside/hearthside-backend/internal/service"
)

// ReactionHandler handles message reaction endpoints
type ReactionHandler struct {
	reactions service.ReactionService
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactions service.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

// AddReaction handles POST /api/chat/messages/:id/reactions
// @Summary React to a message
// @Description Adds one emoji reaction; a duplicate (message, user, emoji) triple is rejected, not toggled
// @Tags chat-reactions
// @Accept json
// @Produce json
// @Param id path int true "Message ID"
// @Param request body domain.AddReactionRequest true "Emoji"
// @Success 201 {object} common.Response
// @Failure 409 {object} common.Response
// @Failure 422 {object} common.Response
// @Security BearerAuth
// @Router /chat/messages/{id}/reactions [post]
func (h *ReactionHandler) AddReaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req domain.AddReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reaction, err := h.reactions.Add(messageID, userID, req.Emoji)
	if err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Created(c, reaction)
}

// RemoveReaction handles DELETE /api/chat/messages/:id/reactions/:emoji
// @Summary Remove a reaction
// @Tags chat-reactions
// @Produce json
// @Param id path int true "Message ID"
// @Param emoji path string true "Emoji"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.Response
// @Security BearerAuth
// @Router /chat/messages/{id}/reactions/{emoji} [delete]
func (h *ReactionHandler) RemoveReaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	emoji := c.Param("emoji")
	if err := h.reactions.Remove(messageID, userID, emoji); err != nil {
		common.FromError(c, err, "")
		return
	}
	common.Success(c, gin.H{"removed": true})
}

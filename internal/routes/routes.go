package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/handler"
	"github.com/hearthside/hearthside-backend/internal/middleware"
	"github.com/hearthside/hearthside-backend/internal/service"
	"github.com/hearthside/hearthside-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	roomHandler *handler.RoomHandler,
	messageHandler *handler.MessageHandler,
	reactionHandler *handler.ReactionHandler,
	uploadHandler *handler.UploadHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
	directory service.DirectoryService,
) {
	api := router.Group("/api", middleware.JWTAuth(jwtManager))

	// Family-scoped room routes; ResolveFamily checks the caller's family
	// membership before any handler runs
	family := api.Group("/families/:slug/chat", middleware.ResolveFamily(directory))
	{
		family.POST("/direct", roomHandler.FindOrCreateDirect)

		rooms := family.Group("/rooms")
		rooms.GET("", roomHandler.ListRooms)
		rooms.POST("", roomHandler.CreateRoom)
		rooms.GET("/:id", roomHandler.GetRoom)
		rooms.PUT("/:id", roomHandler.UpdateRoom)
		rooms.DELETE("/:id", roomHandler.ArchiveRoom)
		rooms.DELETE("/:id/purge", roomHandler.PurgeRoom)

		rooms.POST("/:id/read", roomHandler.MarkRead)
		rooms.POST("/:id/typing", roomHandler.Typing)
		rooms.POST("/:id/leave", roomHandler.Leave)

		rooms.GET("/:id/members", roomHandler.ListMembers)
		rooms.POST("/:id/members", roomHandler.AddMembers)
		rooms.DELETE("/:id/members/:user_id", roomHandler.RemoveMember)
		rooms.POST("/:id/members/:user_id/admin", roomHandler.ToggleAdmin)
		rooms.POST("/:id/members/:user_id/mute", roomHandler.Mute)
		rooms.DELETE("/:id/members/:user_id/mute", roomHandler.Unmute)
	}

	// Message and reaction routes; room membership is checked per operation
	chat := api.Group("/chat")
	{
		chat.GET("/rooms/:id/messages", messageHandler.ListMessages)
		chat.POST("/rooms/:id/messages", messageHandler.SendMessage)
		chat.GET("/rooms/:id/messages/search", messageHandler.SearchMessages)

		chat.PUT("/messages/:id", messageHandler.EditMessage)
		chat.DELETE("/messages/:id", messageHandler.DeleteMessage)

		chat.POST("/messages/:id/reactions", reactionHandler.AddReaction)
		chat.DELETE("/messages/:id/reactions/:emoji", reactionHandler.RemoveReaction)

		if uploadHandler.Enabled() {
			chat.POST("/uploads", uploadHandler.PresignUpload)
		}
	}

	api.GET("/ws", wsHandler.Connect)
}

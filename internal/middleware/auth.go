package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/pkg/jwt"
)

const (
	ContextUserID   = "user_id"
	ContextNickname = "nickname"
)

// JWTAuth validates the bearer token and stashes the caller identity in
// the gin context
func JWTAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "authorization header required", nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header", nil)
			c.Abort()
			return
		}

		claims, err := manager.VerifyToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "token expired"
			}
			common.ErrorResponse(c, http.StatusUnauthorized, msg, err)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextNickname, claims.Nickname)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, zero when unauthenticated
func GetUserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint64); ok {
			return id
		}
	}
	return 0
}

// GetNickname returns the authenticated user's nickname
func GetNickname(c *gin.Context) string {
	if v, ok := c.Get(ContextNickname); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/service"
)

const (
	ContextFamily     = "family"
	ContextFamilyRole = "family_role"
)

// ResolveFamily resolves the :slug path parameter to a family and checks
// that the caller belongs to it. Handlers downstream read the family via
// GetFamily and never re-validate.
func ResolveFamily(directory service.DirectoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if slug == "" {
			common.FromError(c, common.ErrFamilyNotFound, "")
			c.Abort()
			return
		}

		family, err := directory.FamilyBySlug(slug)
		if err != nil {
			common.FromError(c, err, "")
			c.Abort()
			return
		}

		role, err := directory.RoleOf(family.ID, GetUserID(c))
		if err != nil {
			common.FromError(c, err, "")
			c.Abort()
			return
		}

		c.Set(ContextFamily, family)
		c.Set(ContextFamilyRole, role)
		c.Next()
	}
}

// GetFamily returns the family resolved by ResolveFamily
func GetFamily(c *gin.Context) *domain.Family {
	if v, ok := c.Get(ContextFamily); ok {
		if f, ok := v.(*domain.Family); ok {
			return f
		}
	}
	return nil
}

// GetFamilyRole returns the caller's role within the resolved family
func GetFamilyRole(c *gin.Context) string {
	if v, ok := c.Get(ContextFamilyRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

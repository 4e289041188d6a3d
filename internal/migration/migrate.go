package migration

import (
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for every chat table. AutoMigrate creates
// missing tables and indexes and leaves existing ones alone.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Family{},
		&domain.FamilyMember{},
		&domain.ChatRoom{},
		&domain.ChatRoomMember{},
		&domain.ChatMessage{},
		&domain.MessageReaction{},
	)
}

package domain

import "time"

// MessageReaction is one (message, user, emoji) tuple.
// The unique index enforces at-most-one reaction per triple; adding a
// duplicate is rejected, never toggled.
type MessageReaction struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MessageID uint64    `gorm:"column:message_id;uniqueIndex:uq_message_reactions_triple" json:"message_id"`
	UserID    uint64    `gorm:"column:user_id;uniqueIndex:uq_message_reactions_triple" json:"user_id"`
	Emoji     string    `gorm:"column:emoji;size:32;uniqueIndex:uq_message_reactions_triple" json:"emoji"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MessageReaction) TableName() string { return "message_reactions" }

// ReactionSummary is the grouped count per emoji on one message.
// Reacted is derived for the requesting user at read time, not stored.
type ReactionSummary struct {
	Emoji   string `json:"emoji"`
	Count   int64  `json:"count"`
	Reacted bool   `json:"reacted"`
}

// AddReactionRequest is the payload for adding a reaction
type AddReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

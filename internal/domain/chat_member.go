package domain

import "time"

// ChatRoomMember is the join record between a user and a room.
// Unread counters are incremented with atomic UPDATEs, never read-modify-write.
type ChatRoomMember struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RoomID      uint64     `gorm:"column:room_id;uniqueIndex:uq_chat_room_members_pair" json:"room_id"`
	UserID      uint64     `gorm:"column:user_id;uniqueIndex:uq_chat_room_members_pair;index" json:"user_id"`
	IsAdmin     bool       `gorm:"column:is_admin;default:false" json:"is_admin"`
	IsMuted     bool       `gorm:"column:is_muted;default:false" json:"is_muted"`
	MutedUntil  *time.Time `gorm:"column:muted_until" json:"muted_until,omitempty"`
	LastReadAt  *time.Time `gorm:"column:last_read_at" json:"last_read_at,omitempty"`
	UnreadCount int        `gorm:"column:unread_count;default:0" json:"unread_count"`
	JoinedAt    time.Time  `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ChatRoomMember) TableName() string { return "chat_room_members" }

// MuteExpired reports whether a stored mute has lapsed and should be cleared
func (m *ChatRoomMember) MuteExpired(now time.Time) bool {
	return m.IsMuted && m.MutedUntil != nil && m.MutedUntil.Before(now)
}

// CurrentlyMuted reports effective mute state without side effects
func (m *ChatRoomMember) CurrentlyMuted(now time.Time) bool {
	if !m.IsMuted {
		return false
	}
	return m.MutedUntil == nil || m.MutedUntil.After(now)
}

// AddMembersRequest is the payload for adding room members
type AddMembersRequest struct {
	UserIDs []uint64 `json:"user_ids" binding:"required,min=1"`
}

// MuteRequest is the payload for muting a room; zero means mute indefinitely
type MuteRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1"`
}

// TypingRequest is the payload for typing indicators
type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

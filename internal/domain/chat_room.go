package domain

import (
	"fmt"
	"time"
)

// RoomType distinguishes group, direct and announcement rooms
type RoomType string

const (
	RoomTypeGroup        RoomType = "group"
	RoomTypeDirect       RoomType = "direct"
	RoomTypeAnnouncement RoomType = "announcement"
)

// Valid reports whether the room type is one of the known values
func (t RoomType) Valid() bool {
	return t == RoomTypeGroup || t == RoomTypeDirect || t == RoomTypeAnnouncement
}

// ChatRoom is a named conversation scoped to one family.
// Direct rooms are unique per unordered user pair; the direct_key unique
// index makes find-or-create idempotent under concurrent requests.
type ChatRoom struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FamilyID      uint64     `gorm:"column:family_id;index" json:"family_id"`
	Name          string     `gorm:"column:name;size:100" json:"name"`
	Description   string     `gorm:"column:description;size:500" json:"description,omitempty"`
	Type          RoomType   `gorm:"column:type;size:20;default:group" json:"type"`
	CreatedBy     uint64     `gorm:"column:created_by" json:"created_by"`
	IsPrivate     bool       `gorm:"column:is_private;default:false" json:"is_private"`
	IsArchived    bool       `gorm:"column:is_archived;default:false" json:"is_archived"`
	Settings      string     `gorm:"column:settings;type:text" json:"-"`
	DirectKey     *string    `gorm:"column:direct_key;size:64;uniqueIndex" json:"-"`
	LastMessageID *uint64    `gorm:"column:last_message_id" json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Creator     *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	LastMessage *ChatMessage `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

// DirectKeyFor builds the unique lookup key for a direct room.
// The pair is normalized so (A,B) and (B,A) map to the same room.
func DirectKeyFor(familyID, userA, userB uint64) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("f%d:u%d:u%d", familyID, lo, hi)
}

// CreateRoomRequest is the payload for creating a room
type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Type        RoomType `json:"type" binding:"required"`
	Description string   `json:"description" binding:"max=500"`
	IsPrivate   bool     `json:"is_private"`
	MemberIDs   []uint64 `json:"member_ids"`
}

// UpdateRoomRequest is the patch payload for room updates; nil fields are untouched
type UpdateRoomRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsPrivate   *bool   `json:"is_private"`
	Settings    *string `json:"settings"`
}

// Empty reports whether the patch contains no changes
func (r *UpdateRoomRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.IsPrivate == nil && r.Settings == nil
}

// RoomResponse is a room plus the caller's own membership row
type RoomResponse struct {
	*ChatRoom
	Membership *ChatRoomMember `json:"membership,omitempty"`
}

package domain

import (
	"encoding/json"
	"time"
)

// MessageType distinguishes user text, system notices and attachment messages
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeSystem     MessageType = "system"
	MessageTypeAttachment MessageType = "attachment"
)

// Valid reports whether the message type is one of the known values
func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeSystem || t == MessageTypeAttachment
}

// DeletedMessageBody replaces the body of a soft-deleted message
const DeletedMessageBody = "This message was deleted"

// EditWindow is how long after creation the author may still edit
const EditWindow = 24 * time.Hour

// ChatMessage is one unit of conversation content.
// Soft deletion scrubs the body and clears attachments/metadata; the row
// survives so reply threads keep their targets.
type ChatMessage struct {
	ID          uint64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RoomID      uint64      `gorm:"column:room_id;index:idx_chat_messages_room" json:"room_id"`
	SenderID    uint64      `gorm:"column:sender_id;index" json:"sender_id"`
	ReplyToID   *uint64     `gorm:"column:reply_to_id" json:"reply_to_id,omitempty"`
	Body        string      `gorm:"column:body;type:text" json:"body"`
	Type        MessageType `gorm:"column:type;size:20;default:text" json:"type"`
	Attachments *string     `gorm:"column:attachments;type:text" json:"-"`
	Metadata    *string     `gorm:"column:metadata;type:text" json:"-"`
	IsEdited    bool        `gorm:"column:is_edited;default:false" json:"is_edited"`
	EditedAt    *time.Time  `gorm:"column:edited_at" json:"edited_at,omitempty"`
	IsDeleted   bool        `gorm:"column:is_deleted;default:false;index:idx_chat_messages_room" json:"is_deleted"`
	DeletedAt   *time.Time  `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Sender  *User        `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReplyTo *ChatMessage `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// CanEdit checks author, deletion state and the 24h edit window
func (m *ChatMessage) CanEdit(userID uint64, now time.Time) bool {
	return m.SenderID == userID && !m.IsDeleted && now.Sub(m.CreatedAt) < EditWindow
}

// Attachment describes one uploaded file referenced by a message
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// DecodeAttachments parses the stored attachment JSON, nil when absent
func (m *ChatMessage) DecodeAttachments() []Attachment {
	if m.Attachments == nil || *m.Attachments == "" {
		return nil
	}
	var list []Attachment
	if err := json.Unmarshal([]byte(*m.Attachments), &list); err != nil {
		return nil
	}
	return list
}

// EncodeAttachments serializes attachments for storage, nil for an empty list
func EncodeAttachments(list []Attachment) (*string, error) {
	if len(list) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// EncodeMetadata serializes free-form metadata for storage
func EncodeMetadata(meta map[string]interface{}) (*string, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// SendMessageRequest is the payload for sending a message
type SendMessageRequest struct {
	Message     string                 `json:"message" binding:"required,max=4000"`
	ReplyToID   *uint64                `json:"reply_to_id"`
	Type        MessageType            `json:"type"`
	Attachments []Attachment           `json:"attachments"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// EditMessageRequest is the payload for editing a message
type EditMessageRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// MessageResponse is a message with decoded attachments and reaction summary
type MessageResponse struct {
	*ChatMessage
	Attachments []Attachment      `json:"attachments,omitempty"`
	Reactions   []ReactionSummary `json:"reactions,omitempty"`
}

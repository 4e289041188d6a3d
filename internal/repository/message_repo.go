package repository

import (
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository handles chat message data access
type MessageRepository interface {
	CreateInRoom(msg *domain.ChatMessage) error
	FindByID(id uint64) (*domain.ChatMessage, error)
	FindByIDs(ids []uint64) ([]*domain.ChatMessage, error)
	ListByRoom(roomID, beforeID uint64, limit int) ([]*domain.ChatMessage, error)
	Update(id uint64, updates map[string]interface{}) error
	SoftDelete(id uint64) error
	SearchLike(roomID uint64, query string, limit int) ([]*domain.ChatMessage, error)
	ForceCreatedAt(id uint64, at time.Time) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// CreateInRoom persists a message together with its side effects: the room's
// last-message pointer moves and every other member's unread counter is
// bumped. All three writes commit or none do.
func (r *messageRepository) CreateInRoom(msg *domain.ChatMessage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.ChatRoom{}).Where("id = ?", msg.RoomID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"last_message_at": msg.CreatedAt,
			}).Error; err != nil {
			return err
		}

		// atomic increment, not fetch-then-set
		return tx.Model(&domain.ChatRoomMember{}).
			Where("room_id = ? AND user_id <> ?", msg.RoomID, msg.SenderID).
			Update("unread_count", gorm.Expr("unread_count + 1")).Error
	})
}

func (r *messageRepository) FindByID(id uint64) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.db.Preload("Sender").Preload("ReplyTo").First(&msg, id).Error
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByIDs(ids []uint64) ([]*domain.ChatMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var messages []*domain.ChatMessage
	err := r.db.Where("id IN ?", ids).
		Preload("Sender").
		Order("id DESC").
		Find(&messages).Error
	return messages, err
}

// ListByRoom returns newest-first messages with cursor-style backward
// pagination; soft-deleted rows never appear in listings.
func (r *messageRepository) ListByRoom(roomID, beforeID uint64, limit int) ([]*domain.ChatMessage, error) {
	query := r.db.Where("room_id = ? AND is_deleted = ?", roomID, false)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var messages []*domain.ChatMessage
	err := query.
		Preload("Sender").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) Update(id uint64, updates map[string]interface{}) error {
	return r.db.Model(&domain.ChatMessage{}).Where("id = ?", id).Updates(updates).Error
}

// SoftDelete is destructive to content: the body becomes the placeholder and
// attachments/metadata are cleared. The row stays for reply threading.
func (r *messageRepository) SoftDelete(id uint64) error {
	now := time.Now()
	return r.db.Model(&domain.ChatMessage{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"body":        domain.DeletedMessageBody,
			"attachments": nil,
			"metadata":    nil,
			"is_deleted":  true,
			"deleted_at":  now,
		}).Error
}

// SearchLike is the fallback search used when Elasticsearch is not configured
func (r *messageRepository) SearchLike(roomID uint64, query string, limit int) ([]*domain.ChatMessage, error) {
	var messages []*domain.ChatMessage
	err := r.db.Where("room_id = ? AND is_deleted = ? AND body LIKE ?", roomID, false, "%"+query+"%").
		Preload("Sender").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ForceCreatedAt rewrites a message's creation time. Test hook for the edit
// window; not reachable from any route.
func (r *messageRepository) ForceCreatedAt(id uint64, at time.Time) error {
	return r.db.Model(&domain.ChatMessage{}).Where("id = ?", id).
		Update("created_at", at).Error
}

package repository

import (
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// RoomRepository handles chat room data access
type RoomRepository interface {
	CreateWithMembers(room *domain.ChatRoom, members []*domain.ChatRoomMember) error
	FindByID(id uint64) (*domain.ChatRoom, error)
	FindByDirectKey(key string) (*domain.ChatRoom, error)
	ListForUser(familyID, userID uint64) ([]*domain.ChatRoom, error)
	Update(id uint64, updates map[string]interface{}) error
	Archive(id uint64) error
	Purge(id uint64) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// CreateWithMembers inserts the room and its initial member set atomically.
// Partial membership on failure would leave an unusable room, so the whole
// group commits or nothing does.
func (r *roomRepository) CreateWithMembers(room *domain.ChatRoom, members []*domain.ChatRoomMember) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, m := range members {
			m.RoomID = room.ID
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && IsDuplicateKeyErr(err) {
		// lost the direct-room creation race
		return common.ErrConflict
	}
	return err
}

func (r *roomRepository) FindByID(id uint64) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.Preload("Creator").First(&room, id).Error
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByDirectKey(key string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.Where("direct_key = ?", key).First(&room).Error
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// ListForUser returns the caller's non-archived rooms, most recent activity
// first. Creator, last message and its sender are resolved eagerly.
func (r *roomRepository) ListForUser(familyID, userID uint64) ([]*domain.ChatRoom, error) {
	var rooms []*domain.ChatRoom
	err := r.db.
		Joins("JOIN chat_room_members crm ON crm.room_id = chat_rooms.id AND crm.user_id = ?", userID).
		Where("chat_rooms.family_id = ? AND chat_rooms.is_archived = ?", familyID, false).
		Preload("Creator").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Order("chat_rooms.last_message_at DESC, chat_rooms.created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) Update(id uint64, updates map[string]interface{}) error {
	return r.db.Model(&domain.ChatRoom{}).Where("id = ?", id).Updates(updates).Error
}

func (r *roomRepository) Archive(id uint64) error {
	return r.db.Model(&domain.ChatRoom{}).Where("id = ?", id).
		Update("is_archived", true).Error
}

// Purge hard-deletes a room with its members, messages and reactions.
// The cascade is explicit: the storage layer is not trusted to do it.
// Normal flows archive instead; this exists for admin data removal.
func (r *roomRepository) Purge(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&domain.ChatMessage{}).Select("id").Where("room_id = ?", id),
		).Delete(&domain.MessageReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.ChatRoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ChatRoom{}, id).Error
	})
}

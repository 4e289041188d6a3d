package repository

import (
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// RoomMemberRepository handles chat room membership data access
type RoomMemberRepository interface {
	Create(member *domain.ChatRoomMember) error
	FindByRoomAndUser(roomID, userID uint64) (*domain.ChatRoomMember, error)
	ListByRoom(roomID uint64) ([]*domain.ChatRoomMember, error)
	ListByUser(userID uint64) ([]*domain.ChatRoomMember, error)
	MemberIDs(roomID uint64) ([]uint64, error)
	UnmutedMemberIDs(roomID uint64, now time.Time) ([]uint64, error)
	Remove(roomID, userID uint64) (bool, error)
	RemoveWithAdminGuard(roomID, userID uint64) error
	MarkRead(roomID, userID uint64) error
	SetAdmin(roomID, userID uint64, isAdmin bool) error
	SetMute(roomID, userID uint64, muted bool, until *time.Time) error
	IncrementUnreadForOthers(roomID, senderID uint64) error
	AdminCount(roomID uint64) (int64, error)
	CountByRoom(roomID uint64) (int64, error)
}

type roomMemberRepository struct {
	db *gorm.DB
}

// NewRoomMemberRepository creates a new RoomMemberRepository
func NewRoomMemberRepository(db *gorm.DB) RoomMemberRepository {
	return &roomMemberRepository{db: db}
}

func (r *roomMemberRepository) Create(member *domain.ChatRoomMember) error {
	if err := r.db.Create(member).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return common.ErrDuplicateMember
		}
		return err
	}
	return nil
}

func (r *roomMemberRepository) FindByRoomAndUser(roomID, userID uint64) (*domain.ChatRoomMember, error) {
	var member domain.ChatRoomMember
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Preload("User").
		First(&member).Error
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrNotMember
		}
		return nil, err
	}
	return &member, nil
}

func (r *roomMemberRepository) ListByRoom(roomID uint64) ([]*domain.ChatRoomMember, error) {
	var members []*domain.ChatRoomMember
	err := r.db.Where("room_id = ?", roomID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *roomMemberRepository) ListByUser(userID uint64) ([]*domain.ChatRoomMember, error) {
	var members []*domain.ChatRoomMember
	err := r.db.Where("user_id = ?", userID).Find(&members).Error
	return members, err
}

func (r *roomMemberRepository) MemberIDs(roomID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// UnmutedMemberIDs returns members eligible for push fan-out: not muted, or
// muted with an expiry already in the past.
func (r *roomMemberRepository) UnmutedMemberIDs(roomID uint64, now time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ?", roomID).
		Where("is_muted = ? OR (muted_until IS NOT NULL AND muted_until < ?)", false, now).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *roomMemberRepository) Remove(roomID, userID uint64) (bool, error) {
	result := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.ChatRoomMember{})
	return result.RowsAffected > 0, result.Error
}

// RemoveWithAdminGuard removes a member but refuses to orphan the room: the
// admin count is read inside the same transaction as the delete, so two
// concurrent leaves cannot both pass the sole-admin check.
func (r *roomMemberRepository) RemoveWithAdminGuard(roomID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var member domain.ChatRoomMember
		if err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			First(&member).Error; err != nil {
			if IsNotFoundErr(err) {
				return common.ErrNotMember
			}
			return err
		}

		if member.IsAdmin {
			var admins, total int64
			if err := tx.Model(&domain.ChatRoomMember{}).
				Where("room_id = ? AND is_admin = ?", roomID, true).
				Count(&admins).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.ChatRoomMember{}).
				Where("room_id = ?", roomID).
				Count(&total).Error; err != nil {
				return err
			}
			if admins <= 1 && total > 1 {
				return common.ErrLastAdmin
			}
		}

		return tx.Delete(&member).Error
	})
}

func (r *roomMemberRepository) MarkRead(roomID, userID uint64) error {
	now := time.Now()
	return r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"last_read_at": now,
			"unread_count": 0,
		}).Error
}

func (r *roomMemberRepository) SetAdmin(roomID, userID uint64, isAdmin bool) error {
	result := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotMember
	}
	return nil
}

func (r *roomMemberRepository) SetMute(roomID, userID uint64, muted bool, until *time.Time) error {
	result := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"is_muted":    muted,
			"muted_until": until,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotMember
	}
	return nil
}

// IncrementUnreadForOthers bumps every member's counter except the sender's
// in one atomic UPDATE; no read-modify-write, so concurrent sends cannot
// lose increments.
func (r *roomMemberRepository) IncrementUnreadForOthers(roomID, senderID uint64) error {
	return r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ? AND user_id <> ?", roomID, senderID).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
}

func (r *roomMemberRepository) AdminCount(roomID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ? AND is_admin = ?", roomID, true).
		Count(&count).Error
	return count, err
}

func (r *roomMemberRepository) CountByRoom(roomID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ChatRoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

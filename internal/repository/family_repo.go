package repository

import (
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// FamilyRepository is the membership-directory data access layer
type FamilyRepository interface {
	FindBySlug(slug string) (*domain.Family, error)
	FindByID(id uint64) (*domain.Family, error)
	MemberIDs(familyID uint64) ([]uint64, error)
	FindMember(familyID, userID uint64) (*domain.FamilyMember, error)
	ListMembers(familyID uint64) ([]*domain.FamilyMember, error)
}

type familyRepository struct {
	db *gorm.DB
}

// NewFamilyRepository creates a new FamilyRepository
func NewFamilyRepository(db *gorm.DB) FamilyRepository {
	return &familyRepository{db: db}
}

func (r *familyRepository) FindBySlug(slug string) (*domain.Family, error) {
	var family domain.Family
	if err := r.db.Where("slug = ?", slug).First(&family).Error; err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrFamilyNotFound
		}
		return nil, err
	}
	return &family, nil
}

func (r *familyRepository) FindByID(id uint64) (*domain.Family, error) {
	var family domain.Family
	if err := r.db.First(&family, id).Error; err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrFamilyNotFound
		}
		return nil, err
	}
	return &family, nil
}

func (r *familyRepository) MemberIDs(familyID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&domain.FamilyMember{}).
		Where("family_id = ?", familyID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *familyRepository) FindMember(familyID, userID uint64) (*domain.FamilyMember, error) {
	var member domain.FamilyMember
	err := r.db.Where("family_id = ? AND user_id = ?", familyID, userID).
		First(&member).Error
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, common.ErrNotFamilyMember
		}
		return nil, err
	}
	return &member, nil
}

func (r *familyRepository) ListMembers(familyID uint64) ([]*domain.FamilyMember, error) {
	var members []*domain.FamilyMember
	err := r.db.Where("family_id = ?", familyID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

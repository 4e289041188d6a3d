package service

import (
	"context"
	"errors"
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/pkg/cache"
	"github.com/hearthside/hearthside-backend/pkg/logger"
)

// DirectoryService is the read-side of the family directory: chat never
// mutates families or family membership, it only resolves and validates
// against them.
type DirectoryService interface {
	FamilyBySlug(slug string) (*domain.Family, error)
	MemberIDs(familyID uint64) ([]uint64, error)
	RoleOf(familyID, userID uint64) (string, error)
	IsFamilyMember(familyID, userID uint64) (bool, error)
	ListMembers(familyID uint64) ([]*domain.FamilyMember, error)
}

type directoryService struct {
	familyRepo repository.FamilyRepository
	cache      cache.Service
}

func NewDirectoryService(familyRepo repository.FamilyRepository, cacheService cache.Service) DirectoryService {
	return &directoryService{
		familyRepo: familyRepo,
		cache:      cacheService,
	}
}

func (s *directoryService) cacheCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 500*time.Millisecond)
}

func (s *directoryService) FamilyBySlug(slug string) (*domain.Family, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		ctx, cancel := s.cacheCtx()
		defer cancel()
		var cached domain.Family
		if err := s.cache.GetFamily(ctx, slug, &cached); err == nil && cached.ID != 0 {
			return &cached, nil
		}
	}

	family, err := s.familyRepo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		ctx, cancel := s.cacheCtx()
		defer cancel()
		if err := s.cache.SetFamily(ctx, slug, family); err != nil {
			logger.Warn("directory: failed to cache family %s: %v", slug, err)
		}
	}
	return family, nil
}

func (s *directoryService) MemberIDs(familyID uint64) ([]uint64, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		ctx, cancel := s.cacheCtx()
		defer cancel()
		if ids, err := s.cache.GetMemberIDs(ctx, familyID); err == nil && ids != nil {
			return ids, nil
		}
	}

	ids, err := s.familyRepo.MemberIDs(familyID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		ctx, cancel := s.cacheCtx()
		defer cancel()
		if err := s.cache.SetMemberIDs(ctx, familyID, ids); err != nil {
			logger.Warn("directory: failed to cache member ids for family %d: %v", familyID, err)
		}
	}
	return ids, nil
}

func (s *directoryService) RoleOf(familyID, userID uint64) (string, error) {
	member, err := s.familyRepo.FindMember(familyID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *directoryService) IsFamilyMember(familyID, userID uint64) (bool, error) {
	_, err := s.familyRepo.FindMember(familyID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFamilyMember) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *directoryService) ListMembers(familyID uint64) ([]*domain.FamilyMember, error) {
	return s.familyRepo.ListMembers(familyID)
}

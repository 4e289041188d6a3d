package service

import (
	"errors"
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/pkg/logger"
)

// MembershipService owns per-room membership state: admin flags, mute
// windows, read cursors and unread counters.
type MembershipService interface {
	GetMember(roomID, userID uint64) (*domain.ChatRoomMember, error)
	IsMember(roomID, userID uint64) (bool, error)
	IsAdmin(roomID, userID uint64) (bool, error)
	IsMuted(roomID, userID uint64) (bool, error)
	ListMembers(roomID uint64) ([]*domain.ChatRoomMember, error)
	AddMember(roomID, userID uint64, isAdmin bool) (*domain.ChatRoomMember, error)
	RemoveMember(roomID, userID uint64) (bool, error)
	Leave(roomID, userID uint64) error
	MarkRead(roomID, userID uint64) error
	ToggleAdmin(roomID, userID uint64) (bool, error)
	Mute(roomID, userID uint64, durationMinutes int) (*domain.ChatRoomMember, error)
	Unmute(roomID, userID uint64) error
}

type membershipService struct {
	memberRepo repository.RoomMemberRepository
}

func NewMembershipService(memberRepo repository.RoomMemberRepository) MembershipService {
	return &membershipService{memberRepo: memberRepo}
}

// GetMember loads a membership row. Expired mute windows are cleared
// lazily here so every caller observes the member as unmuted.
func (s *membershipService) GetMember(roomID, userID uint64) (*domain.ChatRoomMember, error) {
	member, err := s.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return nil, err
	}
	if member.MuteExpired(time.Now()) {
		if err := s.memberRepo.SetMute(roomID, userID, false, nil); err != nil {
			logger.Warn("membership: failed to clear expired mute for user %d in room %d: %v", userID, roomID, err)
		} else {
			member.IsMuted = false
			member.MutedUntil = nil
		}
	}
	return member, nil
}

func (s *membershipService) IsMember(roomID, userID uint64) (bool, error) {
	_, err := s.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotMember) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *membershipService) IsAdmin(roomID, userID uint64) (bool, error) {
	member, err := s.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotMember) {
			return false, nil
		}
		return false, err
	}
	return member.IsAdmin, nil
}

func (s *membershipService) IsMuted(roomID, userID uint64) (bool, error) {
	member, err := s.GetMember(roomID, userID)
	if err != nil {
		return false, err
	}
	return member.CurrentlyMuted(time.Now()), nil
}

func (s *membershipService) ListMembers(roomID uint64) ([]*domain.ChatRoomMember, error) {
	return s.memberRepo.ListByRoom(roomID)
}

func (s *membershipService) AddMember(roomID, userID uint64, isAdmin bool) (*domain.ChatRoomMember, error) {
	member := &domain.ChatRoomMember{
		RoomID:   roomID,
		UserID:   userID,
		IsAdmin:  isAdmin,
		JoinedAt: time.Now(),
	}
	if err := s.memberRepo.Create(member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember drops a membership row without the last-admin guard.
// Used for admin-initiated removal; self-removal goes through Leave.
func (s *membershipService) RemoveMember(roomID, userID uint64) (bool, error) {
	return s.memberRepo.Remove(roomID, userID)
}

func (s *membershipService) Leave(roomID, userID uint64) error {
	return s.memberRepo.RemoveWithAdminGuard(roomID, userID)
}

func (s *membershipService) MarkRead(roomID, userID uint64) error {
	if _, err := s.memberRepo.FindByRoomAndUser(roomID, userID); err != nil {
		return err
	}
	return s.memberRepo.MarkRead(roomID, userID)
}

// ToggleAdmin flips the admin flag and returns the new state.
func (s *membershipService) ToggleAdmin(roomID, userID uint64) (bool, error) {
	member, err := s.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return false, err
	}
	next := !member.IsAdmin
	if err := s.memberRepo.SetAdmin(roomID, userID, next); err != nil {
		return false, err
	}
	return next, nil
}

// Mute silences a member. durationMinutes <= 0 means an indefinite mute.
func (s *membershipService) Mute(roomID, userID uint64, durationMinutes int) (*domain.ChatRoomMember, error) {
	if _, err := s.memberRepo.FindByRoomAndUser(roomID, userID); err != nil {
		return nil, err
	}
	var until *time.Time
	if durationMinutes > 0 {
		t := time.Now().Add(time.Duration(durationMinutes) * time.Minute)
		until = &t
	}
	if err := s.memberRepo.SetMute(roomID, userID, true, until); err != nil {
		return nil, err
	}
	return s.memberRepo.FindByRoomAndUser(roomID, userID)
}

func (s *membershipService) Unmute(roomID, userID uint64) error {
	if _, err := s.memberRepo.FindByRoomAndUser(roomID, userID); err != nil {
		return err
	}
	return s.memberRepo.SetMute(roomID, userID, false, nil)
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/pkg/logger"
)

// RoomService owns the room lifecycle and member administration. Family
// resolution happens upstream in middleware; every method receives the
// already-validated family.
type RoomService interface {
	CreateRoom(family *domain.Family, creatorID uint64, req *domain.CreateRoomRequest) (*domain.RoomResponse, error)
	FindOrCreateDirect(family *domain.Family, callerID, otherID uint64) (*domain.RoomResponse, error)
	ListRooms(family *domain.Family, userID uint64) ([]*domain.RoomResponse, error)
	GetRoom(family *domain.Family, roomID, userID uint64) (*domain.RoomResponse, error)
	UpdateRoom(family *domain.Family, roomID, actorID uint64, req *domain.UpdateRoomRequest) (*domain.RoomResponse, error)
	ArchiveRoom(family *domain.Family, roomID, actorID uint64) error
	PurgeRoom(family *domain.Family, roomID, actorID uint64) error
	Typing(family *domain.Family, roomID, userID uint64, isTyping bool) error

	ListMembers(family *domain.Family, roomID, callerID uint64) ([]*domain.ChatRoomMember, error)
	AddMembers(family *domain.Family, roomID, actorID uint64, userIDs []uint64) ([]*domain.ChatRoomMember, error)
	RemoveMember(family *domain.Family, roomID, actorID, targetID uint64) (bool, error)
	Leave(family *domain.Family, roomID, userID uint64) error
	ToggleAdmin(family *domain.Family, roomID, actorID, targetID uint64) (bool, error)
	MarkRead(family *domain.Family, roomID, userID uint64) error
	Mute(family *domain.Family, roomID, actorID, targetID uint64, durationMinutes int) (*domain.ChatRoomMember, error)
	Unmute(family *domain.Family, roomID, actorID, targetID uint64) error
}

type roomService struct {
	roomRepo    repository.RoomRepository
	memberRepo  repository.RoomMemberRepository
	userRepo    repository.UserRepository
	membership  MembershipService
	directory   DirectoryService
	broadcaster realtime.Broadcaster
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	memberRepo repository.RoomMemberRepository,
	userRepo repository.UserRepository,
	membership MembershipService,
	directory DirectoryService,
	broadcaster realtime.Broadcaster,
) RoomService {
	return &roomService{
		roomRepo:    roomRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		membership:  membership,
		directory:   directory,
		broadcaster: broadcaster,
	}
}

// roomInFamily loads a room and rejects ids that belong to another family.
// Cross-family access reads as not-found, never as forbidden.
func (s *roomService) roomInFamily(family *domain.Family, roomID uint64) (*domain.ChatRoom, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.FamilyID != family.ID {
		return nil, common.ErrRoomNotFound
	}
	return room, nil
}

// validateFamilyMembers returns the ids from userIDs that are not members
// of the family
func (s *roomService) validateFamilyMembers(familyID uint64, userIDs []uint64) ([]uint64, error) {
	familyIDs, err := s.directory.MemberIDs(familyID)
	if err != nil {
		return nil, err
	}
	inFamily := make(map[uint64]bool, len(familyIDs))
	for _, id := range familyIDs {
		inFamily[id] = true
	}
	var offenders []uint64
	for _, id := range userIDs {
		if !inFamily[id] {
			offenders = append(offenders, id)
		}
	}
	return offenders, nil
}

func (s *roomService) CreateRoom(family *domain.Family, creatorID uint64, req *domain.CreateRoomRequest) (*domain.RoomResponse, error) {
	if !req.Type.Valid() {
		return nil, common.ErrValidation
	}
	if req.Type == domain.RoomTypeDirect {
		// direct rooms go through FindOrCreateDirect so the pair key holds
		return nil, common.ErrValidation
	}

	offenders, err := s.validateFamilyMembers(family.ID, req.MemberIDs)
	if err != nil {
		return nil, err
	}
	if len(offenders) > 0 {
		return nil, &common.InvalidMembersError{UserIDs: offenders}
	}

	now := time.Now()
	members := []*domain.ChatRoomMember{
		{UserID: creatorID, IsAdmin: true, JoinedAt: now},
	}
	seen := map[uint64]bool{creatorID: true}
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, &domain.ChatRoomMember{UserID: id, JoinedAt: now})
	}

	room := &domain.ChatRoom{
		FamilyID:    family.ID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		CreatedBy:   creatorID,
		IsPrivate:   req.IsPrivate,
	}
	if err := s.roomRepo.CreateWithMembers(room, members); err != nil {
		return nil, err
	}

	saved, err := s.roomRepo.FindByID(room.ID)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]uint64, len(members))
	for i, m := range members {
		memberIDs[i] = m.UserID
	}
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:    realtime.EventRoomCreated,
		RoomID:  saved.ID,
		Payload: saved,
	})

	return &domain.RoomResponse{ChatRoom: saved, Membership: members[0]}, nil
}

// FindOrCreateDirect returns the direct room for the pair, creating it on
// first use. The direct_key unique index resolves the concurrent-create
// race: the loser re-reads the winner's room.
func (s *roomService) FindOrCreateDirect(family *domain.Family, callerID, otherID uint64) (*domain.RoomResponse, error) {
	if callerID == otherID {
		return nil, common.ErrValidation
	}
	ok, err := s.directory.IsFamilyMember(family.ID, otherID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &common.InvalidMembersError{UserIDs: []uint64{otherID}}
	}

	key := domain.DirectKeyFor(family.ID, callerID, otherID)
	room, err := s.roomRepo.FindByDirectKey(key)
	if err == nil {
		return s.withMembership(room, callerID)
	}
	if !errors.Is(err, common.ErrRoomNotFound) {
		return nil, err
	}

	users, err := s.userRepo.FindByIDs([]uint64{callerID, otherID})
	if err != nil {
		return nil, err
	}
	name := directRoomName(users)

	now := time.Now()
	room = &domain.ChatRoom{
		FamilyID:  family.ID,
		Name:      name,
		Type:      domain.RoomTypeDirect,
		CreatedBy: callerID,
		IsPrivate: true,
		DirectKey: &key,
	}
	members := []*domain.ChatRoomMember{
		{UserID: callerID, IsAdmin: true, JoinedAt: now},
		{UserID: otherID, IsAdmin: true, JoinedAt: now},
	}
	err = s.roomRepo.CreateWithMembers(room, members)
	if errors.Is(err, common.ErrConflict) {
		// another request created the pair room first
		room, err = s.roomRepo.FindByDirectKey(key)
	}
	if err != nil {
		return nil, err
	}
	return s.withMembership(room, callerID)
}

func directRoomName(users []*domain.User) string {
	switch len(users) {
	case 2:
		return fmt.Sprintf("%s & %s", users[0].DisplayName(), users[1].DisplayName())
	case 1:
		return users[0].DisplayName()
	default:
		return "Direct chat"
	}
}

func (s *roomService) withMembership(room *domain.ChatRoom, userID uint64) (*domain.RoomResponse, error) {
	member, err := s.membership.GetMember(room.ID, userID)
	if err != nil {
		return nil, err
	}
	return &domain.RoomResponse{ChatRoom: room, Membership: member}, nil
}

func (s *roomService) ListRooms(family *domain.Family, userID uint64) ([]*domain.RoomResponse, error) {
	rooms, err := s.roomRepo.ListForUser(family.ID, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.memberRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	byRoom := make(map[uint64]*domain.ChatRoomMember, len(memberships))
	for _, m := range memberships {
		byRoom[m.RoomID] = m
	}

	responses := make([]*domain.RoomResponse, len(rooms))
	for i, room := range rooms {
		responses[i] = &domain.RoomResponse{ChatRoom: room, Membership: byRoom[room.ID]}
	}
	return responses, nil
}

func (s *roomService) GetRoom(family *domain.Family, roomID, userID uint64) (*domain.RoomResponse, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return nil, err
	}
	return s.withMembership(room, userID)
}

// requireRoomAdmin checks that the actor is the creator or a room admin
func (s *roomService) requireRoomAdmin(room *domain.ChatRoom, actorID uint64) error {
	member, err := s.membership.GetMember(room.ID, actorID)
	if err != nil {
		return err
	}
	if actorID != room.CreatedBy && !member.IsAdmin {
		return common.ErrForbidden
	}
	return nil
}

func (s *roomService) UpdateRoom(family *domain.Family, roomID, actorID uint64, req *domain.UpdateRoomRequest) (*domain.RoomResponse, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRoomAdmin(room, actorID); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, common.ErrNoUpdates
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsPrivate != nil {
		updates["is_private"] = *req.IsPrivate
	}
	if req.Settings != nil {
		updates["settings"] = *req.Settings
	}
	if err := s.roomRepo.Update(roomID, updates); err != nil {
		return nil, err
	}

	saved, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	s.publishToRoom(roomID, realtime.EventRoomUpdated, saved)
	return s.withMembership(saved, actorID)
}

// ArchiveRoom hides the room from listings and blocks new messages.
// Room admins, the creator and the family owner may archive.
func (s *roomService) ArchiveRoom(family *domain.Family, roomID, actorID uint64) error {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return err
	}

	if err := s.requireRoomAdmin(room, actorID); err != nil {
		role, roleErr := s.directory.RoleOf(family.ID, actorID)
		if roleErr != nil || role != domain.RoleOwner {
			return err
		}
	}

	// events go out before the membership rows are considered stale
	memberIDs, err := s.memberRepo.MemberIDs(roomID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.Archive(roomID); err != nil {
		return err
	}
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:   realtime.EventRoomArchived,
		RoomID: roomID,
	})
	return nil
}

// PurgeRoom hard-deletes the room with its messages, reactions and
// members. Family owners only; archiving is the normal end of life for a
// room, this is the data-removal path.
func (s *roomService) PurgeRoom(family *domain.Family, roomID, actorID uint64) error {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return err
	}
	role, err := s.directory.RoleOf(family.ID, actorID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner {
		return common.ErrForbidden
	}

	memberIDs, err := s.memberRepo.MemberIDs(room.ID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.Purge(room.ID); err != nil {
		return err
	}
	// clients treat a purge like an archive: the room is gone either way
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:   realtime.EventRoomArchived,
		RoomID: room.ID,
	})
	return nil
}

func (s *roomService) Typing(family *domain.Family, roomID, userID uint64, isTyping bool) error {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return err
	}
	if _, err := s.membership.GetMember(room.ID, userID); err != nil {
		return err
	}
	s.publishToRoom(roomID, realtime.EventTyping, map[string]interface{}{
		"user_id":   userID,
		"is_typing": isTyping,
	})
	return nil
}

func (s *roomService) ListMembers(family *domain.Family, roomID, callerID uint64) ([]*domain.ChatRoomMember, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.GetMember(room.ID, callerID); err != nil {
		return nil, err
	}
	return s.membership.ListMembers(roomID)
}

func (s *roomService) AddMembers(family *domain.Family, roomID, actorID uint64, userIDs []uint64) ([]*domain.ChatRoomMember, error) {
	if len(userIDs) == 0 {
		return nil, common.ErrValidation
	}
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsArchived {
		return nil, common.ErrRoomArchived
	}
	if room.Type == domain.RoomTypeDirect {
		return nil, common.ErrValidation
	}
	if err := s.requireRoomAdmin(room, actorID); err != nil {
		return nil, err
	}

	offenders, err := s.validateFamilyMembers(family.ID, userIDs)
	if err != nil {
		return nil, err
	}
	if len(offenders) > 0 {
		return nil, &common.InvalidMembersError{UserIDs: offenders}
	}

	added := make([]*domain.ChatRoomMember, 0, len(userIDs))
	for _, id := range userIDs {
		member, err := s.membership.AddMember(roomID, id, false)
		if err != nil {
			return nil, err
		}
		added = append(added, member)
	}

	s.publishToRoom(roomID, realtime.EventMemberAdded, map[string]interface{}{
		"user_ids": userIDs,
		"added_by": actorID,
	})
	return added, nil
}

// RemoveMember is the admin-initiated removal; it skips the last-admin
// guard and is a no-op when the target is not a member.
func (s *roomService) RemoveMember(family *domain.Family, roomID, actorID, targetID uint64) (bool, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return false, err
	}
	if err := s.requireRoomAdmin(room, actorID); err != nil {
		return false, err
	}

	removed, err := s.membership.RemoveMember(roomID, targetID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publishToRoom(roomID, realtime.EventMemberRemoved, map[string]interface{}{
			"user_id":    targetID,
			"removed_by": actorID,
		})
		s.broadcaster.Publish([]uint64{targetID}, &realtime.Event{
			Type:   realtime.EventMemberRemoved,
			RoomID: roomID,
			Payload: map[string]interface{}{
				"user_id": targetID,
			},
		})
	}
	return removed, nil
}

func (s *roomService) Leave(family *domain.Family, roomID, userID uint64) error {
	if _, err := s.roomInFamily(family, roomID); err != nil {
		return err
	}
	if err := s.membership.Leave(roomID, userID); err != nil {
		return err
	}
	s.publishToRoom(roomID, realtime.EventMemberRemoved, map[string]interface{}{
		"user_id": userID,
		"left":    true,
	})
	return nil
}

func (s *roomService) ToggleAdmin(family *domain.Family, roomID, actorID, targetID uint64) (bool, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return false, err
	}
	if err := s.requireRoomAdmin(room, actorID); err != nil {
		return false, err
	}
	return s.membership.ToggleAdmin(roomID, targetID)
}

func (s *roomService) MarkRead(family *domain.Family, roomID, userID uint64) error {
	if _, err := s.roomInFamily(family, roomID); err != nil {
		return err
	}
	return s.membership.MarkRead(roomID, userID)
}

// Mute silences targetID. Admins may mute others; any member may mute
// themselves (the "do not disturb me here" case).
func (s *roomService) Mute(family *domain.Family, roomID, actorID, targetID uint64, durationMinutes int) (*domain.ChatRoomMember, error) {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return nil, err
	}
	if actorID != targetID {
		if err := s.requireRoomAdmin(room, actorID); err != nil {
			return nil, err
		}
	}
	return s.membership.Mute(roomID, targetID, durationMinutes)
}

func (s *roomService) Unmute(family *domain.Family, roomID, actorID, targetID uint64) error {
	room, err := s.roomInFamily(family, roomID)
	if err != nil {
		return err
	}
	if actorID != targetID {
		if err := s.requireRoomAdmin(room, actorID); err != nil {
			return err
		}
	}
	return s.membership.Unmute(roomID, targetID)
}

func (s *roomService) publishToRoom(roomID uint64, eventType string, payload interface{}) {
	memberIDs, err := s.memberRepo.MemberIDs(roomID)
	if err != nil {
		logger.Warn("rooms: failed to list members of room %d for %s event: %v", roomID, eventType, err)
		return
	}
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:    eventType,
		RoomID:  roomID,
		Payload: payload,
	})
}

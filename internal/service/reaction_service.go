package service

import (
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/hearthside/hearthside-backend/internal/repository"
)

// ReactionService toggles emoji reactions on messages. A user holds at
// most one reaction per (message, emoji) pair.
type ReactionService interface {
	Add(messageID, userID uint64, emoji string) (*domain.MessageReaction, error)
	Remove(messageID, userID uint64, emoji string) error
}

type reactionService struct {
	reactionRepo repository.ReactionRepository
	messageRepo  repository.MessageRepository
	memberRepo   repository.RoomMemberRepository
	membership   MembershipService
	broadcaster  realtime.Broadcaster
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	messageRepo repository.MessageRepository,
	memberRepo repository.RoomMemberRepository,
	membership MembershipService,
	broadcaster realtime.Broadcaster,
) ReactionService {
	return &reactionService{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		memberRepo:   memberRepo,
		membership:   membership,
		broadcaster:  broadcaster,
	}
}

func (s *reactionService) Add(messageID, userID uint64, emoji string) (*domain.MessageReaction, error) {
	if !domain.IsEmoji(emoji) {
		return nil, common.ErrInvalidEmoji
	}

	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, common.ErrMessageDeleted
	}
	if _, err := s.membership.GetMember(msg.RoomID, userID); err != nil {
		return nil, err
	}

	exists, err := s.reactionRepo.Exists(messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrDuplicateReaction
	}

	reaction := &domain.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	// Add also translates the unique-constraint race into ErrDuplicateReaction
	if err := s.reactionRepo.Add(reaction); err != nil {
		return nil, err
	}

	s.publish(realtime.EventReactionAdded, msg.RoomID, messageID, userID, emoji)
	return reaction, nil
}

func (s *reactionService) Remove(messageID, userID uint64, emoji string) error {
	if !domain.IsEmoji(emoji) {
		return common.ErrInvalidEmoji
	}

	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	if _, err := s.membership.GetMember(msg.RoomID, userID); err != nil {
		return err
	}

	removed, err := s.reactionRepo.Remove(messageID, userID, emoji)
	if err != nil {
		return err
	}
	if !removed {
		return common.ErrReactionNotFound
	}

	s.publish(realtime.EventReactionRemoved, msg.RoomID, messageID, userID, emoji)
	return nil
}

func (s *reactionService) publish(eventType string, roomID, messageID, userID uint64, emoji string) {
	memberIDs, err := s.memberRepo.MemberIDs(roomID)
	if err != nil {
		return
	}
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:   eventType,
		RoomID: roomID,
		Payload: map[string]interface{}{
			"message_id": messageID,
			"user_id":    userID,
			"emoji":      emoji,
		},
	})
}

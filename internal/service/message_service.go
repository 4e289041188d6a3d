package service

import (
	"context"
	"strconv"
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/internal/push"
	"github.com/hearthside/hearthside-backend/pkg/elasticsearch"
	"github.com/hearthside/hearthside-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	messageIndex     = "chat_messages"
	defaultPageSize  = 50
	maxPageSize      = 100
	pushBodyMaxRunes = 120
)

var messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chat_messages_sent_total",
	Help: "Total chat messages accepted, by type",
}, []string{"type"})

// MessageService owns the message lifecycle: send, paginate, edit,
// soft-delete and search. Every write fans out to connected clients and,
// for sends, to the push gateway; fan-out failure never fails the write.
type MessageService interface {
	Send(roomID, senderID uint64, req *domain.SendMessageRequest) (*domain.MessageResponse, error)
	List(roomID, callerID, beforeID uint64, perPage int) ([]*domain.MessageResponse, *common.Meta, error)
	Edit(messageID, actorID uint64, req *domain.EditMessageRequest) (*domain.MessageResponse, error)
	Delete(messageID, actorID uint64) error
	Search(roomID, callerID uint64, query string, limit int) ([]*domain.MessageResponse, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	memberRepo  repository.RoomMemberRepository
	roomRepo    repository.RoomRepository
	reactions   repository.ReactionRepository
	membership  MembershipService
	broadcaster realtime.Broadcaster
	pushGateway push.Gateway
	es          *elasticsearch.Client
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	memberRepo repository.RoomMemberRepository,
	roomRepo repository.RoomRepository,
	reactions repository.ReactionRepository,
	membership MembershipService,
	broadcaster realtime.Broadcaster,
	pushGateway push.Gateway,
	es *elasticsearch.Client,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		memberRepo:  memberRepo,
		roomRepo:    roomRepo,
		reactions:   reactions,
		membership:  membership,
		broadcaster: broadcaster,
		pushGateway: pushGateway,
		es:          es,
	}
}

func (s *messageService) Send(roomID, senderID uint64, req *domain.SendMessageRequest) (*domain.MessageResponse, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.IsArchived {
		return nil, common.ErrRoomArchived
	}

	member, err := s.membership.GetMember(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if member.CurrentlyMuted(time.Now()) {
		return nil, common.ErrMuted
	}

	if req.ReplyToID != nil {
		parent, err := s.messageRepo.FindByID(*req.ReplyToID)
		if err != nil {
			return nil, common.ErrInvalidReply
		}
		if parent.RoomID != roomID {
			return nil, common.ErrInvalidReply
		}
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
		if len(req.Attachments) > 0 {
			msgType = domain.MessageTypeAttachment
		}
	}
	if !msgType.Valid() {
		return nil, common.ErrValidation
	}

	attachments, err := domain.EncodeAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}
	metadata, err := domain.EncodeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		RoomID:      roomID,
		SenderID:    senderID,
		ReplyToID:   req.ReplyToID,
		Body:        req.Message,
		Type:        msgType,
		Attachments: attachments,
		Metadata:    metadata,
	}
	if err := s.messageRepo.CreateInRoom(msg); err != nil {
		return nil, err
	}
	messagesSent.WithLabelValues(string(msgType)).Inc()

	// reload with sender/reply preloads for the response and fan-out payload
	saved, err := s.messageRepo.FindByID(msg.ID)
	if err != nil {
		return nil, err
	}
	resp := &domain.MessageResponse{
		ChatMessage: saved,
		Attachments: saved.DecodeAttachments(),
	}

	s.fanOutSend(room, saved, resp)
	s.indexMessage(saved)
	return resp, nil
}

// fanOutSend broadcasts to every member and pushes to unmuted members
// other than the sender. Errors are logged, never returned.
func (s *messageService) fanOutSend(room *domain.ChatRoom, msg *domain.ChatMessage, resp *domain.MessageResponse) {
	memberIDs, err := s.memberRepo.MemberIDs(room.ID)
	if err != nil {
		logger.Warn("fan-out: failed to list members of room %d: %v", room.ID, err)
		return
	}
	s.broadcaster.Publish(memberIDs, &realtime.Event{
		Type:    realtime.EventMessageSent,
		RoomID:  room.ID,
		Payload: resp,
	})

	unmuted, err := s.memberRepo.UnmutedMemberIDs(room.ID, time.Now())
	if err != nil {
		logger.Warn("fan-out: failed to list unmuted members of room %d: %v", room.ID, err)
		return
	}
	targets := make([]uint64, 0, len(unmuted))
	for _, id := range unmuted {
		if id != msg.SenderID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return
	}

	body := msg.Body
	if msg.Sender != nil {
		body = msg.Sender.DisplayName() + ": " + body
	}
	if runes := []rune(body); len(runes) > pushBodyMaxRunes {
		body = string(runes[:pushBodyMaxRunes])
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.pushGateway.Notify(ctx, targets, room.Name, body, map[string]interface{}{
		"room_id":    room.ID,
		"message_id": msg.ID,
	}); err != nil {
		logger.Warn("fan-out: push for message %d failed: %v", msg.ID, err)
	}
}

func (s *messageService) List(roomID, callerID, beforeID uint64, perPage int) ([]*domain.MessageResponse, *common.Meta, error) {
	if _, err := s.roomRepo.FindByID(roomID); err != nil {
		return nil, nil, err
	}
	if _, err := s.membership.GetMember(roomID, callerID); err != nil {
		return nil, nil, err
	}
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}

	// fetch one extra row to learn whether an older page exists
	messages, err := s.messageRepo.ListByRoom(roomID, beforeID, perPage+1)
	if err != nil {
		return nil, nil, err
	}
	hasMore := len(messages) > perPage
	if hasMore {
		messages = messages[:perPage]
	}

	responses, err := s.decorate(messages, callerID)
	if err != nil {
		return nil, nil, err
	}

	meta := &common.Meta{PerPage: perPage, HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		meta.NextBeforeID = messages[len(messages)-1].ID
	}
	return responses, meta, nil
}

// decorate attaches decoded attachments and reaction summaries
func (s *messageService) decorate(messages []*domain.ChatMessage, callerID uint64) ([]*domain.MessageResponse, error) {
	ids := make([]uint64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	summaries, err := s.reactions.SummaryForMessages(ids, callerID)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.MessageResponse, len(messages))
	for i, m := range messages {
		responses[i] = &domain.MessageResponse{
			ChatMessage: m,
			Attachments: m.DecodeAttachments(),
			Reactions:   summaries[m.ID],
		}
	}
	return responses, nil
}

func (s *messageService) Edit(messageID, actorID uint64, req *domain.EditMessageRequest) (*domain.MessageResponse, error) {
	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, common.ErrForbidden
	}
	if msg.IsDeleted {
		return nil, common.ErrMessageDeleted
	}
	if !msg.CanEdit(actorID, time.Now()) {
		return nil, common.ErrEditWindow
	}

	now := time.Now()
	err = s.messageRepo.Update(messageID, map[string]interface{}{
		"body":      req.Message,
		"is_edited": true,
		"edited_at": now,
	})
	if err != nil {
		return nil, err
	}

	saved, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	resp := &domain.MessageResponse{
		ChatMessage: saved,
		Attachments: saved.DecodeAttachments(),
	}

	if memberIDs, err := s.memberRepo.MemberIDs(saved.RoomID); err == nil {
		s.broadcaster.Publish(memberIDs, &realtime.Event{
			Type:    realtime.EventMessageEdited,
			RoomID:  saved.RoomID,
			Payload: resp,
		})
	}
	s.indexMessage(saved)
	return resp, nil
}

// Delete soft-deletes: the author or a room admin may do it. The body is
// scrubbed but the row stays so replies keep a target.
func (s *messageService) Delete(messageID, actorID uint64) error {
	msg, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		isAdmin, err := s.membership.IsAdmin(msg.RoomID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return common.ErrForbidden
		}
	}
	if msg.IsDeleted {
		// already scrubbed, nothing to do
		return nil
	}

	if err := s.messageRepo.SoftDelete(messageID); err != nil {
		return err
	}

	if memberIDs, err := s.memberRepo.MemberIDs(msg.RoomID); err == nil {
		s.broadcaster.Publish(memberIDs, &realtime.Event{
			Type:   realtime.EventMessageDeleted,
			RoomID: msg.RoomID,
			Payload: map[string]interface{}{
				"message_id": messageID,
			},
		})
	}
	s.removeFromIndex(messageID)
	return nil
}

func (s *messageService) Search(roomID, callerID uint64, query string, limit int) ([]*domain.MessageResponse, error) {
	if _, err := s.membership.GetMember(roomID, callerID); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, common.ErrValidation
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	if s.es != nil {
		messages, err := s.searchIndexed(roomID, query, limit)
		if err == nil {
			return s.decorate(messages, callerID)
		}
		logger.Warn("search: elasticsearch query failed, falling back to LIKE: %v", err)
	}

	messages, err := s.messageRepo.SearchLike(roomID, query, limit)
	if err != nil {
		return nil, err
	}
	return s.decorate(messages, callerID)
}

func (s *messageService) searchIndexed(roomID uint64, query string, limit int) ([]*domain.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := s.es.Search(ctx, messageIndex, map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{"match": map[string]interface{}{"body": query}},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"room_id": roomID}},
					map[string]interface{}{"term": map[string]interface{}{"is_deleted": false}},
				},
			},
		},
	}, 0, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(result.Results))
	for _, hit := range result.Results {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return s.messageRepo.FindByIDs(ids)
}

// indexMessage mirrors a message into elasticsearch, best-effort
func (s *messageService) indexMessage(msg *domain.ChatMessage) {
	if s.es == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		doc := map[string]interface{}{
			"room_id":    msg.RoomID,
			"sender_id":  msg.SenderID,
			"body":       msg.Body,
			"type":       msg.Type,
			"is_deleted": msg.IsDeleted,
			"created_at": msg.CreatedAt,
		}
		if err := s.es.IndexDocument(ctx, messageIndex, strconv.FormatUint(msg.ID, 10), doc); err != nil {
			logger.Warn("search: failed to index message %d: %v", msg.ID, err)
		}
	}()
}

func (s *messageService) removeFromIndex(messageID uint64) {
	if s.es == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.es.DeleteDocument(ctx, messageIndex, strconv.FormatUint(messageID, 10)); err != nil {
			logger.Warn("search: failed to deindex message %d: %v", messageID, err)
		}
	}()
}

package repository

import (
	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"gorm.io/gorm"
)

// ReactionRepository handles message reaction data access
type ReactionRepository interface {
	Add(reaction *domain.MessageReaction) error
	Exists(messageID, userID uint64, emoji string) (bool, error)
	Remove(messageID, userID uint64, emoji string) (bool, error)
	SummaryForMessages(messageIDs []uint64, userID uint64) (map[uint64][]domain.ReactionSummary, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Add inserts a reaction; a lost race on the unique triple comes back as
// the same Conflict the pre-check would have produced.
func (r *reactionRepository) Add(reaction *domain.MessageReaction) error {
	if err := r.db.Create(reaction).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return common.ErrDuplicateReaction
		}
		return err
	}
	return nil
}

func (r *reactionRepository) Exists(messageID, userID uint64, emoji string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.MessageReaction{}).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Count(&count).Error
	return count > 0, err
}

// Remove deletes by triple; reports whether a row actually went away
func (r *reactionRepository) Remove(messageID, userID uint64, emoji string) (bool, error) {
	result := r.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&domain.MessageReaction{})
	return result.RowsAffected > 0, result.Error
}

type reactionCountRow struct {
	MessageID uint64
	Emoji     string
	Count     int64
}

// SummaryForMessages returns grouped per-emoji counts for a batch of
// messages; the requesting user's own reactions mark Reacted. The flag is
// derived here, never stored.
func (r *reactionRepository) SummaryForMessages(messageIDs []uint64, userID uint64) (map[uint64][]domain.ReactionSummary, error) {
	result := make(map[uint64][]domain.ReactionSummary)
	if len(messageIDs) == 0 {
		return result, nil
	}

	var rows []reactionCountRow
	err := r.db.Model(&domain.MessageReaction{}).
		Select("message_id, emoji, COUNT(*) as count").
		Where("message_id IN ?", messageIDs).
		Group("message_id, emoji").
		Order("MIN(id) ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	mine := make(map[uint64]map[string]bool)
	if userID != 0 {
		var own []domain.MessageReaction
		err := r.db.Where("user_id = ? AND message_id IN ?", userID, messageIDs).
			Find(&own).Error
		if err != nil {
			return nil, err
		}
		for _, reaction := range own {
			if mine[reaction.MessageID] == nil {
				mine[reaction.MessageID] = make(map[string]bool)
			}
			mine[reaction.MessageID][reaction.Emoji] = true
		}
	}

	for _, row := range rows {
		summary := domain.ReactionSummary{
			Emoji: row.Emoji,
			Count: row.Count,
		}
		if own, ok := mine[row.MessageID]; ok {
			summary.Reacted = own[row.Emoji]
		}
		result[row.MessageID] = append(result[row.MessageID], summary)
	}

	return result, nil
}

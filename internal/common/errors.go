package common

import (
	"errors"
	"fmt"
	"strings"
)

// Business logic errors
var (
	// General errors
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	// Room errors
	ErrRoomNotFound    = fmt.Errorf("chat room %w", ErrNotFound)
	ErrRoomArchived    = fmt.Errorf("chat room is archived: %w", ErrValidation)
	ErrNotMember       = fmt.Errorf("not a member of this room: %w", ErrForbidden)
	ErrMuted           = fmt.Errorf("sender is muted in this room: %w", ErrForbidden)
	ErrNoUpdates       = fmt.Errorf("no updates provided: %w", ErrValidation)
	ErrLastAdmin       = fmt.Errorf("cannot leave as the only admin: %w", ErrValidation)
	ErrDuplicateMember = fmt.Errorf("already a member of this room: %w", ErrConflict)

	// Message errors
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrMessageDeleted  = fmt.Errorf("message is deleted: %w", ErrForbidden)
	ErrEditWindow      = fmt.Errorf("edit window has expired: %w", ErrForbidden)
	ErrInvalidReply    = fmt.Errorf("reply target belongs to another room: %w", ErrValidation)

	// Reaction errors
	ErrDuplicateReaction = fmt.Errorf("reaction already exists: %w", ErrConflict)
	ErrReactionNotFound  = fmt.Errorf("reaction %w", ErrNotFound)
	ErrInvalidEmoji      = fmt.Errorf("invalid emoji: %w", ErrValidation)

	// Directory errors
	ErrFamilyNotFound  = fmt.Errorf("family %w", ErrNotFound)
	ErrNotFamilyMember = fmt.Errorf("not a member of this family: %w", ErrForbidden)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
)

// InvalidMembersError reports user ids that do not belong to the family
type InvalidMembersError struct {
	UserIDs []uint64
}

func (e *InvalidMembersError) Error() string {
	parts := make([]string, len(e.UserIDs))
	for i, id := range e.UserIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("users not in family: [%s]", strings.Join(parts, ", "))
}

// Unwrap makes InvalidMembersError match ErrValidation
func (e *InvalidMembersError) Unwrap() error {
	return ErrValidation
}

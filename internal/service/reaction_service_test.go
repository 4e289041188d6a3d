package service

import (
	"testing"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) sendMessage(t *testing.T, roomID, senderID uint64) *domain.MessageResponse {
	t.Helper()
	msg, err := e.messages.Send(roomID, senderID, &domain.SendMessageRequest{Message: "react here"})
	require.NoError(t, err)
	return msg
}

func TestAddReactionDuplicateIsRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	_, err := env.reactions.Add(msg.ID, bob.ID, "👍")
	require.NoError(t, err)

	// a reject, not a toggle: the reaction stays
	_, err = env.reactions.Add(msg.ID, bob.ID, "👍")
	assert.ErrorIs(t, err, common.ErrDuplicateReaction)

	summaries, err := env.reactRepo.SummaryForMessages([]uint64{msg.ID}, bob.ID)
	require.NoError(t, err)
	require.Len(t, summaries[msg.ID], 1)
	assert.EqualValues(t, 1, summaries[msg.ID][0].Count)
}

func TestSameEmojiFromDifferentUsersCounts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	_, err := env.reactions.Add(msg.ID, alice.ID, "🎉")
	require.NoError(t, err)
	_, err = env.reactions.Add(msg.ID, bob.ID, "🎉")
	require.NoError(t, err)

	summaries, err := env.reactRepo.SummaryForMessages([]uint64{msg.ID}, alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries[msg.ID], 1)
	assert.EqualValues(t, 2, summaries[msg.ID][0].Count)
	assert.True(t, summaries[msg.ID][0].Reacted)
}

func TestRemoveMissingReactionIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	err := env.reactions.Remove(msg.ID, bob.ID, "👍")
	assert.ErrorIs(t, err, common.ErrReactionNotFound)
}

func TestRemoveReaction(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	_, err := env.reactions.Add(msg.ID, bob.ID, "😀")
	require.NoError(t, err)
	require.NoError(t, env.reactions.Remove(msg.ID, bob.ID, "😀"))

	summaries, err := env.reactRepo.SummaryForMessages([]uint64{msg.ID}, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries[msg.ID])

	types := env.broadcast.eventTypes()
	assert.Contains(t, types, realtime.EventReactionAdded)
	assert.Contains(t, types, realtime.EventReactionRemoved)
}

func TestReactionRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	carol := env.createUser(t, "carol")
	family := env.createFamily(t, "smith", alice.ID, carol.ID)
	room := env.createRoomWith(t, family, alice.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	_, err := env.reactions.Add(msg.ID, carol.ID, "👍")
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestReactionOnDeletedMessageIsRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	require.NoError(t, env.messages.Delete(msg.ID, alice.ID))

	_, err := env.reactions.Add(msg.ID, bob.ID, "👍")
	assert.ErrorIs(t, err, common.ErrMessageDeleted)
}

func TestReactionEmojiValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)
	msg := env.sendMessage(t, room.ID, alice.ID)

	for _, bad := range []string{"", "thumbs up", "a", "<script>", "👍👍👍👍👍👍"} {
		_, err := env.reactions.Add(msg.ID, bob.ID, bad)
		assert.ErrorIs(t, err, common.ErrInvalidEmoji, "emoji %q should be rejected", bad)
	}

	for _, good := range []string{"👍", "❤️", "🇰🇷", "1️⃣", "👋🏽"} {
		_, err := env.reactions.Add(msg.ID, bob.ID, good)
		assert.NoError(t, err, "emoji %q should be accepted", good)
	}
}

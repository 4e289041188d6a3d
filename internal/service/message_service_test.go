package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hearthside/hearthside-backend/internal/common"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	pkges "github.com/hearthside/hearthside-backend/pkg/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentSendsLoseNoUnreadIncrements(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	family := env.createFamily(t, "smith", alice.ID, bob.ID, carol.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID, carol.ID)

	const perSender = 5
	var wg sync.WaitGroup
	for _, sender := range []uint64{alice.ID, bob.ID} {
		wg.Add(1)
		go func(senderID uint64) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := env.messages.Send(room.ID, senderID, &domain.SendMessageRequest{
					Message: fmt.Sprintf("message %d from %d", i, senderID),
				})
				assert.NoError(t, err)
			}
		}(sender)
	}
	wg.Wait()

	// every increment lands: carol saw all 10, each sender only the other's 5
	assert.Equal(t, 2*perSender, env.memberOf(t, room.ID, carol.ID).UnreadCount)
	assert.Equal(t, perSender, env.memberOf(t, room.ID, alice.ID).UnreadCount)
	assert.Equal(t, perSender, env.memberOf(t, room.ID, bob.ID).UnreadCount)
}

func TestSendIncrementsOthersUnreadOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	family := env.createFamily(t, "smith", alice.ID, bob.ID, carol.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID, carol.ID)

	_, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)

	assert.EqualValues(t, 0, env.memberOf(t, room.ID, alice.ID).UnreadCount)
	assert.EqualValues(t, 1, env.memberOf(t, room.ID, bob.ID).UnreadCount)
	assert.EqualValues(t, 1, env.memberOf(t, room.ID, carol.ID).UnreadCount)

	// a second message bumps the counters again, independently
	_, err = env.messages.Send(room.ID, bob.ID, &domain.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, env.memberOf(t, room.ID, alice.ID).UnreadCount)
	assert.EqualValues(t, 1, env.memberOf(t, room.ID, bob.ID).UnreadCount)
	assert.EqualValues(t, 2, env.memberOf(t, room.ID, carol.ID).UnreadCount)
}

func TestSendUpdatesRoomLastMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "first"})
	require.NoError(t, err)

	saved, err := env.roomRepo.FindByID(room.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.LastMessageID)
	assert.Equal(t, msg.ID, *saved.LastMessageID)
	assert.NotNil(t, saved.LastMessageAt)
}

func TestSendRejectsMutedSender(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	_, err := env.membership.Mute(room.ID, bob.ID, 30)
	require.NoError(t, err)

	_, err = env.messages.Send(room.ID, bob.ID, &domain.SendMessageRequest{Message: "let me talk"})
	assert.ErrorIs(t, err, common.ErrMuted)
}

func TestSendRejectsNonMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	carol := env.createUser(t, "carol")
	family := env.createFamily(t, "smith", alice.ID, carol.ID)
	room := env.createRoomWith(t, family, alice.ID)

	_, err := env.messages.Send(room.ID, carol.ID, &domain.SendMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestSendRejectsArchivedRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	require.NoError(t, env.rooms.ArchiveRoom(family, room.ID, alice.ID))

	_, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "too late"})
	assert.ErrorIs(t, err, common.ErrRoomArchived)
}

func TestSendRejectsCrossRoomReply(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	roomA := env.createRoomWith(t, family, alice.ID, bob.ID)
	roomB := env.createRoomWith(t, family, alice.ID, bob.ID)

	parent, err := env.messages.Send(roomA.ID, alice.ID, &domain.SendMessageRequest{Message: "in room A"})
	require.NoError(t, err)

	_, err = env.messages.Send(roomB.ID, bob.ID, &domain.SendMessageRequest{
		Message:   "replying across rooms",
		ReplyToID: &parent.ID,
	})
	assert.ErrorIs(t, err, common.ErrInvalidReply)
}

func TestSendPushSkipsSenderAndMuted(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	family := env.createFamily(t, "smith", alice.ID, bob.ID, carol.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID, carol.ID)

	_, err := env.membership.Mute(room.ID, carol.ID, 30)
	require.NoError(t, err)

	_, err = env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "ping"})
	require.NoError(t, err)

	require.Equal(t, 1, env.push.callCount())
	assert.Equal(t, []uint64{bob.ID}, env.push.targets[0])
}

func TestPushFailureDoesNotFailSend(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	env.push.Err = assert.AnError

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "still lands"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
}

func TestEditWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "typo"})
	require.NoError(t, err)

	edited, err := env.messages.Edit(msg.ID, alice.ID, &domain.EditMessageRequest{Message: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Body)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)

	// edits are re-entrant
	again, err := env.messages.Edit(msg.ID, alice.ID, &domain.EditMessageRequest{Message: "fixed again"})
	require.NoError(t, err)
	assert.Equal(t, "fixed again", again.Body)
}

func TestEditAfterWindowIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "old"})
	require.NoError(t, err)

	// age the message past the 24h window
	require.NoError(t, env.messageRepo.ForceCreatedAt(msg.ID, time.Now().Add(-25*time.Hour)))

	_, err = env.messages.Edit(msg.ID, alice.ID, &domain.EditMessageRequest{Message: "too late"})
	assert.ErrorIs(t, err, common.ErrEditWindow)
}

func TestEditByNonAuthorIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "mine"})
	require.NoError(t, err)

	_, err = env.messages.Edit(msg.ID, bob.ID, &domain.EditMessageRequest{Message: "hijack"})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestSoftDeleteScrubsContent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{
		Message:     "secret",
		Attachments: []domain.Attachment{{URL: "https://cdn.example/file.png"}},
	})
	require.NoError(t, err)

	require.NoError(t, env.messages.Delete(msg.ID, alice.ID))

	stored, err := env.messageRepo.FindByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeletedMessageBody, stored.Body)
	assert.Nil(t, stored.Attachments)
	assert.Nil(t, stored.Metadata)
	assert.True(t, stored.IsDeleted)
	assert.NotNil(t, stored.DeletedAt)

	// deleted messages cannot be edited
	_, err = env.messages.Edit(msg.ID, alice.ID, &domain.EditMessageRequest{Message: "resurrect"})
	assert.ErrorIs(t, err, common.ErrMessageDeleted)
}

func TestSecondDeleteByNonAuthorIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "gone"})
	require.NoError(t, err)
	require.NoError(t, env.messages.Delete(msg.ID, alice.ID))

	// bob is neither the author nor an admin
	err = env.messages.Delete(msg.ID, bob.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// the author retrying is a harmless no-op
	assert.NoError(t, env.messages.Delete(msg.ID, alice.ID))
}

func TestRoomAdminMayDeleteOthersMessages(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, bob.ID, &domain.SendMessageRequest{Message: "rule breaking"})
	require.NoError(t, err)

	// alice created the room, so she is an admin
	assert.NoError(t, env.messages.Delete(msg.ID, alice.ID))
}

func TestListExcludesDeletedAndPaginatesBackward(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	var ids []uint64
	for i := 0; i < 5; i++ {
		msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "msg"})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	require.NoError(t, env.messages.Delete(ids[2], alice.ID))

	// first page, newest first
	page, meta, err := env.messages.List(room.ID, bob.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.True(t, meta.HasMore)
	assert.Equal(t, ids[3], meta.NextBeforeID)

	// second page skips the deleted message
	page, meta, err = env.messages.List(room.ID, bob.ID, meta.NextBeforeID, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[0], page[1].ID)
	assert.False(t, meta.HasMore)
}

func TestListIncludesReactionSummaries(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	msg, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "react to me"})
	require.NoError(t, err)

	_, err = env.reactions.Add(msg.ID, alice.ID, "❤️")
	require.NoError(t, err)
	_, err = env.reactions.Add(msg.ID, bob.ID, "❤️")
	require.NoError(t, err)

	page, _, err := env.messages.List(room.ID, bob.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Len(t, page[0].Reactions, 1)
	assert.Equal(t, "❤️", page[0].Reactions[0].Emoji)
	assert.EqualValues(t, 2, page[0].Reactions[0].Count)
	assert.True(t, page[0].Reactions[0].Reacted)
}

func TestSearchFallsBackToLike(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	_, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "picnic on saturday"})
	require.NoError(t, err)
	_, err = env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "unrelated"})
	require.NoError(t, err)

	results, err := env.messages.Search(room.ID, bob.ID, "picnic", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Body, "picnic")
}

func TestSearchUsesIndexWhenConfigured(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	family := env.createFamily(t, "smith", alice.ID)
	room := env.createRoomWith(t, family, alice.ID)

	pancake, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "pancake recipe"})
	require.NoError(t, err)
	_, err = env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "soccer practice"})
	require.NoError(t, err)

	// stub cluster: the info ping plus one canned hit for the search
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "_search") {
			fmt.Fprintf(w, `{"hits":{"total":{"value":1},"hits":[{"_id":"%d","_score":1.0}]}}`, pancake.ID)
			return
		}
		fmt.Fprint(w, `{"version":{"number":"8.14.0"}}`)
	}))
	defer server.Close()

	esClient, err := pkges.NewClient([]string{server.URL}, "", "")
	require.NoError(t, err)

	withES := NewMessageService(env.messageRepo, env.memberRepo, env.roomRepo, env.reactRepo, env.membership, env.broadcast, env.push, esClient)
	results, err := withES.Search(room.ID, alice.ID, "pancake", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, pancake.ID, results[0].ID)
}

func TestSendBroadcastsToAllMembers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	family := env.createFamily(t, "smith", alice.ID, bob.ID)
	room := env.createRoomWith(t, family, alice.ID, bob.ID)

	_, err := env.messages.Send(room.ID, alice.ID, &domain.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)

	types := env.broadcast.eventTypes()
	assert.Contains(t, types, realtime.EventMessageSent)
}

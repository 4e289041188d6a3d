package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/handler"
	"github.com/hearthside/hearthside-backend/internal/migration"
	"github.com/hearthside/hearthside-backend/internal/push"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"github.com/hearthside/hearthside-backend/internal/routes"
	"github.com/hearthside/hearthside-backend/internal/service"
	"github.com/hearthside/hearthside-backend/internal/ws"
	"github.com/hearthside/hearthside-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ChatAPISuite drives the chat endpoints end to end over an in-memory
// database: create room, send, unread counters, read receipts, reactions
// and the edit window.
type ChatAPISuite struct {
	suite.Suite
	db          *gorm.DB
	router      *gin.Engine
	jwtManager  *jwt.Manager
	messageRepo repository.MessageRepository

	alice *domain.User
	bob   *domain.User
	carol *domain.User
	slug  string
}

func TestChatAPISuite(t *testing.T) {
	suite.Run(t, new(ChatAPISuite))
}

func (s *ChatAPISuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	// SQLite for tests (no external DB dependency)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)
	s.db = db
	s.Require().NoError(migration.Run(db))

	s.jwtManager = jwt.NewManager("test-secret-key-for-integration-tests", 900, 86400)

	familyRepo := repository.NewFamilyRepository(db)
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	memberRepo := repository.NewRoomMemberRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactRepo := repository.NewReactionRepository(db)
	s.messageRepo = messageRepo

	hub := ws.NewHub(nil)
	go hub.Run()
	gateway := push.NewClient("", "", time.Second)

	directory := service.NewDirectoryService(familyRepo, nil)
	membership := service.NewMembershipService(memberRepo)
	roomSvc := service.NewRoomService(roomRepo, memberRepo, userRepo, membership, directory, hub)
	messageSvc := service.NewMessageService(messageRepo, memberRepo, roomRepo, reactRepo, membership, hub, gateway, nil)
	reactionSvc := service.NewReactionService(reactRepo, messageRepo, memberRepo, membership, hub)

	roomHandler := handler.NewRoomHandler(roomSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	reactionHandler := handler.NewReactionHandler(reactionSvc)
	uploadHandler := handler.NewUploadHandler(nil)
	wsHandler := handler.NewWSHandler(hub, "")

	s.router = gin.New()
	routes.Setup(s.router, roomHandler, messageHandler, reactionHandler, uploadHandler, wsHandler, s.jwtManager, directory)

	s.seedTestData()
}

func (s *ChatAPISuite) seedTestData() {
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
	s.carol = s.createUser("carol")
	s.slug = "hartley"

	family := &domain.Family{Slug: s.slug, Name: "The Hartleys", OwnerID: s.alice.ID}
	s.Require().NoError(s.db.Create(family).Error)
	for i, u := range []*domain.User{s.alice, s.bob, s.carol} {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleOwner
		}
		member := &domain.FamilyMember{FamilyID: family.ID, UserID: u.ID, Role: role, JoinedAt: time.Now()}
		s.Require().NoError(s.db.Create(member).Error)
	}
}

func (s *ChatAPISuite) createUser(name string) *domain.User {
	user := &domain.User{Name: name, Nickname: name}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *ChatAPISuite) tokenFor(user *domain.User) string {
	token, err := s.jwtManager.GenerateToken(user.ID, user.Nickname)
	s.Require().NoError(err)
	return token
}

// request performs an authenticated JSON request and returns the recorder
func (s *ChatAPISuite) request(user *domain.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(user))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ChatAPISuite) data(w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Equal(true, resp["success"], "expected a success envelope, got %s", w.Body.String())
	data, _ := resp["data"].(map[string]interface{})
	return data
}

func (s *ChatAPISuite) roomPath(suffix string) string {
	return fmt.Sprintf("/api/families/%s/chat%s", s.slug, suffix)
}

// --- Auth ---

func (s *ChatAPISuite) TestRequestWithoutToken() {
	req := httptest.NewRequest(http.MethodGet, s.roomPath("/rooms"), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *ChatAPISuite) TestUnknownFamilySlug() {
	w := s.request(s.alice, http.MethodGet, "/api/families/nobody/chat/rooms", nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

// --- Full conversation flow ---

func (s *ChatAPISuite) TestConversationFlow() {
	// alice creates a room with bob and carol
	w := s.request(s.alice, http.MethodPost, s.roomPath("/rooms"), map[string]interface{}{
		"name":       "Family Chat",
		"type":       "group",
		"member_ids": []uint64{s.bob.ID, s.carol.ID},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	roomID := uint64(s.data(w)["id"].(float64))

	// bob sends a message
	w = s.request(s.bob, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/messages", roomID), map[string]interface{}{
		"message": "hi everyone",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	messageID := uint64(s.data(w)["id"].(float64))

	// alice and carol each have one unread; bob has none
	s.assertUnread(s.alice, roomID, 1)
	s.assertUnread(s.carol, roomID, 1)
	s.assertUnread(s.bob, roomID, 0)

	// carol marks the room read
	w = s.request(s.carol, http.MethodPost, s.roomPath(fmt.Sprintf("/rooms/%d/read", roomID)), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.assertUnread(s.carol, roomID, 0)
	s.assertUnread(s.alice, roomID, 1)

	// alice reacts with a heart
	w = s.request(s.alice, http.MethodPost, fmt.Sprintf("/api/chat/messages/%d/reactions", messageID), map[string]interface{}{
		"emoji": "❤️",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	// the same reaction again is a conflict, not a toggle
	w = s.request(s.alice, http.MethodPost, fmt.Sprintf("/api/chat/messages/%d/reactions", messageID), map[string]interface{}{
		"emoji": "❤️",
	})
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	// the listing shows the reaction summary
	w = s.request(s.carol, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d/messages", roomID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var listResp struct {
		Data []struct {
			ID        uint64 `json:"id"`
			Body      string `json:"body"`
			IsEdited  bool   `json:"is_edited"`
			Reactions []struct {
				Emoji string `json:"emoji"`
				Count int    `json:"count"`
			} `json:"reactions"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listResp))
	s.Require().Len(listResp.Data, 1)
	s.Require().Len(listResp.Data[0].Reactions, 1)
	assert.Equal(s.T(), "❤️", listResp.Data[0].Reactions[0].Emoji)
	assert.Equal(s.T(), 1, listResp.Data[0].Reactions[0].Count)

	// bob edits within the window
	w = s.request(s.bob, http.MethodPut, fmt.Sprintf("/api/chat/messages/%d", messageID), map[string]interface{}{
		"message": "hi everyone!",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	edited := s.data(w)
	assert.Equal(s.T(), true, edited["is_edited"])
	assert.Equal(s.T(), "hi everyone!", edited["body"])

	// carol cannot edit bob's message
	w = s.request(s.carol, http.MethodPut, fmt.Sprintf("/api/chat/messages/%d", messageID), map[string]interface{}{
		"message": "hijacked",
	})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	// past the edit window even bob is refused
	s.Require().NoError(s.messageRepo.ForceCreatedAt(messageID, time.Now().Add(-25*time.Hour)))
	w = s.request(s.bob, http.MethodPut, fmt.Sprintf("/api/chat/messages/%d", messageID), map[string]interface{}{
		"message": "too late",
	})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *ChatAPISuite) assertUnread(user *domain.User, roomID uint64, want int) {
	s.T().Helper()
	w := s.request(user, http.MethodGet, s.roomPath(fmt.Sprintf("/rooms/%d", roomID)), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	membership, ok := s.data(w)["membership"].(map[string]interface{})
	s.Require().True(ok, "room response is missing the caller's membership")
	assert.EqualValues(s.T(), want, membership["unread_count"])
}

// --- Direct rooms ---

func (s *ChatAPISuite) TestDirectRoomIsStable() {
	w := s.request(s.alice, http.MethodPost, s.roomPath("/direct"), map[string]interface{}{
		"other_user_id": s.bob.ID,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	first := uint64(s.data(w)["id"].(float64))

	w = s.request(s.bob, http.MethodPost, s.roomPath("/direct"), map[string]interface{}{
		"other_user_id": s.alice.ID,
	})
	s.Require().Equal(http.StatusOK, w.Code)
	second := uint64(s.data(w)["id"].(float64))

	assert.Equal(s.T(), first, second)
}

func (s *ChatAPISuite) TestDirectRoomWithSelf() {
	w := s.request(s.alice, http.MethodPost, s.roomPath("/direct"), map[string]interface{}{
		"other_user_id": s.alice.ID,
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

// --- Permission surface ---

func (s *ChatAPISuite) TestOutsiderCannotSendMessage() {
	w := s.request(s.alice, http.MethodPost, s.roomPath("/rooms"), map[string]interface{}{
		"name": "Parents Only",
		"type": "group",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	roomID := uint64(s.data(w)["id"].(float64))

	w = s.request(s.bob, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/messages", roomID), map[string]interface{}{
		"message": "let me in",
	})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *ChatAPISuite) TestArchivedRoomRejectsMessages() {
	w := s.request(s.alice, http.MethodPost, s.roomPath("/rooms"), map[string]interface{}{
		"name": "Throwaway",
		"type": "group",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	roomID := uint64(s.data(w)["id"].(float64))

	w = s.request(s.alice, http.MethodDelete, s.roomPath(fmt.Sprintf("/rooms/%d", roomID)), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(s.alice, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/messages", roomID), map[string]interface{}{
		"message": "anyone there?",
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
}

func (s *ChatAPISuite) TestDeleteScrubsMessage() {
	w := s.request(s.alice, http.MethodPost, s.roomPath("/rooms"), map[string]interface{}{
		"name":       "Scrub Test",
		"type":       "group",
		"member_ids": []uint64{s.bob.ID},
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	roomID := uint64(s.data(w)["id"].(float64))

	w = s.request(s.bob, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/messages", roomID), map[string]interface{}{
		"message": "delete me",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	messageID := uint64(s.data(w)["id"].(float64))

	w = s.request(s.bob, http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", messageID), nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var stored domain.ChatMessage
	s.Require().NoError(s.db.First(&stored, messageID).Error)
	assert.True(s.T(), stored.IsDeleted)
	assert.Equal(s.T(), domain.DeletedMessageBody, stored.Body)
	assert.Nil(s.T(), stored.Attachments)
}

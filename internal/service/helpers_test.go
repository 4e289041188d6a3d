package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hearthside/hearthside-backend/internal/domain"
	"github.com/hearthside/hearthside-backend/internal/migration"
	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/hearthside/hearthside-backend/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full chat schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// :memory: is per-connection; a second pooled connection would see an
	// empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migration.Run(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// captureBroadcaster records every published event
type captureBroadcaster struct {
	mu     sync.Mutex
	events []*realtime.Event
	users  [][]uint64
}

func (b *captureBroadcaster) Publish(userIDs []uint64, event *realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	b.users = append(b.users, userIDs)
}

func (b *captureBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, len(b.events))
	for i, e := range b.events {
		types[i] = e.Type
	}
	return types
}

// stubGateway records push targets; Err, when set, is returned from Notify
type stubGateway struct {
	mu      sync.Mutex
	targets [][]uint64
	Err     error
}

func (g *stubGateway) Notify(_ context.Context, userIDs []uint64, _, _ string, _ map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.targets = append(g.targets, userIDs)
	return g.Err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.targets)
}

// testEnv bundles the repositories and services over one test database
type testEnv struct {
	db          *gorm.DB
	familyRepo  repository.FamilyRepository
	userRepo    repository.UserRepository
	roomRepo    repository.RoomRepository
	memberRepo  repository.RoomMemberRepository
	messageRepo repository.MessageRepository
	reactRepo   repository.ReactionRepository

	directory  DirectoryService
	membership MembershipService
	rooms      RoomService
	messages   MessageService
	reactions  ReactionService

	broadcast *captureBroadcaster
	push      *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{
		db:          db,
		familyRepo:  repository.NewFamilyRepository(db),
		userRepo:    repository.NewUserRepository(db),
		roomRepo:    repository.NewRoomRepository(db),
		memberRepo:  repository.NewRoomMemberRepository(db),
		messageRepo: repository.NewMessageRepository(db),
		reactRepo:   repository.NewReactionRepository(db),
		broadcast:   &captureBroadcaster{},
		push:        &stubGateway{},
	}
	env.directory = NewDirectoryService(env.familyRepo, nil)
	env.membership = NewMembershipService(env.memberRepo)
	env.rooms = NewRoomService(env.roomRepo, env.memberRepo, env.userRepo, env.membership, env.directory, env.broadcast)
	env.messages = NewMessageService(env.messageRepo, env.memberRepo, env.roomRepo, env.reactRepo, env.membership, env.broadcast, env.push, nil)
	env.reactions = NewReactionService(env.reactRepo, env.messageRepo, env.memberRepo, env.membership, env.broadcast)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *domain.User {
	t.Helper()
	user := &domain.User{Name: name, Nickname: name}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

// createFamily seeds a family whose first user is the owner
func (e *testEnv) createFamily(t *testing.T, slug string, userIDs ...uint64) *domain.Family {
	t.Helper()
	if len(userIDs) == 0 {
		t.Fatal("createFamily needs at least one user")
	}
	family := &domain.Family{Slug: slug, Name: slug, OwnerID: userIDs[0]}
	if err := e.db.Create(family).Error; err != nil {
		t.Fatalf("failed to create family %s: %v", slug, err)
	}
	for i, id := range userIDs {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleOwner
		}
		member := &domain.FamilyMember{FamilyID: family.ID, UserID: id, Role: role, JoinedAt: time.Now()}
		if err := e.db.Create(member).Error; err != nil {
			t.Fatalf("failed to add user %d to family: %v", id, err)
		}
	}
	return family
}

// createRoomWith creates a group room through the service with the given members
func (e *testEnv) createRoomWith(t *testing.T, family *domain.Family, creatorID uint64, memberIDs ...uint64) *domain.RoomResponse {
	t.Helper()
	room, err := e.rooms.CreateRoom(family, creatorID, &domain.CreateRoomRequest{
		Name:      fmt.Sprintf("room-%d", time.Now().UnixNano()),
		Type:      domain.RoomTypeGroup,
		MemberIDs: memberIDs,
	})
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room
}

func (e *testEnv) memberOf(t *testing.T, roomID, userID uint64) *domain.ChatRoomMember {
	t.Helper()
	member, err := e.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		t.Fatalf("failed to load member %d of room %d: %v", userID, roomID, err)
	}
	return member
}

package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/bot"
	"github.com/iamwavecut/groupwarden/internal/db"
	"github.com/iamwavecut/groupwarden/internal/db/sqldb"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

const (
	testBotID   int64 = 5
	testChatID  int64 = -1001234567890
	testAdminID int64 = 11
	testUserID  int64 = 42
)

type editCall struct {
	chatID    int64
	messageID int
	text      string
	keyboard  [][]platform.Button
}

type stubPlatform struct {
	mu sync.Mutex

	roles     map[int64]platform.Role
	usernames map[string]int64
	roleErr   error

	deletes  []int
	bans     []int64
	sent     []platform.OutgoingMessage
	edits    []editCall
	answers  []string
	nextID   int
	restrict int
}

var _ platform.Platform = (*stubPlatform)(nil)

func (s *stubPlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, messageID)
	return nil
}

func (s *stubPlatform) RestrictMember(context.Context, int64, int64, platform.Permissions, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restrict++
	return nil
}

func (s *stubPlatform) BanMember(_ context.Context, _ int64, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans = append(s.bans, userID)
	return nil
}

func (s *stubPlatform) UnbanMember(context.Context, int64, int64) error {
	return nil
}

func (s *stubPlatform) SendMessage(_ context.Context, msg platform.OutgoingMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	s.nextID++
	return s.nextID, nil
}

func (s *stubPlatform) EditMessage(_ context.Context, chatID int64, messageID int, text string, keyboard [][]platform.Button) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, editCall{chatID: chatID, messageID: messageID, text: text, keyboard: keyboard})
	return nil
}

func (s *stubPlatform) AnswerCallback(_ context.Context, _ string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, text)
	return nil
}

func (s *stubPlatform) GetChatMember(_ context.Context, _ int64, userID int64) (platform.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleErr != nil {
		return platform.RoleNone, s.roleErr
	}
	if role, ok := s.roles[userID]; ok {
		return role, nil
	}
	return platform.RoleMember, nil
}

func (s *stubPlatform) ListChatAdmins(context.Context, int64) ([]int64, error) {
	return []int64{testAdminID}, nil
}

func (s *stubPlatform) ResolveUsername(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.usernames[username]; ok {
		return id, nil
	}
	return 0, &platform.Error{Kind: platform.KindPermanent, Op: "getChat"}
}

func (s *stubPlatform) lastSent(t *testing.T) platform.OutgoingMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return s.sent[len(s.sent)-1]
}

type fixture struct {
	platform *stubPlatform
	proc     *moderation.Processor
	service  bot.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqldb.NewSQLiteClient(context.Background(), t.TempDir(), "handlers.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sp := &stubPlatform{
		roles:     map[int64]platform.Role{testAdminID: platform.RoleAdministrator},
		usernames: map[string]int64{},
	}
	proc := moderation.NewProcessor(store, sp, moderation.Config{
		Lang:          "en",
		DefaultPolicy: db.DefaultPolicy(),
	})
	if _, err := proc.RegisterGroup(context.Background(), testChatID, "Test group", testAdminID); err != nil {
		t.Fatalf("register group: %v", err)
	}
	return &fixture{
		platform: sp,
		proc:     proc,
		service:  bot.NewService(sp, proc, "en", testBotID),
	}
}

func groupChat() api.Chat {
	return api.Chat{ID: testChatID, Type: "supergroup", Title: "Test group"}
}

// commandMessage builds a message whose first word is a bot command.
func commandMessage(text string, fromID int64) *api.Message {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return &api.Message{
		MessageID: 77,
		Date:      int(time.Now().Unix()),
		Chat:      groupChat(),
		From:      &api.User{ID: fromID, FirstName: "Sender"},
		Text:      text,
		Entities:  []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func replyTo(msg *api.Message, target *api.User) *api.Message {
	msg.ReplyToMessage = &api.Message{MessageID: 70, Chat: groupChat(), From: target}
	return msg
}

func actorFor(userID int64) moderation.Actor {
	return moderation.IndividualUser(userID)
}

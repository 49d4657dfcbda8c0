package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/groupwarden/internal/db"
	"github.com/iamwavecut/groupwarden/internal/db/sqldb"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

type restrictCall struct {
	chatID      int64
	userID      int64
	permissions platform.Permissions
	until       time.Time
}

type fakePlatform struct {
	mu sync.Mutex

	roles  map[int64]platform.Role
	admins []int64

	deleteErr   error
	restrictErr error
	sendErrs    map[int64]error

	deletes   []int
	restricts []restrictCall
	bans      []int64
	unbans    []int64
	sent      []platform.OutgoingMessage
	nextMsgID int
}

var _ platform.Platform = (*fakePlatform)(nil)

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		roles:     map[int64]platform.Role{},
		sendErrs:  map[int64]error{},
		nextMsgID: 1000,
	}
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return f.deleteErr
}

func (f *fakePlatform) RestrictMember(_ context.Context, chatID, userID int64, permissions platform.Permissions, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restricts = append(f.restricts, restrictCall{chatID: chatID, userID: userID, permissions: permissions, until: until})
	return f.restrictErr
}

func (f *fakePlatform) BanMember(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, userID)
	return nil
}

func (f *fakePlatform) UnbanMember(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbans = append(f.unbans, userID)
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, msg platform.OutgoingMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if err := f.sendErrs[msg.ChatID]; err != nil {
		return 0, err
	}
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakePlatform) EditMessage(context.Context, int64, int, string, [][]platform.Button) error {
	return nil
}

func (f *fakePlatform) AnswerCallback(context.Context, string, string) error {
	return nil
}

func (f *fakePlatform) GetChatMember(_ context.Context, _ int64, userID int64) (platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role, ok := f.roles[userID]; ok {
		return role, nil
	}
	return platform.RoleMember, nil
}

func (f *fakePlatform) ListChatAdmins(context.Context, int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.admins...), nil
}

func (f *fakePlatform) ResolveUsername(context.Context, string) (int64, error) {
	return 0, &platform.Error{Kind: platform.KindPermanent, Op: "getChat"}
}

func (f *fakePlatform) restrictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.restricts)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

const (
	testChatID  int64 = -1001234567890
	testAdminID int64 = 11
	testUserID  int64 = 42
)

type fixture struct {
	store    db.Client
	platform *fakePlatform
	clock    *testClock
	proc     *Processor
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := sqldb.NewSQLiteClient(context.Background(), t.TempDir(), "moderation.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	fp := newFakePlatform()
	fp.roles[testAdminID] = platform.RoleAdministrator
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	if cfg.DefaultPolicy == (db.Policy{}) {
		cfg.DefaultPolicy = db.DefaultPolicy()
	}
	return &fixture{
		store:    store,
		platform: fp,
		clock:    clock,
		proc:     NewProcessor(store, fp, cfg, WithClock(clock.Now)),
	}
}

func (f *fixture) register(t *testing.T) *db.Group {
	t.Helper()
	ctx := context.Background()
	if _, err := f.proc.RegisterGroup(ctx, testChatID, "Test group", testAdminID); err != nil {
		t.Fatalf("register group: %v", err)
	}
	group, err := f.proc.Group(ctx, testChatID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	return group
}

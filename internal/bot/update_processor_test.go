package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type recordingHandler struct {
	proceed bool
	err     error
	calls   int
	chat    *api.Chat
	user    *api.User
}

func (h *recordingHandler) Handle(_ context.Context, _ *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	h.calls++
	h.chat = chat
	h.user = user
	return h.proceed, h.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor(handlers ...Handler) *UpdateProcessor {
	up := NewUpdateProcessor(NewService(nil, nil, "en", 1), nil)
	up.updateHandlers = handlers
	up.now = func() time.Time { return fixedNow }
	return up
}

func messageUpdate(at time.Time) *api.Update {
	return &api.Update{
		UpdateID: 1,
		Message: &api.Message{
			MessageID: 10,
			Date:      int(at.Unix()),
			Chat:      api.Chat{ID: -100, Type: "supergroup"},
			From:      &api.User{ID: 42, FirstName: "Ann"},
			Text:      "hello",
		},
	}
}

func TestNewUpdateProcessorSkipsUnknownHandlers(t *testing.T) {
	h := &recordingHandler{proceed: true}
	RegisterUpdateHandler("recording", h)

	up := NewUpdateProcessor(NewService(nil, nil, "en", 1), []string{"missing", "recording"})
	if len(up.updateHandlers) != 1 {
		t.Fatalf("expected 1 enabled handler, got %d", len(up.updateHandlers))
	}
}

func TestProcessRunsHandlerChain(t *testing.T) {
	t.Parallel()

	first := &recordingHandler{proceed: true}
	second := &recordingHandler{proceed: true}
	up := newTestProcessor(first, second)

	if err := up.Process(context.Background(), messageUpdate(fixedNow)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("unexpected calls: %d %d", first.calls, second.calls)
	}
	if first.chat == nil || first.chat.ID != -100 {
		t.Fatalf("chat not extracted: %+v", first.chat)
	}
	if first.user == nil || first.user.ID != 42 {
		t.Fatalf("user not extracted: %+v", first.user)
	}
}

func TestProcessStopsWhenHandlerDoesNotProceed(t *testing.T) {
	t.Parallel()

	first := &recordingHandler{proceed: false}
	second := &recordingHandler{proceed: true}
	up := newTestProcessor(first, second)

	if err := up.Process(context.Background(), messageUpdate(fixedNow)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("second handler should not run")
	}
}

func TestProcessReturnsHandlerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	up := newTestProcessor(&recordingHandler{err: boom})

	err := up.Process(context.Background(), messageUpdate(fixedNow))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestProcessSkipsStaleUpdates(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{proceed: true}
	up := newTestProcessor(h)

	if err := up.Process(context.Background(), messageUpdate(fixedNow.Add(-UpdateTimeout-time.Second))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.calls != 0 {
		t.Fatalf("stale update reached handler")
	}
}

func TestProcessFallsBackToMyChatMember(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{proceed: true}
	up := newTestProcessor(h)

	u := &api.Update{
		UpdateID: 2,
		MyChatMember: &api.ChatMemberUpdated{
			Chat: api.Chat{ID: -200, Type: "group"},
			From: api.User{ID: 7},
			Date: int(fixedNow.Unix()),
		},
	}
	if err := up.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.chat == nil || h.chat.ID != -200 || h.user == nil || h.user.ID != 7 {
		t.Fatalf("unexpected chat/user: %+v %+v", h.chat, h.user)
	}
}

func TestProcessRejectsNilAndCancelled(t *testing.T) {
	t.Parallel()

	up := newTestProcessor(&recordingHandler{proceed: true})
	if err := up.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil update")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := up.Process(ctx, messageUpdate(fixedNow)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUserNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     *api.User
		un       string
		fullName string
	}{
		{"nil", nil, "", ""},
		{"username", &api.User{UserName: "ann", FirstName: "Ann", LastName: "Lee"}, "ann", "Ann Lee"},
		{"no username", &api.User{FirstName: "Ann"}, "Ann", "Ann"},
		{"only username", &api.User{UserName: "ann"}, "ann", "ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetUN(tt.user); got != tt.un {
				t.Errorf("GetUN() = %q, want %q", got, tt.un)
			}
			if got := GetFullName(tt.user); got != tt.fullName {
				t.Errorf("GetFullName() = %q, want %q", got, tt.fullName)
			}
		})
	}
}

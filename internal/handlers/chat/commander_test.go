package handlers

import (
	"context"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/callback"
	"github.com/iamwavecut/groupwarden/internal/moderation"
)

func TestCommanderBanByReply(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := replyTo(commandMessage("/ban spam links", testAdminID), &api.User{ID: testUserID, FirstName: "Bob"})
	chat := msg.Chat
	proceed, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatal("commands must stop the handler chain")
	}
	if len(f.platform.bans) != 1 || f.platform.bans[0] != testUserID {
		t.Fatalf("unexpected bans: %v", f.platform.bans)
	}
	reply := f.platform.lastSent(t)
	if reply.ReplyToMessageID != msg.MessageID || !strings.Contains(reply.Text, "Bob has been banned: spam links") {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestCommanderRejectsNonAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := replyTo(commandMessage("/ban spam", testUserID), &api.User{ID: 77})
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("rejections are replied, not returned: %v", err)
	}
	if len(f.platform.bans) != 0 {
		t.Fatal("non-admin must not ban")
	}
	if got := f.platform.lastSent(t).Text; got != "only admins can do that" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCommanderResolvesHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.platform.usernames["spammer"] = testUserID
	c := NewCommander(f.service)

	msg := commandMessage("/mute @spammer 2h flood", testAdminID)
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.platform.restrict != 1 {
		t.Fatalf("expected one restriction, got %d", f.platform.restrict)
	}
	if got := f.platform.lastSent(t).Text; !strings.HasPrefix(got, "@spammer is muted until") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCommanderMuteRejectsMalformedDuration(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := commandMessage("/mute 4242 -5m flooding", testAdminID)
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("rejections are replied, not returned: %v", err)
	}
	if f.platform.restrict != 0 {
		t.Fatalf("malformed duration reached the platform: %d restrictions", f.platform.restrict)
	}
	if got := f.platform.lastSent(t).Text; got != "invalid duration" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCommanderUnknownHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := commandMessage("/ban @ghost spam", testAdminID)
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.platform.lastSent(t).Text; got != "target not found" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCommanderWarnOffersEscalation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := replyTo(commandMessage("/warn rude", testAdminID), &api.User{ID: testUserID, FirstName: "Bob"})
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	reply := f.platform.lastSent(t)
	if reply.Text != "Bob has been warned (1): rude" {
		t.Fatalf("unexpected text %q", reply.Text)
	}
	if len(reply.Keyboard) != 1 || len(reply.Keyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard %+v", reply.Keyboard)
	}
	cmd, err := callback.Decode(reply.Keyboard[0][0].Data)
	if err != nil {
		t.Fatalf("decode mute button: %v", err)
	}
	if cmd.Kind != callback.KindMute || cmd.ChatID != testChatID || cmd.TargetID != testUserID || cmd.Payload != escalationMuteDuration {
		t.Fatalf("unexpected mute button %+v", cmd)
	}
}

func TestCommanderGroupOnlyCommandInPrivate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := commandMessage("/ban 42 spam", testAdminID)
	msg.Chat = api.Chat{ID: testAdminID, Type: "private"}
	chat := msg.Chat
	if _, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.platform.lastSent(t).Text; got != "This command only works in groups." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCommanderIgnoresPlainMessages(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	msg := &api.Message{Chat: groupChat(), From: &api.User{ID: testUserID}, Text: "hello"}
	chat := msg.Chat
	proceed, err := c.Handle(context.Background(), &api.Update{Message: msg}, &chat, msg.From)
	if err != nil || !proceed {
		t.Fatalf("plain message should pass through: %v %v", proceed, err)
	}
}

func TestCommanderFilterLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)
	ctx := context.Background()

	run := func(text string) string {
		msg := commandMessage(text, testAdminID)
		chat := msg.Chat
		if _, err := c.Handle(ctx, &api.Update{Message: msg}, &chat, msg.From); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		return f.platform.lastSent(t).Text
	}

	if got := run("/filter Crypto"); got != `Added "crypto" to the filter list.` {
		t.Fatalf("filter reply %q", got)
	}
	if got := run("/filter crypto"); got != "already filtered" {
		t.Fatalf("duplicate filter reply %q", got)
	}
	if got := run("/listfilters"); !strings.Contains(got, "crypto") {
		t.Fatalf("listfilters reply %q", got)
	}
	if got := run("/unfilter crypto"); got != `Removed "crypto" from the filter list.` {
		t.Fatalf("unfilter reply %q", got)
	}
}

func TestCommanderSetLimitValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)
	ctx := context.Background()

	msg := commandMessage("/setlimit lots", testAdminID)
	chat := msg.Chat
	if _, err := c.Handle(ctx, &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.platform.lastSent(t).Text; got != "expected a number in the allowed range" {
		t.Fatalf("unexpected reply %q", got)
	}

	msg = commandMessage("/setlimit 50", testAdminID)
	if _, err := c.Handle(ctx, &api.Update{Message: msg}, &chat, msg.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	group, err := f.proc.Group(ctx, testChatID)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if group.MaxWordCount != 50 {
		t.Fatalf("max word count = %d", group.MaxWordCount)
	}
}

func TestCallbackToggleRechecksRole(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)
	ctx := context.Background()

	data, err := callback.Encode(callback.Command{Kind: callback.KindToggle, ChatID: testChatID, Payload: moderation.SettingLinks})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	click := func(userID int64) {
		u := &api.Update{CallbackQuery: &api.CallbackQuery{
			ID:      "cb",
			From:    &api.User{ID: userID},
			Message: &api.Message{MessageID: 5, Chat: groupChat(), Text: "settings"},
			Data:    data,
		}}
		if _, err := c.Handle(ctx, u, nil, u.CallbackQuery.From); err != nil {
			t.Fatalf("handle callback: %v", err)
		}
	}

	click(testUserID)
	group, _ := f.proc.Group(ctx, testChatID)
	if group.DeleteLinks {
		t.Fatal("non-admin click must not toggle")
	}
	if f.platform.answers[len(f.platform.answers)-1] != "only admins can do that" {
		t.Fatalf("unexpected answer %q", f.platform.answers[len(f.platform.answers)-1])
	}

	click(testAdminID)
	group, _ = f.proc.Group(ctx, testChatID)
	if !group.DeleteLinks {
		t.Fatal("admin click should toggle links")
	}
	if len(f.platform.edits) != 1 || len(f.platform.edits[0].keyboard) != len(moderation.Settings) {
		t.Fatalf("settings should be re-rendered: %+v", f.platform.edits)
	}
}

func TestCallbackBanEscalation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	data, err := callback.Encode(callback.Command{Kind: callback.KindBan, ChatID: testChatID, TargetID: testUserID})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	u := &api.Update{CallbackQuery: &api.CallbackQuery{
		ID:      "cb",
		From:    &api.User{ID: testAdminID},
		Message: &api.Message{MessageID: 5, Chat: groupChat(), Text: "Bob has been warned (1): rude"},
		Data:    data,
	}}
	if _, err := c.Handle(context.Background(), u, nil, u.CallbackQuery.From); err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if len(f.platform.bans) != 1 {
		t.Fatalf("expected a ban, got %v", f.platform.bans)
	}
	if len(f.platform.edits) != 1 || f.platform.edits[0].keyboard != nil {
		t.Fatalf("escalation buttons should be removed: %+v", f.platform.edits)
	}
}

func TestCallbackMalformedData(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := NewCommander(f.service)

	u := &api.Update{CallbackQuery: &api.CallbackQuery{ID: "cb", From: &api.User{ID: testAdminID}, Data: "toggle_links_123"}}
	if _, err := c.Handle(context.Background(), u, nil, u.CallbackQuery.From); err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if len(f.platform.answers) != 1 || f.platform.answers[0] != "This button is no longer valid." {
		t.Fatalf("unexpected answers %v", f.platform.answers)
	}
}

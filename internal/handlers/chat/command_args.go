package handlers

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// defaultMuteDuration applies when /mute carries no duration token.
const defaultMuteDuration = "1h"

type targetRef struct {
	ID       int64
	Username string
	Member   moderation.Member
}

func (t targetRef) label() string {
	if t.Member.ID != 0 {
		return t.Member.DisplayName()
	}
	if t.Username != "" {
		return "@" + t.Username
	}
	return strconv.FormatInt(t.ID, 10)
}

type commandArgs struct {
	Target   targetRef
	Duration string
	Reason   string
}

// parseCommandArgs reads "target [duration] reason" from msg. A replied-to
// message supplies the target, otherwise the first argument does: a text
// mention, an @handle or a numeric id.
func parseCommandArgs(msg *api.Message, withDuration bool) (commandArgs, error) {
	var out commandArgs
	rest := strings.TrimSpace(msg.CommandArguments())

	switch {
	case repliedUser(msg) != nil:
		u := repliedUser(msg)
		out.Target = targetRef{ID: u.ID, Member: toMember(u)}
	default:
		var ok bool
		out.Target, rest, ok = leadingTarget(msg, rest)
		if !ok {
			return out, moderr.New(moderr.ErrTargetNotFound, "target not found")
		}
	}

	if withDuration {
		token, tail := splitFirst(rest)
		switch {
		case moderation.LooksLikeDuration(token):
			out.Duration = token
			rest = tail
		case numberShaped(token):
			return out, moderr.New(moderr.ErrInvalidInput, "invalid duration")
		default:
			out.Duration = defaultMuteDuration
		}
	}
	out.Reason = strings.TrimSpace(rest)
	return out, nil
}

// numberShaped reports whether token opens with a digit, optionally signed.
func numberShaped(token string) bool {
	token = strings.TrimLeft(token, "+-")
	return token != "" && token[0] >= '0' && token[0] <= '9'
}

// repliedUser is the author of the replied-to message, ignoring topic headers and chat-authored posts.
func repliedUser(msg *api.Message) *api.User {
	reply := msg.ReplyToMessage
	if reply == nil || reply.ForumTopicCreated != nil || reply.SenderChat != nil {
		return nil
	}
	return reply.From
}

func leadingTarget(msg *api.Message, args string) (targetRef, string, bool) {
	for _, e := range msg.Entities {
		if e.Type != entityTextMention || e.User == nil {
			continue
		}
		mention := entityText(msg.Text, e)
		if mention != "" && strings.HasPrefix(args, mention) {
			return targetRef{ID: e.User.ID, Member: toMember(e.User)}, strings.TrimSpace(args[len(mention):]), true
		}
	}

	token, rest := splitFirst(args)
	switch {
	case token == "":
		return targetRef{}, "", false
	case strings.HasPrefix(token, "@") && len(token) > 1:
		return targetRef{Username: strings.TrimPrefix(token, "@")}, rest, true
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return targetRef{}, "", false
	}
	return targetRef{ID: id}, rest, true
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	idx := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' })
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

// resolve fills in the numeric id of a target given by @handle.
func (t *targetRef) resolve(ctx context.Context, p platform.Platform) error {
	if t.ID != 0 {
		return nil
	}
	id, err := p.ResolveUsername(ctx, t.Username)
	if err != nil || id <= 0 {
		return moderr.Wrap(moderr.ErrTargetNotFound, "target not found", err)
	}
	t.ID = id
	return nil
}

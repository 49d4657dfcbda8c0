package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/callback"
	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/i18n"
	"github.com/iamwavecut/groupwarden/internal/moderation"
	"github.com/iamwavecut/groupwarden/internal/platform"
)

// maxTimerSeconds bounds the warning and welcome timers to one day.
const maxTimerSeconds = 24 * 60 * 60

func (c *Commander) filter(ctx context.Context, msg *api.Message) error {
	actor, err := c.actor(msg)
	if err != nil {
		return err
	}
	word, err := c.processor().AddBannedWord(ctx, msg.Chat.ID, actor, msg.CommandArguments())
	if err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("Added \"%s\" to the filter list.", c.lang()), word))
}

func (c *Commander) unfilter(ctx context.Context, msg *api.Message) error {
	actor, err := c.actor(msg)
	if err != nil {
		return err
	}
	word, err := c.processor().RemoveBannedWord(ctx, msg.Chat.ID, actor, msg.CommandArguments())
	if err != nil {
		return err
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("Removed \"%s\" from the filter list.", c.lang()), word))
}

func (c *Commander) listFilters(ctx context.Context, msg *api.Message) error {
	actor, err := c.actor(msg)
	if err != nil {
		return err
	}
	if err := c.processor().Authorize(ctx, msg.Chat.ID, actor); err != nil {
		return err
	}
	words, err := c.processor().BannedWords(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return c.replyText(ctx, msg, i18n.Get("No filtered words.", c.lang()))
	}
	return c.replyText(ctx, msg, fmt.Sprintf(i18n.Get("Filtered words: %s", c.lang()), strings.Join(words, ", ")))
}

func (c *Commander) settings(ctx context.Context, msg *api.Message) error {
	actor, err := c.actor(msg)
	if err != nil {
		return err
	}
	if err := c.processor().Authorize(ctx, msg.Chat.ID, actor); err != nil {
		return err
	}
	group, err := c.processor().Group(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	keyboard, err := settingsKeyboard(group.ChatID, group.Policy, c.lang())
	if err != nil {
		return err
	}
	return c.reply(ctx, msg, settingsText(group, c.lang()), keyboard)
}

func settingLabel(setting string) string {
	switch setting {
	case moderation.SettingJoinLeave:
		return "Delete join/leave messages"
	case moderation.SettingLinks:
		return "Delete links"
	case moderation.SettingPromotions:
		return "Delete promotions"
	case moderation.SettingAdminsBannedWords:
		return "Admins skip the word filter"
	}
	return setting
}

func settingsKeyboard(chatID int64, policy db.Policy, lang string) ([][]platform.Button, error) {
	rows := make([][]platform.Button, 0, len(moderation.Settings))
	for _, setting := range moderation.Settings {
		data, err := callback.Encode(callback.Command{
			Kind:    callback.KindToggle,
			ChatID:  chatID,
			Payload: setting,
		})
		if err != nil {
			return nil, err
		}
		state := "❌"
		if moderation.SettingEnabled(policy, setting) {
			state = "✅"
		}
		rows = append(rows, []platform.Button{{
			Text: state + " " + i18n.Get(settingLabel(setting), lang),
			Data: data,
		}})
	}
	return rows, nil
}

func settingsText(group *db.Group, lang string) string {
	return fmt.Sprintf(
		i18n.Get("Settings for %s\nWord limit: %d\nWarning timer: %d s\nWelcome timer: %d s", lang),
		group.Title, group.MaxWordCount, group.WarningTimerSeconds, group.WelcomeTimerSeconds,
	)
}

// parseBoundedInt reads a single integer argument within [min, max].
func parseBoundedInt(args string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < min || n > max {
		return 0, moderr.New(moderr.ErrInvalidInput, "expected a number in the allowed range")
	}
	return n, nil
}

func (c *Commander) updatePolicy(ctx context.Context, msg *api.Message, change func(*db.Policy) error) error {
	actor, err := c.actor(msg)
	if err != nil {
		return err
	}
	if _, err := c.processor().UpdatePolicy(ctx, msg.Chat.ID, actor, change); err != nil {
		return err
	}
	return c.replyText(ctx, msg, i18n.Get("Settings updated.", c.lang()))
}

func (c *Commander) setLimit(ctx context.Context, msg *api.Message) error {
	n, err := parseBoundedInt(msg.CommandArguments(), 0, 10000)
	if err != nil {
		return err
	}
	return c.updatePolicy(ctx, msg, func(p *db.Policy) error {
		p.MaxWordCount = n
		return nil
	})
}

func (c *Commander) setWarnTimer(ctx context.Context, msg *api.Message) error {
	n, err := parseBoundedInt(msg.CommandArguments(), 1, maxTimerSeconds)
	if err != nil {
		return err
	}
	return c.updatePolicy(ctx, msg, func(p *db.Policy) error {
		p.WarningTimerSeconds = n
		return nil
	})
}

func (c *Commander) setWelcomeTimer(ctx context.Context, msg *api.Message) error {
	n, err := parseBoundedInt(msg.CommandArguments(), 1, maxTimerSeconds)
	if err != nil {
		return err
	}
	return c.updatePolicy(ctx, msg, func(p *db.Policy) error {
		p.WelcomeTimerSeconds = n
		return nil
	})
}

func (c *Commander) setWelcome(ctx context.Context, msg *api.Message) error {
	tpl := strings.TrimSpace(msg.CommandArguments())
	return c.updatePolicy(ctx, msg, func(p *db.Policy) error {
		p.WelcomeMessageTemplate = tpl
		return nil
	})
}

func (c *Commander) myGroups(ctx context.Context, msg *api.Message) error {
	if msg.From == nil {
		return nil
	}
	groups, err := c.processor().GroupsAddedBy(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return c.replyText(ctx, msg, i18n.Get("You haven't added me to any groups yet.", c.lang()))
	}
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, i18n.Get("Your groups:", c.lang()))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("• %s (%d)", g.Title, g.ChatID))
	}
	return c.replyText(ctx, msg, strings.Join(lines, "\n"))
}

const helpText = `I moderate groups I'm an admin in.

Admin commands (reply to a message or name the user by @handle or id):
/warn <reason>
/mute [duration] <reason> (e.g. 30m, 2h, 1d, 1w)
/unmute, /ban <reason>, /unban
/filter <word>, /unfilter <word>, /listfilters
/settings, /setlimit <words>, /setwarntimer <seconds>
/setwelcome <template with {name}, {username}, {chat}>, /setwelcometimer <seconds>

Everyone:
/report <reason> to notify the admins
/mygroups in a private chat lists groups you added me to`

func (c *Commander) help(ctx context.Context, msg *api.Message) error {
	return c.replyText(ctx, msg, i18n.Get(helpText, c.lang()))
}

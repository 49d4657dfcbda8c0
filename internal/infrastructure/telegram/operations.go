package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/groupwarden/internal/observability"
	"github.com/iamwavecut/groupwarden/internal/platform"
	"github.com/iamwavecut/groupwarden/internal/policy/permissions"
)

// Operations implements platform.Platform on top of the Telegram Bot API.
type Operations struct {
	bot     *api.BotAPI
	limiter *rate.Limiter
}

var _ platform.Platform = (*Operations)(nil)

type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// NewBotAPI builds a bot client whose every request is bounded by timeout.
func NewBotAPI(token string, timeout time.Duration) (*api.BotAPI, error) {
	client := &http.Client{Timeout: timeout}
	bot, err := api.NewBotAPIWithClient(token, api.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	return bot, nil
}

func NewOperations(bot *api.BotAPI, opts Options) *Operations {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Operations{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (o *Operations) Bot() *api.BotAPI {
	return o.bot
}

func (o *Operations) request(ctx context.Context, op string, c api.Chattable) (*api.APIResponse, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, &platform.Error{Kind: platform.KindTransient, Op: op, Err: err}
	}
	resp, err := o.bot.Request(c)
	err = classify(op, err)
	observability.RecordPlatformRequest(op, outcome(err))
	return resp, err
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := o.request(ctx, "deleteMessage", api.NewDeleteMessage(chatID, messageID))
	return err
}

func (o *Operations) RestrictMember(ctx context.Context, chatID, userID int64, perms platform.Permissions, until time.Time) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		UseIndependentChatPermissions: true,
		Permissions: &api.ChatPermissions{
			CanSendMessages:       perms.SendMessages,
			CanSendAudios:         perms.SendMedia,
			CanSendDocuments:      perms.SendMedia,
			CanSendPhotos:         perms.SendMedia,
			CanSendVideos:         perms.SendMedia,
			CanSendVideoNotes:     perms.SendMedia,
			CanSendVoiceNotes:     perms.SendMedia,
			CanSendPolls:          perms.SendPolls,
			CanSendOtherMessages:  perms.SendOther,
			CanAddWebPagePreviews: perms.AddWebPagePreviews,
			CanChangeInfo:         perms.ChangeInfo,
			CanInviteUsers:        perms.InviteUsers,
			CanPinMessages:        perms.PinMessages,
			CanManageTopics:       perms.ManageTopics,
		},
	}
	if !until.IsZero() {
		config.UntilDate = until.Unix()
	}
	_, err := o.request(ctx, "restrictChatMember", config)
	return err
}

func (o *Operations) BanMember(ctx context.Context, chatID, userID int64) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		RevokeMessages: true,
	}
	_, err := o.request(ctx, "banChatMember", config)
	return err
}

func (o *Operations) UnbanMember(ctx context.Context, chatID, userID int64) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		OnlyIfBanned: true,
	}
	_, err := o.request(ctx, "unbanChatMember", config)
	return err
}

func (o *Operations) SendMessage(ctx context.Context, out platform.OutgoingMessage) (int, error) {
	msg := api.NewMessage(out.ChatID, out.Text)
	msg.DisableNotification = out.Silent
	msg.LinkPreviewOptions.IsDisabled = true
	msg.MessageThreadID = out.ThreadID
	if out.ReplyToMessageID != 0 {
		msg.ReplyParameters.MessageID = out.ReplyToMessageID
		msg.ReplyParameters.ChatID = out.ChatID
	}
	if len(out.Keyboard) > 0 {
		msg.ReplyMarkup = keyboard(out.Keyboard)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return 0, &platform.Error{Kind: platform.KindTransient, Op: "sendMessage", Err: err}
	}
	sent, err := o.bot.Send(msg)
	err = classify("sendMessage", err)
	observability.RecordPlatformRequest("sendMessage", outcome(err))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (o *Operations) EditMessage(ctx context.Context, chatID int64, messageID int, text string, buttons [][]platform.Button) error {
	edit := api.NewEditMessageText(chatID, messageID, text)
	if len(buttons) > 0 {
		markup := keyboard(buttons)
		edit.ReplyMarkup = &markup
	}
	_, err := o.request(ctx, "editMessageText", edit)
	return err
}

func (o *Operations) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := o.request(ctx, "answerCallbackQuery", api.NewCallback(callbackID, text))
	return err
}

func (o *Operations) GetChatMember(ctx context.Context, chatID, userID int64) (platform.Role, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return platform.RoleNone, &platform.Error{Kind: platform.KindTransient, Op: "getChatMember", Err: err}
	}
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	})
	err = classify("getChatMember", err)
	observability.RecordPlatformRequest("getChatMember", outcome(err))
	if err != nil {
		return platform.RoleNone, err
	}
	return permissions.RoleOf(&member), nil
}

func (o *Operations) ListChatAdmins(ctx context.Context, chatID int64) ([]int64, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, &platform.Error{Kind: platform.KindTransient, Op: "getChatAdministrators", Err: err}
	}
	members, err := o.bot.GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	err = classify("getChatAdministrators", err)
	observability.RecordPlatformRequest("getChatAdministrators", outcome(err))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		if member.User == nil || member.User.IsBot {
			continue
		}
		ids = append(ids, member.User.ID)
	}
	return ids, nil
}

// ResolveUsername looks up a public @handle. The Bot API only resolves handles it has seen.
func (o *Operations) ResolveUsername(ctx context.Context, username string) (int64, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return 0, &platform.Error{Kind: platform.KindPermanent, Op: "getChat", Err: fmt.Errorf("empty username")}
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return 0, &platform.Error{Kind: platform.KindTransient, Op: "getChat", Err: err}
	}
	resp, err := o.bot.MakeRequest("getChat", api.Params{"chat_id": "@" + username})
	err = classify("getChat", err)
	observability.RecordPlatformRequest("getChat", outcome(err))
	if err != nil {
		var pe *platform.Error
		if asPlatformError(err, &pe) {
			// an unknown handle is not a statement about the current chat
			pe.ChatGone = false
		}
		return 0, err
	}

	var chat struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(resp.Result, &chat); err != nil {
		return 0, &platform.Error{Kind: platform.KindPermanent, Op: "getChat", Err: err}
	}
	return chat.ID, nil
}

// SetWebhook registers url as the update endpoint, guarded by secret when set.
func (o *Operations) SetWebhook(ctx context.Context, url, secret string) error {
	params := api.Params{
		"url":             url,
		"allowed_updates": `["message","edited_message","callback_query","my_chat_member"]`,
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := o.bot.MakeRequest("setWebhook", params)
	err = classify("setWebhook", err)
	observability.RecordPlatformRequest("setWebhook", outcome(err))
	if err != nil {
		return err
	}
	log.WithField("url", url).Info("webhook registered")
	return nil
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (o *Operations) DeleteWebhook(ctx context.Context) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := o.bot.MakeRequest("deleteWebhook", api.Params{})
	err = classify("deleteWebhook", err)
	observability.RecordPlatformRequest("deleteWebhook", outcome(err))
	return err
}

func keyboard(rows [][]platform.Button) api.InlineKeyboardMarkup {
	markupRows := make([][]api.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]api.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, api.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markupRows = append(markupRows, api.NewInlineKeyboardRow(buttons...))
	}
	return api.NewInlineKeyboardMarkup(markupRows...)
}

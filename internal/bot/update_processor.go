package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/groupwarden/internal/observability"
)

const (
	// UpdateTimeout is the age after which an update is ignored instead of replayed.
	UpdateTimeout = 5 * time.Minute
)

type (
	UpdateProcessor struct {
		s              Service
		updateHandlers []Handler
		now            func() time.Time
	}

	UpdateKind string
)

const (
	UpdateKindMessage       UpdateKind = "message"
	UpdateKindEditedMessage UpdateKind = "edited_message"
	UpdateKindCallbackQuery UpdateKind = "callback_query"
	UpdateKindMyChatMember  UpdateKind = "my_chat_member"
	UpdateKindOther         UpdateKind = "other"
)

var registeredHandlers = make(map[string]Handler)

func RegisterUpdateHandler(title string, handler Handler) {
	registeredHandlers[title] = handler
}

func NewUpdateProcessor(s Service, enabled []string) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0, len(enabled))
	for _, handlerName := range enabled {
		handler, ok := registeredHandlers[handlerName]
		if !ok || handler == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, handler)
	}

	return &UpdateProcessor{
		s:              s,
		updateHandlers: enabledHandlers,
		now:            time.Now,
	}
}

func KindOf(u *api.Update) UpdateKind {
	switch {
	case u.Message != nil:
		return UpdateKindMessage
	case u.EditedMessage != nil:
		return UpdateKindEditedMessage
	case u.CallbackQuery != nil:
		return UpdateKindCallbackQuery
	case u.MyChatMember != nil:
		return UpdateKindMyChatMember
	default:
		return UpdateKindOther
	}
}

func updateTime(u *api.Update, now time.Time) time.Time {
	switch {
	case u.Message != nil:
		return time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil && u.EditedMessage.EditDate != 0:
		return time.Unix(int64(u.EditedMessage.EditDate), 0)
	case u.EditedMessage != nil:
		return time.Unix(int64(u.EditedMessage.Date), 0)
	case u.MyChatMember != nil:
		return time.Unix(int64(u.MyChatMember.Date), 0)
	default:
		return now
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kind := KindOf(u)
	defer observability.StartUpdate(string(kind))()
	entry := log.WithFields(log.Fields{
		"run_id":    uuid.New(),
		"update_id": u.UpdateID,
		"kind":      kind,
	})

	now := up.now()
	if t := updateTime(u, now); now.Sub(t) > UpdateTimeout {
		entry.WithFields(log.Fields{
			"update_time": t,
			"age":         now.Sub(t),
		}).Debug("Skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	if chat == nil && u.MyChatMember != nil {
		chat = &u.MyChatMember.Chat
	}

	user := u.SentFrom()
	if user == nil && u.MyChatMember != nil {
		user = &u.MyChatMember.From
	}

	for _, handler := range up.updateHandlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			entry.WithError(err).Warn("handler failed")
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			entry.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func GetUpdatesChans(ctx context.Context, bot *api.BotAPI, config api.UpdateConfig) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, bot.Buffer)
	chErr := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			select {
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			default:
				updates, err := bot.GetUpdates(config)
				if err != nil {
					chErr <- err
					return
				}

				for _, update := range updates {
					if update.UpdateID >= config.Offset {
						config.Offset = update.UpdateID + 1
						select {
						case ch <- update:
						case <-ctx.Done():
							chErr <- ctx.Err()
							return
						}
					}
				}
			}
		}
	}()

	return ch, chErr
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := user.FirstName + " " + user.LastName
	fullName = strings.TrimSpace(fullName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}

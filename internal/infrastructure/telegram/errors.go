package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/groupwarden/internal/platform"
)

// chatGoneMarkers are descriptions meaning the bot has lost the chat for good.
var chatGoneMarkers = []string{
	"chat not found",
	"bot was kicked",
	"bot is not a member",
	"chat was deleted",
	"group chat was deactivated",
	"group chat was upgraded",
}

// classify turns a Bot API failure into a *platform.Error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &platform.Error{Kind: platform.KindTransient, Op: op, Err: err}
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return &platform.Error{Kind: platform.KindTransient, Op: op, Err: err}
	}

	description := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.ResponseParameters.RetryAfter > 0:
		retryAfter := time.Duration(apiErr.ResponseParameters.RetryAfter) * time.Second
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return &platform.Error{Kind: platform.KindRateLimited, Op: op, RetryAfter: retryAfter, Err: err}
	case apiErr.ResponseParameters.MigrateToChatID != 0:
		return &platform.Error{Kind: platform.KindPermanent, Op: op, ChatGone: true, Err: err}
	case apiErr.Code >= http.StatusInternalServerError || apiErr.Code == 0:
		return &platform.Error{Kind: platform.KindTransient, Op: op, Err: err}
	}

	for _, marker := range chatGoneMarkers {
		if strings.Contains(description, marker) {
			return &platform.Error{Kind: platform.KindPermanent, Op: op, ChatGone: true, Err: err}
		}
	}
	return &platform.Error{Kind: platform.KindPermanent, Op: op, Err: err}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *platform.Error
	if errors.As(err, &pe) {
		return pe.Kind.String()
	}
	return "error"
}

func asPlatformError(err error, target **platform.Error) bool {
	return errors.As(err, target)
}

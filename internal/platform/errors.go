package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindRateLimited
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindPermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// Error is a classified platform failure.
type Error struct {
	Kind       ErrorKind
	Op         string
	RetryAfter time.Duration
	// ChatGone marks permanent failures meaning the bot can no longer act in the chat.
	ChatGone bool
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) (ErrorKind, *Error) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, pe
	}
	return KindTransient, nil
}

func IsRateLimited(err error) (time.Duration, bool) {
	kind, pe := kindOf(err)
	if err == nil || kind != KindRateLimited {
		return 0, false
	}
	return pe.RetryAfter, true
}

func IsPermanent(err error) bool {
	kind, _ := kindOf(err)
	return err != nil && kind == KindPermanent
}

func IsChatGone(err error) bool {
	_, pe := kindOf(err)
	return pe != nil && pe.Kind == KindPermanent && pe.ChatGone
}

// RetryOnce runs op and, for batch callers, retries it a single time after a
// rate limit (sleeping the supplied delay, capped by maxWait) or a transient failure.
func RetryOnce(ctx context.Context, maxWait time.Duration, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil || IsPermanent(err) || errors.Is(err, context.Canceled) {
		return err
	}

	if retryAfter, ok := IsRateLimited(err); ok {
		if maxWait > 0 && retryAfter > maxWait {
			log.WithField("retry_after", retryAfter).Warn("retry delay exceeds limit, skipping")
			return err
		}
		timer := time.NewTimer(retryAfter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return op(ctx)
}

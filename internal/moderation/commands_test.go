package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/groupwarden/internal/db"
	moderr "github.com/iamwavecut/groupwarden/internal/errors"
	"github.com/iamwavecut/groupwarden/internal/platform"
	"github.com/iamwavecut/groupwarden/internal/policy/permissions"
)

func adminCommand(reason string) Command {
	return Command{ChatID: testChatID, TargetID: testUserID, Actor: IndividualUser(testAdminID), Reason: reason}
}

func TestBanTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	require.NoError(t, f.proc.Ban(ctx, adminCommand("spam")))

	err := f.proc.Ban(ctx, adminCommand("spam again"))
	require.ErrorIs(t, err, moderr.ErrConflictingState)
	require.Equal(t, "already banned", moderr.ReasonOf(err))

	ban, err := f.store.GetActiveBan(ctx, testChatID, testUserID)
	require.NoError(t, err)
	require.Equal(t, "spam", ban.Reason)
	require.Equal(t, testAdminID, ban.ActorID)
	require.Len(t, f.platform.bans, 1)
}

func TestConcurrentBansLeaveOneActiveRow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.proc.Ban(ctx, adminCommand("spam"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, moderr.ErrConflictingState)
	}
	require.Equal(t, 1, succeeded)
}

func TestUnbanFlipsRowInactive(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	err := f.proc.Unban(ctx, adminCommand(""))
	require.ErrorIs(t, err, moderr.ErrConflictingState)
	require.Empty(t, f.platform.unbans)

	require.NoError(t, f.proc.Ban(ctx, adminCommand("spam")))
	require.NoError(t, f.proc.Unban(ctx, adminCommand("")))
	require.Equal(t, []int64{testUserID}, f.platform.unbans)

	_, err = f.store.GetActiveBan(ctx, testChatID, testUserID)
	require.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, f.proc.Ban(ctx, adminCommand("back at it")))
}

func TestAnonymousAdminIsRecordedAsSentinel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	cmd := adminCommand("spam")
	cmd.Actor = AnonymousAdmin()
	require.NoError(t, f.proc.Ban(ctx, cmd))

	ban, err := f.store.GetActiveBan(ctx, testChatID, testUserID)
	require.NoError(t, err)
	require.True(t, ban.ActorAnonymous)
	require.Equal(t, permissions.AnonymousAdminBotID, ban.ActorID)
}

func TestCommandsRequireAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	cmd := adminCommand("spam")
	cmd.Actor = IndividualUser(99)

	require.ErrorIs(t, f.proc.Ban(ctx, cmd), moderr.ErrUnauthorized)
	_, err := f.proc.Mute(ctx, cmd, "10m")
	require.ErrorIs(t, err, moderr.ErrUnauthorized)
	_, err = f.proc.Warn(ctx, cmd)
	require.ErrorIs(t, err, moderr.ErrUnauthorized)
	require.Empty(t, f.platform.bans)
	require.Zero(t, f.platform.restrictCount())

	f.platform.roles[99] = platform.RoleOwner
	require.NoError(t, f.proc.Ban(ctx, cmd))
}

func TestCommandsValidateInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()

	noTarget := adminCommand("spam")
	noTarget.TargetID = 0
	require.ErrorIs(t, f.proc.Ban(ctx, noTarget), moderr.ErrTargetNotFound)

	require.ErrorIs(t, f.proc.Ban(ctx, adminCommand("  ")), moderr.ErrInvalidInput)

	_, err := f.proc.Mute(ctx, adminCommand("flood"), "abc")
	require.ErrorIs(t, err, moderr.ErrInvalidInput)
	_, err = f.proc.Mute(ctx, adminCommand("flood"), "400d")
	require.ErrorIs(t, err, moderr.ErrInvalidInput)
	require.Equal(t, "duration exceeds 366 days", moderr.ReasonOf(err))
	require.Zero(t, f.platform.restrictCount())
}

func TestMuteLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()
	start := f.clock.Now()

	mute, err := f.proc.Mute(ctx, adminCommand("flood"), "2h")
	require.NoError(t, err)
	require.True(t, mute.MuteUntil.Equal(start.Add(2*time.Hour)))
	require.Equal(t, platform.NoPermissions(), f.platform.restricts[0].permissions)
	require.True(t, f.platform.restricts[0].until.Equal(start.Add(2*time.Hour)))

	_, err = f.proc.Mute(ctx, adminCommand("flood"), "1h")
	require.ErrorIs(t, err, moderr.ErrConflictingState)
	require.Equal(t, 1, f.platform.restrictCount())

	require.NoError(t, f.proc.Unmute(ctx, adminCommand("")))
	require.Equal(t, platform.FullPermissions(), f.platform.restricts[1].permissions)
	require.True(t, f.platform.restricts[1].until.IsZero())

	require.ErrorIs(t, f.proc.Unmute(ctx, adminCommand("")), moderr.ErrConflictingState)
}

func TestMutePlatformFailureRecordsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	ctx := context.Background()
	f.platform.restrictErr = &platform.Error{Kind: platform.KindRateLimited, Op: "restrictChatMember", RetryAfter: 3 * time.Second}

	_, err := f.proc.Mute(ctx, adminCommand("flood"), "10m")
	require.ErrorIs(t, err, moderr.ErrPlatformRateLimited)

	_, err = f.store.GetActiveMute(ctx, testChatID, testUserID)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestChatGonePurgesTenant(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{DefaultBannedWords: []string{"scam"}})
	ctx := context.Background()
	f.register(t)
	f.platform.restrictErr = &platform.Error{Kind: platform.KindPermanent, Op: "restrictChatMember", ChatGone: true, Err: errors.New("chat not found")}

	_, err := f.proc.Mute(ctx, adminCommand("flood"), "10m")
	require.ErrorIs(t, err, moderr.ErrPlatformPermanent)

	_, err = f.proc.Group(ctx, testChatID)
	require.ErrorIs(t, err, moderr.ErrTargetNotFound)
	words, err := f.store.ListBannedWords(ctx, testChatID)
	require.NoError(t, err)
	require.Empty(t, words)
}

func TestWarnCountsAndAutoBans(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{AutoBanWarnings: 3})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := f.proc.Warn(ctx, adminCommand("rude"))
		require.NoError(t, err)
		require.Equal(t, i, res.Count)
		require.False(t, res.AutoBanned)
	}

	res, err := f.proc.Warn(ctx, adminCommand("rude"))
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	require.True(t, res.AutoBanned)

	ban, err := f.store.GetActiveBan(ctx, testChatID, testUserID)
	require.NoError(t, err)
	require.Equal(t, autoBanReason, ban.Reason)

	res, err = f.proc.Warn(ctx, adminCommand("rude"))
	require.NoError(t, err)
	require.Equal(t, 4, res.Count)
	require.False(t, res.AutoBanned)
	require.Len(t, f.platform.bans, 1)
}

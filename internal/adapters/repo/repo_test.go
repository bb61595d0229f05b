package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

var base = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	store, err := db.Open(context.Background(), db.Config{File: filepath.Join(t.TempDir(), "spot.sqlite3")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestPendingLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	card := domain.MessageRef{ChatID: -100, MessageID: 55}
	p := domain.PendingSubmission{AuthorID: 1, UserMessageID: 9, AdminMessage: card, CreatedAt: base}

	require.NoError(t, r.CreatePending(ctx, p))
	err := r.CreatePending(ctx, domain.PendingSubmission{AuthorID: 1, UserMessageID: 10, AdminMessage: domain.MessageRef{ChatID: -100, MessageID: 56}, CreatedAt: base})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := r.PendingByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, card, got.AdminMessage)
	require.True(t, base.Equal(got.CreatedAt))

	got, err = r.PendingByAdminMessage(ctx, card)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.AuthorID)

	require.NoError(t, r.InsertVote(ctx, domain.AdminVote{AdminID: 7, AdminMessage: card, IsUpvote: true}))
	require.NoError(t, r.InsertVote(ctx, domain.AdminVote{AdminID: 8, AdminMessage: card, IsUpvote: false}))
	require.ErrorIs(t, r.InsertVote(ctx, domain.AdminVote{AdminID: 7, AdminMessage: card, IsUpvote: false}), domain.ErrAlreadyExists)

	up, err := r.CountVotes(ctx, card, true)
	require.NoError(t, err)
	require.Equal(t, 1, up)

	require.NoError(t, r.UpdateVote(ctx, domain.AdminVote{AdminID: 8, AdminMessage: card, IsUpvote: true}))
	voters, err := r.ListVoters(ctx, card, true)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 8}, voters)

	v, err := r.Vote(ctx, 8, card)
	require.NoError(t, err)
	require.True(t, v.IsUpvote)
	_, err = r.Vote(ctx, 9, card)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, r.DeletePending(ctx, got))
	_, err = r.PendingByAuthor(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
	up, err = r.CountVotes(ctx, card, true)
	require.NoError(t, err)
	require.Zero(t, up, "голоса удаляются вместе с постом")
}

func TestListPendingBefore(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.CreatePending(ctx, domain.PendingSubmission{
			AuthorID:      int64(i + 1),
			UserMessageID: i,
			AdminMessage:  domain.MessageRef{ChatID: -100, MessageID: 100 + i},
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, r.CreatePending(ctx, domain.PendingSubmission{
		AuthorID: 50, AdminMessage: domain.MessageRef{ChatID: -999, MessageID: 1}, CreatedAt: base,
	}))

	old, err := r.ListPendingBefore(ctx, -100, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, old, 1)
	require.EqualValues(t, 1, old[0].AuthorID)

	none, err := r.ListPendingBefore(ctx, -100, base)
	require.NoError(t, err)
	require.Empty(t, none, "граница исключается")
}

func TestPublishedCascade(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	post := domain.MessageRef{ChatID: -200, MessageID: 3}

	require.NoError(t, r.InsertPublished(ctx, domain.PublishedSubmission{ChannelMessage: post, PublishedAt: base}))
	require.ErrorIs(t, r.InsertPublished(ctx, domain.PublishedSubmission{ChannelMessage: post, PublishedAt: base}), domain.ErrAlreadyExists)
	require.NoError(t, r.SaveThread(ctx, domain.CommentThread{ChannelMessage: post, ThreadID: 77, CreatedAt: base}))
	require.NoError(t, r.InsertFollow(ctx, domain.Follow{FollowerID: 1, ThreadMessageID: 77, PrivateMessageID: 5, FollowedAt: base}))
	require.NoError(t, r.InsertPostReport(ctx, domain.PostReport{AuthorID: 2, ChannelMessage: post, AdminMessage: domain.MessageRef{ChatID: -100, MessageID: 8}, CreatedAt: base}))

	th, err := r.ThreadByChannelMessage(ctx, post)
	require.NoError(t, err)
	require.Equal(t, 77, th.ThreadID)
	byID, err := r.ThreadByID(ctx, 77)
	require.NoError(t, err)
	require.Equal(t, post, byID.ChannelMessage)

	require.NoError(t, r.DeletePublished(ctx, post))
	_, err = r.Published(ctx, post)
	require.ErrorIs(t, err, domain.ErrNotFound)
	followers, err := r.ListFollowers(ctx, 77)
	require.NoError(t, err)
	require.Empty(t, followers)
	exists, err := r.PostReportExists(ctx, 2, post)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	post := domain.MessageRef{ChatID: -200, MessageID: 3}
	card := domain.MessageRef{ChatID: -100, MessageID: 8}

	require.NoError(t, r.InsertPostReport(ctx, domain.PostReport{AuthorID: 2, ChannelMessage: post, AdminMessage: card, CreatedAt: base}))
	require.ErrorIs(t, r.InsertPostReport(ctx, domain.PostReport{AuthorID: 2, ChannelMessage: post, AdminMessage: card, CreatedAt: base}), domain.ErrAlreadyExists)
	exists, err := r.PostReportExists(ctx, 2, post)
	require.NoError(t, err)
	require.True(t, exists)
	rep, err := r.PostReportByAdminMessage(ctx, card)
	require.NoError(t, err)
	require.Equal(t, post, rep.ChannelMessage)

	_, err = r.LastUserReport(ctx, 4)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, r.InsertUserReport(ctx, domain.UserReport{AuthorID: 4, TargetHandle: "@troll", AdminMessage: domain.MessageRef{ChatID: -100, MessageID: 20}, CreatedAt: base}))
	require.NoError(t, r.InsertUserReport(ctx, domain.UserReport{AuthorID: 4, TargetHandle: "@troll2", AdminMessage: domain.MessageRef{ChatID: -100, MessageID: 21}, CreatedAt: base.Add(time.Hour)}))
	last, err := r.LastUserReport(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "@troll2", last.TargetHandle)
	byCard, err := r.UserReportByAdminMessage(ctx, domain.MessageRef{ChatID: -100, MessageID: 20})
	require.NoError(t, err)
	require.Equal(t, "@troll", byCard.TargetHandle)
}

func TestFollows(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	require.NoError(t, r.InsertFollow(ctx, domain.Follow{FollowerID: 1, ThreadMessageID: 10, PrivateMessageID: 3, FollowedAt: base}))
	require.ErrorIs(t, r.InsertFollow(ctx, domain.Follow{FollowerID: 1, ThreadMessageID: 10, FollowedAt: base}), domain.ErrAlreadyExists)
	require.NoError(t, r.InsertFollow(ctx, domain.Follow{FollowerID: 2, ThreadMessageID: 10, PrivateMessageID: 4, FollowedAt: base.Add(time.Minute)}))

	f, err := r.Follow(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, f.PrivateMessageID)

	list, err := r.ListFollowers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, r.DeleteFollow(ctx, 1, 10))
	_, err = r.Follow(ctx, 1, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserFlags(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	ok, err := r.Ban(ctx, 5, base)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Ban(ctx, 5, base)
	require.NoError(t, err)
	require.False(t, ok)
	banned, err := r.IsBanned(ctx, 5)
	require.NoError(t, err)
	require.True(t, banned)
	bans, err := r.ListBanned(ctx)
	require.NoError(t, err)
	require.Len(t, bans, 1)
	ok, err = r.Unban(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Unban(ctx, 5)
	require.NoError(t, err)
	require.False(t, ok)

	changed, err := r.SetCredited(ctx, 6, true)
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = r.SetCredited(ctx, 6, true)
	require.NoError(t, err)
	require.False(t, changed)
	credited, err := r.IsCredited(ctx, 6)
	require.NoError(t, err)
	require.True(t, credited)
	changed, err = r.SetCredited(ctx, 6, false)
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, r.Mute(ctx, domain.Mute{UserID: 7, MutedAt: base, ExpiresAt: base.Add(24 * time.Hour)}))
	require.NoError(t, r.Mute(ctx, domain.Mute{UserID: 8, MutedAt: base, ExpiresAt: base.Add(72 * time.Hour)}))
	expired, err := r.ListExpiredMutes(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.EqualValues(t, 7, expired[0].UserID)
	muted, err := r.ListMuted(ctx)
	require.NoError(t, err)
	require.Len(t, muted, 2)
	ok, err = r.Unmute(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Warn(ctx, domain.Warn{UserID: 9, WarnedAt: base, ExpiresAt: base.Add(time.Hour)}))
	require.NoError(t, r.Warn(ctx, domain.Warn{UserID: 9, WarnedAt: base, ExpiresAt: base.Add(48 * time.Hour)}))
	live, err := r.CountLiveWarns(ctx, 9, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, live)
	removed, err := r.DeleteExpiredWarns(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}

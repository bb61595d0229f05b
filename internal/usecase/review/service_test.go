package review

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"spot-bot/internal/adapters/repo"
	"spot-bot/internal/domain"
	"spot-bot/internal/infra/cache"
	"spot-bot/internal/presenter"
	"spot-bot/internal/testutil"
)

const (
	adminGroup = int64(-100)
	channel    = int64(-200)
	author     = int64(11)
)

type fixture struct {
	svc   *Service
	gw    *testutil.Gateway
	repo  *repo.Repo
	cache *cache.Memory
	clock *testutil.Clock
	card  domain.MessageRef
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	f := fixture{
		gw:    testutil.NewGateway(),
		repo:  testutil.NewRepo(t),
		cache: cache.NewMemory(),
		clock: testutil.NewClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)),
		card:  domain.MessageRef{ChatID: adminGroup, MessageID: 500},
	}
	opts.AdminGroupID = adminGroup
	opts.ChannelID = channel
	if opts.AutorepliesPerPage == 0 {
		opts.AutorepliesPerPage = 6
	}
	f.svc = NewService(Deps{
		Gateway:   f.gw,
		Pending:   f.repo,
		Votes:     f.repo,
		Published: f.repo,
		Reports:   f.repo,
		Users:     f.repo,
		Cache:     f.cache,
		View:      presenter.New("@channel", "@spotbot").WithRand(func(int) int { return 0 }),
		Clock:     f.clock,
		Log:       zerolog.Nop(),
	}, opts)
	require.NoError(t, f.repo.CreatePending(context.Background(), domain.PendingSubmission{
		AuthorID: author, UserMessageID: 42, AdminMessage: f.card, CreatedAt: f.clock.Now(),
	}))
	return f
}

func (f fixture) click(adminID int64, username string) domain.Interaction {
	return domain.Interaction{
		ID:       "cb",
		From:     domain.User{ID: adminID, Username: username},
		Message:  f.card,
		ChatType: domain.ChatSupergroup,
	}
}

func TestHappyPathApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2, Report: true, Comments: true})

	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	edit, ok := f.gw.LastEdit(f.card)
	require.True(t, ok)
	require.Equal(t, "🟢 1", edit.Keyboard.Rows[0][0].Text)
	require.Equal(t, "🔴 0", edit.Keyboard.Rows[0][1].Text)
	require.Empty(t, f.gw.SentTo(channel))

	require.NoError(t, f.svc.Vote(ctx, f.click(2, "bruno"), true))

	posts := f.gw.SentTo(channel)
	require.Len(t, posts, 1)
	require.Equal(t, f.card, posts[0].CopyOf)
	kb := posts[0].Opts.Keyboard
	require.NotNil(t, kb)
	_, hasReport := kb.Find("report_spot,")
	_, hasFollow := kb.Find("follow_,")
	require.True(t, hasReport && hasFollow)

	edit, ok = f.gw.LastEdit(f.card)
	require.True(t, ok)
	last := edit.Keyboard.Rows[len(edit.Keyboard.Rows)-1]
	require.Equal(t, "APPROVED", last[0].Text)
	require.Equal(t, "🟢 @anna", edit.Keyboard.Rows[0][0].Text)
	require.Equal(t, "🟢 @bruno", edit.Keyboard.Rows[1][0].Text)

	require.True(t, f.gw.HasTextTo(author, "@channel"))

	_, err := f.repo.Published(ctx, posts[0].Ref)
	require.NoError(t, err)
	_, err = f.repo.PendingByAuthor(ctx, author)
	require.ErrorIs(t, err, domain.ErrNotFound)
	n, err := f.repo.CountVotes(ctx, f.card, true)
	require.NoError(t, err)
	require.Zero(t, n)

	sign, err := f.cache.Get(domain.SignKey(posts[0].Ref))
	require.NoError(t, err)
	require.True(t, presenter.IsAnonymousSign(string(sign)))
}

func TestSingleVoteQuorum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 1})
	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	require.Len(t, f.gw.SentTo(channel), 2, "пост и подпись в канале")
	_, err := f.repo.PendingByAuthor(ctx, author)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreditedSignWithoutComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 1})
	_, err := f.repo.SetCredited(ctx, author, true)
	require.NoError(t, err)
	f.gw.Chats[author] = domain.ChatInfo{ID: author, Username: "mario"}

	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	sent := f.gw.SentTo(channel)
	require.Len(t, sent, 2)
	require.Equal(t, "by: @mario", sent[1].Content.Text)
	require.Equal(t, sent[0].Ref.MessageID, sent[1].Opts.ReplyTo)
}

func TestFlipVoteAndReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2})

	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), false))
	v, err := f.repo.Vote(ctx, 1, f.card)
	require.NoError(t, err)
	require.False(t, v.IsUpvote)
	up, err := f.repo.CountVotes(ctx, f.card, true)
	require.NoError(t, err)
	require.Zero(t, up)

	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), false))
	ack, ok := f.gw.LastAck()
	require.True(t, ok)
	require.Equal(t, presenter.TextAlreadyVoted, ack.Text)

	require.NoError(t, f.svc.Vote(ctx, f.click(2, "bruno"), false))
	require.Empty(t, f.gw.SentTo(channel))
	require.True(t, f.gw.HasTextTo(author, "rifiutato"))
	edit, _ := f.gw.LastEdit(f.card)
	require.Equal(t, "REJECTED", edit.Keyboard.Rows[len(edit.Keyboard.Rows)-1][0].Text)
	_, err = f.repo.PendingByAuthor(ctx, author)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStaleVoteIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2})
	in := f.click(1, "anna")
	in.Message = domain.MessageRef{ChatID: adminGroup, MessageID: 999}
	require.NoError(t, f.svc.Vote(ctx, in, true))
	ack, ok := f.gw.LastAck()
	require.True(t, ok)
	require.Equal(t, presenter.TextStale, ack.Text)
	_, err := f.repo.Vote(ctx, 1, in.Message)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPauseResumeKeepsCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 3, Autoreplies: map[string]string{"repost": "già pubblicato", "rules": "viola le regole"}})
	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	require.NoError(t, f.svc.Vote(ctx, f.click(2, "bruno"), false))

	require.NoError(t, f.svc.Pause(ctx, f.click(1, "anna"), 0))
	edit, _ := f.gw.LastEdit(f.card)
	_, ok := edit.Keyboard.Find("autoreply,repost")
	require.True(t, ok)
	_, ok = edit.Keyboard.Find("approve_status,play")
	require.True(t, ok)

	require.NoError(t, f.svc.Resume(ctx, f.click(1, "anna")))
	edit, _ = f.gw.LastEdit(f.card)
	require.Equal(t, "🟢 1", edit.Keyboard.Rows[0][0].Text)
	require.Equal(t, "🔴 1", edit.Keyboard.Rows[0][1].Text)
}

func TestAutoReplyRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2, RejectAfterAutoreply: true, Autoreplies: map[string]string{"repost": "Questo post è già stato pubblicato"}})
	require.NoError(t, f.svc.Vote(ctx, f.click(1, "anna"), true))
	require.NoError(t, f.svc.Pause(ctx, f.click(2, "bruno"), 0))
	require.NoError(t, f.svc.AutoReply(ctx, f.click(2, "bruno"), "repost"))

	require.True(t, f.gw.HasTextTo(author, "Questo post è già stato pubblicato"))
	edit, _ := f.gw.LastEdit(f.card)
	require.Equal(t, "REJECTED [repost]", edit.Keyboard.Rows[len(edit.Keyboard.Rows)-1][0].Text)
	_, err := f.repo.PendingByAuthor(ctx, author)
	require.ErrorIs(t, err, domain.ErrNotFound)
	n, err := f.repo.CountVotes(ctx, f.card, true)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAutoReplyKeepsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2, Autoreplies: map[string]string{"repost": "Questo post è già stato pubblicato"}})
	require.NoError(t, f.svc.AutoReply(ctx, f.click(2, "bruno"), "repost"))
	require.True(t, f.gw.HasTextTo(author, "Questo post è già stato pubblicato"))
	_, err := f.repo.PendingByAuthor(ctx, author)
	require.NoError(t, err)

	require.NoError(t, f.svc.AutoReply(ctx, f.click(2, "bruno"), "missing"))
	ack, _ := f.gw.LastAck()
	require.Equal(t, presenter.TextUnknownAutoReply, ack.Text)
}

func TestAutoReplyCommand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2, RejectAfterAutoreply: true, Autoreplies: map[string]string{"spam": "Niente spam"}})
	cmd := domain.Message{ID: 77, ChatID: adminGroup, ChatType: domain.ChatSupergroup, Text: "/autoreply spam",
		ReplyTo: &domain.Message{ID: f.card.MessageID, ChatID: adminGroup}}
	require.NoError(t, f.svc.AutoReplyCommand(ctx, cmd, "spam"))
	require.True(t, f.gw.HasTextTo(author, "Niente spam"))
	require.True(t, f.gw.HasTextTo(adminGroup, presenter.TextAutoReplySent))
	_, err := f.repo.PendingByAuthor(ctx, author)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplyToPendingAndReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Quorum: 2})
	cmd := domain.Message{ID: 78, ChatID: adminGroup, ChatType: domain.ChatSupergroup,
		ReplyTo: &domain.Message{ID: f.card.MessageID, ChatID: adminGroup}}
	require.NoError(t, f.svc.Reply(ctx, cmd, "ricontrolla il testo"))
	require.True(t, f.gw.HasTextTo(author, "ricontrolla il testo"))

	reportCard := domain.MessageRef{ChatID: adminGroup, MessageID: 900}
	require.NoError(t, f.repo.InsertUserReport(ctx, domain.UserReport{AuthorID: 33, TargetHandle: "@troll", AdminMessage: reportCard, CreatedAt: f.clock.Now()}))
	cmd.ReplyTo = &domain.Message{ID: reportCard.MessageID, ChatID: adminGroup}
	require.NoError(t, f.svc.Reply(ctx, cmd, "grazie"))
	require.True(t, f.gw.HasTextTo(33, "grazie"))

	f.gw.Forbidden[33] = true
	require.NoError(t, f.svc.Reply(ctx, cmd, "ancora"))
	require.True(t, f.gw.HasTextTo(adminGroup, presenter.TextUserUnavailable))
}

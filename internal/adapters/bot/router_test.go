package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/cache"
	"spot-bot/internal/presenter"
	"spot-bot/internal/testutil"
	"spot-bot/internal/usecase/conversation"
	"spot-bot/internal/usecase/janitor"
	"spot-bot/internal/usecase/moderation"
	"spot-bot/internal/usecase/overlay"
	"spot-bot/internal/usecase/review"
	"spot-bot/internal/usecase/submission"
)

const (
	adminGroup = int64(-100)
	channel    = int64(-200)
	community  = int64(-300)
	author     = int64(11)
	token      = "123:SECRET"
)

type fixture struct {
	router *Router
	gw     *testutil.Gateway
	conv   *conversation.Store
	nextID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := testutil.NewGateway()
	store := testutil.NewStore(t)
	r := testutil.NewRepo(t)
	mem := cache.NewMemory()
	conv := conversation.NewStore()
	clk := testutil.NewClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	view := presenter.New("@channel", "@spotbot")
	log := zerolog.Nop()

	mod := moderation.NewService(moderation.Deps{Gateway: gw, Pending: r, Users: r, Clock: clk, Log: log},
		moderation.Options{AdminGroupID: adminGroup, CommunityGroupID: community, MaxWarns: 3, WarnExpirationDays: 60, MuteDefaultDays: 1})
	f := &fixture{gw: gw, conv: conv}
	f.router = NewRouter(Deps{
		Gateway:       gw,
		Cache:         mem,
		Conversations: conv,
		View:          view,
		Reporter:      NewErrorReporter(gw, adminGroup, token, log),
		Submission: submission.NewService(submission.Deps{
			Gateway: gw, Pending: r, Users: r, Conversations: conv, View: view, Clock: clk, Log: log,
		}, adminGroup),
		Review: review.NewService(review.Deps{
			Gateway: gw, Pending: r, Votes: r, Published: r, Reports: r, Users: r, Cache: mem, View: view, Clock: clk, Log: log,
		}, review.Options{AdminGroupID: adminGroup, ChannelID: channel, Quorum: 2, AutorepliesPerPage: 6}),
		Overlay: overlay.NewService(overlay.Deps{
			Gateway: gw, Published: r, Reports: r, Follows: r, Cache: mem, Conversations: conv, View: view, Clock: clk, Log: log,
		}, overlay.Options{AdminGroupID: adminGroup, ChannelID: channel, CommunityGroupID: community}),
		Moderation: mod,
		Janitor: janitor.NewService(janitor.Deps{
			Gateway: gw, Pending: r, Users: r, Mutes: mod, Store: store, Clock: clk, Log: log,
		}, janitor.Options{AdminGroupID: adminGroup, RemoveAfter: 24 * time.Hour}),
		Log: log,
	}, Options{AdminGroupID: adminGroup, ChannelID: channel, CommunityGroupID: community})
	return f
}

func (f *fixture) message(chatID, from int64, chatType, text string) tgbotapi.Update {
	f.nextID++
	return tgbotapi.Update{
		UpdateID: f.nextID,
		Message: &tgbotapi.Message{
			MessageID: f.nextID,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
			From:      &tgbotapi.User{ID: from, UserName: "mario"},
			Text:      text,
		},
	}
}

func (f *fixture) click(chatID, from int64, messageID int, data string) tgbotapi.Update {
	f.nextID++
	return tgbotapi.Update{
		UpdateID: f.nextID,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: from},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
		},
	}
}

func TestSubmissionThroughRouter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.router.HandleUpdate(ctx, f.message(author, author, "private", "/spot"))
	require.Equal(t, conversation.AwaitingContent, f.conv.State(author))

	content := f.message(author, author, "private", "ciao a tutti")
	f.router.HandleUpdate(ctx, content)
	require.Equal(t, conversation.AwaitingConfirm, f.conv.State(author))

	// повторная доставка того же апдейта не обрабатывается
	sent := len(f.gw.Sent)
	f.router.HandleUpdate(ctx, content)
	require.Len(t, f.gw.Sent, sent)

	prompt := f.gw.SentTo(author)[1].Ref
	f.router.HandleUpdate(ctx, f.click(author, author, prompt.MessageID, domain.PostConfirmCallback{Submit: true}.Encode()))
	cards := f.gw.SentTo(adminGroup)
	require.Len(t, cards, 1)
	require.Equal(t, "ciao a tutti", cards[0].Content.Text)
	require.Equal(t, presenter.ApprovalKeyboard(0, 0), cards[0].Opts.Keyboard)
	require.Equal(t, conversation.Idle, f.conv.State(author))
}

func TestPrivateStaticCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view := presenter.New("@channel", "@spotbot")

	f.router.HandleUpdate(ctx, f.message(author, author, "private", "/rules"))
	f.router.HandleUpdate(ctx, f.message(author, author, "private", "/boh"))
	f.router.HandleUpdate(ctx, f.message(author, author, "private", "testo libero"))
	require.Equal(t, []string{view.Rules(), view.Help()}, f.gw.TextsTo(author))
}

func TestAdminCallbacksOutsideAdminGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.router.HandleUpdate(ctx, f.click(author, author, 5, domain.VoteCallback{Approve: true}.Encode()))
	ack, ok := f.gw.LastAck()
	require.True(t, ok)
	require.Empty(t, ack.Text)
	require.Empty(t, f.gw.Edits)
}

func TestUnknownCallbackIsAcked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.router.HandleUpdate(ctx, f.click(author, author, 5, "garbage,1"))
	require.Len(t, f.gw.Acks, 1)
}

func TestHandlerErrorIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gw.FailCopy = errors.New("Post https://api.telegram.org/bot" + token + "/copyMessage: timeout")

	f.router.HandleUpdate(ctx, f.message(author, author, "private", "/spot"))
	photo := f.message(author, author, "private", "")
	photo.Message.Photo = []tgbotapi.PhotoSize{{FileID: "p"}}
	f.router.HandleUpdate(ctx, photo)
	prompt := f.gw.SentTo(author)[1].Ref
	f.router.HandleUpdate(ctx, f.click(author, author, prompt.MessageID, domain.PostConfirmCallback{Submit: true}.Encode()))

	ack, _ := f.gw.LastAck()
	require.Equal(t, presenter.TextGenericError, ack.Text)
	reports := f.gw.TextsTo(adminGroup)
	require.Len(t, reports, 1)
	require.Contains(t, reports[0], "post_confirm")
	require.Contains(t, reports[0], "<token>")
	require.NotContains(t, reports[0], "SECRET")
}

func TestCommunityCommandsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	upd := f.message(community, 42, "supergroup", "/mute 2")
	upd.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: community}, From: &tgbotapi.User{ID: author}}
	f.router.HandleUpdate(ctx, upd)
	require.Empty(t, f.gw.Restrictions)
	require.True(t, f.gw.HasTextTo(community, presenter.TextNotAdmin))
}

func TestReporterRecover(t *testing.T) {
	gw := testutil.NewGateway()
	rep := NewErrorReporter(gw, adminGroup, token, zerolog.Nop())
	func() {
		defer rep.Recover(context.Background(), "spot")
		panic("boom " + token)
	}()
	texts := gw.TextsTo(adminGroup)
	require.Len(t, texts, 1)
	require.True(t, strings.HasPrefix(texts[0], "⚠️ Panic in spot: boom <token>"))
}

func TestLoopRunsJobsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop(8, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()

	var order []int
	finished := make(chan struct{})
	loop.Dispatch(func(context.Context) { order = append(order, 1) })
	loop.Dispatch(func(context.Context) { panic("boom") })
	loop.Dispatch(func(context.Context) { order = append(order, 2) })
	loop.Dispatch(func(context.Context) { close(finished) })

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("цикл не выполнил задачи")
	}
	require.Equal(t, []int{1, 2}, order)
	cancel()
	<-done
}

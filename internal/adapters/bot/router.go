// Package bot принимает апдейты платформы и передаёт их сценариям.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spot-bot/internal/adapters/telegram"
	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
	"spot-bot/internal/usecase/conversation"
	"spot-bot/internal/usecase/janitor"
	"spot-bot/internal/usecase/moderation"
	"spot-bot/internal/usecase/overlay"
	"spot-bot/internal/usecase/review"
	"spot-bot/internal/usecase/submission"
)

const updateTTL = 24 * time.Hour

// Options: чаты, между которыми распределяются апдейты.
type Options struct {
	AdminGroupID     int64
	ChannelID        int64
	CommunityGroupID int64
}

// Deps: зависимости роутера.
type Deps struct {
	Gateway       domain.Gateway
	Cache         domain.Cache
	Conversations *conversation.Store
	View          *presenter.Presenter
	Reporter      *ErrorReporter
	Submission    *submission.Service
	Review        *review.Service
	Overlay       *overlay.Service
	Moderation    *moderation.Service
	Janitor       *janitor.Service
	Log           zerolog.Logger
}

// Router разбирает апдейты и вызывает нужный сценарий.
type Router struct {
	gw         domain.Gateway
	cache      domain.Cache
	conv       *conversation.Store
	view       *presenter.Presenter
	reporter   *ErrorReporter
	submission *submission.Service
	review     *review.Service
	overlay    *overlay.Service
	moderation *moderation.Service
	janitor    *janitor.Service
	opts       Options
	log        zerolog.Logger
}

type messageHandler func(ctx context.Context, msg domain.Message) error

// NewRouter создаёт роутер.
func NewRouter(d Deps, opts Options) *Router {
	return &Router{
		gw:         d.Gateway,
		cache:      d.Cache,
		conv:       d.Conversations,
		view:       d.View,
		reporter:   d.Reporter,
		submission: d.Submission,
		review:     d.Review,
		overlay:    d.Overlay,
		moderation: d.Moderation,
		janitor:    d.Janitor,
		opts:       opts,
		log:        d.Log.With().Str("component", "router").Logger(),
	}
}

// HandleUpdate обрабатывает апдейт. Повторная доставка того же апдейта игнорируется.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	logger := r.log.With().Str("trace", uuid.NewString()).Int("update_id", upd.UpdateID).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()
	defer func() {
		metrics.UpdateHandleDuration.WithLabelValues(updateKind(upd)).Observe(time.Since(start).Seconds())
	}()
	err := r.cache.Once(domain.UpdateKey(upd.UpdateID), updateTTL, func() error {
		switch {
		case upd.Message != nil:
			r.handleMessage(ctx, telegram.ToMessage(upd.Message))
		case upd.CallbackQuery != nil:
			r.handleCallback(ctx, telegram.ToInteraction(upd.CallbackQuery))
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("дедупликация апдейта недоступна")
	}
}

func updateKind(upd tgbotapi.Update) string {
	switch {
	case upd.Message != nil:
		return "message"
	case upd.CallbackQuery != nil:
		return "callback"
	}
	return "other"
}

func (r *Router) handleMessage(ctx context.Context, msg domain.Message) {
	name, handler := r.messageHandler(msg)
	if handler == nil {
		return
	}
	zerolog.Ctx(ctx).Debug().Str("handler", name).Int64("chat", msg.ChatID).Msg("сообщение")
	defer r.reporter.Recover(ctx, name)
	if err := handler(ctx, msg); err != nil {
		r.reporter.Report(ctx, name, err)
		if msg.IsPrivate() {
			r.conv.Reset(msg.ChatID)
			_, _ = r.gw.Send(ctx, msg.ChatID, domain.Text(presenter.TextGenericError), domain.SendOptions{})
		}
	}
}

func (r *Router) messageHandler(msg domain.Message) (string, messageHandler) {
	switch {
	case msg.ChatID == r.opts.AdminGroupID:
		return r.adminCommand(msg)
	case r.opts.CommunityGroupID != 0 && msg.ChatID == r.opts.CommunityGroupID:
		return r.communityMessage(msg)
	case msg.IsPrivate() && msg.From != nil:
		return r.privateMessage(msg)
	}
	return "", nil
}

func (r *Router) privateMessage(msg domain.Message) (string, messageHandler) {
	cmd, _ := msg.Command()
	switch cmd {
	case "start":
		return cmd, r.text(r.view.Start())
	case "help":
		return cmd, r.text(r.view.Help())
	case "rules":
		return cmd, r.text(r.view.Rules())
	case "settings":
		return cmd, r.moderation.Settings
	case "spot":
		return cmd, r.submission.Start
	case "cancel":
		return cmd, r.submission.Cancel
	case "report":
		return cmd, r.overlay.StartUserReport
	case "":
	default:
		return "unknown", r.text(r.view.Help())
	}
	switch r.conv.State(msg.From.ID) {
	case conversation.AwaitingContent:
		return "content", r.submission.HandleContent
	case conversation.AwaitingPostReportReason:
		return "post_report_reason", r.overlay.PostReportReason
	case conversation.AwaitingReportHandle:
		return "report_handle", r.overlay.ReportHandle
	case conversation.AwaitingUserReportReason:
		return "user_report_reason", r.overlay.UserReportReason
	}
	return "", nil
}

func (r *Router) adminCommand(msg domain.Message) (string, messageHandler) {
	cmd, args := msg.Command()
	switch cmd {
	case "ban":
		return cmd, r.moderation.BanPending
	case "sban":
		return cmd, r.moderation.Sban
	case "unmute":
		return cmd, r.moderation.Unmute
	case "reply":
		return cmd, func(ctx context.Context, msg domain.Message) error { return r.review.Reply(ctx, msg, args) }
	case "autoreply":
		return cmd, func(ctx context.Context, msg domain.Message) error { return r.review.AutoReplyCommand(ctx, msg, args) }
	case "clean_pending":
		return cmd, r.janitor.CleanPending
	case "db_backup":
		return cmd, r.janitor.DBBackup
	}
	return "", nil
}

func (r *Router) communityMessage(msg domain.Message) (string, messageHandler) {
	cmd, _ := msg.Command()
	switch cmd {
	case "mute":
		return cmd, r.moderation.Mute
	case "warn":
		return cmd, r.moderation.Warn
	}
	return "comment", r.overlay.Comment
}

func (r *Router) text(text string) messageHandler {
	return func(ctx context.Context, msg domain.Message) error {
		_, err := r.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{})
		return err
	}
}

func (r *Router) handleCallback(ctx context.Context, in domain.Interaction) {
	cb, err := domain.ParseCallback(in.Data)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Str("data", in.Data).Msg("неизвестная кнопка")
		_ = r.gw.AckButton(ctx, in.ID, "")
		return
	}
	name := cb.Family()
	zerolog.Ctx(ctx).Debug().Str("handler", name).Int64("user", in.From.ID).Msg("кнопка")
	defer r.reporter.Recover(ctx, name)
	if err := r.dispatchCallback(ctx, in, cb); err != nil {
		r.reporter.Report(ctx, name, err)
		_ = r.gw.AckButton(ctx, in.ID, presenter.TextGenericError)
	}
}

func (r *Router) dispatchCallback(ctx context.Context, in domain.Interaction, cb domain.Callback) error {
	switch c := cb.(type) {
	case domain.PostConfirmCallback:
		return r.submission.Confirm(ctx, in, c.Submit)
	case domain.PostPreviewCallback:
		return r.submission.ChoosePreview(ctx, in, c.Accept)
	case domain.SettingsCallback:
		return r.moderation.ChooseCredit(ctx, in, c.Credited)
	case domain.FollowCallback:
		return r.overlay.ToggleFollow(ctx, in)
	case domain.ReportSpotCallback:
		return r.overlay.ReportPost(ctx, in)
	}
	if in.Message.ChatID != r.opts.AdminGroupID {
		return r.gw.AckButton(ctx, in.ID, "")
	}
	switch c := cb.(type) {
	case domain.VoteCallback:
		return r.review.Vote(ctx, in, c.Approve)
	case domain.StatusCallback:
		if c.Pause {
			return r.review.Pause(ctx, in, c.Page)
		}
		return r.review.Resume(ctx, in)
	case domain.AutoReplyCallback:
		return r.review.AutoReply(ctx, in, c.Key)
	case domain.NoopCallback:
		return r.gw.AckButton(ctx, in.ID, "")
	}
	return fmt.Errorf("кнопка %s: %w", cb.Family(), domain.ErrUnknownCallback)
}

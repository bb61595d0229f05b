// Package telegram реализует domain.Gateway поверх Bot API.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
)

const (
	requestsPerSecond = 30
	minRetryDelay     = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// API — используемая часть *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	CopyMessage(c tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
	GetChat(c tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Gateway выполняет исходящие вызовы Bot API с ограничением частоты.
type Gateway struct {
	api     API
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ domain.Gateway = (*Gateway)(nil)

// NewGateway создаёт шлюз.
func NewGateway(api API, log zerolog.Logger) *Gateway {
	return &Gateway{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:     log.With().Str("component", "telegram").Logger(),
	}
}

// Send отправляет текст. Длинный простой текст делится на части, возвращается ссылка на первую.
func (g *Gateway) Send(ctx context.Context, chatID int64, content domain.Content, opts domain.SendOptions) (domain.MessageRef, error) {
	parts := []string{content.Text}
	if !content.HTML && len(content.Entities) == 0 {
		if split := SplitMessage(content.Text); len(split) > 1 {
			parts = split
		}
	}
	var first domain.MessageRef
	for i, part := range parts {
		cfg := tgbotapi.NewMessage(chatID, part)
		cfg.DisableWebPagePreview = content.DisablePreview
		if content.HTML {
			cfg.ParseMode = tgbotapi.ModeHTML
		}
		if len(parts) == 1 {
			cfg.Entities = toEntities(content.Entities)
		}
		if i == 0 {
			applyOptions(&cfg.BaseChat, opts)
		}
		var sent tgbotapi.Message
		err := g.do(ctx, "send_message", chatID, false, func() (err error) {
			sent, err = g.api.Send(cfg)
			return err
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = domain.MessageRef{ChatID: chatID, MessageID: sent.MessageID}
		}
	}
	return first, nil
}

// EditText реализует domain.Gateway.
func (g *Gateway) EditText(ctx context.Context, msg domain.MessageRef, content domain.Content, keyboard *domain.Keyboard) error {
	cfg := tgbotapi.NewEditMessageText(msg.ChatID, msg.MessageID, content.Text)
	cfg.DisableWebPagePreview = content.DisablePreview
	cfg.Entities = toEntities(content.Entities)
	if content.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	if keyboard != nil {
		markup := ToMarkup(keyboard)
		cfg.ReplyMarkup = &markup
	}
	return g.request(ctx, "edit_text", msg.ChatID, cfg)
}

// EditKeyboard реализует domain.Gateway. nil убирает клавиатуру.
func (g *Gateway) EditKeyboard(ctx context.Context, msg domain.MessageRef, keyboard *domain.Keyboard) error {
	cfg := tgbotapi.NewEditMessageReplyMarkup(msg.ChatID, msg.MessageID, ToMarkup(keyboard))
	return g.request(ctx, "edit_keyboard", msg.ChatID, cfg)
}

// Delete реализует domain.Gateway.
func (g *Gateway) Delete(ctx context.Context, msg domain.MessageRef) error {
	return g.request(ctx, "delete", msg.ChatID, tgbotapi.NewDeleteMessage(msg.ChatID, msg.MessageID))
}

// Copy реализует domain.Gateway.
func (g *Gateway) Copy(ctx context.Context, src domain.MessageRef, dstChatID int64, opts domain.SendOptions) (domain.MessageRef, error) {
	cfg := tgbotapi.NewCopyMessage(dstChatID, src.ChatID, src.MessageID)
	applyOptions(&cfg.BaseChat, opts)
	var id tgbotapi.MessageID
	err := g.do(ctx, "copy", dstChatID, false, func() (err error) {
		id, err = g.api.CopyMessage(cfg)
		return err
	})
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: dstChatID, MessageID: id.MessageID}, nil
}

// Forward реализует domain.Gateway.
func (g *Gateway) Forward(ctx context.Context, src domain.MessageRef, dstChatID int64) (domain.MessageRef, error) {
	cfg := tgbotapi.NewForward(dstChatID, src.ChatID, src.MessageID)
	var sent tgbotapi.Message
	err := g.do(ctx, "forward", dstChatID, false, func() (err error) {
		sent, err = g.api.Send(cfg)
		return err
	})
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: dstChatID, MessageID: sent.MessageID}, nil
}

// RestrictMember реализует domain.Gateway. Нулевой until снимает ограничение бессрочно.
func (g *Gateway) RestrictMember(ctx context.Context, chatID, userID int64, perms domain.Permissions, until time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       perms.CanSendMessages,
			CanSendMediaMessages:  perms.CanSendMedia,
			CanSendPolls:          perms.CanSendPolls,
			CanSendOtherMessages:  perms.CanSendOther,
			CanAddWebPagePreviews: perms.CanAddPreviews,
		},
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	return g.request(ctx, "restrict", chatID, cfg)
}

// AckButton реализует domain.Gateway.
func (g *Gateway) AckButton(ctx context.Context, interactionID, text string) error {
	return g.request(ctx, "answer_callback", 0, tgbotapi.NewCallback(interactionID, text))
}

// GetChat реализует domain.Gateway.
func (g *Gateway) GetChat(ctx context.Context, chatID int64) (domain.ChatInfo, error) {
	var chat tgbotapi.Chat
	err := g.do(ctx, "get_chat", chatID, true, func() (err error) {
		chat, err = g.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
		return err
	})
	if err != nil {
		return domain.ChatInfo{}, err
	}
	return domain.ChatInfo{ID: chat.ID, Username: chat.UserName, FirstName: chat.FirstName}, nil
}

// SendDocument реализует domain.Gateway.
func (g *Gateway) SendDocument(ctx context.Context, chatID int64, doc domain.Document, caption string) (domain.MessageRef, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("открытие файла: %w", err)
	}
	defer f.Close()
	name := doc.Name
	if name == "" {
		name = filepath.Base(doc.Path)
	}
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: name, Reader: f})
	cfg.Caption = caption
	var sent tgbotapi.Message
	err = g.do(ctx, "send_document", chatID, false, func() (err error) {
		sent, err = g.api.Send(cfg)
		return err
	})
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// IsMember реализует domain.Gateway.
func (g *Gateway) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var member tgbotapi.ChatMember
	err := g.do(ctx, "get_member", chatID, true, func() (err error) {
		member, err = g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
		})
		return err
	})
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		return member.IsMember, nil
	}
	return false, nil
}

func (g *Gateway) request(ctx context.Context, op string, chatID int64, c tgbotapi.Chattable) error {
	return g.do(ctx, op, chatID, true, func() error {
		_, err := g.api.Request(c)
		return err
	})
}

// do выполняет вызов с учётом лимита. Идемпотентные вызовы повторяются один раз при временной ошибке.
func (g *Gateway) do(ctx context.Context, op string, chatID int64, idempotent bool, call func() error) error {
	delay := &fixedDelay{}
	attempt := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		start := time.Now()
		raw := call()
		err := classify(op, raw)
		metrics.ObserveNetworkRequest("telegram_bot", op, strconv.FormatInt(chatID, 10), start, err)
		if domain.PlatformKind(err) != domain.PlatformTransient || !idempotent {
			return permanent(err)
		}
		delay.next = clampDelay(retryAfter(raw))
		g.log.Debug().Err(raw).Str("op", op).Dur("retry_in", delay.next).Msg("повтор запроса")
		return err
	}
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(delay, 1), ctx))
	if err != nil && domain.PlatformKind(err) != domain.PlatformNotFound {
		metrics.BotSendErrors.Inc()
	}
	return err
}

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func clampDelay(d time.Duration) time.Duration {
	if d < minRetryDelay {
		return minRetryDelay
	}
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// fixedDelay отдаёт паузу, выставленную последней попыткой.
type fixedDelay struct{ next time.Duration }

func (d *fixedDelay) NextBackOff() time.Duration { return d.next }
func (d *fixedDelay) Reset()                     {}

func applyOptions(base *tgbotapi.BaseChat, opts domain.SendOptions) {
	if opts.ReplyTo != 0 {
		base.ReplyToMessageID = opts.ReplyTo
		base.AllowSendingWithoutReply = true
	}
	if opts.Keyboard != nil {
		base.ReplyMarkup = ToMarkup(opts.Keyboard)
	}
}

package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
	"spot-bot/internal/usecase/conversation"
)

// Deps: зависимости сервиса.
type Deps struct {
	Gateway       domain.Gateway
	Pending       domain.PendingRepo
	Users         domain.UserRepo
	Conversations *conversation.Store
	View          *presenter.Presenter
	Clock         domain.Clock
	Log           zerolog.Logger
}

// Service ведёт пользователя от /spot до отправки поста админам.
type Service struct {
	gw           domain.Gateway
	pending      domain.PendingRepo
	users        domain.UserRepo
	conv         *conversation.Store
	view         *presenter.Presenter
	clock        domain.Clock
	adminGroupID int64
	log          zerolog.Logger
}

// NewService создаёт сервис.
func NewService(d Deps, adminGroupID int64) *Service {
	return &Service{
		gw:           d.Gateway,
		pending:      d.Pending,
		users:        d.Users,
		conv:         d.Conversations,
		view:         d.View,
		clock:        d.Clock,
		adminGroupID: adminGroupID,
		log:          d.Log.With().Str("component", "submission").Logger(),
	}
}

// Start обрабатывает /spot.
func (s *Service) Start(ctx context.Context, msg domain.Message) error {
	if !msg.IsPrivate() || msg.From == nil {
		return s.reply(ctx, msg, presenter.TextNotPrivate)
	}
	reason, err := s.guard(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if reason != "" {
		return s.reply(ctx, msg, reason)
	}
	s.conv.Set(msg.From.ID, conversation.Session{State: conversation.AwaitingContent})
	return s.reply(ctx, msg, presenter.TextSpotPrompt)
}

// HandleContent принимает предложенный пост на шаге AwaitingContent.
func (s *Service) HandleContent(ctx context.Context, msg domain.Message) error {
	if !msg.Kind.AllowedForSubmission() {
		return s.reply(ctx, msg, presenter.TextInvalidFormat)
	}
	sess := conversation.Session{Content: msg}
	text, kb := presenter.TextConfirmQuestion, presenter.ConfirmKeyboard()
	sess.State = conversation.AwaitingConfirm
	if msg.HasURL() {
		text, kb = presenter.TextPreviewQuestion, presenter.PreviewKeyboard()
		sess.State = conversation.AwaitingPreviewChoice
	}
	if _, err := s.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{ReplyTo: msg.ID, Keyboard: kb}); err != nil {
		return fmt.Errorf("вопрос о подтверждении: %w", err)
	}
	s.conv.Set(msg.From.ID, sess)
	return nil
}

// ChoosePreview сохраняет выбор предпросмотра ссылок.
func (s *Service) ChoosePreview(ctx context.Context, in domain.Interaction, show bool) error {
	sess := s.conv.Get(in.From.ID)
	if sess.State != conversation.AwaitingPreviewChoice {
		return s.gw.AckButton(ctx, in.ID, "")
	}
	sess.ShowPreview = show
	sess.State = conversation.AwaitingConfirm
	s.conv.Set(in.From.ID, sess)
	if err := domain.IgnoreNotFound(s.gw.EditText(ctx, in.Message, domain.Text(presenter.TextConfirmQuestion), presenter.ConfirmKeyboard())); err != nil {
		return err
	}
	return s.gw.AckButton(ctx, in.ID, "")
}

// Confirm отправляет пост админам или отменяет его.
func (s *Service) Confirm(ctx context.Context, in domain.Interaction, submit bool) error {
	sess := s.conv.Get(in.From.ID)
	if sess.State != conversation.AwaitingConfirm {
		return s.gw.AckButton(ctx, in.ID, "")
	}
	s.conv.Reset(in.From.ID)
	if !submit {
		metrics.IncOutcome("cancelled")
		return s.finish(ctx, in, s.view.Farewell())
	}

	reason, err := s.guard(ctx, in.From.ID)
	if err != nil {
		return err
	}
	if reason != "" {
		return s.finish(ctx, in, reason)
	}

	card, err := s.sendToAdmins(ctx, sess)
	if err != nil {
		_ = s.gw.EditText(ctx, in.Message, domain.Text(presenter.TextGenericError), nil)
		return fmt.Errorf("копия в группу админов: %w", err)
	}
	p := domain.PendingSubmission{
		AuthorID:      in.From.ID,
		UserMessageID: sess.Content.ID,
		AdminMessage:  card,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.pending.CreatePending(ctx, p); err != nil {
		if delErr := domain.IgnoreNotFound(s.gw.Delete(ctx, card)); delErr != nil {
			s.log.Warn().Err(delErr).Msg("не удалось удалить карточку без записи")
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			return s.finish(ctx, in, presenter.TextAlreadyPending)
		}
		_ = s.gw.EditText(ctx, in.Message, domain.Text(presenter.TextGenericError), nil)
		return fmt.Errorf("сохранение поста: %w", err)
	}
	metrics.IncOutcome("submitted")
	s.log.Info().Int64("author", p.AuthorID).Int("card", card.MessageID).Msg("пост отправлен на модерацию")
	return s.finish(ctx, in, presenter.TextSubmitted)
}

// Cancel обрабатывает /cancel: сбрасывает диалог и удаляет пост на модерации.
func (s *Service) Cancel(ctx context.Context, msg domain.Message) error {
	if msg.From == nil {
		return nil
	}
	active := s.conv.Reset(msg.From.ID)
	p, err := s.pending.PendingByAuthor(ctx, msg.From.ID)
	switch {
	case err == nil:
		if delErr := domain.IgnoreNotFound(s.gw.Delete(ctx, p.AdminMessage)); delErr != nil {
			s.log.Warn().Err(delErr).Msg("не удалось удалить карточку поста")
		}
		if err := s.pending.DeletePending(ctx, p); err != nil {
			return fmt.Errorf("удаление поста: %w", err)
		}
		metrics.IncOutcome("cancelled")
		return s.reply(ctx, msg, presenter.TextPendingDeleted)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("поиск поста: %w", err)
	case active:
		return s.reply(ctx, msg, presenter.TextCancelled)
	default:
		return s.reply(ctx, msg, presenter.TextNothingToCancel)
	}
}

// guard возвращает причину отказа, если пользователь не может отправить пост.
func (s *Service) guard(ctx context.Context, userID int64) (string, error) {
	banned, err := s.users.IsBanned(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("проверка бана: %w", err)
	}
	if banned {
		return presenter.TextBanned, nil
	}
	_, err = s.pending.PendingByAuthor(ctx, userID)
	if err == nil {
		return presenter.TextAlreadyPending, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("поиск поста: %w", err)
	}
	return "", nil
}

func (s *Service) sendToAdmins(ctx context.Context, sess conversation.Session) (domain.MessageRef, error) {
	opts := domain.SendOptions{Keyboard: presenter.ApprovalKeyboard(0, 0)}
	if sess.Content.Kind == domain.ContentText {
		content := domain.Content{
			Text:           sess.Content.Text,
			Entities:       sess.Content.Entities,
			DisablePreview: !sess.ShowPreview,
		}
		return s.gw.Send(ctx, s.adminGroupID, content, opts)
	}
	return s.gw.Copy(ctx, sess.Content.Ref(), s.adminGroupID, opts)
}

func (s *Service) finish(ctx context.Context, in domain.Interaction, text string) error {
	if err := domain.IgnoreNotFound(s.gw.EditText(ctx, in.Message, domain.Text(text), nil)); err != nil {
		return err
	}
	return s.gw.AckButton(ctx, in.ID, "")
}

func (s *Service) reply(ctx context.Context, msg domain.Message, text string) error {
	_, err := s.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{})
	return err
}

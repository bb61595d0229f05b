package overlay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
	"spot-bot/internal/usecase/conversation"
)

// ReportPost обрабатывает кнопку Report под опубликованным постом.
func (s *Service) ReportPost(ctx context.Context, in domain.Interaction) error {
	post, ok, err := s.channelPost(ctx, in.Message)
	if err != nil {
		return err
	}
	if !ok {
		return s.gw.AckButton(ctx, in.ID, presenter.TextPostGone)
	}
	exists, err := s.reports.PostReportExists(ctx, in.From.ID, post)
	if err != nil {
		return fmt.Errorf("проверка жалобы: %w", err)
	}
	if exists {
		return s.gw.AckButton(ctx, in.ID, presenter.TextReportDuplicate)
	}
	_, err = s.gw.Send(ctx, in.From.ID, domain.Text(presenter.TextReportPrompt), domain.SendOptions{})
	if domain.IsForbidden(err) {
		return s.gw.AckButton(ctx, in.ID, s.view.StartBotFirst())
	}
	if err != nil {
		return fmt.Errorf("запрос причины жалобы: %w", err)
	}
	s.conv.Set(in.From.ID, conversation.Session{State: conversation.AwaitingPostReportReason, ReportedPost: post})
	return s.gw.AckButton(ctx, in.ID, presenter.TextReportAck)
}

// PostReportReason принимает причину жалобы на пост и отправляет карточку админам.
func (s *Service) PostReportReason(ctx context.Context, msg domain.Message) error {
	reason := strings.TrimSpace(msg.Text)
	if msg.Kind != domain.ContentText || reason == "" {
		return s.reply(ctx, msg, presenter.TextReportEmpty)
	}
	sess := s.conv.Get(msg.From.ID)
	fwd, err := s.gw.Forward(ctx, sess.ReportedPost, s.opts.AdminGroupID)
	if domain.IsNotFound(err) {
		s.conv.Reset(msg.From.ID)
		return s.reply(ctx, msg, presenter.TextPostGone)
	}
	if err != nil {
		return fmt.Errorf("пересылка поста: %w", err)
	}
	card, err := s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(presenter.PostReportCard(reason)), domain.SendOptions{ReplyTo: fwd.MessageID})
	if err != nil {
		return fmt.Errorf("карточка жалобы: %w", err)
	}
	err = s.reports.InsertPostReport(ctx, domain.PostReport{
		AuthorID:       msg.From.ID,
		ChannelMessage: sess.ReportedPost,
		AdminMessage:   card,
		CreatedAt:      s.clock.Now(),
	})
	s.conv.Reset(msg.From.ID)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.reply(ctx, msg, presenter.TextReportDuplicate)
	}
	if err != nil {
		return fmt.Errorf("сохранение жалобы: %w", err)
	}
	metrics.IncReport("post")
	return s.reply(ctx, msg, presenter.TextReportSent)
}

// StartUserReport обрабатывает /report.
func (s *Service) StartUserReport(ctx context.Context, msg domain.Message) error {
	if !msg.IsPrivate() || msg.From == nil {
		return s.reply(ctx, msg, presenter.TextNotPrivate)
	}
	last, err := s.reports.LastUserReport(ctx, msg.From.ID)
	switch {
	case err == nil:
		if wait := last.CreatedAt.Add(s.opts.ReportWait).Sub(s.clock.Now()); wait > 0 {
			return s.reply(ctx, msg, presenter.ReportTooSoon(wait))
		}
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("последняя жалоба: %w", err)
	}
	s.conv.Set(msg.From.ID, conversation.Session{State: conversation.AwaitingReportHandle})
	return s.reply(ctx, msg, presenter.TextHandlePrompt)
}

// ReportHandle принимает ник пользователя, на которого жалуются.
func (s *Service) ReportHandle(ctx context.Context, msg domain.Message) error {
	handle := strings.TrimSpace(msg.Text)
	if !ValidHandle(handle) {
		return s.reply(ctx, msg, presenter.TextHandleInvalid)
	}
	s.conv.Set(msg.From.ID, conversation.Session{State: conversation.AwaitingUserReportReason, TargetHandle: handle})
	return s.reply(ctx, msg, presenter.TextUserReasonPrompt)
}

// UserReportReason принимает причину жалобы на пользователя.
func (s *Service) UserReportReason(ctx context.Context, msg domain.Message) error {
	reason := strings.TrimSpace(msg.Text)
	if msg.Kind != domain.ContentText || reason == "" {
		return s.reply(ctx, msg, presenter.TextReportEmpty)
	}
	sess := s.conv.Get(msg.From.ID)
	card, err := s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(presenter.UserReportCard(sess.TargetHandle, reason)), domain.SendOptions{})
	if err != nil {
		return fmt.Errorf("карточка жалобы: %w", err)
	}
	if err := s.reports.InsertUserReport(ctx, domain.UserReport{
		AuthorID:     msg.From.ID,
		TargetHandle: sess.TargetHandle,
		AdminMessage: card,
		CreatedAt:    s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("сохранение жалобы: %w", err)
	}
	s.conv.Reset(msg.From.ID)
	metrics.IncReport("user")
	return s.reply(ctx, msg, presenter.TextReportSent)
}

// ValidHandle проверяет ник вида @name без пробелов.
func ValidHandle(handle string) bool {
	return len(handle) > 1 && strings.HasPrefix(handle, "@") && !strings.ContainsFunc(handle, unicode.IsSpace)
}

// channelPost находит опубликованный пост по сообщению с кнопкой в канале или его копии в группе сообщества.
func (s *Service) channelPost(ctx context.Context, ref domain.MessageRef) (domain.MessageRef, bool, error) {
	post := ref
	if ref.ChatID == s.opts.CommunityGroupID && ref.ChatID != 0 {
		th, err := s.published.ThreadByID(ctx, ref.MessageID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.MessageRef{}, false, nil
		}
		if err != nil {
			return domain.MessageRef{}, false, fmt.Errorf("поиск ветки: %w", err)
		}
		post = th.ChannelMessage
	}
	_, err := s.published.Published(ctx, post)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.MessageRef{}, false, nil
	}
	if err != nil {
		return domain.MessageRef{}, false, fmt.Errorf("поиск поста: %w", err)
	}
	return post, true, nil
}

func (s *Service) reply(ctx context.Context, msg domain.Message, text string) error {
	_, err := s.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{})
	return err
}

package moderation

import (
	"context"
	"fmt"

	"spot-bot/internal/domain"
	"spot-bot/internal/presenter"
)

// Settings обрабатывает /settings в личном чате.
func (s *Service) Settings(ctx context.Context, msg domain.Message) error {
	if !msg.IsPrivate() {
		return s.reply(ctx, msg, presenter.TextNotPrivate)
	}
	_, err := s.gw.Send(ctx, msg.ChatID, domain.Text(presenter.TextSettingsPrompt), domain.SendOptions{Keyboard: presenter.SettingsKeyboard()})
	return err
}

// ChooseCredit обрабатывает выбор подписи постов.
func (s *Service) ChooseCredit(ctx context.Context, in domain.Interaction, credited bool) error {
	changed, err := s.users.SetCredited(ctx, in.From.ID, credited)
	if err != nil {
		return fmt.Errorf("смена подписи: %w", err)
	}
	text := presenter.TextAnonymous
	if credited {
		text = presenter.TextCredited
	}
	if !changed {
		text = presenter.TextSettingsSame
	}
	if err := domain.IgnoreNotFound(s.gw.EditText(ctx, in.Message, domain.Text(text), nil)); err != nil {
		return fmt.Errorf("ответ на настройки: %w", err)
	}
	return s.gw.AckButton(ctx, in.ID, "")
}

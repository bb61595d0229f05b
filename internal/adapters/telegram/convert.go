package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spot-bot/internal/domain"
)

// ToMarkup переводит клавиатуру домена в разметку Bot API. nil даёт пустую клавиатуру.
func ToMarkup(k *domain.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	if k == nil {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	}
	for _, row := range k.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ToUser переводит пользователя Bot API.
func ToUser(u *tgbotapi.User) domain.User {
	if u == nil {
		return domain.User{}
	}
	return domain.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, IsBot: u.IsBot}
}

// ToMessage переводит сообщение Bot API в сообщение домена.
func ToMessage(m *tgbotapi.Message) domain.Message {
	if m == nil {
		return domain.Message{}
	}
	out := domain.Message{
		ID:                   m.MessageID,
		Kind:                 kindOf(m),
		Text:                 m.Text,
		Entities:             fromEntities(m.Entities),
		IsAutomaticForward:   m.IsAutomaticForward,
		ForwardFromMessageID: m.ForwardFromMessageID,
	}
	if out.Kind != domain.ContentText {
		out.Text = m.Caption
		out.Entities = fromEntities(m.CaptionEntities)
	}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
		out.ChatType = domain.ChatType(m.Chat.Type)
	}
	if m.From != nil {
		u := ToUser(m.From)
		out.From = &u
	}
	if m.SenderChat != nil {
		out.SenderChatID = m.SenderChat.ID
	}
	if m.ForwardFromChat != nil {
		out.ForwardFromChatID = m.ForwardFromChat.ID
	}
	if m.ReplyToMessage != nil {
		reply := ToMessage(m.ReplyToMessage)
		out.ReplyTo = &reply
	}
	return out
}

// ToInteraction переводит нажатие кнопки.
func ToInteraction(cb *tgbotapi.CallbackQuery) domain.Interaction {
	in := domain.Interaction{ID: cb.ID, From: ToUser(cb.From), Data: cb.Data}
	if cb.Message != nil {
		in.Message = domain.MessageRef{MessageID: cb.Message.MessageID}
		if cb.Message.Chat != nil {
			in.Message.ChatID = cb.Message.Chat.ID
			in.ChatType = domain.ChatType(cb.Message.Chat.Type)
		}
	}
	return in
}

func kindOf(m *tgbotapi.Message) domain.ContentKind {
	switch {
	case len(m.Photo) > 0:
		return domain.ContentPhoto
	case m.Animation != nil:
		return domain.ContentAnimation
	case m.Voice != nil:
		return domain.ContentVoice
	case m.Audio != nil:
		return domain.ContentAudio
	case m.Video != nil:
		return domain.ContentVideo
	case m.Sticker != nil:
		return domain.ContentSticker
	case m.Poll != nil:
		return domain.ContentPoll
	case m.Document != nil:
		return domain.ContentDocument
	case m.Text != "":
		return domain.ContentText
	}
	return domain.ContentOther
}

func fromEntities(in []tgbotapi.MessageEntity) []domain.Entity {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Entity, len(in))
	for i, e := range in {
		out[i] = domain.Entity{Type: e.Type, Offset: e.Offset, Length: e.Length, URL: e.URL}
	}
	return out
}

func toEntities(in []domain.Entity) []tgbotapi.MessageEntity {
	if len(in) == 0 {
		return nil
	}
	out := make([]tgbotapi.MessageEntity, len(in))
	for i, e := range in {
		out[i] = tgbotapi.MessageEntity{Type: e.Type, Offset: e.Offset, Length: e.Length, URL: e.URL}
	}
	return out
}

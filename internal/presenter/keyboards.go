package presenter

import (
	"fmt"

	"spot-bot/internal/domain"
)

const (
	OutcomeApproved = "APPROVED"
	OutcomeRejected = "REJECTED"
)

// ConfirmKeyboard: подтверждение отправки поста.
func ConfirmKeyboard() *domain.Keyboard {
	return domain.NewKeyboard(domain.Row(
		domain.DataButton("Si", domain.PostConfirmCallback{Submit: true}),
		domain.DataButton("No", domain.PostConfirmCallback{Submit: false}),
	))
}

// PreviewKeyboard: выбор предпросмотра ссылок.
func PreviewKeyboard() *domain.Keyboard {
	return domain.NewKeyboard(domain.Row(
		domain.DataButton("Si", domain.PostPreviewCallback{Accept: true}),
		domain.DataButton("No", domain.PostPreviewCallback{Accept: false}),
	))
}

// SettingsKeyboard: выбор подписи постов.
func SettingsKeyboard() *domain.Keyboard {
	return domain.NewKeyboard(domain.Row(
		domain.DataButton("Anonimo", domain.SettingsCallback{Credited: false}),
		domain.DataButton("Con credit", domain.SettingsCallback{Credited: true}),
	))
}

// ApprovalKeyboard: клавиатура голосования со счётчиками.
func ApprovalKeyboard(up, down int) *domain.Keyboard {
	return domain.NewKeyboard(
		domain.Row(
			domain.DataButton(fmt.Sprintf("🟢 %d", up), domain.VoteCallback{Approve: true}),
			domain.DataButton(fmt.Sprintf("🔴 %d", down), domain.VoteCallback{Approve: false}),
		),
		domain.Row(domain.DataButton("⏹ Stop", domain.StatusCallback{Pause: true})),
	)
}

// PausedKeyboard: выбор автоответа постранично и возобновление голосования.
func PausedKeyboard(keys []string, page, perPage int) *domain.Keyboard {
	if perPage < 1 {
		perPage = 1
	}
	pages := (len(keys) + perPage - 1) / perPage
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	kb := &domain.Keyboard{}
	start := page * perPage
	end := min(start+perPage, len(keys))
	var row []domain.Button
	for _, key := range keys[start:end] {
		row = append(row, domain.DataButton(key, domain.AutoReplyCallback{Key: key}))
		if len(row) == 2 {
			kb.Rows = append(kb.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb.Rows = append(kb.Rows, row)
	}
	var nav []domain.Button
	if page > 0 {
		nav = append(nav, domain.DataButton("⬅", domain.StatusCallback{Pause: true, Page: page - 1}))
	}
	if page+1 < pages {
		nav = append(nav, domain.DataButton("➡", domain.StatusCallback{Pause: true, Page: page + 1}))
	}
	if len(nav) > 0 {
		kb.Rows = append(kb.Rows, nav)
	}
	kb.Rows = append(kb.Rows, domain.Row(domain.DataButton("▶ Resume", domain.StatusCallback{Pause: false})))
	return kb
}

// OutcomeKeyboard строит итоговую карточку: два столбца голосовавших и итог внизу.
func OutcomeKeyboard(approvers, rejecters []string, approved bool, reason string) *domain.Keyboard {
	kb := &domain.Keyboard{}
	for i := 0; i < max(len(approvers), len(rejecters)); i++ {
		left, right := "-", "-"
		if i < len(approvers) {
			left = "🟢 " + approvers[i]
		}
		if i < len(rejecters) {
			right = "🔴 " + rejecters[i]
		}
		kb.Rows = append(kb.Rows, domain.Row(
			domain.DataButton(left, domain.NoopCallback{}),
			domain.DataButton(right, domain.NoopCallback{}),
		))
	}
	kb.Rows = append(kb.Rows, domain.Row(domain.DataButton(OutcomeText(approved, reason), domain.NoopCallback{})))
	return kb
}

// OutcomeText: нижняя ячейка итоговой карточки.
func OutcomeText(approved bool, reason string) string {
	if approved {
		return OutcomeApproved
	}
	if reason != "" {
		return fmt.Sprintf("%s [%s]", OutcomeRejected, reason)
	}
	return OutcomeRejected
}

// PublishedKeyboard: кнопки под опубликованным постом. Возвращает nil, если кнопок нет.
func PublishedKeyboard(report, follow bool) *domain.Keyboard {
	var row []domain.Button
	if report {
		row = append(row, domain.DataButton("🚩 Report", domain.ReportSpotCallback{}))
	}
	if follow {
		row = append(row, domain.DataButton("👁 Follow", domain.FollowCallback{}))
	}
	if len(row) == 0 {
		return nil
	}
	return domain.NewKeyboard(row)
}

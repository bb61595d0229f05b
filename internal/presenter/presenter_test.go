package presenter

import (
	"testing"

	"spot-bot/internal/domain"
)

func TestApprovalKeyboard(t *testing.T) {
	kb := ApprovalKeyboard(1, 0)
	if len(kb.Rows) != 2 {
		t.Fatalf("ожидали 2 ряда, получили %d", len(kb.Rows))
	}
	if kb.Rows[0][0].Text != "🟢 1" || kb.Rows[0][1].Text != "🔴 0" || kb.Rows[1][0].Text != "⏹ Stop" {
		t.Fatalf("неверные подписи: %+v", kb.Rows)
	}
	if kb.Rows[0][0].Data != "approve_yes," || kb.Rows[1][0].Data != "approve_status,pause,0" {
		t.Fatalf("неверные данные кнопок: %+v", kb.Rows)
	}
}

func TestPausedKeyboardPaging(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	first := PausedKeyboard(keys, 0, 2)
	// 1 ряд автоответов, навигация, resume.
	if len(first.Rows) != 3 {
		t.Fatalf("ожидали 3 ряда, получили %d: %+v", len(first.Rows), first.Rows)
	}
	if _, ok := first.Find("approve_status,pause,1"); !ok {
		t.Fatal("на первой странице должна быть кнопка вперёд")
	}
	if _, ok := first.Find("approve_status,pause,-1"); ok {
		t.Fatal("назад на первой странице быть не должно")
	}
	last := PausedKeyboard(keys, 10, 2)
	if _, ok := last.Find("autoreply,e"); !ok {
		t.Fatal("страница должна ограничиваться последней")
	}
	if _, ok := last.Find("approve_status,play"); !ok {
		t.Fatal("нет кнопки Resume")
	}
}

func TestOutcomeKeyboard(t *testing.T) {
	kb := OutcomeKeyboard([]string{"@a", "@b"}, []string{"@c"}, false, "repost")
	if len(kb.Rows) != 3 {
		t.Fatalf("ожидали 3 ряда, получили %d", len(kb.Rows))
	}
	if kb.Rows[1][1].Text != "-" {
		t.Fatalf("пустая ячейка должна быть заполнена: %q", kb.Rows[1][1].Text)
	}
	if got := kb.Rows[2][0].Text; got != "REJECTED [repost]" {
		t.Fatalf("неверный итог: %q", got)
	}
	if OutcomeText(true, "x") != "APPROVED" {
		t.Fatal("одобрение не должно содержать причину")
	}
}

func TestPublishedKeyboard(t *testing.T) {
	if PublishedKeyboard(false, false) != nil {
		t.Fatal("без кнопок клавиатура не нужна")
	}
	kb := PublishedKeyboard(true, true)
	if len(kb.Rows[0]) != 2 || kb.Rows[0][1].Text != "👁 Follow" {
		t.Fatalf("неверная клавиатура: %+v", kb.Rows)
	}
}

func TestSign(t *testing.T) {
	p := New("@channel", "@bot").WithRand(func(int) int { return 0 })
	if got := p.Sign(true, "@mario"); got != "by: @mario" {
		t.Fatalf("ожидали подпись с ником, получили %q", got)
	}
	anon := p.Sign(true, "")
	if !IsAnonymousSign(anon) {
		t.Fatalf("без ника подпись должна быть анонимной: %q", anon)
	}
	if !IsAnonymousSign(p.Sign(false, "@mario")) {
		t.Fatal("анонимный пользователь не должен раскрываться")
	}
}

func TestLists(t *testing.T) {
	if BannedList(nil) != TextNoBanned {
		t.Fatal("пустой список")
	}
	got := BannedList([]domain.Ban{{UserID: 42}})
	if got == TextNoBanned {
		t.Fatal("ожидали список")
	}
}

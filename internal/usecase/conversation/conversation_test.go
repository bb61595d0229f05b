package conversation

import "testing"

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	if s.State(1) != Idle {
		t.Fatal("новый пользователь должен быть в Idle")
	}
	s.Set(1, Session{State: AwaitingConfirm, ShowPreview: true})
	got := s.Get(1)
	if got.State != AwaitingConfirm || !got.ShowPreview {
		t.Fatalf("неверная сессия: %+v", got)
	}
	got.State = AwaitingContent
	if s.State(1) != AwaitingConfirm {
		t.Fatal("Get должен возвращать копию")
	}
	if !s.Reset(1) {
		t.Fatal("ожидали активный диалог")
	}
	if s.Reset(1) {
		t.Fatal("повторный сброс не должен находить диалог")
	}
	s.Set(2, Session{State: AwaitingContent})
	s.Set(2, Session{State: Idle})
	if s.Reset(2) {
		t.Fatal("Idle-сессия не хранится")
	}
}

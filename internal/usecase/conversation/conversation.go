package conversation

import "spot-bot/internal/domain"

// State — шаг диалога пользователя с ботом.
type State int

const (
	Idle State = iota
	AwaitingContent
	AwaitingPreviewChoice
	AwaitingConfirm
	AwaitingPostReportReason
	AwaitingReportHandle
	AwaitingUserReportReason
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingContent:
		return "awaiting_content"
	case AwaitingPreviewChoice:
		return "awaiting_preview_choice"
	case AwaitingConfirm:
		return "awaiting_confirm"
	case AwaitingPostReportReason:
		return "awaiting_post_report_reason"
	case AwaitingReportHandle:
		return "awaiting_report_handle"
	case AwaitingUserReportReason:
		return "awaiting_user_report_reason"
	}
	return "unknown"
}

// Session: состояние диалога одного пользователя.
type Session struct {
	State State
	// Content: сообщение пользователя, предложенное к публикации.
	Content     domain.Message
	ShowPreview bool
	// ReportedPost: пост канала, на который жалуется пользователь.
	ReportedPost domain.MessageRef
	TargetHandle string
}

// Store хранит диалоги в памяти процесса. Не потокобезопасен: используется только из цикла событий.
type Store struct {
	sessions map[int64]*Session
}

// NewStore создаёт хранилище диалогов.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get возвращает копию сессии пользователя; отсутствующая сессия — Idle.
func (s *Store) Get(userID int64) Session {
	if sess, ok := s.sessions[userID]; ok {
		return *sess
	}
	return Session{}
}

// State возвращает текущий шаг диалога.
func (s *Store) State(userID int64) State {
	return s.Get(userID).State
}

// Set сохраняет сессию. Сессия Idle удаляется.
func (s *Store) Set(userID int64, sess Session) {
	if sess.State == Idle {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = &sess
}

// Reset возвращает пользователя в Idle и сообщает, был ли активный диалог.
func (s *Store) Reset(userID int64) bool {
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

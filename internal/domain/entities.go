package domain

import "time"

// User описывает пользователя платформы.
type User struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}

// Handle возвращает публичный ник с @ или пустую строку.
func (u User) Handle() string {
	if u.Username == "" {
		return ""
	}
	return "@" + u.Username
}

// DisplayName возвращает ник, а при его отсутствии имя.
func (u User) DisplayName() string {
	if h := u.Handle(); h != "" {
		return h
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "utente"
}

// PendingSubmission описывает пост, ожидающий решения админов.
type PendingSubmission struct {
	AuthorID      int64
	UserMessageID int
	AdminMessage  MessageRef
	CreatedAt     time.Time
}

// AdminVote хранит голос админа за ожидающий пост.
type AdminVote struct {
	AdminID      int64
	AdminMessage MessageRef
	IsUpvote     bool
}

// PublishedSubmission описывает пост, опубликованный в канале.
type PublishedSubmission struct {
	ChannelMessage MessageRef
	PublishedAt    time.Time
}

// PostReport: жалоба на опубликованный пост.
type PostReport struct {
	AuthorID       int64
	ChannelMessage MessageRef
	AdminMessage   MessageRef
	CreatedAt      time.Time
}

// UserReport: жалоба на пользователя по нику.
type UserReport struct {
	AuthorID     int64
	TargetHandle string
	AdminMessage MessageRef
	CreatedAt    time.Time
}

// Follow: подписка пользователя на обсуждение поста.
type Follow struct {
	FollowerID       int64
	ThreadMessageID  int
	PrivateMessageID int
	FollowedAt       time.Time
}

// Ban: запись о бане пользователя.
type Ban struct {
	UserID   int64
	BannedAt time.Time
}

// Mute: ограничение пользователя в группе комментариев.
type Mute struct {
	UserID    int64
	MutedAt   time.Time
	ExpiresAt time.Time
}

// Expired сообщает, истёк ли мьют к моменту now.
func (m Mute) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Warn: предупреждение пользователю.
type Warn struct {
	UserID    int64
	WarnedAt  time.Time
	ExpiresAt time.Time
}

// Expired сообщает, истёк ли варн к моменту now.
func (w Warn) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// CommentThread связывает пост канала с веткой комментариев в группе сообщества.
type CommentThread struct {
	ChannelMessage MessageRef
	ThreadID       int
	CreatedAt      time.Time
}

package domain

import (
	"context"
	"time"
)

// SendOptions задаёт ответ и клавиатуру исходящего сообщения.
type SendOptions struct {
	ReplyTo  int
	Keyboard *Keyboard
}

// Permissions описывает права участника группы.
type Permissions struct {
	CanSendMessages bool
	CanSendMedia    bool
	CanSendPolls    bool
	CanSendOther    bool
	CanAddPreviews  bool
}

// FullPermissions возвращает права обычного участника.
func FullPermissions() Permissions {
	return Permissions{CanSendMessages: true, CanSendMedia: true, CanSendPolls: true, CanSendOther: true, CanAddPreviews: true}
}

// Gateway: все исходящие действия на платформе.
type Gateway interface {
	Send(ctx context.Context, chatID int64, content Content, opts SendOptions) (MessageRef, error)
	EditText(ctx context.Context, msg MessageRef, content Content, keyboard *Keyboard) error
	EditKeyboard(ctx context.Context, msg MessageRef, keyboard *Keyboard) error
	Delete(ctx context.Context, msg MessageRef) error
	Copy(ctx context.Context, src MessageRef, dstChatID int64, opts SendOptions) (MessageRef, error)
	Forward(ctx context.Context, src MessageRef, dstChatID int64) (MessageRef, error)
	RestrictMember(ctx context.Context, chatID, userID int64, perms Permissions, until time.Time) error
	AckButton(ctx context.Context, interactionID, text string) error
	GetChat(ctx context.Context, chatID int64) (ChatInfo, error)
	SendDocument(ctx context.Context, chatID int64, doc Document, caption string) (MessageRef, error)
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Clock возвращает текущее время в UTC.
type Clock interface {
	Now() time.Time
}

// PendingRepo управляет ожидающими постами и голосами.
type PendingRepo interface {
	CreatePending(ctx context.Context, p PendingSubmission) error
	PendingByAuthor(ctx context.Context, authorID int64) (PendingSubmission, error)
	PendingByAdminMessage(ctx context.Context, ref MessageRef) (PendingSubmission, error)
	ListPendingBefore(ctx context.Context, groupID int64, before time.Time) ([]PendingSubmission, error)
	DeletePending(ctx context.Context, p PendingSubmission) error
}

// VoteRepo управляет голосами админов.
type VoteRepo interface {
	// Vote возвращает ErrNotFound, если админ ещё не голосовал.
	Vote(ctx context.Context, adminID int64, ref MessageRef) (AdminVote, error)
	InsertVote(ctx context.Context, v AdminVote) error
	UpdateVote(ctx context.Context, v AdminVote) error
	CountVotes(ctx context.Context, ref MessageRef, upvote bool) (int, error)
	ListVoters(ctx context.Context, ref MessageRef, upvote bool) ([]int64, error)
}

// PublishedRepo управляет опубликованными постами и ветками комментариев.
type PublishedRepo interface {
	InsertPublished(ctx context.Context, p PublishedSubmission) error
	Published(ctx context.Context, ref MessageRef) (PublishedSubmission, error)
	DeletePublished(ctx context.Context, ref MessageRef) error
	SaveThread(ctx context.Context, t CommentThread) error
	ThreadByChannelMessage(ctx context.Context, ref MessageRef) (CommentThread, error)
	ThreadByID(ctx context.Context, threadID int) (CommentThread, error)
}

// ReportRepo управляет жалобами.
type ReportRepo interface {
	InsertPostReport(ctx context.Context, r PostReport) error
	PostReportExists(ctx context.Context, authorID int64, channelMessage MessageRef) (bool, error)
	PostReportByAdminMessage(ctx context.Context, ref MessageRef) (PostReport, error)
	InsertUserReport(ctx context.Context, r UserReport) error
	LastUserReport(ctx context.Context, authorID int64) (UserReport, error)
	UserReportByAdminMessage(ctx context.Context, ref MessageRef) (UserReport, error)
}

// FollowRepo управляет подписками на обсуждения.
type FollowRepo interface {
	Follow(ctx context.Context, followerID int64, threadID int) (Follow, error)
	InsertFollow(ctx context.Context, f Follow) error
	DeleteFollow(ctx context.Context, followerID int64, threadID int) error
	ListFollowers(ctx context.Context, threadID int) ([]Follow, error)
}

// UserRepo управляет флагами пользователей.
type UserRepo interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
	// Ban возвращает false, если пользователь уже забанен.
	Ban(ctx context.Context, userID int64, at time.Time) (bool, error)
	// Unban возвращает false, если пользователь не был забанен.
	Unban(ctx context.Context, userID int64) (bool, error)
	ListBanned(ctx context.Context) ([]Ban, error)

	IsCredited(ctx context.Context, userID int64) (bool, error)
	SetCredited(ctx context.Context, userID int64, credited bool) (bool, error)

	Mute(ctx context.Context, m Mute) error
	Unmute(ctx context.Context, userID int64) (bool, error)
	ListMuted(ctx context.Context) ([]Mute, error)
	ListExpiredMutes(ctx context.Context, now time.Time) ([]Mute, error)

	Warn(ctx context.Context, w Warn) error
	CountLiveWarns(ctx context.Context, userID int64, now time.Time) (int, error)
	DeleteExpiredWarns(ctx context.Context, now time.Time) (int, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Del(key string) error
}

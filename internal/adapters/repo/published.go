package repo

import (
	"context"
	"fmt"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

const (
	publishedTable = "published_post"
	threadTable    = "comment_thread"
)

// InsertPublished сохраняет опубликованный пост.
func (r *Repo) InsertPublished(ctx context.Context, p domain.PublishedSubmission) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	inserted, err := r.store.InsertIgnore(ctx, publishedTable, db.Row{
		"channel_id":   p.ChannelMessage.ChatID,
		"c_message_id": p.ChannelMessage.MessageID,
		"message_date": db.FormatTime(p.PublishedAt),
	})
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Published возвращает опубликованный пост.
func (r *Repo) Published(ctx context.Context, ref domain.MessageRef) (domain.PublishedSubmission, error) {
	row, err := r.one(ctx, publishedTable, db.Query{
		Where: "channel_id = ? AND c_message_id = ?",
		Args:  []any{ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.PublishedSubmission{}, err
	}
	return domain.PublishedSubmission{ChannelMessage: ref, PublishedAt: row.Time("message_date")}, nil
}

// DeletePublished удаляет пост вместе с жалобами, подписками и веткой.
func (r *Repo) DeletePublished(ctx context.Context, ref domain.MessageRef) error {
	thread, err := r.ThreadByChannelMessage(ctx, ref)
	if err != nil && !domain.IsNotFound(err) {
		return err
	}
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	if _, err := r.store.Delete(ctx, reportTable, "channel_id = ? AND c_message_id = ?", ref.ChatID, ref.MessageID); err != nil {
		return fmt.Errorf("удаление жалоб: %w", err)
	}
	if thread.ThreadID != 0 {
		if _, err := r.store.Delete(ctx, followTable, "message_id = ?", thread.ThreadID); err != nil {
			return fmt.Errorf("удаление подписок: %w", err)
		}
	}
	if _, err := r.store.Delete(ctx, threadTable, "channel_id = ? AND c_message_id = ?", ref.ChatID, ref.MessageID); err != nil {
		return fmt.Errorf("удаление ветки: %w", err)
	}
	if _, err := r.store.Delete(ctx, publishedTable, "channel_id = ? AND c_message_id = ?", ref.ChatID, ref.MessageID); err != nil {
		return fmt.Errorf("удаление поста: %w", err)
	}
	return nil
}

// SaveThread запоминает ветку комментариев поста.
func (r *Repo) SaveThread(ctx context.Context, t domain.CommentThread) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Upsert(ctx, threadTable, db.Row{
		"channel_id":   t.ChannelMessage.ChatID,
		"c_message_id": t.ChannelMessage.MessageID,
		"thread_id":    t.ThreadID,
		"created_at":   db.FormatTime(t.CreatedAt),
	}, "channel_id", "c_message_id")
}

// ThreadByChannelMessage возвращает ветку комментариев поста.
func (r *Repo) ThreadByChannelMessage(ctx context.Context, ref domain.MessageRef) (domain.CommentThread, error) {
	row, err := r.one(ctx, threadTable, db.Query{
		Where: "channel_id = ? AND c_message_id = ?",
		Args:  []any{ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.CommentThread{}, err
	}
	return domain.CommentThread{ChannelMessage: ref, ThreadID: row.Int("thread_id"), CreatedAt: row.Time("created_at")}, nil
}

// ThreadByID возвращает пост канала, которому принадлежит ветка.
func (r *Repo) ThreadByID(ctx context.Context, threadID int) (domain.CommentThread, error) {
	row, err := r.one(ctx, threadTable, db.Query{Where: "thread_id = ?", Args: []any{threadID}})
	if err != nil {
		return domain.CommentThread{}, err
	}
	return domain.CommentThread{
		ChannelMessage: domain.MessageRef{ChatID: row.Int64("channel_id"), MessageID: row.Int("c_message_id")},
		ThreadID:       threadID,
		CreatedAt:      row.Time("created_at"),
	}, nil
}

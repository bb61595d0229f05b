package repo

import (
	"context"
	"fmt"
	"time"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

const (
	pendingTable = "pending_post"
	votesTable   = "admin_votes"
)

// CreatePending сохраняет пост на модерации. У автора может быть только один такой пост.
func (r *Repo) CreatePending(ctx context.Context, p domain.PendingSubmission) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	inserted, err := r.store.InsertIgnore(ctx, pendingTable, db.Row{
		"user_id":        p.AuthorID,
		"u_message_id":   p.UserMessageID,
		"g_message_id":   p.AdminMessage.MessageID,
		"admin_group_id": p.AdminMessage.ChatID,
		"message_date":   db.FormatTime(p.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("сохранение поста: %w", err)
	}
	if !inserted {
		return domain.ErrAlreadyExists
	}
	return nil
}

// PendingByAuthor возвращает пост автора на модерации.
func (r *Repo) PendingByAuthor(ctx context.Context, authorID int64) (domain.PendingSubmission, error) {
	row, err := r.one(ctx, pendingTable, db.Query{Where: "user_id = ?", Args: []any{authorID}})
	if err != nil {
		return domain.PendingSubmission{}, err
	}
	return pendingFromRow(row), nil
}

// PendingByAdminMessage ищет пост по карточке в группе админов.
func (r *Repo) PendingByAdminMessage(ctx context.Context, ref domain.MessageRef) (domain.PendingSubmission, error) {
	row, err := r.one(ctx, pendingTable, db.Query{
		Where: "admin_group_id = ? AND g_message_id = ?",
		Args:  []any{ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.PendingSubmission{}, err
	}
	return pendingFromRow(row), nil
}

// ListPendingBefore возвращает посты группы, созданные строго раньше before.
func (r *Repo) ListPendingBefore(ctx context.Context, groupID int64, before time.Time) ([]domain.PendingSubmission, error) {
	rows, err := r.many(ctx, pendingTable, db.Query{
		Where: "admin_group_id = ? AND message_date < ?",
		Args:  []any{groupID, db.FormatTime(before)},
		Order: "message_date",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingSubmission, 0, len(rows))
	for _, row := range rows {
		out = append(out, pendingFromRow(row))
	}
	return out, nil
}

// DeletePending удаляет пост и все голоса за него.
func (r *Repo) DeletePending(ctx context.Context, p domain.PendingSubmission) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	ref := p.AdminMessage
	if _, err := r.store.Delete(ctx, votesTable, "admin_group_id = ? AND g_message_id = ?", ref.ChatID, ref.MessageID); err != nil {
		return fmt.Errorf("удаление голосов: %w", err)
	}
	if _, err := r.store.Delete(ctx, pendingTable, "admin_group_id = ? AND g_message_id = ?", ref.ChatID, ref.MessageID); err != nil {
		return fmt.Errorf("удаление поста: %w", err)
	}
	return nil
}

// Vote возвращает голос админа или domain.ErrNotFound.
func (r *Repo) Vote(ctx context.Context, adminID int64, ref domain.MessageRef) (domain.AdminVote, error) {
	row, err := r.one(ctx, votesTable, db.Query{
		Where: "admin_id = ? AND admin_group_id = ? AND g_message_id = ?",
		Args:  []any{adminID, ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.AdminVote{}, err
	}
	return domain.AdminVote{AdminID: adminID, AdminMessage: ref, IsUpvote: row.Bool("is_upvote")}, nil
}

// InsertVote сохраняет новый голос.
func (r *Repo) InsertVote(ctx context.Context, v domain.AdminVote) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	inserted, err := r.store.InsertIgnore(ctx, votesTable, db.Row{
		"admin_id":       v.AdminID,
		"g_message_id":   v.AdminMessage.MessageID,
		"admin_group_id": v.AdminMessage.ChatID,
		"is_upvote":      boolInt(v.IsUpvote),
	})
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrAlreadyExists
	}
	return nil
}

// UpdateVote меняет сторону существующего голоса.
func (r *Repo) UpdateVote(ctx context.Context, v domain.AdminVote) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	n, err := r.store.Update(ctx, votesTable, db.Row{"is_upvote": boolInt(v.IsUpvote)},
		"admin_id = ? AND admin_group_id = ? AND g_message_id = ?",
		v.AdminID, v.AdminMessage.ChatID, v.AdminMessage.MessageID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountVotes считает голоса одной стороны.
func (r *Repo) CountVotes(ctx context.Context, ref domain.MessageRef, upvote bool) (int, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Count(ctx, votesTable, "admin_group_id = ? AND g_message_id = ? AND is_upvote = ?",
		ref.ChatID, ref.MessageID, boolInt(upvote))
}

// ListVoters возвращает id админов, проголосовавших за сторону.
func (r *Repo) ListVoters(ctx context.Context, ref domain.MessageRef, upvote bool) ([]int64, error) {
	rows, err := r.many(ctx, votesTable, db.Query{
		Cols:  []string{"admin_id"},
		Where: "admin_group_id = ? AND g_message_id = ? AND is_upvote = ?",
		Args:  []any{ref.ChatID, ref.MessageID, boolInt(upvote)},
		Order: "admin_id",
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Int64("admin_id"))
	}
	return ids, nil
}

func pendingFromRow(row db.Row) domain.PendingSubmission {
	return domain.PendingSubmission{
		AuthorID:      row.Int64("user_id"),
		UserMessageID: row.Int("u_message_id"),
		AdminMessage:  domain.MessageRef{ChatID: row.Int64("admin_group_id"), MessageID: row.Int("g_message_id")},
		CreatedAt:     row.Time("message_date"),
	}
}

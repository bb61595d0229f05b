package repo

import (
	"context"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

const followTable = "user_follow"

// Follow возвращает подписку пользователя на ветку.
func (r *Repo) Follow(ctx context.Context, followerID int64, threadID int) (domain.Follow, error) {
	row, err := r.one(ctx, followTable, db.Query{
		Where: "user_id = ? AND message_id = ?",
		Args:  []any{followerID, threadID},
	})
	if err != nil {
		return domain.Follow{}, err
	}
	return followFromRow(row), nil
}

// InsertFollow сохраняет подписку.
func (r *Repo) InsertFollow(ctx context.Context, f domain.Follow) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	inserted, err := r.store.InsertIgnore(ctx, followTable, db.Row{
		"user_id":            f.FollowerID,
		"message_id":         f.ThreadMessageID,
		"private_message_id": f.PrivateMessageID,
		"follow_date":        db.FormatTime(f.FollowedAt),
	})
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrAlreadyExists
	}
	return nil
}

// DeleteFollow удаляет подписку.
func (r *Repo) DeleteFollow(ctx context.Context, followerID int64, threadID int) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	_, err := r.store.Delete(ctx, followTable, "user_id = ? AND message_id = ?", followerID, threadID)
	return err
}

// ListFollowers возвращает подписчиков ветки.
func (r *Repo) ListFollowers(ctx context.Context, threadID int) ([]domain.Follow, error) {
	rows, err := r.many(ctx, followTable, db.Query{
		Where: "message_id = ?",
		Args:  []any{threadID},
		Order: "follow_date",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Follow, 0, len(rows))
	for _, row := range rows {
		out = append(out, followFromRow(row))
	}
	return out, nil
}

func followFromRow(row db.Row) domain.Follow {
	return domain.Follow{
		FollowerID:       row.Int64("user_id"),
		ThreadMessageID:  row.Int("message_id"),
		PrivateMessageID: row.Int("private_message_id"),
		FollowedAt:       row.Time("follow_date"),
	}
}

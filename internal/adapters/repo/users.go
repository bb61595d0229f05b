package repo

import (
	"context"
	"time"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

const (
	bannedTable   = "banned_users"
	creditedTable = "credited_users"
	mutedTable    = "muted_users"
	warnedTable   = "warned_users"
)

// IsBanned сообщает, забанен ли пользователь.
func (r *Repo) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return r.exists(ctx, bannedTable, "user_id = ?", userID)
}

// Ban банит пользователя. Возвращает false, если бан уже был.
func (r *Repo) Ban(ctx context.Context, userID int64, at time.Time) (bool, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.InsertIgnore(ctx, bannedTable, db.Row{"user_id": userID, "ban_date": db.FormatTime(at)})
}

// Unban снимает бан. Возвращает false, если бана не было.
func (r *Repo) Unban(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	n, err := r.store.Delete(ctx, bannedTable, "user_id = ?", userID)
	return n > 0, err
}

// ListBanned возвращает баны от старых к новым.
func (r *Repo) ListBanned(ctx context.Context) ([]domain.Ban, error) {
	rows, err := r.many(ctx, bannedTable, db.Query{Order: "ban_date, user_id"})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ban, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Ban{UserID: row.Int64("user_id"), BannedAt: row.Time("ban_date")})
	}
	return out, nil
}

// IsCredited сообщает, подписывает ли пользователь свои посты.
func (r *Repo) IsCredited(ctx context.Context, userID int64) (bool, error) {
	return r.exists(ctx, creditedTable, "user_id = ?", userID)
}

// SetCredited меняет режим подписи. Возвращает false, если режим уже был таким.
func (r *Repo) SetCredited(ctx context.Context, userID int64, credited bool) (bool, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	if credited {
		return r.store.InsertIgnore(ctx, creditedTable, db.Row{"user_id": userID})
	}
	n, err := r.store.Delete(ctx, creditedTable, "user_id = ?", userID)
	return n > 0, err
}

// Mute сохраняет мьют, заменяя предыдущий.
func (r *Repo) Mute(ctx context.Context, m domain.Mute) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Upsert(ctx, mutedTable, db.Row{
		"user_id":     m.UserID,
		"mute_date":   db.FormatTime(m.MutedAt),
		"expire_date": db.FormatTime(m.ExpiresAt),
	}, "user_id")
}

// Unmute снимает мьют. Возвращает false, если мьюта не было.
func (r *Repo) Unmute(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	n, err := r.store.Delete(ctx, mutedTable, "user_id = ?", userID)
	return n > 0, err
}

// ListMuted возвращает все мьюты.
func (r *Repo) ListMuted(ctx context.Context) ([]domain.Mute, error) {
	return r.listMutes(ctx, db.Query{Order: "mute_date, user_id"})
}

// ListExpiredMutes возвращает мьюты, истёкшие к моменту now.
func (r *Repo) ListExpiredMutes(ctx context.Context, now time.Time) ([]domain.Mute, error) {
	return r.listMutes(ctx, db.Query{Where: "expire_date <= ?", Args: []any{db.FormatTime(now)}, Order: "expire_date, user_id"})
}

func (r *Repo) listMutes(ctx context.Context, q db.Query) ([]domain.Mute, error) {
	rows, err := r.many(ctx, mutedTable, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Mute, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Mute{
			UserID:    row.Int64("user_id"),
			MutedAt:   row.Time("mute_date"),
			ExpiresAt: row.Time("expire_date"),
		})
	}
	return out, nil
}

// Warn сохраняет предупреждение.
func (r *Repo) Warn(ctx context.Context, w domain.Warn) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Insert(ctx, warnedTable, db.Row{
		"user_id":     w.UserID,
		"warn_date":   db.FormatTime(w.WarnedAt),
		"expire_date": db.FormatTime(w.ExpiresAt),
	})
}

// CountLiveWarns считает неистёкшие предупреждения пользователя.
func (r *Repo) CountLiveWarns(ctx context.Context, userID int64, now time.Time) (int, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Count(ctx, warnedTable, "user_id = ? AND expire_date > ?", userID, db.FormatTime(now))
}

// DeleteExpiredWarns удаляет истёкшие предупреждения.
func (r *Repo) DeleteExpiredWarns(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	n, err := r.store.Delete(ctx, warnedTable, "expire_date <= ?", db.FormatTime(now))
	return int(n), err
}

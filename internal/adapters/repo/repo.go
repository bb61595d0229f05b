package repo

import (
	"context"
	"time"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

// Repo реализует репозитории домена поверх табличного хранилища.
type Repo struct {
	store *db.Store
}

var (
	_ domain.PendingRepo   = (*Repo)(nil)
	_ domain.VoteRepo      = (*Repo)(nil)
	_ domain.PublishedRepo = (*Repo)(nil)
	_ domain.ReportRepo    = (*Repo)(nil)
	_ domain.FollowRepo    = (*Repo)(nil)
	_ domain.UserRepo      = (*Repo)(nil)
)

// New создаёт адаптер БД.
func New(store *db.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func (r *Repo) one(ctx context.Context, table string, q db.Query) (db.Row, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	row, err := r.store.SelectOne(ctx, table, q)
	if db.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	return row, err
}

func (r *Repo) many(ctx context.Context, table string, q db.Query) ([]db.Row, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Select(ctx, table, q)
}

func (r *Repo) exists(ctx context.Context, table, where string, args ...any) (bool, error) {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	n, err := r.store.Count(ctx, table, where, args...)
	return n > 0, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

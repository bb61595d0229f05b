package repo

import (
	"context"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/db"
)

const (
	reportTable     = "spot_report"
	userReportTable = "user_report"
)

// InsertPostReport сохраняет жалобу на пост. Повторная жалоба того же автора отклоняется.
func (r *Repo) InsertPostReport(ctx context.Context, rep domain.PostReport) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	inserted, err := r.store.InsertIgnore(ctx, reportTable, db.Row{
		"user_id":        rep.AuthorID,
		"channel_id":     rep.ChannelMessage.ChatID,
		"c_message_id":   rep.ChannelMessage.MessageID,
		"admin_group_id": rep.AdminMessage.ChatID,
		"g_message_id":   rep.AdminMessage.MessageID,
		"message_date":   db.FormatTime(rep.CreatedAt),
	})
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrAlreadyExists
	}
	return nil
}

// PostReportExists сообщает, жаловался ли автор на пост.
func (r *Repo) PostReportExists(ctx context.Context, authorID int64, channelMessage domain.MessageRef) (bool, error) {
	return r.exists(ctx, reportTable, "user_id = ? AND channel_id = ? AND c_message_id = ?",
		authorID, channelMessage.ChatID, channelMessage.MessageID)
}

// PostReportByAdminMessage ищет жалобу по карточке в группе админов.
func (r *Repo) PostReportByAdminMessage(ctx context.Context, ref domain.MessageRef) (domain.PostReport, error) {
	row, err := r.one(ctx, reportTable, db.Query{
		Where: "admin_group_id = ? AND g_message_id = ?",
		Args:  []any{ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.PostReport{}, err
	}
	return domain.PostReport{
		AuthorID:       row.Int64("user_id"),
		ChannelMessage: domain.MessageRef{ChatID: row.Int64("channel_id"), MessageID: row.Int("c_message_id")},
		AdminMessage:   ref,
		CreatedAt:      row.Time("message_date"),
	}, nil
}

// InsertUserReport сохраняет жалобу на пользователя.
func (r *Repo) InsertUserReport(ctx context.Context, rep domain.UserReport) error {
	ctx, cancel := r.connCtx(ctx)
	defer cancel()
	return r.store.Insert(ctx, userReportTable, db.Row{
		"user_id":         rep.AuthorID,
		"target_username": rep.TargetHandle,
		"message_date":    db.FormatTime(rep.CreatedAt),
		"admin_group_id":  rep.AdminMessage.ChatID,
		"g_message_id":    rep.AdminMessage.MessageID,
	})
}

// LastUserReport возвращает последнюю жалобу автора.
func (r *Repo) LastUserReport(ctx context.Context, authorID int64) (domain.UserReport, error) {
	row, err := r.one(ctx, userReportTable, db.Query{
		Where: "user_id = ?",
		Args:  []any{authorID},
		Order: "message_date DESC",
		Limit: 1,
	})
	if err != nil {
		return domain.UserReport{}, err
	}
	return userReportFromRow(row), nil
}

// UserReportByAdminMessage ищет жалобу на пользователя по карточке.
func (r *Repo) UserReportByAdminMessage(ctx context.Context, ref domain.MessageRef) (domain.UserReport, error) {
	row, err := r.one(ctx, userReportTable, db.Query{
		Where: "admin_group_id = ? AND g_message_id = ?",
		Args:  []any{ref.ChatID, ref.MessageID},
	})
	if err != nil {
		return domain.UserReport{}, err
	}
	return userReportFromRow(row), nil
}

func userReportFromRow(row db.Row) domain.UserReport {
	return domain.UserReport{
		AuthorID:     row.Int64("user_id"),
		TargetHandle: row.String("target_username"),
		AdminMessage: domain.MessageRef{ChatID: row.Int64("admin_group_id"), MessageID: row.Int("g_message_id")},
		CreatedAt:    row.Time("message_date"),
	}
}

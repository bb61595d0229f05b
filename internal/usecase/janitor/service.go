// Package janitor содержит периодические задачи обслуживания.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
)

// Lifter снимает мьют с пользователя.
type Lifter interface {
	Lift(ctx context.Context, userID int64) (bool, error)
}

// Backuper сохраняет копию базы в файл.
type Backuper interface {
	Backup(ctx context.Context, dst string) error
}

// Options: параметры задач.
type Options struct {
	AdminGroupID    int64
	RemoveAfter     time.Duration
	BackupChatID    int64
	ZipBackup       bool
	BackupRecipient string
}

// Deps: зависимости сервиса.
type Deps struct {
	Gateway domain.Gateway
	Pending domain.PendingRepo
	Users   domain.UserRepo
	Mutes   Lifter
	Store   Backuper
	Clock   domain.Clock
	Log     zerolog.Logger
}

// Service выполняет очистку просроченных данных и резервное копирование.
type Service struct {
	gw      domain.Gateway
	pending domain.PendingRepo
	users   domain.UserRepo
	mutes   Lifter
	store   Backuper
	clock   domain.Clock
	opts    Options
	log     zerolog.Logger
}

// NewService создаёт сервис.
func NewService(d Deps, opts Options) *Service {
	return &Service{
		gw:      d.Gateway,
		pending: d.Pending,
		users:   d.Users,
		mutes:   d.Mutes,
		store:   d.Store,
		clock:   d.Clock,
		opts:    opts,
		log:     d.Log.With().Str("component", "janitor").Logger(),
	}
}

// RunDaily выполняет все задачи по очереди; ошибка одной задачи не останавливает остальные.
func (s *Service) RunDaily(ctx context.Context) error {
	jobs := []struct {
		name string
		run  func(context.Context) error
	}{
		{"expire_pending", func(ctx context.Context) error { _, err := s.ExpirePending(ctx); return err }},
		{"lift_mutes", func(ctx context.Context) error { _, err := s.LiftMutes(ctx); return err }},
		{"drop_warns", func(ctx context.Context) error { _, err := s.DropWarns(ctx); return err }},
		{"backup", func(ctx context.Context) error {
			if s.opts.BackupChatID == 0 {
				return nil
			}
			return s.Backup(ctx, s.opts.BackupChatID)
		}},
	}
	var errs []error
	for _, job := range jobs {
		start := time.Now()
		err := job.run(ctx)
		metrics.ObserveJanitor(job.name, err)
		if err != nil {
			s.log.Error().Err(err).Str("job", job.name).Msg("задача завершилась с ошибкой")
			errs = append(errs, fmt.Errorf("%s: %w", job.name, err))
			continue
		}
		s.log.Info().Str("job", job.name).Dur("took", time.Since(start)).Msg("задача выполнена")
	}
	return errors.Join(errs...)
}

// ExpirePending удаляет посты, ожидающие решения дольше допустимого, и сообщает их число админам.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	before := s.clock.Now().Add(-s.opts.RemoveAfter)
	expired, err := s.pending.ListPendingBefore(ctx, s.opts.AdminGroupID, before)
	if err != nil {
		return 0, fmt.Errorf("просроченные посты: %w", err)
	}
	n := 0
	for _, p := range expired {
		if err := domain.IgnoreNotFound(s.gw.Delete(ctx, p.AdminMessage)); err != nil {
			s.log.Warn().Err(err).Int("card", p.AdminMessage.MessageID).Msg("не удалось удалить карточку")
		}
		if err := s.pending.DeletePending(ctx, p); err != nil {
			return n, fmt.Errorf("удаление поста: %w", err)
		}
		n++
		_, err := s.gw.Send(ctx, p.AuthorID, domain.Text(presenter.TextExpired), domain.SendOptions{ReplyTo: p.UserMessageID})
		if err != nil {
			s.log.Debug().Err(err).Int64("author", p.AuthorID).Msg("автор недоступен")
		}
		metrics.IncOutcome("expired")
	}
	_, err = s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(presenter.ExpiredReport(n)), domain.SendOptions{})
	return n, err
}

// LiftMutes снимает истёкшие мьюты.
func (s *Service) LiftMutes(ctx context.Context) (int, error) {
	mutes, err := s.users.ListExpiredMutes(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("истёкшие мьюты: %w", err)
	}
	n := 0
	for _, m := range mutes {
		if _, err := s.mutes.Lift(ctx, m.UserID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// DropWarns удаляет истёкшие предупреждения.
func (s *Service) DropWarns(ctx context.Context) (int, error) {
	n, err := s.users.DeleteExpiredWarns(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("удаление предупреждений: %w", err)
	}
	return n, nil
}

// CleanPending обрабатывает /clean_pending.
func (s *Service) CleanPending(ctx context.Context, _ domain.Message) error {
	_, err := s.ExpirePending(ctx)
	return err
}

// DBBackup обрабатывает /db_backup. Без backup_chat_id копия отправляется в группу админов.
func (s *Service) DBBackup(ctx context.Context, _ domain.Message) error {
	chat := s.opts.BackupChatID
	if chat == 0 {
		chat = s.opts.AdminGroupID
	}
	return s.Backup(ctx, chat)
}

// Package moderation реализует баны, мьюты, предупреждения и настройки подписи.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
)

const day = 24 * time.Hour

// Options: параметры модерации пользователей.
type Options struct {
	AdminGroupID       int64
	CommunityGroupID   int64
	MaxWarns           int
	WarnExpirationDays int
	MuteDefaultDays    int
}

// Deps: зависимости сервиса.
type Deps struct {
	Gateway domain.Gateway
	Pending domain.PendingRepo
	Users   domain.UserRepo
	Clock   domain.Clock
	Log     zerolog.Logger
}

// Service выполняет команды модерации пользователей.
type Service struct {
	gw      domain.Gateway
	pending domain.PendingRepo
	users   domain.UserRepo
	clock   domain.Clock
	opts    Options
	log     zerolog.Logger
}

// NewService создаёт сервис.
func NewService(d Deps, opts Options) *Service {
	if opts.MaxWarns < 1 {
		opts.MaxWarns = 1
	}
	if opts.MuteDefaultDays < 1 {
		opts.MuteDefaultDays = 1
	}
	return &Service{
		gw:      d.Gateway,
		pending: d.Pending,
		users:   d.Users,
		clock:   d.Clock,
		opts:    opts,
		log:     d.Log.With().Str("component", "moderation").Logger(),
	}
}

// BanPending обрабатывает /ban в ответ на карточку ожидающего поста.
func (s *Service) BanPending(ctx context.Context, msg domain.Message) error {
	if msg.ReplyTo == nil {
		return s.reply(ctx, msg, presenter.TextReplyNeeded)
	}
	p, err := s.pending.PendingByAdminMessage(ctx, msg.ReplyTo.Ref())
	if errors.Is(err, domain.ErrNotFound) {
		return s.reply(ctx, msg, presenter.TextStale)
	}
	if err != nil {
		return fmt.Errorf("поиск поста: %w", err)
	}
	label := s.userLabel(ctx, p.AuthorID)
	banned, err := s.Ban(ctx, p.AuthorID)
	if err != nil {
		return err
	}
	if !banned {
		return s.reply(ctx, msg, presenter.AlreadyBanned(label))
	}
	return s.reply(ctx, msg, presenter.BanNotice(label))
}

// Ban заносит пользователя в бан и снимает его ожидающий пост.
// Возвращает false, если пользователь уже был забанен.
func (s *Service) Ban(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.users.Ban(ctx, userID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("бан: %w", err)
	}
	if !ok {
		return false, nil
	}
	p, err := s.pending.PendingByAuthor(ctx, userID)
	switch {
	case err == nil:
		if err := domain.IgnoreNotFound(s.gw.EditKeyboard(ctx, p.AdminMessage, nil)); err != nil {
			s.log.Warn().Err(err).Msg("не удалось убрать клавиатуру")
		}
		if err := s.pending.DeletePending(ctx, p); err != nil {
			return true, fmt.Errorf("удаление поста: %w", err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return true, fmt.Errorf("поиск поста автора: %w", err)
	}
	s.notify(ctx, userID, presenter.TextBanned)
	metrics.IncModeration("ban")
	s.log.Info().Int64("user", userID).Msg("пользователь забанен")
	return true, nil
}

// Sban обрабатывает /sban: без аргументов выводит список, иначе снимает баны по id или #i.
func (s *Service) Sban(ctx context.Context, msg domain.Message) error {
	bans, err := s.users.ListBanned(ctx)
	if err != nil {
		return fmt.Errorf("список банов: %w", err)
	}
	_, args := msg.Command()
	if args == "" {
		return s.reply(ctx, msg, presenter.BannedList(bans))
	}
	ids := make([]int64, len(bans))
	for i, b := range bans {
		ids[i] = b.UserID
	}
	var lines []string
	for _, t := range resolveTargets(args, ids) {
		if t.invalid != "" {
			lines = append(lines, presenter.InvalidTarget(t.invalid))
			continue
		}
		ok, err := s.users.Unban(ctx, t.id)
		if err != nil {
			return fmt.Errorf("снятие бана: %w", err)
		}
		if ok {
			s.notify(ctx, t.id, presenter.TextSbanned)
			metrics.IncModeration("sban")
		}
		lines = append(lines, presenter.SbanResult(t.id, ok))
	}
	return s.reply(ctx, msg, strings.Join(lines, "\n"))
}

// Mute обрабатывает /mute <days> в группе сообщества.
func (s *Service) Mute(ctx context.Context, msg domain.Message) error {
	target, ok, err := s.communityTarget(ctx, msg)
	if err != nil || !ok {
		return err
	}
	_, args := msg.Command()
	days, err := strconv.Atoi(args)
	if err != nil || days < 1 {
		days = s.opts.MuteDefaultDays
	}
	now := s.clock.Now()
	until := now.Add(time.Duration(days) * day)
	if err := s.gw.RestrictMember(ctx, s.opts.CommunityGroupID, target.ID, domain.Permissions{}, until); err != nil {
		return fmt.Errorf("ограничение прав: %w", err)
	}
	if err := s.users.Mute(ctx, domain.Mute{UserID: target.ID, MutedAt: now, ExpiresAt: until}); err != nil {
		return fmt.Errorf("сохранение мьюта: %w", err)
	}
	metrics.IncModeration("mute")
	s.notify(ctx, target.ID, presenter.MutedUser(days))
	return s.toAdmins(ctx, presenter.MuteNotice(label(target), days))
}

// Unmute обрабатывает /unmute: без аргументов выводит список, иначе снимает мьюты по id или #i.
func (s *Service) Unmute(ctx context.Context, msg domain.Message) error {
	mutes, err := s.users.ListMuted(ctx)
	if err != nil {
		return fmt.Errorf("список мьютов: %w", err)
	}
	_, args := msg.Command()
	if args == "" {
		return s.reply(ctx, msg, presenter.MutedList(mutes))
	}
	ids := make([]int64, len(mutes))
	for i, m := range mutes {
		ids[i] = m.UserID
	}
	var lines []string
	for _, t := range resolveTargets(args, ids) {
		if t.invalid != "" {
			lines = append(lines, presenter.InvalidTarget(t.invalid))
			continue
		}
		ok, err := s.Lift(ctx, t.id)
		if err != nil {
			return err
		}
		lines = append(lines, presenter.UnmuteResult(t.id, ok))
	}
	return s.reply(ctx, msg, strings.Join(lines, "\n"))
}

// Lift возвращает пользователю права в группе сообщества и удаляет мьют.
func (s *Service) Lift(ctx context.Context, userID int64) (bool, error) {
	if s.opts.CommunityGroupID != 0 {
		err := s.gw.RestrictMember(ctx, s.opts.CommunityGroupID, userID, domain.FullPermissions(), time.Time{})
		if err != nil && !domain.IsNotFound(err) {
			return false, fmt.Errorf("восстановление прав: %w", err)
		}
	}
	ok, err := s.users.Unmute(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("снятие мьюта: %w", err)
	}
	if ok {
		metrics.IncModeration("unmute")
	}
	return ok, nil
}

// Warn обрабатывает /warn <reason> в группе сообщества.
func (s *Service) Warn(ctx context.Context, msg domain.Message) error {
	target, ok, err := s.communityTarget(ctx, msg)
	if err != nil || !ok {
		return err
	}
	_, reason := msg.Command()
	now := s.clock.Now()
	err = s.users.Warn(ctx, domain.Warn{
		UserID:    target.ID,
		WarnedAt:  now,
		ExpiresAt: now.Add(time.Duration(s.opts.WarnExpirationDays) * day),
	})
	if err != nil {
		return fmt.Errorf("сохранение предупреждения: %w", err)
	}
	count, err := s.users.CountLiveWarns(ctx, target.ID, now)
	if err != nil {
		return fmt.Errorf("подсчёт предупреждений: %w", err)
	}
	metrics.IncModeration("warn")
	s.notify(ctx, target.ID, presenter.WarnedUser(count, s.opts.MaxWarns, reason))
	if err := s.toAdmins(ctx, presenter.WarnNotice(label(target), count, s.opts.MaxWarns, reason)); err != nil {
		return err
	}
	if count < s.opts.MaxWarns {
		return nil
	}
	banned, err := s.Ban(ctx, target.ID)
	if err != nil || !banned {
		return err
	}
	return s.toAdmins(ctx, presenter.WarnBanNotice(label(target)))
}

// communityTarget проверяет, что команду дал админ в ответ на сообщение пользователя.
func (s *Service) communityTarget(ctx context.Context, msg domain.Message) (domain.User, bool, error) {
	if msg.From == nil {
		return domain.User{}, false, nil
	}
	admin, err := s.gw.IsMember(ctx, s.opts.AdminGroupID, msg.From.ID)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("проверка админа: %w", err)
	}
	if !admin {
		return domain.User{}, false, s.reply(ctx, msg, presenter.TextNotAdmin)
	}
	if msg.ReplyTo == nil || msg.ReplyTo.From == nil || msg.ReplyTo.From.IsBot {
		return domain.User{}, false, s.reply(ctx, msg, presenter.TextReplyNeeded)
	}
	return *msg.ReplyTo.From, true, nil
}

func (s *Service) userLabel(ctx context.Context, userID int64) string {
	if info, err := s.gw.GetChat(ctx, userID); err == nil {
		if h := info.Handle(); h != "" {
			return h
		}
	}
	return strconv.FormatInt(userID, 10)
}

func label(u domain.User) string {
	if h := u.Handle(); h != "" {
		return h
	}
	return strconv.FormatInt(u.ID, 10)
}

func (s *Service) notify(ctx context.Context, userID int64, text string) {
	if _, err := s.gw.Send(ctx, userID, domain.Text(text), domain.SendOptions{}); err != nil {
		s.log.Debug().Err(err).Int64("user", userID).Msg("пользователь недоступен")
	}
}

func (s *Service) toAdmins(ctx context.Context, text string) error {
	_, err := s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(text), domain.SendOptions{})
	return err
}

func (s *Service) reply(ctx context.Context, msg domain.Message, text string) error {
	_, err := s.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{ReplyTo: msg.ID})
	return err
}

type target struct {
	id      int64
	invalid string
}

// resolveTargets разбирает список id и индексов #i (с единицы) по текущему списку listed.
func resolveTargets(args string, listed []int64) []target {
	var out []target
	for _, arg := range strings.Fields(args) {
		if idx, ok := strings.CutPrefix(arg, "#"); ok {
			i, err := strconv.Atoi(idx)
			if err != nil || i < 1 || i > len(listed) {
				out = append(out, target{invalid: arg})
				continue
			}
			out = append(out, target{id: listed[i-1]})
			continue
		}
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			out = append(out, target{invalid: arg})
			continue
		}
		out = append(out, target{id: id})
	}
	return out
}

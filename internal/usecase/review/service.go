package review

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

const (
	signTTL      = 24 * time.Hour
	adminNameTTL = 30 * 24 * time.Hour
)

// Options: параметры модерации.
type Options struct {
	AdminGroupID         int64
	ChannelID            int64
	Quorum               int
	Comments             bool
	Report               bool
	AutorepliesPerPage   int
	RejectAfterAutoreply bool
	Autoreplies          map[string]string
}

// Deps: зависимости сервиса.
type Deps struct {
	Gateway   domain.Gateway
	Pending   domain.PendingRepo
	Votes     domain.VoteRepo
	Published domain.PublishedRepo
	Reports   domain.ReportRepo
	Users     domain.UserRepo
	Cache     domain.Cache
	View      *presenter.Presenter
	Clock     domain.Clock
	Log       zerolog.Logger
}

// Service обрабатывает голосование админов и итог модерации.
type Service struct {
	gw        domain.Gateway
	pending   domain.PendingRepo
	votes     domain.VoteRepo
	published domain.PublishedRepo
	reports   domain.ReportRepo
	users     domain.UserRepo
	cache     domain.Cache
	view      *presenter.Presenter
	clock     domain.Clock
	opts      Options
	keys      []string
	log       zerolog.Logger
}

// NewService создаёт сервис.
func NewService(d Deps, opts Options) *Service {
	if opts.Quorum < 1 {
		opts.Quorum = 1
	}
	return &Service{
		gw:        d.Gateway,
		pending:   d.Pending,
		votes:     d.Votes,
		published: d.Published,
		reports:   d.Reports,
		users:     d.Users,
		cache:     d.Cache,
		view:      d.View,
		clock:     d.Clock,
		opts:      opts,
		keys:      presenter.SortedKeys(opts.Autoreplies),
		log:       d.Log.With().Str("component", "review").Logger(),
	}
}

// Vote регистрирует голос админа и завершает модерацию при достижении кворума.
func (s *Service) Vote(ctx context.Context, in domain.Interaction, approve bool) error {
	p, ok, err := s.lookup(ctx, in)
	if !ok || err != nil {
		return err
	}
	s.rememberAdmin(in.From)

	same := false
	prior, err := s.votes.Vote(ctx, in.From.ID, in.Message)
	switch {
	case err == nil && prior.IsUpvote == approve:
		same = true
	case err == nil:
		err = s.votes.UpdateVote(ctx, domain.AdminVote{AdminID: in.From.ID, AdminMessage: in.Message, IsUpvote: approve})
	case errors.Is(err, domain.ErrNotFound):
		err = s.votes.InsertVote(ctx, domain.AdminVote{AdminID: in.From.ID, AdminMessage: in.Message, IsUpvote: approve})
	}
	if err != nil {
		return fmt.Errorf("сохранение голоса: %w", err)
	}
	if !same {
		metrics.IncVote(approve)
	}

	n, err := s.votes.CountVotes(ctx, in.Message, approve)
	if err != nil {
		return fmt.Errorf("подсчёт голосов: %w", err)
	}
	if n >= s.opts.Quorum {
		if err := s.gw.AckButton(ctx, in.ID, presenter.TextVoted); err != nil {
			s.log.Debug().Err(err).Msg("ack")
		}
		return s.finalize(ctx, p, approve, "")
	}
	if same {
		return s.gw.AckButton(ctx, in.ID, presenter.TextAlreadyVoted)
	}
	if err := s.refreshCounters(ctx, in.Message); err != nil {
		return err
	}
	return s.gw.AckButton(ctx, in.ID, presenter.TextVoted)
}

// Pause переключает карточку на выбор автоответа.
func (s *Service) Pause(ctx context.Context, in domain.Interaction, page int) error {
	_, ok, err := s.lookup(ctx, in)
	if !ok || err != nil {
		return err
	}
	kb := presenter.PausedKeyboard(s.keys, page, s.opts.AutorepliesPerPage)
	if err := domain.IgnoreNotFound(s.gw.EditKeyboard(ctx, in.Message, kb)); err != nil {
		return err
	}
	return s.gw.AckButton(ctx, in.ID, "")
}

// Resume возвращает клавиатуру голосования с актуальными счётчиками.
func (s *Service) Resume(ctx context.Context, in domain.Interaction) error {
	_, ok, err := s.lookup(ctx, in)
	if !ok || err != nil {
		return err
	}
	if err := s.refreshCounters(ctx, in.Message); err != nil {
		return err
	}
	return s.gw.AckButton(ctx, in.ID, "")
}

// AutoReply отправляет автору заготовленный ответ, выбранный кнопкой.
func (s *Service) AutoReply(ctx context.Context, in domain.Interaction, key string) error {
	p, ok, err := s.lookup(ctx, in)
	if !ok || err != nil {
		return err
	}
	text, reject := s.autoReplyText(key)
	if text == "" {
		return s.gw.AckButton(ctx, in.ID, presenter.TextUnknownAutoReply)
	}
	if err := s.gw.AckButton(ctx, in.ID, presenter.TextAutoReplySent); err != nil {
		s.log.Debug().Err(err).Msg("ack")
	}
	return s.sendAutoReply(ctx, p, key, text, reject)
}

// AutoReplyCommand обрабатывает /autoreply <key> в ответ на карточку поста.
func (s *Service) AutoReplyCommand(ctx context.Context, msg domain.Message, key string) error {
	if msg.ReplyTo == nil {
		return s.replyAdmin(ctx, msg, presenter.TextReplyNeeded)
	}
	p, err := s.pending.PendingByAdminMessage(ctx, msg.ReplyTo.Ref())
	if errors.Is(err, domain.ErrNotFound) {
		return s.replyAdmin(ctx, msg, presenter.TextStale)
	}
	if err != nil {
		return fmt.Errorf("поиск поста: %w", err)
	}
	text, reject := s.autoReplyText(key)
	if text == "" {
		return s.replyAdmin(ctx, msg, presenter.TextUnknownAutoReply+": "+strings.Join(s.keys, ", "))
	}
	if err := s.sendAutoReply(ctx, p, key, text, reject); err != nil {
		return err
	}
	return s.replyAdmin(ctx, msg, presenter.TextAutoReplySent)
}

// Reply пересылает текст админов автору поста или жалобы, на карточку которых ответили.
func (s *Service) Reply(ctx context.Context, msg domain.Message, text string) error {
	if msg.ReplyTo == nil || strings.TrimSpace(text) == "" {
		return s.replyAdmin(ctx, msg, presenter.TextReplyNeeded)
	}
	target, replyTo, err := s.replyTarget(ctx, msg.ReplyTo.Ref())
	if err != nil {
		return err
	}
	if target == 0 {
		return s.replyAdmin(ctx, msg, presenter.TextReplyNeeded)
	}
	_, err = s.gw.Send(ctx, target, domain.Text(presenter.AdminReply(text)), domain.SendOptions{ReplyTo: replyTo})
	switch {
	case domain.IsForbidden(err):
		return s.replyAdmin(ctx, msg, presenter.TextUserUnavailable)
	case err != nil:
		return fmt.Errorf("ответ автору: %w", err)
	}
	return s.replyAdmin(ctx, msg, presenter.TextReplySent)
}

func (s *Service) replyTarget(ctx context.Context, card domain.MessageRef) (int64, int, error) {
	p, err := s.pending.PendingByAdminMessage(ctx, card)
	if err == nil {
		return p.AuthorID, p.UserMessageID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	pr, err := s.reports.PostReportByAdminMessage(ctx, card)
	if err == nil {
		return pr.AuthorID, 0, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	ur, err := s.reports.UserReportByAdminMessage(ctx, card)
	if err == nil {
		return ur.AuthorID, 0, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	return 0, 0, nil
}

func (s *Service) autoReplyText(key string) (string, bool) {
	return s.opts.Autoreplies[key], s.opts.RejectAfterAutoreply
}

func (s *Service) sendAutoReply(ctx context.Context, p domain.PendingSubmission, key, text string, reject bool) error {
	_, err := s.gw.Send(ctx, p.AuthorID, domain.Text(text), domain.SendOptions{ReplyTo: p.UserMessageID})
	if err != nil && !domain.IsForbidden(err) {
		return fmt.Errorf("автоответ: %w", err)
	}
	s.log.Info().Int64("author", p.AuthorID).Str("key", key).Bool("reject", reject).Msg("автоответ отправлен")
	if !reject {
		return nil
	}
	return s.finalize(ctx, p, false, key)
}

// finalize публикует или отклоняет пост, рисует итоговую карточку и удаляет пост с голосами.
func (s *Service) finalize(ctx context.Context, p domain.PendingSubmission, approved bool, reason string) error {
	if approved {
		post, err := s.gw.Copy(ctx, p.AdminMessage, s.opts.ChannelID, domain.SendOptions{
			Keyboard: presenter.PublishedKeyboard(s.opts.Report, s.opts.Comments),
		})
		if err != nil {
			return fmt.Errorf("публикация в канал: %w", err)
		}
		if err := s.published.InsertPublished(ctx, domain.PublishedSubmission{ChannelMessage: post, PublishedAt: s.clock.Now()}); err != nil {
			return fmt.Errorf("сохранение публикации: %w", err)
		}
		s.postSign(ctx, p.AuthorID, post)
		s.notifyAuthor(ctx, p, s.view.Published())
		metrics.IncOutcome("approved")
	} else {
		s.notifyAuthor(ctx, p, presenter.TextRejected)
		metrics.IncOutcome("rejected")
	}

	approvers, err := s.voterNames(ctx, p.AdminMessage, true)
	if err != nil {
		return err
	}
	rejecters, err := s.voterNames(ctx, p.AdminMessage, false)
	if err != nil {
		return err
	}
	card := presenter.OutcomeKeyboard(approvers, rejecters, approved, reason)
	if err := domain.IgnoreNotFound(s.gw.EditKeyboard(ctx, p.AdminMessage, card)); err != nil {
		s.log.Warn().Err(err).Msg("не удалось обновить итоговую карточку")
	}
	if err := s.pending.DeletePending(ctx, p); err != nil {
		return fmt.Errorf("удаление поста: %w", err)
	}
	s.log.Info().Int64("author", p.AuthorID).Bool("approved", approved).Str("reason", reason).Msg("модерация завершена")
	return nil
}

// postSign публикует подпись под постом либо откладывает её до пересылки в группу сообщества.
func (s *Service) postSign(ctx context.Context, authorID int64, post domain.MessageRef) {
	credited, err := s.users.IsCredited(ctx, authorID)
	if err != nil {
		s.log.Warn().Err(err).Msg("не удалось проверить подпись автора")
	}
	handle := ""
	if credited {
		if info, err := s.gw.GetChat(ctx, authorID); err == nil {
			handle = info.Handle()
		}
	}
	sign := s.view.Sign(credited, handle)
	if s.opts.Comments {
		if err := s.cache.Set(domain.SignKey(post), []byte(sign), signTTL); err != nil {
			s.log.Warn().Err(err).Msg("не удалось сохранить подпись")
		}
		return
	}
	if _, err := s.gw.Send(ctx, post.ChatID, domain.Text(sign), domain.SendOptions{ReplyTo: post.MessageID}); err != nil {
		s.log.Warn().Err(err).Msg("не удалось опубликовать подпись")
	}
}

func (s *Service) notifyAuthor(ctx context.Context, p domain.PendingSubmission, text string) {
	_, err := s.gw.Send(ctx, p.AuthorID, domain.Text(text), domain.SendOptions{ReplyTo: p.UserMessageID})
	if err != nil {
		s.log.Debug().Err(err).Int64("author", p.AuthorID).Msg("автор недоступен")
	}
}

func (s *Service) refreshCounters(ctx context.Context, card domain.MessageRef) error {
	up, err := s.votes.CountVotes(ctx, card, true)
	if err != nil {
		return fmt.Errorf("подсчёт голосов: %w", err)
	}
	down, err := s.votes.CountVotes(ctx, card, false)
	if err != nil {
		return fmt.Errorf("подсчёт голосов: %w", err)
	}
	return domain.IgnoreNotFound(s.gw.EditKeyboard(ctx, card, presenter.ApprovalKeyboard(up, down)))
}

func (s *Service) voterNames(ctx context.Context, card domain.MessageRef, upvote bool) ([]string, error) {
	ids, err := s.votes.ListVoters(ctx, card, upvote)
	if err != nil {
		return nil, fmt.Errorf("список голосовавших: %w", err)
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.adminName(ctx, id))
	}
	return names, nil
}

func (s *Service) rememberAdmin(u domain.User) {
	if err := s.cache.Set(domain.AdminNameKey(u.ID), []byte(u.DisplayName()), adminNameTTL); err != nil {
		s.log.Debug().Err(err).Msg("кэш имени админа")
	}
}

func (s *Service) adminName(ctx context.Context, id int64) string {
	if b, err := s.cache.Get(domain.AdminNameKey(id)); err == nil && len(b) > 0 {
		return string(b)
	}
	if info, err := s.gw.GetChat(ctx, id); err == nil {
		if h := info.Handle(); h != "" {
			return h
		}
		if info.FirstName != "" {
			return info.FirstName
		}
	}
	return strconv.FormatInt(id, 10)
}

// lookup находит пост по карточке; устаревшее нажатие подтверждается и пропускается.
func (s *Service) lookup(ctx context.Context, in domain.Interaction) (domain.PendingSubmission, bool, error) {
	p, err := s.pending.PendingByAdminMessage(ctx, in.Message)
	if errors.Is(err, domain.ErrNotFound) {
		return p, false, s.gw.AckButton(ctx, in.ID, presenter.TextStale)
	}
	if err != nil {
		return p, false, fmt.Errorf("поиск поста: %w", err)
	}
	return p, true, nil
}

func (s *Service) replyAdmin(ctx context.Context, msg domain.Message, text string) error {
	_, err := s.gw.Send(ctx, msg.ChatID, domain.Text(text), domain.SendOptions{ReplyTo: msg.ID})
	return err
}

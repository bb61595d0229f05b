package overlay

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"spot-bot/internal/domain"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
)

// ToggleFollow подписывает пользователя на ветку комментариев или отписывает от неё.
func (s *Service) ToggleFollow(ctx context.Context, in domain.Interaction) error {
	thread, err := s.resolveThread(ctx, in.Message)
	if err != nil {
		return err
	}
	if thread == 0 {
		return s.gw.AckButton(ctx, in.ID, presenter.TextNoComments)
	}
	existing, err := s.follows.Follow(ctx, in.From.ID, thread)
	switch {
	case err == nil:
		return s.unfollow(ctx, in, existing)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("поиск подписки: %w", err)
	}

	anchor := domain.MessageRef{ChatID: s.opts.CommunityGroupID, MessageID: thread}
	cp, err := s.gw.Copy(ctx, anchor, in.From.ID, domain.SendOptions{})
	if domain.IsForbidden(err) {
		return s.gw.AckButton(ctx, in.ID, s.view.StartBotFirst())
	}
	if err != nil {
		return fmt.Errorf("копия поста подписчику: %w", err)
	}
	if _, err := s.gw.Send(ctx, in.From.ID, domain.Text(presenter.TextFollowing), domain.SendOptions{ReplyTo: cp.MessageID}); err != nil {
		s.log.Warn().Err(err).Msg("не удалось подтвердить подписку")
	}
	err = s.follows.InsertFollow(ctx, domain.Follow{
		FollowerID:       in.From.ID,
		ThreadMessageID:  thread,
		PrivateMessageID: cp.MessageID,
		FollowedAt:       s.clock.Now(),
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("сохранение подписки: %w", err)
	}
	metrics.IncFollow("on")
	return s.gw.AckButton(ctx, in.ID, presenter.TextFollowAck)
}

func (s *Service) unfollow(ctx context.Context, in domain.Interaction, f domain.Follow) error {
	_, err := s.gw.Send(ctx, in.From.ID, domain.Text(presenter.TextUnfollowed), domain.SendOptions{ReplyTo: f.PrivateMessageID})
	if domain.IsForbidden(err) {
		return s.gw.AckButton(ctx, in.ID, s.view.StartBotFirst())
	}
	if err != nil {
		return fmt.Errorf("уведомление об отписке: %w", err)
	}
	if err := s.follows.DeleteFollow(ctx, in.From.ID, f.ThreadMessageID); err != nil {
		return fmt.Errorf("удаление подписки: %w", err)
	}
	metrics.IncFollow("off")
	return s.gw.AckButton(ctx, in.ID, presenter.TextUnfollowed)
}

// resolveThread возвращает id ветки в группе сообщества или 0, если ветки нет.
func (s *Service) resolveThread(ctx context.Context, ref domain.MessageRef) (int, error) {
	switch {
	case s.opts.CommunityGroupID == 0:
		return 0, nil
	case ref.ChatID == s.opts.CommunityGroupID:
		return ref.MessageID, nil
	case ref.ChatID == s.opts.ChannelID:
		th, err := s.published.ThreadByChannelMessage(ctx, ref)
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("поиск ветки: %w", err)
		}
		return th.ThreadID, nil
	}
	return 0, nil
}

// Comment обрабатывает сообщение в группе сообщества: якорь ветки, анонимные комментарии и рассылку подписчикам.
func (s *Service) Comment(ctx context.Context, msg domain.Message) error {
	if msg.IsAutomaticForward && msg.ForwardFromChatID == s.opts.ChannelID {
		return s.anchorThread(ctx, msg)
	}
	if msg.ReplyTo == nil {
		return nil
	}
	thread := s.threadOf(*msg.ReplyTo)
	if thread == 0 {
		return nil
	}
	s.indexComment(msg.Ref(), thread)

	src := msg.Ref()
	var authorID int64
	if msg.From != nil {
		authorID = msg.From.ID
	}
	if s.isAnonymous(msg) {
		switch {
		case s.opts.ReplaceAnonymous:
			replaced, err := s.reemit(ctx, msg)
			if err != nil {
				return err
			}
			s.indexComment(replaced, thread)
			src, authorID = replaced, 0
		case s.opts.DeleteAnonymous:
			return domain.IgnoreNotFound(s.gw.Delete(ctx, msg.Ref()))
		}
	}
	return s.relay(ctx, thread, src, authorID)
}

// anchorThread связывает пост канала с его автоматической пересылкой и публикует отложенную подпись.
func (s *Service) anchorThread(ctx context.Context, msg domain.Message) error {
	post := domain.MessageRef{ChatID: s.opts.ChannelID, MessageID: msg.ForwardFromMessageID}
	if err := s.published.SaveThread(ctx, domain.CommentThread{ChannelMessage: post, ThreadID: msg.ID, CreatedAt: s.clock.Now()}); err != nil {
		return fmt.Errorf("сохранение ветки: %w", err)
	}
	sign, err := s.cache.Get(domain.SignKey(post))
	if err != nil {
		return nil
	}
	ref, err := s.gw.Send(ctx, msg.ChatID, domain.Text(string(sign)), domain.SendOptions{ReplyTo: msg.ID})
	if err != nil {
		return fmt.Errorf("подпись поста: %w", err)
	}
	s.indexComment(ref, msg.ID)
	_ = s.cache.Del(domain.SignKey(post))
	return nil
}

func (s *Service) threadOf(reply domain.Message) int {
	if reply.IsAutomaticForward {
		return reply.ID
	}
	b, err := s.cache.Get(domain.ThreadKey(reply.Ref()))
	if err != nil {
		return 0
	}
	id, err := strconv.Atoi(string(b))
	if err != nil {
		return 0
	}
	return id
}

func (s *Service) indexComment(ref domain.MessageRef, thread int) {
	if err := s.cache.Set(domain.ThreadKey(ref), []byte(strconv.Itoa(thread)), threadIndexTTL); err != nil {
		s.log.Debug().Err(err).Msg("индекс комментария")
	}
}

func (s *Service) isAnonymous(msg domain.Message) bool {
	return msg.SenderChatID != 0 && msg.SenderChatID != s.opts.ChannelID && msg.SenderChatID != s.opts.CommunityGroupID
}

// reemit публикует анонимный комментарий от имени бота и удаляет оригинал.
func (s *Service) reemit(ctx context.Context, msg domain.Message) (domain.MessageRef, error) {
	opts := domain.SendOptions{ReplyTo: msg.ReplyTo.ID}
	var (
		ref domain.MessageRef
		err error
	)
	if msg.Kind == domain.ContentText {
		ref, err = s.gw.Send(ctx, msg.ChatID, domain.Content{Text: msg.Text, Entities: msg.Entities}, opts)
	} else {
		ref, err = s.gw.Copy(ctx, msg.Ref(), msg.ChatID, opts)
	}
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("повтор анонимного комментария: %w", err)
	}
	if err := domain.IgnoreNotFound(s.gw.Delete(ctx, msg.Ref())); err != nil {
		s.log.Warn().Err(err).Msg("не удалось удалить анонимный комментарий")
	}
	return ref, nil
}

// relay копирует комментарий всем подписчикам ветки, кроме его автора.
func (s *Service) relay(ctx context.Context, thread int, src domain.MessageRef, authorID int64) error {
	followers, err := s.follows.ListFollowers(ctx, thread)
	if err != nil {
		return fmt.Errorf("подписчики ветки: %w", err)
	}
	for _, f := range followers {
		if f.FollowerID == authorID {
			continue
		}
		_, err := s.gw.Copy(ctx, src, f.FollowerID, domain.SendOptions{ReplyTo: f.PrivateMessageID})
		switch {
		case domain.IsForbidden(err):
			if err := s.follows.DeleteFollow(ctx, f.FollowerID, thread); err != nil {
				s.log.Warn().Err(err).Msg("не удалось удалить подписку")
			}
			metrics.IncFollow("dropped")
		case err != nil:
			s.log.Warn().Err(err).Int64("follower", f.FollowerID).Msg("не удалось переслать комментарий")
		}
	}
	return nil
}

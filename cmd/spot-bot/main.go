package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"spot-bot/internal/adapters/bot"
	"spot-bot/internal/adapters/repo"
	"spot-bot/internal/adapters/telegram"
	"spot-bot/internal/domain"
	"spot-bot/internal/infra/cache"
	"spot-bot/internal/infra/clock"
	"spot-bot/internal/infra/config"
	"spot-bot/internal/infra/db"
	httpinfra "spot-bot/internal/infra/http"
	"spot-bot/internal/infra/log"
	"spot-bot/internal/infra/metrics"
	"spot-bot/internal/presenter"
	"spot-bot/internal/usecase/conversation"
	"spot-bot/internal/usecase/janitor"
	"spot-bot/internal/usecase/moderation"
	"spot-bot/internal/usecase/overlay"
	"spot-bot/internal/usecase/review"
	"spot-bot/internal/usecase/submission"
)

const (
	loopBuffer      = 256
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(log.Options{
		AppEnv:    cfg.AppEnv,
		File:      cfg.Debug.LogFile,
		ErrorFile: cfg.Debug.LogErrorFile,
		Local:     cfg.Debug.LocalLog,
	})
	dailyAt, err := config.ParseDailyAt(cfg.Post.DailyJobsAt)
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректное время ежедневных задач")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := db.Open(ctx, db.Config{File: cfg.Debug.DBFile, DSN: cfg.Debug.DBDSN, Reset: cfg.Debug.ResetOnLoad}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть хранилище")
	}
	defer store.Close()
	repository := repo.New(store)

	kv := newCache(ctx, cfg.RedisAddr, logger)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	metrics.MustRegister(prometheus.DefaultRegisterer)

	gw := telegram.NewGateway(botAPI, logger)
	view := presenter.New(cfg.Post.ChannelTag, cfg.BotTag)
	conv := conversation.NewStore()
	realClock := clock.Real{}

	mod := moderation.NewService(moderation.Deps{
		Gateway: gw, Pending: repository, Users: repository, Clock: realClock, Log: logger,
	}, moderation.Options{
		AdminGroupID:       cfg.Post.AdminGroupID,
		CommunityGroupID:   cfg.Post.CommunityGroupID,
		MaxWarns:           cfg.Post.MaxNWarns,
		WarnExpirationDays: cfg.Post.WarnExpirationDays,
		MuteDefaultDays:    cfg.Post.MuteDefaultDays,
	})
	jan := janitor.NewService(janitor.Deps{
		Gateway: gw, Pending: repository, Users: repository, Mutes: mod, Store: store, Clock: realClock, Log: logger,
	}, janitor.Options{
		AdminGroupID:    cfg.Post.AdminGroupID,
		RemoveAfter:     time.Duration(cfg.Post.RemoveAfterH) * time.Hour,
		BackupChatID:    cfg.Debug.BackupChatID,
		ZipBackup:       cfg.Debug.ZipBackup,
		BackupRecipient: cfg.Debug.BackupRecipient,
	})
	router := bot.NewRouter(bot.Deps{
		Gateway:       gw,
		Cache:         kv,
		Conversations: conv,
		View:          view,
		Reporter:      bot.NewErrorReporter(gw, cfg.Post.AdminGroupID, cfg.Token, logger),
		Submission: submission.NewService(submission.Deps{
			Gateway: gw, Pending: repository, Users: repository, Conversations: conv, View: view, Clock: realClock, Log: logger,
		}, cfg.Post.AdminGroupID),
		Review: review.NewService(review.Deps{
			Gateway: gw, Pending: repository, Votes: repository, Published: repository, Reports: repository,
			Users: repository, Cache: kv, View: view, Clock: realClock, Log: logger,
		}, review.Options{
			AdminGroupID:         cfg.Post.AdminGroupID,
			ChannelID:            cfg.Post.ChannelID,
			Quorum:               cfg.Post.NVotes,
			Comments:             cfg.Post.Comments,
			Report:               cfg.Post.Report,
			AutorepliesPerPage:   cfg.Post.AutorepliesPerPage,
			RejectAfterAutoreply: cfg.Post.RejectAfterAutoreply,
			Autoreplies:          cfg.Autoreplies,
		}),
		Overlay: overlay.NewService(overlay.Deps{
			Gateway: gw, Published: repository, Reports: repository, Follows: repository, Cache: kv,
			Conversations: conv, View: view, Clock: realClock, Log: logger,
		}, overlay.Options{
			AdminGroupID:     cfg.Post.AdminGroupID,
			ChannelID:        cfg.Post.ChannelID,
			CommunityGroupID: cfg.Post.CommunityGroupID,
			ReportWait:       time.Duration(cfg.Post.ReportWaitMins) * time.Minute,
			ReplaceAnonymous: cfg.Post.ReplaceAnonymousComments,
			DeleteAnonymous:  cfg.Post.DeleteAnonymousComments,
		}),
		Moderation: mod,
		Janitor:    jan,
		Log:        logger,
	}, bot.Options{
		AdminGroupID:     cfg.Post.AdminGroupID,
		ChannelID:        cfg.Post.ChannelID,
		CommunityGroupID: cfg.Post.CommunityGroupID,
	})

	loop := bot.NewLoop(loopBuffer, logger)
	sink := func(upd tgbotapi.Update) {
		loop.Dispatch(func(ctx context.Context) { router.HandleUpdate(ctx, upd) })
	}
	scheduler := clock.NewScheduler(loop.Dispatch, logger)
	scheduler.RunDaily("janitor", dailyAt, func(ctx context.Context) {
		if err := jan.RunDaily(ctx); err != nil {
			logger.Error().Err(err).Msg("ежедневные задачи завершились с ошибками")
		}
	})
	defer scheduler.Stop()

	server := httpinfra.NewServer(logger)
	addr := cfg.MetricsAddr
	if cfg.WebhookURL != "" {
		server.Webhook(cfg.WebhookSecret, sink)
		addr = cfg.ListenAddr
		if cfg.MetricsAddr != "" && cfg.MetricsAddr != cfg.ListenAddr {
			metrics.StartServer(ctx, logger, cfg.MetricsAddr)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return server.Start(addr) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if cfg.WebhookURL != "" {
			return setWebhook(botAPI, cfg.WebhookURL, cfg.WebhookSecret, logger)
		}
		return poll(gctx, botAPI, sink, logger)
	})

	logger.Info().Str("bot", botAPI.Self.UserName).Bool("webhook", cfg.WebhookURL != "").Msg("бот запущен")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
		return
	}
	logger.Info().Msg("бот остановлен")
}

func newCache(ctx context.Context, addr string, logger zerolog.Logger) domain.Cache {
	if addr == "" {
		logger.Info().Msg("кэш в памяти процесса")
		return cache.NewMemory()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("redis недоступен")
	}
	return cache.NewRedis(client, "spot:")
}

func setWebhook(botAPI *tgbotapi.BotAPI, url, secret string, logger zerolog.Logger) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := botAPI.MakeRequest("setWebhook", params); err != nil {
		return err
	}
	logger.Info().Str("url", url).Msg("вебхук установлен")
	return nil
}

func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, sink func(tgbotapi.Update), logger zerolog.Logger) error {
	if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := botAPI.GetUpdatesChan(u)
	defer botAPI.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd := <-updates:
			sink(upd)
		}
	}
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"leet-tracker-bot/internal/adapters/bot"
	"leet-tracker-bot/internal/adapters/leetcode"
	"leet-tracker-bot/internal/adapters/repo"
	"leet-tracker-bot/internal/adapters/telegram"
	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/config"
	"leet-tracker-bot/internal/infra/db"
	"leet-tracker-bot/internal/infra/log"
	"leet-tracker-bot/internal/infra/metrics"
	"leet-tracker-bot/internal/scheduler"
	"leet-tracker-bot/internal/usecase/collect"
	"leet-tracker-bot/internal/usecase/problems"
	"leet-tracker-bot/internal/usecase/report"
	"leet-tracker-bot/internal/usecase/retention"
	"leet-tracker-bot/internal/usecase/streak"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Fatal().Err(err).Msg("не удалось применить миграции")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	lcClient := leetcode.NewClient(cfg.LeetCode.BaseURL, cfg.LeetCode.Timeout)

	problemCache := problems.NewCache(repoAdapter, lcClient, logger)
	streakEngine := streak.NewEngine(repoAdapter)
	collectService := collect.NewService(repoAdapter, repoAdapter, repoAdapter, problemCache, lcClient, cfg.LeetCode.FetchLimit, logger)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	notifier := telegram.NewNotifier(botAPI)

	reportService := report.NewService(repoAdapter, repoAdapter, streakEngine, notifier, logger)
	sweepService := retention.NewService(repoAdapter, cfg.Jobs.RetentionDays, logger)

	jobs := scheduler.NewScheduler(repoAdapter, collectService, reportService, sweepService,
		cfg.Jobs.CollectInterval, cfg.Jobs.ReportAtUTC, cfg.Jobs.SweepAtUTC, logger)
	if err := jobs.Start(); err != nil {
		logger.Fatal().Err(err).Msg("не удалось запустить планировщик")
	}
	defer jobs.Stop()

	h := bot.NewHandler(botAPI, repoAdapter, repoAdapter, reportService, notifier, logger)
	h.Run(ctx)

	logger.Info().Msg("остановка бота")
}

var _ domain.GroupRepo = (*repo.Postgres)(nil)
var _ domain.IdentityRepo = (*repo.Postgres)(nil)
var _ domain.SubmissionRepo = (*repo.Postgres)(nil)
var _ domain.ProblemRepo = (*repo.Postgres)(nil)
var _ domain.StreakRepo = (*repo.Postgres)(nil)

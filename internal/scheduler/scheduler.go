package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/usecase/collect"
	"leet-tracker-bot/internal/usecase/report"
	"leet-tracker-bot/internal/usecase/retention"
)

// Scheduler управляет тремя периодическими задачами бота: молчаливым сбором,
// дневным отчётом и очисткой журнала. Всё расписание живёт в UTC, сбор
// защищён от наложения проходов.
type Scheduler struct {
	cron      *gocron.Scheduler
	groups    domain.GroupRepo
	collector *collect.Service
	reports   *report.Service
	sweeper   *retention.Service
	interval  time.Duration
	reportAt  string
	sweepAt   string
	log       zerolog.Logger
}

// NewScheduler создаёт планировщик. reportAt и sweepAt — время суток UTC в
// формате "15:04".
func NewScheduler(groups domain.GroupRepo, collector *collect.Service, reports *report.Service, sweeper *retention.Service, interval time.Duration, reportAt, sweepAt string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		groups:    groups,
		collector: collector,
		reports:   reports,
		sweeper:   sweeper,
		interval:  interval,
		reportAt:  reportAt,
		sweepAt:   sweepAt,
		log:       log,
	}
}

// Start регистрирует задачи и запускает планировщик в фоне.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(s.interval).SingletonMode().Do(s.runCollect); err != nil {
		return fmt.Errorf("задача сбора: %w", err)
	}
	if _, err := s.cron.Every(1).Day().At(s.reportAt).Do(s.runReports); err != nil {
		return fmt.Errorf("задача отчёта: %w", err)
	}
	if _, err := s.cron.Every(1).Day().At(s.sweepAt).Do(s.runSweep); err != nil {
		return fmt.Errorf("задача очистки: %w", err)
	}

	s.log.Info().
		Str("interval", s.interval.String()).
		Str("report_at", s.reportAt).
		Str("sweep_at", s.sweepAt).
		Msg("scheduler: запуск")
	s.cron.StartAsync()
	return nil
}

// Stop останавливает планировщик и дожидается завершения текущих задач.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("scheduler: остановка")
	s.cron.Stop()
}

func (s *Scheduler) runCollect() {
	ctx := context.Background()
	if err := s.collector.Collect(ctx, time.Now().UTC()); err != nil {
		s.log.Error().Err(err).Msg("scheduler: проход сбора завершился ошибкой")
	}
}

// runReports строит отчёты за вчера: к моменту запуска "вчера" — последний
// полностью собранный день.
func (s *Scheduler) runReports() {
	ctx := context.Background()
	yesterday := domain.CivilDate(time.Now().UTC()).AddDate(0, 0, -1)

	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler: не удалось получить список групп для отчёта")
		return
	}
	for _, group := range groups {
		sent, err := s.reports.Generate(ctx, group, yesterday)
		if err != nil {
			s.log.Error().Err(err).Int64("group", group.ID).Msg("scheduler: отчёт группы не построен")
			continue
		}
		s.log.Info().Int64("group", group.ID).Bool("sent", sent).Msg("scheduler: отчёт обработан")
	}
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	if err := s.sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		s.log.Error().Err(err).Msg("scheduler: очистка журнала завершилась ошибкой")
	}
}

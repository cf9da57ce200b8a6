package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
)

// Service удаляет устаревшие записи журнала дедупликации. Метаданные задач и
// серии не трогаются: кэш метаданных вечный, серия хранит только последний день.
type Service struct {
	submissions domain.SubmissionRepo
	keepDays    int
	log         zerolog.Logger
}

// NewService создаёт сервис очистки. keepDays — сколько последних календарных
// дней журнала сохраняется.
func NewService(submissions domain.SubmissionRepo, keepDays int, log zerolog.Logger) *Service {
	return &Service{submissions: submissions, keepDays: keepDays, log: log}
}

// Sweep удаляет записи журнала старше окна хранения. Идемпотентен: повторный
// запуск в тот же день ничего не находит.
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	cutoff := domain.CivilDate(now).AddDate(0, 0, -s.keepDays)

	deleted, err := s.submissions.DeleteSubmissionsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("очистка журнала: %w", err)
	}

	metrics.SweepDeletedRows.Add(float64(deleted))
	s.log.Info().
		Time("cutoff", cutoff).
		Int64("deleted", deleted).
		Msg("retention: журнал очищен")
	return nil
}

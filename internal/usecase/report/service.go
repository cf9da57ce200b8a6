package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
	"leet-tracker-bot/internal/usecase/streak"
)

// Entry — один профиль в отчёте группы.
type Entry struct {
	DisplayName string
	Streak      int
	ShowStreak  bool
	Problems    []domain.SolvedProblem
}

// Service строит и доставляет дневной отчёт группы.
type Service struct {
	identities  domain.IdentityRepo
	submissions domain.SubmissionRepo
	streaks     *streak.Engine
	notifier    domain.Notifier
	log         zerolog.Logger
}

// NewService создаёт сервис отчётов.
func NewService(identities domain.IdentityRepo, submissions domain.SubmissionRepo, streaks *streak.Engine, notifier domain.Notifier, log zerolog.Logger) *Service {
	return &Service{
		identities:  identities,
		submissions: submissions,
		streaks:     streaks,
		notifier:    notifier,
		log:         log,
	}
}

// Generate составляет отчёт группы за дату и пытается его доставить.
// Возвращает true только после успешной доставки отчёта с решениями.
// Мутации серий фиксируются до доставки: неудачная отправка их не откатывает —
// серия отражает историю решений, а не судьбу уведомления.
func (s *Service) Generate(ctx context.Context, group domain.Group, date time.Time) (bool, error) {
	start := time.Now()
	day := domain.CivilDate(date)

	idents, err := s.identities.ListIdentities(ctx, group.ID)
	if err != nil {
		return false, fmt.Errorf("профили группы: %w", err)
	}
	if len(idents) == 0 {
		return false, nil
	}

	solves, err := s.submissions.ListGroupSolves(ctx, group.ID, day)
	if err != nil {
		return false, fmt.Errorf("журнал группы: %w", err)
	}
	byUser := make(map[string][]domain.SolvedProblem)
	for _, gs := range solves {
		byUser[gs.Username] = append(byUser[gs.Username], gs.Problem)
	}

	var solvers, idle []Entry
	for _, ident := range idents {
		// Серии питаются глобальным сигналом: решение в любой группе за этот
		// день продвигает серию, даже если в этой группе профиль молчал.
		anywhere, err := s.submissions.SolvedAnywhere(ctx, ident.Username, day)
		if err != nil {
			return false, fmt.Errorf("глобальный сигнал %s: %w", ident.Username, err)
		}
		value, show, err := s.streaks.Evaluate(ctx, ident.Username, day, anywhere)
		if err != nil {
			return false, fmt.Errorf("серия %s: %w", ident.Username, err)
		}

		entry := Entry{
			DisplayName: ident.DisplayName,
			Streak:      value,
			ShowStreak:  show,
			Problems:    byUser[ident.Username],
		}
		if len(entry.Problems) > 0 {
			solvers = append(solvers, entry)
		} else {
			idle = append(idle, entry)
		}
	}

	// Решившие — по убыванию серии, остальные — по возрастанию, чтобы
	// самые "просроченные" оказались наверху.
	sort.SliceStable(solvers, func(i, j int) bool { return solvers[i].Streak > solvers[j].Streak })
	sort.SliceStable(idle, func(i, j int) bool { return idle[i].Streak < idle[j].Streak })

	metrics.ReportBuildSeconds.Observe(time.Since(start).Seconds())

	if len(byUser) == 0 {
		s.deliver(ctx, group, FormatNobody(day))
		return false, nil
	}

	if !s.deliver(ctx, group, FormatReport(day, solvers, idle)) {
		return false, nil
	}
	return true, nil
}

func (s *Service) deliver(ctx context.Context, group domain.Group, text string) bool {
	if err := s.notifier.Send(ctx, group.ChatID, text); err != nil {
		metrics.ReportDeliveries.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Int64("chat", group.ChatID).Msg("report: не удалось доставить отчёт")
		return false
	}
	metrics.ReportDeliveries.WithLabelValues("success").Inc()
	return true
}

package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
	"leet-tracker-bot/internal/usecase/problems"
)

// Service выполняет молчаливый сбор решений: находит новые принятые задачи
// отслеживаемых профилей за "сегодня" (календарный день UTC) и идемпотентно
// записывает их в журнал дедупликации. Никогда не отправляет сообщений.
type Service struct {
	groups      domain.GroupRepo
	identities  domain.IdentityRepo
	submissions domain.SubmissionRepo
	problems    *problems.Cache
	source      domain.SubmissionSource
	fetchLimit  int
	log         zerolog.Logger
}

// NewService создаёт сервис сбора.
func NewService(groups domain.GroupRepo, identities domain.IdentityRepo, submissions domain.SubmissionRepo, cache *problems.Cache, source domain.SubmissionSource, fetchLimit int, log zerolog.Logger) *Service {
	return &Service{
		groups:      groups,
		identities:  identities,
		submissions: submissions,
		problems:    cache,
		source:      source,
		fetchLimit:  fetchLimit,
		log:         log,
	}
}

// Collect выполняет один проход сбора. Группы и профили обрабатываются
// последовательно; ошибка одного профиля отбрасывает только его
// незакоммиченные записи, проход продолжается дальше.
func (s *Service) Collect(ctx context.Context, now time.Time) error {
	passLog := s.log.With().Str("pass_id", uuid.NewString()).Logger()
	metrics.CollectPassesTotal.Inc()

	today := domain.CivilDate(now)

	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("список групп: %w", err)
	}

	for _, group := range groups {
		idents, err := s.identities.ListIdentities(ctx, group.ID)
		if err != nil {
			passLog.Error().Err(err).Int64("group", group.ID).Msg("collect: не удалось получить профили группы")
			continue
		}
		for _, ident := range idents {
			if err := s.collectIdentity(ctx, passLog, group, ident, today); err != nil {
				metrics.CollectIdentityErrors.Inc()
				passLog.Error().Err(err).
					Int64("group", group.ID).
					Str("username", ident.Username).
					Msg("collect: профиль пропущен из-за ошибки")
			}
		}
	}

	passLog.Debug().Msg("collect: проход завершён")
	return nil
}

func (s *Service) collectIdentity(ctx context.Context, passLog zerolog.Logger, group domain.Group, ident domain.TrackedIdentity, today time.Time) error {
	subs, err := s.source.RecentAccepted(ctx, ident.Username, s.fetchLimit)
	if err != nil {
		return fmt.Errorf("запрос решений: %w", err)
	}
	if subs == nil {
		// Профиль временно недоступен, возьмём его в следующем проходе.
		passLog.Debug().Str("username", ident.Username).Msg("collect: источник не вернул данных")
		return nil
	}

	recorded, err := s.submissions.ListSolvedSlugs(ctx, group.ID, ident.Username, today)
	if err != nil {
		return fmt.Errorf("чтение журнала: %w", err)
	}

	var fresh []string
	for _, sub := range subs {
		// Лента упорядочена от новых к старым: первая не-сегодняшняя запись
		// означает, что дальше только старее. Обрыв, а не фильтр.
		if !domain.CivilDate(sub.SubmittedAt).Equal(today) {
			break
		}
		if _, ok := recorded[sub.Slug]; ok {
			continue
		}

		_, prov, err := s.problems.Resolve(ctx, sub.Slug)
		if err != nil {
			return fmt.Errorf("метаданные %s: %w", sub.Slug, err)
		}
		if prov == problems.Fallback {
			// Без метаданных запись журнала стала бы сиротой для отчёта.
			// Не записываем: следующий проход повторит и то и другое.
			passLog.Debug().Str("slug", sub.Slug).Str("username", ident.Username).
				Msg("collect: решение отложено до появления метаданных")
			continue
		}

		fresh = append(fresh, sub.Slug)
	}

	if len(fresh) == 0 {
		return nil
	}

	if err := s.submissions.RecordDaySolves(ctx, group.ID, ident.Username, today, fresh); err != nil {
		return fmt.Errorf("запись журнала: %w", err)
	}
	metrics.SubmissionsDiscovered.Add(float64(len(fresh)))
	passLog.Info().
		Int64("group", group.ID).
		Str("username", ident.Username).
		Int("count", len(fresh)).
		Msg("collect: записаны новые решения")
	return nil
}

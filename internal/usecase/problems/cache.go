package problems

import (
	"context"

	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
)

// Provenance указывает, откуда взялся результат Resolve. Асимметрия
// принципиальна: успешный ответ источника кэшируется навсегда, неудача —
// никогда (следующий промах повторит запрос).
type Provenance int

const (
	// FromCache — кортеж найден в кэше, внешнего запроса не было.
	FromCache Provenance = iota
	// Fetched — кортеж получен от источника и сохранён.
	Fetched
	// Fallback — источник недоступен; возвращена заглушка, ничего не сохранено.
	Fallback
)

func (p Provenance) String() string {
	switch p {
	case FromCache:
		return "cache"
	case Fetched:
		return "fetched"
	default:
		return "fallback"
	}
}

// Cache мемоизирует метаданные задач поверх постоянного хранилища.
type Cache struct {
	problems domain.ProblemRepo
	source   domain.ProblemSource
	log      zerolog.Logger
}

// NewCache создаёт кэш метаданных.
func NewCache(problems domain.ProblemRepo, source domain.ProblemSource, log zerolog.Logger) *Cache {
	return &Cache{problems: problems, source: source, log: log}
}

// Resolve возвращает метаданные задачи. Ошибка возможна только от хранилища;
// недоступность внешнего источника выражается Provenance == Fallback с
// отображаемой заглушкой (N/A, slug).
func (c *Cache) Resolve(ctx context.Context, slug string) (domain.ProblemInfo, Provenance, error) {
	info, ok, err := c.problems.GetProblem(ctx, slug)
	if err != nil {
		return domain.ProblemInfo{}, Fallback, err
	}
	if ok {
		metrics.ProblemCacheLookups.WithLabelValues(FromCache.String()).Inc()
		return info, FromCache, nil
	}

	fetched, err := c.source.Question(ctx, slug)
	if err != nil {
		c.log.Warn().Err(err).Str("slug", slug).Msg("метаданные задачи недоступны, используем заглушку")
		metrics.ProblemCacheLookups.WithLabelValues(Fallback.String()).Inc()
		return domain.ProblemInfo{Slug: slug, Difficulty: domain.DifficultyUnknown, Title: slug}, Fallback, nil
	}

	if err := c.problems.SaveProblem(ctx, fetched); err != nil {
		return domain.ProblemInfo{}, Fallback, err
	}
	metrics.ProblemCacheLookups.WithLabelValues(Fetched.String()).Inc()
	return fetched, Fetched, nil
}

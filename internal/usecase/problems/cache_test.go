package problems

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
)

type stubProblemRepo struct {
	stored map[string]domain.ProblemInfo
}

func newStubProblemRepo() *stubProblemRepo {
	return &stubProblemRepo{stored: make(map[string]domain.ProblemInfo)}
}

func (s *stubProblemRepo) GetProblem(_ context.Context, slug string) (domain.ProblemInfo, bool, error) {
	info, ok := s.stored[slug]
	return info, ok, nil
}

func (s *stubProblemRepo) SaveProblem(_ context.Context, info domain.ProblemInfo) error {
	s.stored[info.Slug] = info
	return nil
}

type stubProblemSource struct {
	infos map[string]domain.ProblemInfo
	err   error
	calls int
}

func (s *stubProblemSource) Question(_ context.Context, slug string) (domain.ProblemInfo, error) {
	s.calls++
	if s.err != nil {
		return domain.ProblemInfo{}, s.err
	}
	return s.infos[slug], nil
}

func TestResolveHitSkipsSource(t *testing.T) {
	repo := newStubProblemRepo()
	repo.stored["two-sum"] = domain.ProblemInfo{Slug: "two-sum", Difficulty: domain.DifficultyEasy, Title: "Two Sum"}
	source := &stubProblemSource{}
	cache := NewCache(repo, source, zerolog.Nop())

	info, prov, err := cache.Resolve(context.Background(), "two-sum")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if prov != FromCache {
		t.Fatalf("ожидали попадание в кэш, получили %s", prov)
	}
	if info.Title != "Two Sum" {
		t.Fatalf("неожиданные метаданные: %+v", info)
	}
	if source.calls != 0 {
		t.Fatalf("при попадании источник не должен вызываться")
	}
}

func TestResolveMissFetchesAndPersists(t *testing.T) {
	repo := newStubProblemRepo()
	source := &stubProblemSource{infos: map[string]domain.ProblemInfo{
		"three-sum": {Slug: "three-sum", Difficulty: domain.DifficultyMedium, Title: "Three Sum"},
	}}
	cache := NewCache(repo, source, zerolog.Nop())

	info, prov, err := cache.Resolve(context.Background(), "three-sum")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if prov != Fetched {
		t.Fatalf("ожидали Fetched, получили %s", prov)
	}
	if info.Difficulty != domain.DifficultyMedium {
		t.Fatalf("неожиданная сложность: %s", info.Difficulty)
	}
	if _, ok := repo.stored["three-sum"]; !ok {
		t.Fatalf("успешный ответ источника должен сохраняться")
	}
}

func TestResolveSourceFailureReturnsFallback(t *testing.T) {
	repo := newStubProblemRepo()
	source := &stubProblemSource{err: errors.New("сеть недоступна")}
	cache := NewCache(repo, source, zerolog.Nop())

	info, prov, err := cache.Resolve(context.Background(), "missing-problem")
	if err != nil {
		t.Fatalf("недоступность источника не должна быть ошибкой: %v", err)
	}
	if prov != Fallback {
		t.Fatalf("ожидали Fallback, получили %s", prov)
	}
	if info.Difficulty != domain.DifficultyUnknown || info.Title != "missing-problem" {
		t.Fatalf("заглушка должна быть (N/A, slug), получили %+v", info)
	}
	if len(repo.stored) != 0 {
		t.Fatalf("неудача источника никогда не кэшируется")
	}
}

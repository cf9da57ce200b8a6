package streak

import (
	"context"
	"testing"
	"time"

	"leet-tracker-bot/internal/domain"
)

type stubStreaks struct {
	states map[string]domain.StreakState
	saves  int
}

func newStubStreaks() *stubStreaks {
	return &stubStreaks{states: make(map[string]domain.StreakState)}
}

func (s *stubStreaks) GetStreak(_ context.Context, username string) (domain.StreakState, bool, error) {
	state, ok := s.states[username]
	return state, ok, nil
}

func (s *stubStreaks) SaveStreak(_ context.Context, state domain.StreakState) error {
	s.states[state.Username] = state
	s.saves++
	return nil
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEvaluateFirstDayHidesLabel(t *testing.T) {
	repo := newStubStreaks()
	engine := NewEngine(repo)

	value, show, err := engine.Evaluate(context.Background(), "alice", day("2026-08-01"), true)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != 1 {
		t.Fatalf("ожидали серию 1, получили %d", value)
	}
	if show {
		t.Fatalf("в первый день бейдж не показывается")
	}
}

func TestEvaluateExtendsAndFlips(t *testing.T) {
	repo := newStubStreaks()
	engine := NewEngine(repo)
	ctx := context.Background()

	if _, _, err := engine.Evaluate(ctx, "alice", day("2026-08-01"), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	value, show, err := engine.Evaluate(ctx, "alice", day("2026-08-02"), true)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != 2 || !show {
		t.Fatalf("ожидали (2, true), получили (%d, %v)", value, show)
	}

	value, _, err = engine.Evaluate(ctx, "alice", day("2026-08-03"), false)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != -1 {
		t.Fatalf("пропуск после забега должен давать -1, получили %d", value)
	}

	value, _, err = engine.Evaluate(ctx, "alice", day("2026-08-04"), false)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != -2 {
		t.Fatalf("второй пропуск подряд должен давать -2, получили %d", value)
	}
}

func TestEvaluateSameDayDoesNotMutate(t *testing.T) {
	repo := newStubStreaks()
	engine := NewEngine(repo)
	ctx := context.Background()

	if _, _, err := engine.Evaluate(ctx, "alice", day("2026-08-01"), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, _, err := engine.Evaluate(ctx, "alice", day("2026-08-02"), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	saves := repo.saves

	value, show, err := engine.Evaluate(ctx, "alice", day("2026-08-02"), false)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != 2 || !show {
		t.Fatalf("повторная оценка должна вернуть сохранённое (2, true), получили (%d, %v)", value, show)
	}
	if repo.saves != saves {
		t.Fatalf("повторная оценка того же дня не должна сохранять состояние")
	}
}

func TestEvaluateGapRestartsStreak(t *testing.T) {
	repo := newStubStreaks()
	engine := NewEngine(repo)
	ctx := context.Background()

	if _, _, err := engine.Evaluate(ctx, "alice", day("2026-08-01"), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, _, err := engine.Evaluate(ctx, "alice", day("2026-08-02"), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	value, _, err := engine.Evaluate(ctx, "alice", day("2026-08-06"), true)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if value != 1 {
		t.Fatalf("после разрыва серия начинается заново с 1, получили %d", value)
	}
}

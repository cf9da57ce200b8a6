package streak

import (
	"context"
	"fmt"
	"time"

	"leet-tracker-bot/internal/domain"
)

// Engine реализует конечный автомат серий. Серия принадлежит профилю, а не
// группе: знак значения кодирует направление (решал / пропускал), модуль —
// длину текущего забега в днях подряд.
type Engine struct {
	streaks domain.StreakRepo
}

// NewEngine создаёт движок серий.
func NewEngine(streaks domain.StreakRepo) *Engine {
	return &Engine{streaks: streaks}
}

// Evaluate продвигает серию профиля на указанную дату и возвращает её
// значение. Состояние меняется не более одного раза на пару (профиль, дата):
// повторная оценка уже учтённой даты возвращает сохранённое значение без
// мутации. showLabel=false только в самый первый день профиля — бейдж "+1"
// без истории не показываем.
func (e *Engine) Evaluate(ctx context.Context, username string, date time.Time, solved bool) (int, bool, error) {
	day := domain.CivilDate(date)

	state, ok, err := e.streaks.GetStreak(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("чтение серии: %w", err)
	}

	if !ok {
		fresh := domain.StreakState{Username: username, LastDate: day, Streak: restart(solved)}
		if err := e.streaks.SaveStreak(ctx, fresh); err != nil {
			return 0, false, fmt.Errorf("сохранение серии: %w", err)
		}
		return fresh.Streak, false, nil
	}

	delta := daysBetween(state.LastDate, day)
	if delta <= 0 {
		return state.Streak, true, nil
	}

	var next int
	switch {
	case delta > 1:
		// Разрыв: хотя бы один день вообще не оценивался, серия начинается заново.
		next = restart(solved)
	case solved:
		if state.Streak > 0 {
			next = state.Streak + 1
		} else {
			next = 1
		}
	default:
		if state.Streak < 0 {
			next = state.Streak - 1
		} else {
			next = -1
		}
	}

	updated := domain.StreakState{Username: username, LastDate: day, Streak: next}
	if err := e.streaks.SaveStreak(ctx, updated); err != nil {
		return 0, false, fmt.Errorf("сохранение серии: %w", err)
	}
	return next, true, nil
}

func restart(solved bool) int {
	if solved {
		return 1
	}
	return -1
}

func daysBetween(from, to time.Time) int {
	return int(domain.CivilDate(to).Sub(domain.CivilDate(from)).Hours() / 24)
}

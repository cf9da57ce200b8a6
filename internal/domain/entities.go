package domain

import "time"

// Difficulty обозначает сложность задачи на LeetCode.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	// DifficultyUnknown используется, когда метаданные задачи недоступны.
	DifficultyUnknown Difficulty = "N/A"
)

// Group описывает зарегистрированную группу Telegram.
type Group struct {
	ID        int64
	ChatID    int64
	Title     string
	CreatedAt time.Time
}

// TrackedIdentity описывает отслеживаемый профиль LeetCode внутри группы.
// Один и тот же username может отслеживаться в нескольких группах,
// каждая со своим отображаемым именем.
type TrackedIdentity struct {
	ID          int64
	GroupID     int64
	Username    string
	DisplayName string
	AddedAt     time.Time
}

// Submission — запись журнала дедупликации: факт "этому профилю засчитана
// задача в этой группе в этот календарный день". Первичный ключ —
// весь кортеж (группа, профиль, задача, день).
type Submission struct {
	GroupID  int64
	Username string
	Slug     string
	SolvedOn time.Time
}

// ProblemInfo содержит кэшированные метаданные задачи.
type ProblemInfo struct {
	Slug       string
	Difficulty Difficulty
	Title      string
}

// StreakState хранит текущую серию профиля: знак кодирует направление
// (положительное — дни подряд с решениями, отрицательное — дни подряд без).
// Одна запись на username, независимо от количества групп.
type StreakState struct {
	Username string
	LastDate time.Time
	Streak   int
}

// RecentSubmission — принятое решение из удалённого источника.
type RecentSubmission struct {
	ID          string
	Title       string
	Slug        string
	SubmittedAt time.Time
}

// SolvedProblem — решённая задача в составе отчёта.
type SolvedProblem struct {
	Slug       string
	Title      string
	Difficulty Difficulty
}

// GroupSolve — строка соединения журнала дедупликации с метаданными задач.
type GroupSolve struct {
	Username string
	Problem  SolvedProblem
}

// CivilDate приводит момент времени к календарной дате UTC —
// единице "сегодня" для дедупликации и серий.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

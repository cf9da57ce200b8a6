package domain

import (
	"context"
	"errors"
	"time"
)

// ErrGroupNotFound возвращается, когда группа ещё не зарегистрирована.
var ErrGroupNotFound = errors.New("группа не зарегистрирована")

// GroupRepo управляет зарегистрированными группами.
type GroupRepo interface {
	UpsertGroup(ctx context.Context, chatID int64, title string) (Group, error)
	GetGroupByChatID(ctx context.Context, chatID int64) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
}

// IdentityRepo управляет отслеживаемыми профилями группы.
type IdentityRepo interface {
	AddIdentity(ctx context.Context, groupID int64, username, displayName string) (TrackedIdentity, bool, error)
	RemoveIdentity(ctx context.Context, groupID int64, username string) (bool, error)
	// ListIdentities возвращает профили группы, упорядоченные по отображаемому имени.
	ListIdentities(ctx context.Context, groupID int64) ([]TrackedIdentity, error)
}

// SubmissionRepo управляет журналом дедупликации решений.
type SubmissionRepo interface {
	// ListSolvedSlugs возвращает задачи, уже засчитанные профилю в группе за день.
	ListSolvedSlugs(ctx context.Context, groupID int64, username string, day time.Time) (map[string]struct{}, error)
	// RecordDaySolves атомарно фиксирует новые решения одного профиля за день.
	// Повторная вставка того же кортежа — no-op.
	RecordDaySolves(ctx context.Context, groupID int64, username string, day time.Time, slugs []string) error
	// ListGroupSolves соединяет журнал за (группа, день) с метаданными задач.
	ListGroupSolves(ctx context.Context, groupID int64, day time.Time) ([]GroupSolve, error)
	// SolvedAnywhere отвечает, решал ли профиль что-либо в этот день в любой группе.
	SolvedAnywhere(ctx context.Context, username string, day time.Time) (bool, error)
	// DeleteSubmissionsBefore удаляет записи журнала старше даты среза.
	DeleteSubmissionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProblemRepo хранит кэш метаданных задач. Кэш append-only: записанный
// кортеж считается неизменяемым.
type ProblemRepo interface {
	GetProblem(ctx context.Context, slug string) (ProblemInfo, bool, error)
	SaveProblem(ctx context.Context, info ProblemInfo) error
}

// StreakRepo хранит состояние серий профилей.
type StreakRepo interface {
	GetStreak(ctx context.Context, username string) (StreakState, bool, error)
	SaveStreak(ctx context.Context, state StreakState) error
}

// SubmissionSource — удалённый источник принятых решений. Список упорядочен
// от новых к старым. Возврат (nil, nil) — сигнал "профиль временно
// недоступен": не ошибка, профиль пропускается до следующего прохода.
type SubmissionSource interface {
	RecentAccepted(ctx context.Context, username string, limit int) ([]RecentSubmission, error)
}

// ProblemSource — удалённый источник метаданных задачи.
type ProblemSource interface {
	Question(ctx context.Context, slug string) (ProblemInfo, error)
}

// Notifier доставляет готовое сообщение в чат группы.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.GroupRepo      = (*Postgres)(nil)
	_ domain.IdentityRepo   = (*Postgres)(nil)
	_ domain.SubmissionRepo = (*Postgres)(nil)
	_ domain.ProblemRepo    = (*Postgres)(nil)
	_ domain.StreakRepo     = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// UpsertGroup регистрирует группу или обновляет её название.
func (p *Postgres) UpsertGroup(ctx context.Context, chatID int64, title string) (domain.Group, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var g domain.Group
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO groups (chat_id, title)
VALUES ($1, $2)
ON CONFLICT (chat_id) DO UPDATE SET title = EXCLUDED.title
RETURNING id, chat_id, title, created_at
`, chatID, title).Scan(&g.ID, &g.ChatID, &g.Title, &g.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "groups_upsert", "groups", start, err)
	return g, err
}

// GetGroupByChatID возвращает группу по идентификатору чата.
func (p *Postgres) GetGroupByChatID(ctx context.Context, chatID int64) (domain.Group, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var g domain.Group
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, chat_id, title, created_at FROM groups WHERE chat_id=$1
`, chatID).Scan(&g.ID, &g.ChatID, &g.Title, &g.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "groups_get_by_chat", "groups", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return g, err
}

// ListGroups возвращает все зарегистрированные группы.
func (p *Postgres) ListGroups(ctx context.Context) ([]domain.Group, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT id, chat_id, title, created_at FROM groups ORDER BY id`)
	metrics.ObserveNetworkRequest("postgres", "groups_list", "groups", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.ChatID, &g.Title, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddIdentity начинает отслеживание профиля в группе. Второй результат —
// true, если профиль добавлен, false, если уже отслеживался.
func (p *Postgres) AddIdentity(ctx context.Context, groupID int64, username, displayName string) (domain.TrackedIdentity, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		ident   domain.TrackedIdentity
		created bool
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO tracked_identities (group_id, username, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (group_id, username) DO UPDATE SET username = EXCLUDED.username
RETURNING id, group_id, username, display_name, added_at, (xmax = 0) AS inserted
`, groupID, username, displayName).Scan(&ident.ID, &ident.GroupID, &ident.Username, &ident.DisplayName, &ident.AddedAt, &created)
	metrics.ObserveNetworkRequest("postgres", "identities_add", "tracked_identities", start, err)
	return ident, created, err
}

// RemoveIdentity прекращает отслеживание профиля в группе.
func (p *Postgres) RemoveIdentity(ctx context.Context, groupID int64, username string) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM tracked_identities WHERE group_id=$1 AND username=$2
`, groupID, username)
	metrics.ObserveNetworkRequest("postgres", "identities_remove", "tracked_identities", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListIdentities возвращает профили группы, упорядоченные по отображаемому имени.
func (p *Postgres) ListIdentities(ctx context.Context, groupID int64) ([]domain.TrackedIdentity, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, group_id, username, display_name, added_at
FROM tracked_identities WHERE group_id=$1
ORDER BY display_name
`, groupID)
	metrics.ObserveNetworkRequest("postgres", "identities_list", "tracked_identities", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var idents []domain.TrackedIdentity
	for rows.Next() {
		var ident domain.TrackedIdentity
		if err := rows.Scan(&ident.ID, &ident.GroupID, &ident.Username, &ident.DisplayName, &ident.AddedAt); err != nil {
			return nil, err
		}
		idents = append(idents, ident)
	}
	return idents, rows.Err()
}

// ListSolvedSlugs возвращает задачи, уже засчитанные профилю в группе за день.
func (p *Postgres) ListSolvedSlugs(ctx context.Context, groupID int64, username string, day time.Time) (map[string]struct{}, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT problem_slug FROM submissions
WHERE group_id=$1 AND username=$2 AND solved_on=$3
`, groupID, username, domain.CivilDate(day))
	metrics.ObserveNetworkRequest("postgres", "submissions_list_day", "submissions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slugs := make(map[string]struct{})
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs[slug] = struct{}{}
	}
	return slugs, rows.Err()
}

// RecordDaySolves фиксирует новые решения одного профиля за день одной
// транзакцией: либо записывается весь набор, либо ничего. Конфликт по
// первичному ключу безвреден — запись уже внёс другой проход.
func (p *Postgres) RecordDaySolves(ctx context.Context, groupID int64, username string, day time.Time, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "submissions", start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	solvedOn := domain.CivilDate(day)
	for _, slug := range slugs {
		start = time.Now()
		_, err = tx.Exec(ctx, `
INSERT INTO submissions (group_id, username, problem_slug, solved_on)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
`, groupID, username, slug, solvedOn)
		metrics.ObserveNetworkRequest("postgres", "submissions_insert", "submissions", start, err)
		if err != nil {
			return err
		}
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "submissions", start, err)
	return err
}

// ListGroupSolves соединяет журнал за (группа, день) с метаданными задач.
// Благодаря порядку записи при сборе у каждой записи журнала есть метаданные.
func (p *Postgres) ListGroupSolves(ctx context.Context, groupID int64, day time.Time) ([]domain.GroupSolve, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT s.username, s.problem_slug, pi.title, pi.difficulty
FROM submissions s
JOIN problem_info pi ON pi.problem_slug = s.problem_slug
WHERE s.group_id=$1 AND s.solved_on=$2
ORDER BY s.username, pi.difficulty
`, groupID, domain.CivilDate(day))
	metrics.ObserveNetworkRequest("postgres", "submissions_group_day", "submissions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var solves []domain.GroupSolve
	for rows.Next() {
		var gs domain.GroupSolve
		if err := rows.Scan(&gs.Username, &gs.Problem.Slug, &gs.Problem.Title, &gs.Problem.Difficulty); err != nil {
			return nil, err
		}
		solves = append(solves, gs)
	}
	return solves, rows.Err()
}

// SolvedAnywhere отвечает, решал ли профиль что-либо в этот день в любой группе.
func (p *Postgres) SolvedAnywhere(ctx context.Context, username string, day time.Time) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM submissions WHERE username=$1 AND solved_on=$2)
`, username, domain.CivilDate(day)).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "submissions_solved_anywhere", "submissions", start, err)
	return exists, err
}

// DeleteSubmissionsBefore удаляет записи журнала старше даты среза.
func (p *Postgres) DeleteSubmissionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM submissions WHERE solved_on < $1
`, domain.CivilDate(cutoff))
	metrics.ObserveNetworkRequest("postgres", "submissions_sweep", "submissions", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetProblem возвращает метаданные задачи из кэша.
func (p *Postgres) GetProblem(ctx context.Context, slug string) (domain.ProblemInfo, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var info domain.ProblemInfo
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT problem_slug, difficulty, title FROM problem_info WHERE problem_slug=$1
`, slug).Scan(&info.Slug, &info.Difficulty, &info.Title)
	metrics.ObserveNetworkRequest("postgres", "problem_info_get", "problem_info", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProblemInfo{}, false, nil
	}
	if err != nil {
		return domain.ProblemInfo{}, false, err
	}
	return info, true, nil
}

// SaveProblem сохраняет метаданные задачи. Конфликт вставки проглатывается:
// параллельный проход уже записал то же значение.
func (p *Postgres) SaveProblem(ctx context.Context, info domain.ProblemInfo) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO problem_info (problem_slug, difficulty, title)
VALUES ($1, $2, $3)
ON CONFLICT (problem_slug) DO NOTHING
`, info.Slug, info.Difficulty, info.Title)
	metrics.ObserveNetworkRequest("postgres", "problem_info_save", "problem_info", start, err)
	return err
}

// GetStreak возвращает состояние серии профиля.
func (p *Postgres) GetStreak(ctx context.Context, username string) (domain.StreakState, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var state domain.StreakState
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT username, last_date, streak FROM streaks WHERE username=$1
`, username).Scan(&state.Username, &state.LastDate, &state.Streak)
	metrics.ObserveNetworkRequest("postgres", "streaks_get", "streaks", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StreakState{}, false, nil
	}
	if err != nil {
		return domain.StreakState{}, false, err
	}
	state.LastDate = domain.CivilDate(state.LastDate)
	return state, true, nil
}

// SaveStreak сохраняет состояние серии профиля.
func (p *Postgres) SaveStreak(ctx context.Context, state domain.StreakState) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO streaks (username, last_date, streak)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET last_date = EXCLUDED.last_date, streak = EXCLUDED.streak
`, state.Username, domain.CivilDate(state.LastDate), state.Streak)
	metrics.ObserveNetworkRequest("postgres", "streaks_save", "streaks", start, err)
	return err
}

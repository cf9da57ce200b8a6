package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"leet-tracker-bot/internal/domain"
)

const problemBaseURL = "https://leetcode.com/problems/"

// FormatReport формирует HTML-сообщение отчёта: секция решивших с задачами
// и ссылками, секция не решивших — только имена. Пустая секция опускается.
func FormatReport(date time.Time, solvers, idle []Entry) string {
	var sections []string

	sections = append(sections, fmt.Sprintf("📊 <b>Отчёт за %s</b>", date.Format("2006-01-02")))

	if len(solvers) > 0 {
		var b strings.Builder
		b.WriteString("🏆 <b>Решили задачи</b>")
		for _, entry := range solvers {
			b.WriteString("\n\n<b>" + html.EscapeString(entry.DisplayName) + "</b>")
			if label := streakLabel(entry); label != "" {
				b.WriteString(" " + label)
			}
			for _, problem := range entry.Problems {
				b.WriteString(fmt.Sprintf("\n   %s <a href=\"%s\">%s</a>",
					difficultyMarker(problem.Difficulty),
					html.EscapeString(problemBaseURL+problem.Slug+"/"),
					html.EscapeString(problem.Title)))
			}
		}
		sections = append(sections, b.String())
	}

	if len(idle) > 0 {
		var b strings.Builder
		b.WriteString("😴 <b>Без решений</b>")
		for _, entry := range idle {
			b.WriteString("\n• " + html.EscapeString(entry.DisplayName))
			if label := streakLabel(entry); label != "" {
				b.WriteString(" " + label)
			}
		}
		sections = append(sections, b.String())
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

// FormatNobody формирует отдельное сообщение для дня без единого решения.
func FormatNobody(date time.Time) string {
	return fmt.Sprintf("За %s никто ничего не решил. Ай-ай-ай, как не стыдно :)", date.Format("2006-01-02"))
}

func streakLabel(entry Entry) string {
	if !entry.ShowStreak {
		return ""
	}
	if entry.Streak > 0 {
		return fmt.Sprintf("🔥 %d", entry.Streak)
	}
	return fmt.Sprintf("💤 %d", -entry.Streak)
}

func difficultyMarker(d domain.Difficulty) string {
	switch d {
	case domain.DifficultyEasy:
		return "🟢"
	case domain.DifficultyMedium:
		return "🟠"
	case domain.DifficultyHard:
		return "🔴"
	default:
		return "⚪"
	}
}

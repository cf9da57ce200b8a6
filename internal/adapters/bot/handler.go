package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/usecase/report"
)

// Handler обслуживает команды бота в групповых чатах.
type Handler struct {
	bot        *tgbotapi.BotAPI
	groups     domain.GroupRepo
	identities domain.IdentityRepo
	reportUC   *report.Service
	notifier   domain.Notifier
	log        zerolog.Logger
}

// NewHandler создаёт обработчик команд.
func NewHandler(bot *tgbotapi.BotAPI, groups domain.GroupRepo, identities domain.IdentityRepo, reportUC *report.Service, notifier domain.Notifier, log zerolog.Logger) *Handler {
	return &Handler{
		bot:        bot,
		groups:     groups,
		identities: identities,
		reportUC:   reportUC,
		notifier:   notifier,
		log:        log,
	}
}

// Run крутит long-poll цикл до отмены контекста.
func (h *Handler) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := h.bot.GetUpdatesChan(cfg)

	h.log.Info().Str("bot", h.bot.Self.UserName).Msg("bot: приём команд запущен")
	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message != nil {
				h.handleMessage(ctx, upd.Message)
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "start":
		h.reply(msg.Chat.ID, h.buildStartMessage())
	case "help":
		h.reply(msg.Chat.ID, h.buildHelpMessage())
	case "register_group":
		h.handleRegisterGroup(ctx, msg)
	case "add":
		h.handleAdd(ctx, msg)
	case "remove":
		h.handleRemove(ctx, msg)
	case "list":
		h.handleList(ctx, msg)
	case "send_report":
		h.handleSendReport(ctx, msg, domain.CivilDate(time.Now().UTC()).AddDate(0, 0, -1))
	case "send_today":
		h.handleSendReport(ctx, msg, domain.CivilDate(time.Now().UTC()))
	default:
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

func (h *Handler) handleRegisterGroup(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		h.reply(msg.Chat.ID, "Эта команда работает только в групповых чатах.")
		return
	}
	group, err := h.groups.UpsertGroup(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("bot: не удалось зарегистрировать группу")
		h.reply(msg.Chat.ID, "Не удалось зарегистрировать группу, попробуйте позже.")
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("Группа «%s» зарегистрирована. Добавьте профили: /add username Имя", html.EscapeString(group.Title)))
}

func (h *Handler) handleAdd(ctx context.Context, msg *tgbotapi.Message) {
	group, ok := h.requireGroup(ctx, msg)
	if !ok {
		return
	}
	username, displayName := splitArgs(msg.CommandArguments())
	if username == "" {
		h.reply(msg.Chat.ID, "Формат: /add username Отображаемое Имя")
		return
	}
	if displayName == "" {
		displayName = username
	}
	ident, created, err := h.identities.AddIdentity(ctx, group.ID, username, displayName)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("bot: не удалось добавить профиль")
		h.reply(msg.Chat.ID, "Не удалось добавить профиль, попробуйте позже.")
		return
	}
	if created {
		h.reply(msg.Chat.ID, fmt.Sprintf("Профиль %s (%s) добавлен.", html.EscapeString(ident.Username), html.EscapeString(ident.DisplayName)))
	} else {
		h.reply(msg.Chat.ID, fmt.Sprintf("Профиль %s уже отслеживался, имя обновлено на %s.", html.EscapeString(ident.Username), html.EscapeString(ident.DisplayName)))
	}
}

func (h *Handler) handleRemove(ctx context.Context, msg *tgbotapi.Message) {
	group, ok := h.requireGroup(ctx, msg)
	if !ok {
		return
	}
	username, _ := splitArgs(msg.CommandArguments())
	if username == "" {
		h.reply(msg.Chat.ID, "Формат: /remove username")
		return
	}
	removed, err := h.identities.RemoveIdentity(ctx, group.ID, username)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("bot: не удалось удалить профиль")
		h.reply(msg.Chat.ID, "Не удалось удалить профиль, попробуйте позже.")
		return
	}
	if removed {
		h.reply(msg.Chat.ID, fmt.Sprintf("Профиль %s больше не отслеживается.", html.EscapeString(username)))
	} else {
		h.reply(msg.Chat.ID, fmt.Sprintf("Профиль %s и так не отслеживался.", html.EscapeString(username)))
	}
}

func (h *Handler) handleList(ctx context.Context, msg *tgbotapi.Message) {
	group, ok := h.requireGroup(ctx, msg)
	if !ok {
		return
	}
	idents, err := h.identities.ListIdentities(ctx, group.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("group", group.ID).Msg("bot: не удалось получить список профилей")
		h.reply(msg.Chat.ID, "Не удалось получить список, попробуйте позже.")
		return
	}
	if len(idents) == 0 {
		h.reply(msg.Chat.ID, "Пока никто не отслеживается. Добавьте профиль: /add username Имя")
		return
	}
	var b strings.Builder
	b.WriteString("<b>Отслеживаемые профили</b>")
	for i, ident := range idents {
		b.WriteString(fmt.Sprintf("\n%d. %s — %s", i+1, html.EscapeString(ident.DisplayName), html.EscapeString(ident.Username)))
	}
	h.reply(msg.Chat.ID, b.String())
}

// handleSendReport строит отчёт по требованию. Серии при этом продвигаются
// штатно: повторный вызов в тот же день не мутирует их второй раз.
func (h *Handler) handleSendReport(ctx context.Context, msg *tgbotapi.Message, date time.Time) {
	group, ok := h.requireGroup(ctx, msg)
	if !ok {
		return
	}
	sent, err := h.reportUC.Generate(ctx, group, date)
	if err != nil {
		h.log.Error().Err(err).Int64("group", group.ID).Msg("bot: отчёт по требованию не построен")
		h.reply(msg.Chat.ID, "Не удалось построить отчёт, попробуйте позже.")
		return
	}
	if !sent {
		h.log.Debug().Int64("group", group.ID).Time("date", date).Msg("bot: отчёт по требованию без доставки")
	}
}

func (h *Handler) requireGroup(ctx context.Context, msg *tgbotapi.Message) (domain.Group, bool) {
	if msg.Chat.IsPrivate() {
		h.reply(msg.Chat.ID, "Эта команда работает только в групповых чатах.")
		return domain.Group{}, false
	}
	group, err := h.groups.GetGroupByChatID(ctx, msg.Chat.ID)
	if err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			h.reply(msg.Chat.ID, "Группа не зарегистрирована. Сначала выполните /register_group")
		} else {
			h.log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("bot: не удалось найти группу")
			h.reply(msg.Chat.ID, "Временная ошибка, попробуйте позже.")
		}
		return domain.Group{}, false
	}
	return group, true
}

func (h *Handler) buildStartMessage() string {
	return strings.Join([]string{
		"Привет! Я считаю решённые задачи LeetCode и веду серии.",
		"",
		"Зарегистрируйте группу командой /register_group, затем добавьте профили через /add.",
		"Каждый день я публикую отчёт: кто что решил и чья серия длиннее.",
		"",
		"Полный список команд — /help",
	}, "\n")
}

func (h *Handler) buildHelpMessage() string {
	return strings.Join([]string{
		"<b>Команды</b>",
		"/register_group — зарегистрировать этот чат",
		"/add username Имя — отслеживать профиль LeetCode",
		"/remove username — перестать отслеживать профиль",
		"/list — список отслеживаемых профилей",
		"/send_report — отчёт за вчера прямо сейчас",
		"/send_today — промежуточный отчёт за сегодня",
	}, "\n")
}

func (h *Handler) reply(chatID int64, text string) {
	if err := h.notifier.Send(context.Background(), chatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить ответ")
	}
}

// splitArgs отделяет первый аргумент команды от остатка строки.
func splitArgs(args string) (string, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", ""
	}
	first := strings.TrimPrefix(fields[0], "@")
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))
	return first, rest
}

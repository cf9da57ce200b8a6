package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leet-tracker-bot/internal/domain"
	"leet-tracker-bot/internal/infra/metrics"
)

// Notifier доставляет отчёты в групповые чаты через Bot API. Сообщения
// отправляются с HTML-разметкой и без превью ссылок: отчёт с десятком ссылок
// на задачи иначе превращается в простыню карточек.
type Notifier struct {
	bot *tgbotapi.BotAPI
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт нотификатор поверх готового клиента Bot API.
func NewNotifier(bot *tgbotapi.BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

// Send отправляет текст в чат, при необходимости разбивая его на части.
// Ошибка первой неудавшейся части прерывает отправку остальных.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("отправка в чат %d: %w", chatID, err)
		}
	}
	return nil
}

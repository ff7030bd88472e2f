package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// Notifier — событийные уведомления движка (открытия, закрытия, свип).
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionLister отдаёт живые позиции по всем активным аккаунтам,
// ключ — имя аккаунта. Нужен команде /positions.
type PositionLister interface {
	AllPositions(ctx context.Context) (map[string][]models.LivePosition, error)
}

// Telegram — пассивный нотифайер + одна команда /positions.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	lister PositionLister
}

func NewTelegram(token string, chatID int64, lister PositionLister) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, lister: lister}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] сообщение не ушло: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions — сводка живых позиций по всем аккаунтам.
func (t *Telegram) handlePositions(ctx context.Context) {
	byAccount, err := t.lister.AllPositions(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}

	total := 0
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for acct, positions := range byAccount {
		for _, p := range positions {
			side := "LONG"
			if p.Size < 0 {
				side = "SHORT"
			}
			fmt.Fprintf(&b, "- %s: %s [%s] size=%d value=%.2f pnl=%.2f\n",
				acct, p.Contract, side, p.Size, p.Value, p.UnrealizedPnl)
			total++
		}
	}
	if total == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}
	t.Send(b.String())
}

// Start: long-polling только ради /positions.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() { t.bot.StopReceivingUpdates() }

// Stdout — заглушка без телеграма: всё в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("[NOTIFY] %s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { logger.Info("[NOTIFY] "+format, args...) }

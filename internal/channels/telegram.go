package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coopco/castbot/internal/bus"
)

func init() {
	Register("telegram", newTelegramChannel)
}

type telegramConfig struct {
	Token        string   `json:"token"`
	AllowedUsers []string `json:"allowedUsers"`
}

type TelegramChannel struct {
	bot          *tgbotapi.BotAPI
	bus          *bus.MessageBus
	allowedUsers map[string]bool
	stopCh       chan struct{}
}

func newTelegramChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var tcfg telegramConfig
	if err := json.Unmarshal(cfg, &tcfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(tcfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	allowed := make(map[string]bool, len(tcfg.AllowedUsers))
	for _, u := range tcfg.AllowedUsers {
		allowed[u] = true
	}
	return &TelegramChannel{
		bot:          bot,
		bus:          msgBus,
		allowedUsers: allowed,
		stopCh:       make(chan struct{}),
	}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(update)
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case <-c.stopCh:
				c.bot.StopReceivingUpdates()
				return
			}
		}
	}()
	return nil
}

// handleUpdate turns a Telegram update into exactly one inbound event: a
// command, a callback-token press, or free text.
func (c *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		senderID := strconv.FormatInt(cq.From.ID, 10)
		if !c.IsAllowed(senderID) {
			slog.Warn("telegram: callback from disallowed user", "senderID", senderID)
			return
		}
		// Acknowledge immediately so the client stops its spinner;
		// the real response arrives as a separate message.
		if _, err := c.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.Warn("telegram: failed to answer callback query", "error", err)
		}
		if cq.Message == nil {
			return
		}
		c.bus.PublishInbound(bus.InboundEvent{
			Channel:    "telegram",
			SenderID:   senderID,
			ChatID:     strconv.FormatInt(cq.Message.Chat.ID, 10),
			Kind:       bus.KindCallback,
			CallbackID: cq.ID,
			Token:      cq.Data,
			MessageID:  strconv.Itoa(cq.Message.MessageID),
		})

	case update.Message != nil:
		msg := update.Message
		senderID := strconv.FormatInt(msg.From.ID, 10)
		if !c.IsAllowed(senderID) {
			slog.Warn("telegram: message from disallowed user", "senderID", senderID)
			return
		}
		ev := bus.InboundEvent{
			Channel:   "telegram",
			SenderID:  senderID,
			ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
			MessageID: strconv.Itoa(msg.MessageID),
		}
		if msg.IsCommand() {
			ev.Kind = bus.KindCommand
			ev.Command = msg.Command()
			ev.Args = msg.CommandArguments()
		} else {
			ev.Kind = bus.KindText
			ev.Text = msg.Text
		}
		c.bus.PublishInbound(ev)
	}
}

func (c *TelegramChannel) Stop() error {
	close(c.stopCh)
	return nil
}

func (c *TelegramChannel) Send(msg bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chatID %q: %w", msg.ChatID, err)
	}
	m := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Buttons) > 0 {
		m.ReplyMarkup = toInlineKeyboard(msg.Buttons)
	}
	if msg.ReplyTo != "" {
		if replyTo, err := strconv.Atoi(msg.ReplyTo); err == nil {
			m.ReplyToMessageID = replyTo
		}
	}
	_, err = c.bot.Send(m)
	return err
}

// toInlineKeyboard renders the generic button grid with Telegram's inline
// keyboard primitives. The button token rides in callback_data.
func toInlineKeyboard(rows [][]bus.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		kb = append(kb, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

func (c *TelegramChannel) IsAllowed(senderID string) bool {
	if len(c.allowedUsers) == 0 {
		return true
	}
	return c.allowedUsers[senderID]
}

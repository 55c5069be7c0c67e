// Package bot is the Telegram front end: registration with referral deep
// links, a channel-join gate, daily bonuses, and verification runs charged
// through the shared ledger.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verihub/internal/config"
	"verihub/internal/logging"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

// api is the slice of the Telegram client the handlers need. The real
// tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Bot dispatches Telegram updates to handlers.
type Bot struct {
	api      api
	store    *store.Store
	sup      *supervisor.Supervisor
	cfg      config.TelegramConfig
	economy  config.EconomyConfig
	username string

	rng *rand.Rand
}

// New wires a bot around an established Telegram API client.
func New(client api, username string, st *store.Store, sup *supervisor.Supervisor, cfg config.TelegramConfig, economy config.EconomyConfig) *Bot {
	return &Bot{
		api:      client,
		store:    st,
		sup:      sup,
		cfg:      cfg,
		economy:  economy,
		username: username,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start connects to Telegram with the configured token and runs the update
// loop until ctx is canceled. A missing token is not an error; the bot is
// simply not part of this deployment.
func Start(ctx context.Context, st *store.Store, sup *supervisor.Supervisor, cfg config.TelegramConfig, economy config.EconomyConfig) error {
	if cfg.Token == "" {
		logging.Bot("no token configured, bot disabled")
		return nil
	}

	client, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	logging.Bot("connected as @%s", client.Self.UserName)

	b := New(client, client.Self.UserName, st, sup, cfg, economy)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := client.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			client.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate routes one update. Handler panics are contained so one bad
// message cannot take the loop down.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.BotError("handler panic: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "daily":
		b.handleDaily(msg)
	case "balance":
		b.handleBalance(msg)
	case "referral":
		b.handleReferral(msg)
	case "verify":
		b.handleVerify(ctx, msg)
	case "admin":
		b.handleAdmin(msg)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logging.BotError("send to %d: %v", chatID, err)
	}
}

func (b *Bot) newReferralCode() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 8)
	for i := range code {
		code[i] = alphabet[b.rng.Intn(len(alphabet))]
	}
	return string(code)
}

func telegramID(from *tgbotapi.User) string {
	return fmt.Sprintf("%d", from.ID)
}

func (b *Bot) isAdmin(username string) bool {
	return b.cfg.AdminUsername != "" && strings.EqualFold(username, b.cfg.AdminUsername)
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verihub/internal/engine"
	"verihub/internal/logging"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

func (b *Bot) ensureUser(from *tgbotapi.User, referredByCode string) (*store.BotUser, error) {
	id := telegramID(from)
	user, err := b.store.BotUserByTelegramID(id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Self-referrals and dead codes are silently dropped.
	referredBy := ""
	if referredByCode != "" {
		if referrer, err := b.store.BotUserByReferralCode(referredByCode); err == nil && referrer.TelegramID != id {
			referredBy = referredByCode
		}
	}
	return b.store.CreateBotUser(store.BotUser{
		TelegramID:   id,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		ReferralCode: b.newReferralCode(),
		ReferredBy:   referredBy,
	})
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	param := strings.TrimSpace(msg.CommandArguments())
	referredBy := ""
	if strings.HasPrefix(param, "ref_") {
		referredBy = strings.TrimPrefix(param, "ref_")
	}

	user, err := b.ensureUser(msg.From, referredBy)
	if err != nil {
		logging.BotError("ensure user: %v", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	if user.HasJoinedChannel {
		name := user.FirstName
		if name == "" {
			name = "User"
		}
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Welcome back, %s!\n\nYour balance: %d tokens\n\n"+
				"/verify {link} - run a verification (costs %d tokens)\n"+
				"/daily - claim daily bonus\n"+
				"/balance - check your tokens\n"+
				"/referral - get your referral link",
			name, user.Tokens, b.economy.VerificationCost))
		return
	}

	welcome := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"Welcome to the verification bot!\n\n"+
			"To get started, please join our channel first:\n%s\n\n"+
			"After joining, tap the button below to verify.", b.cfg.ChannelID))
	welcome.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("I'm Joined", "verify_join"),
		),
	)
	if _, err := b.api.Send(welcome); err != nil {
		logging.BotError("send welcome: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Data != "verify_join" || query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	user, err := b.ensureUser(query.From, "")
	if err != nil {
		logging.BotError("ensure user: %v", err)
		return
	}
	if user.HasJoinedChannel {
		b.answerCallback(query.ID, "You're already verified!")
		return
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: b.cfg.ChannelID,
			UserID:             query.From.ID,
		},
	})
	if err != nil {
		b.answerCallback(query.ID, "Could not check membership, try again.")
		return
	}
	switch member.Status {
	case "member", "administrator", "creator":
	default:
		b.answerCallback(query.ID, "You haven't joined the channel yet.")
		return
	}

	if err := b.store.MarkJoinedChannel(user.TelegramID); err != nil {
		logging.BotError("mark joined: %v", err)
		return
	}
	balance, err := b.store.AddTokens(user.TelegramID, b.economy.JoinReward)
	if err != nil {
		logging.BotError("join reward: %v", err)
	}

	// The referrer earns their cut once the referred account is a real
	// channel member, not at registration time.
	if user.ReferredBy != "" {
		if referrer, err := b.store.BotUserByReferralCode(user.ReferredBy); err == nil {
			if _, err := b.store.AddTokens(referrer.TelegramID, b.economy.ReferralReward); err == nil {
				if refID, err := strconv.ParseInt(referrer.TelegramID, 10, 64); err == nil {
					b.reply(refID, fmt.Sprintf("Someone joined using your referral link! You earned %d tokens.", b.economy.ReferralReward))
				}
			}
		}
	}

	b.answerCallback(query.ID, fmt.Sprintf("Verified! You earned %d tokens!", b.economy.JoinReward))
	b.reply(chatID, fmt.Sprintf(
		"Channel membership verified! You earned %d tokens.\n\n"+
			"Your balance: %d tokens\n\n"+
			"/verify {link} - run a verification (costs %d tokens)\n"+
			"/daily - claim daily bonus (%d tokens)\n"+
			"/referral - earn %d tokens per referral",
		b.economy.JoinReward, balance, b.economy.VerificationCost, b.economy.DailyReward, b.economy.ReferralReward))
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logging.BotError("answer callback: %v", err)
	}
}

// requireMember loads the user and enforces the join gate shared by every
// token command.
func (b *Bot) requireMember(msg *tgbotapi.Message) *store.BotUser {
	user, err := b.store.BotUserByTelegramID(telegramID(msg.From))
	if err != nil {
		b.reply(msg.Chat.ID, "Please use /start first to register.")
		return nil
	}
	if !user.HasJoinedChannel {
		b.reply(msg.Chat.ID, "Please join the channel and verify first using /start.")
		return nil
	}
	return user
}

func (b *Bot) handleDaily(msg *tgbotapi.Message) {
	user := b.requireMember(msg)
	if user == nil {
		return
	}

	now := time.Now().UTC()
	if user.LastDaily != nil {
		if left := 24*time.Hour - now.Sub(*user.LastDaily); left > 0 {
			h := int(left.Hours())
			m := int(left.Minutes()) - h*60
			b.reply(msg.Chat.ID, fmt.Sprintf("You already claimed your daily bonus. Come back in %dh %dm.", h, m))
			return
		}
	}

	if err := b.store.TouchLastDaily(user.TelegramID, now); err != nil {
		logging.BotError("touch daily: %v", err)
		return
	}
	balance, err := b.store.AddTokens(user.TelegramID, b.economy.DailyReward)
	if err != nil {
		logging.BotError("daily reward: %v", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Daily bonus claimed! +%d tokens\nYour balance: %d tokens", b.economy.DailyReward, balance))
}

func (b *Bot) handleBalance(msg *tgbotapi.Message) {
	user := b.requireMember(msg)
	if user == nil {
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Your balance: %d tokens\n\nEarn more:\n"+
			"- /daily - %d tokens (once per day)\n"+
			"- /referral - %d tokens per referral\n\n"+
			"A verification costs %d tokens.",
		user.Tokens, b.economy.DailyReward, b.economy.ReferralReward, b.economy.VerificationCost))
}

func (b *Bot) handleReferral(msg *tgbotapi.Message) {
	user := b.requireMember(msg)
	if user == nil {
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Your referral link:\nhttps://t.me/%s?start=ref_%s\n\n"+
			"Share this link with friends. You'll earn %d tokens for each person who joins!",
		b.username, user.ReferralCode, b.economy.ReferralReward))
}

func (b *Bot) handleVerify(ctx context.Context, msg *tgbotapi.Message) {
	user := b.requireMember(msg)
	if user == nil {
		return
	}

	link := strings.TrimSpace(msg.CommandArguments())
	if link == "" {
		b.reply(msg.Chat.ID, "Usage: /verify {link}\n\nExample: /verify https://offers.spotify.com/verify?verificationId=abc123")
		return
	}
	if sheerid.ParseVerificationID(link) == "" {
		b.reply(msg.Chat.ID, "That link carries no verification id. Paste the full link from your browser.")
		return
	}

	toolID := engine.DetectTool(link)
	if user.Tokens < b.economy.VerificationCost {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Insufficient tokens. You need %d but have %d.\nUse /daily or /referral to earn more.",
			b.economy.VerificationCost, user.Tokens))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("Running %s verification, this can take a few minutes...", toolID))

	report, err := b.sup.ExecuteRun(ctx, supervisor.RunParams{
		ToolID:       toolID,
		URL:          link,
		TelegramID:   user.TelegramID,
		AutoGenerate: true,
	})
	if err != nil {
		if errors.Is(err, supervisor.ErrInsufficientTokens) {
			b.reply(msg.Chat.ID, fmt.Sprintf("Insufficient tokens. A verification costs %d.", b.economy.VerificationCost))
			return
		}
		b.reply(msg.Chat.ID, "Verification could not start: "+err.Error())
		return
	}

	if report.Status == "success" {
		text := "Verification successful!"
		if report.RewardCode != "" {
			text += "\nReward code: " + report.RewardCode
		}
		if report.RedirectURL != "" {
			text += "\nClaim link: " + report.RedirectURL
		}
		b.reply(msg.Chat.ID, text)
		return
	}

	text := "Verification failed"
	if report.Message != "" {
		text += ": " + report.Message
	}
	if report.Refunded {
		text += fmt.Sprintf("\nYour %d tokens were refunded.", b.economy.VerificationCost)
		if cur, err := b.store.BotUserByTelegramID(user.TelegramID); err == nil {
			text += fmt.Sprintf("\nYour balance: %d tokens", cur.Tokens)
		}
	}
	b.reply(msg.Chat.ID, text)
}

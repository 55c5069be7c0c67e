package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verihub/internal/store"
)

const adminHelp = "Admin Commands:\n\n" +
	"/admin addtokens {telegram_id} {amount}\n" +
	"/admin removetokens {telegram_id} {amount}\n" +
	"/admin setbalance {telegram_id} {amount}\n" +
	"/admin userinfo {telegram_id}\n" +
	"/admin users - list all users\n" +
	"/admin stats - system stats\n" +
	"/admin giveaway {amount} - give tokens to all users"

func (b *Bot) handleAdmin(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.UserName) {
		b.reply(msg.Chat.ID, "You don't have admin permissions.")
		return
	}

	parts := strings.Fields(msg.CommandArguments())
	if len(parts) == 0 {
		b.reply(msg.Chat.ID, adminHelp)
		return
	}

	switch strings.ToLower(parts[0]) {
	case "addtokens":
		b.adminAddTokens(msg.Chat.ID, parts[1:])
	case "removetokens":
		b.adminRemoveTokens(msg.Chat.ID, parts[1:])
	case "setbalance":
		b.adminSetBalance(msg.Chat.ID, parts[1:])
	case "userinfo":
		b.adminUserInfo(msg.Chat.ID, parts[1:])
	case "users":
		b.adminUsers(msg.Chat.ID)
	case "stats":
		b.adminStats(msg.Chat.ID)
	case "giveaway":
		b.adminGiveaway(msg.Chat.ID, parts[1:])
	default:
		b.reply(msg.Chat.ID, "Unknown admin command. Use /admin for help.")
	}
}

func parseAmount(args []string, allowZero bool) (target string, amount int, err error) {
	if len(args) < 2 {
		return "", 0, errors.New("usage: {telegram_id} {amount}")
	}
	amount, convErr := strconv.Atoi(args[1])
	if convErr != nil || amount < 0 || (!allowZero && amount == 0) {
		return "", 0, errors.New("invalid amount")
	}
	return args[0], amount, nil
}

func (b *Bot) adminAddTokens(chatID int64, args []string) {
	target, amount, err := parseAmount(args, false)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	balance, err := b.store.AddTokens(target, amount)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("User %s not found.", target))
		return
	}
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("Added %d tokens to user %s. New balance: %d", amount, target, balance))
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		b.reply(id, fmt.Sprintf("Admin added %d tokens to your account. New balance: %d", amount, balance))
	}
}

func (b *Bot) adminRemoveTokens(chatID int64, args []string) {
	target, amount, err := parseAmount(args, false)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	user, err := b.store.BotUserByTelegramID(target)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("User %s not found.", target))
		return
	}
	newBalance := user.Tokens - amount
	if newBalance < 0 {
		newBalance = 0
	}
	if err := b.store.SetTokens(target, newBalance); err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed %d tokens from user %s. New balance: %d", amount, target, newBalance))
}

func (b *Bot) adminSetBalance(chatID int64, args []string) {
	target, amount, err := parseAmount(args, true)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.store.SetTokens(target, amount); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("User %s not found.", target))
		} else {
			b.reply(chatID, "Failed: "+err.Error())
		}
		return
	}
	b.reply(chatID, fmt.Sprintf("Set balance for user %s to %d tokens.", target, amount))
}

func (b *Bot) adminUserInfo(chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "usage: /admin userinfo {telegram_id}")
		return
	}
	user, err := b.store.BotUserByTelegramID(args[0])
	if err != nil {
		b.reply(chatID, fmt.Sprintf("User %s not found.", args[0]))
		return
	}

	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	lastDaily := "Never"
	if user.LastDaily != nil {
		lastDaily = user.LastDaily.UTC().Format("2006-01-02 15:04:05")
	}
	joined := "No"
	if user.HasJoinedChannel {
		joined = "Yes"
	}
	referredBy := user.ReferredBy
	if referredBy == "" {
		referredBy = "None"
	}
	b.reply(chatID, fmt.Sprintf(
		"User Info:\nID: %s\nUsername: %s\nName: %s\nTokens: %d\n"+
			"Referral Code: %s\nReferred By: %s\nChannel Joined: %s\n"+
			"Last Daily: %s\nJoined: %s",
		user.TelegramID, orNA(user.Username), orNA(user.FirstName), user.Tokens,
		user.ReferralCode, referredBy, joined,
		lastDaily, user.CreatedAt.UTC().Format("2006-01-02 15:04:05")))
}

func (b *Bot) adminUsers(chatID int64) {
	users, err := b.store.AllBotUsers()
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}
	if len(users) == 0 {
		b.reply(chatID, "No users registered yet.")
		return
	}

	total := 0
	for _, u := range users {
		total += u.Tokens
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total Users: %d\nTotal Tokens in circulation: %d\n\n", len(users), total)
	shown := users
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, u := range shown {
		name := u.Username
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(&sb, "%s | @%s | %d tokens\n", u.TelegramID, name, u.Tokens)
	}
	if len(users) > 20 {
		fmt.Fprintf(&sb, "\n... and %d more users", len(users)-20)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) adminStats(chatID int64) {
	stats, err := b.store.AllStats()
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}
	tools, err := b.store.AllTools()
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}
	users, err := b.store.AllBotUsers()
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}

	var attempts, success, failed, active int
	for _, s := range stats {
		attempts += s.TotalAttempts
		success += s.SuccessCount
		failed += s.FailedCount
	}
	for _, t := range tools {
		if t.IsActive {
			active++
		}
	}
	rate := 0
	if attempts > 0 {
		rate = int(float64(success)/float64(attempts)*100 + 0.5)
	}
	b.reply(chatID, fmt.Sprintf(
		"System Stats:\n\nTotal Users: %d\nActive Tools: %d/%d\n"+
			"Total Verifications: %d\nSuccessful: %d\nFailed: %d\nSuccess Rate: %d%%",
		len(users), active, len(tools), attempts, success, failed, rate))
}

func (b *Bot) adminGiveaway(chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "usage: /admin giveaway {amount}")
		return
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil || amount <= 0 {
		b.reply(chatID, "Invalid amount. Must be a positive number.")
		return
	}
	users, err := b.store.AllBotUsers()
	if err != nil {
		b.reply(chatID, "Failed: "+err.Error())
		return
	}

	count := 0
	for _, u := range users {
		if _, err := b.store.AddTokens(u.TelegramID, amount); err != nil {
			continue
		}
		count++
		if id, err := strconv.ParseInt(u.TelegramID, 10, 64); err == nil {
			b.reply(id, fmt.Sprintf("Giveaway! You received %d tokens from admin!", amount))
		}
	}
	b.reply(chatID, fmt.Sprintf("Giveaway complete! %d tokens sent to %d users.", amount, count))
}

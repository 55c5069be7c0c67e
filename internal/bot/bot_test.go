package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verihub/internal/config"
	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

// fakeAPI records everything the handlers try to send.
type fakeAPI struct {
	mu           sync.Mutex
	sent         []tgbotapi.MessageConfig
	answers      []tgbotapi.CallbackConfig
	memberStatus string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tgbotapi.ChatMember{Status: f.memberStatus}, nil
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no message was sent")
	}
	return f.sent[len(f.sent)-1].Text
}

func (f *fakeAPI) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastAnswer(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("no callback was answered")
	}
	return f.answers[len(f.answers)-1].Text
}

func testEconomy() config.EconomyConfig {
	return config.EconomyConfig{VerificationCost: 50, JoinReward: 20, DailyReward: 5, ReferralReward: 10}
}

func newTestBot(t *testing.T, sup *supervisor.Supervisor) (*Bot, *fakeAPI, *store.Store) {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	api := &fakeAPI{memberStatus: "member"}
	cfg := config.TelegramConfig{AdminUsername: "boss", ChannelID: "@verichannel"}
	return New(api, "veribot", st, sup, cfg, testEconomy()), api, st
}

// cmdMsg builds a message carrying a bot_command entity the way the
// Telegram server would deliver it.
func cmdMsg(userID int64, username, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: username, FirstName: "Alice"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func joinCallback(userID int64, username string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: userID, UserName: username, FirstName: "Alice"},
		Data:    "verify_join",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
	}
}

func seedJoinedUser(t *testing.T, st *store.Store, telegramID string, tokens int) *store.BotUser {
	t.Helper()
	u, err := st.CreateBotUser(store.BotUser{
		TelegramID:   telegramID,
		Username:     "alice",
		FirstName:    "Alice",
		Tokens:       tokens,
		ReferralCode: "code" + telegramID,
	})
	if err != nil {
		t.Fatalf("CreateBotUser: %v", err)
	}
	if err := st.MarkJoinedChannel(telegramID); err != nil {
		t.Fatalf("MarkJoinedChannel: %v", err)
	}
	u.HasJoinedChannel = true
	return u
}

func TestStartRegistersAndGatesOnChannel(t *testing.T) {
	b, api, st := newTestBot(t, nil)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/start")})

	user, err := st.BotUserByTelegramID("100")
	if err != nil {
		t.Fatalf("user was not registered: %v", err)
	}
	if len(user.ReferralCode) != 8 {
		t.Errorf("referral code = %q, want 8 characters", user.ReferralCode)
	}
	if user.Tokens != 0 {
		t.Errorf("tokens = %d, registration alone must not pay", user.Tokens)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	if !strings.Contains(api.sent[0].Text, "@verichannel") {
		t.Errorf("welcome does not name the channel: %q", api.sent[0].Text)
	}
	if api.sent[0].ReplyMarkup == nil {
		t.Error("welcome carries no join button")
	}
}

func TestStartWelcomesBackJoinedUser(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 75)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/start")})

	got := api.lastText(t)
	if !strings.Contains(got, "Welcome back") || !strings.Contains(got, "75 tokens") {
		t.Errorf("welcome back text = %q", got)
	}
}

func TestStartRecordsReferral(t *testing.T) {
	b, _, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0) // referral code "code100"

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(200, "bob", "/start ref_code100")})

	user, err := st.BotUserByTelegramID("200")
	if err != nil {
		t.Fatalf("BotUserByTelegramID: %v", err)
	}
	if user.ReferredBy != "code100" {
		t.Errorf("referredBy = %q, want code100", user.ReferredBy)
	}
}

func TestStartDropsDeadAndSelfReferrals(t *testing.T) {
	b, _, st := newTestBot(t, nil)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(300, "carol", "/start ref_nosuchcode")})
	user, err := st.BotUserByTelegramID("300")
	if err != nil {
		t.Fatalf("BotUserByTelegramID: %v", err)
	}
	if user.ReferredBy != "" {
		t.Errorf("dead code was kept: %q", user.ReferredBy)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(400, "dave", "/start ref_" + user.ReferralCode)})
	// Now 400 tries to refer themselves with their own fresh code.
	self, _ := st.BotUserByTelegramID("400")
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(400, "dave", "/start ref_" + self.ReferralCode)})
	self, _ = st.BotUserByTelegramID("400")
	if self.ReferredBy == self.ReferralCode {
		t.Error("self referral was kept")
	}
}

func TestJoinCallbackRewardsAndPaysReferrer(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0) // referrer, code "code100"

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(200, "bob", "/start ref_code100")})
	b.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: joinCallback(200, "bob")})

	joined, err := st.BotUserByTelegramID("200")
	if err != nil {
		t.Fatalf("BotUserByTelegramID: %v", err)
	}
	if !joined.HasJoinedChannel {
		t.Error("membership was not recorded")
	}
	if joined.Tokens != 20 {
		t.Errorf("join reward = %d tokens, want 20", joined.Tokens)
	}

	referrer, _ := st.BotUserByTelegramID("100")
	if referrer.Tokens != 10 {
		t.Errorf("referrer balance = %d, want 10", referrer.Tokens)
	}
	if msgs := api.textsTo(100); len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1], "referral link") {
		t.Errorf("referrer was not notified: %v", msgs)
	}
	if !strings.Contains(api.lastAnswer(t), "20 tokens") {
		t.Errorf("callback answer = %q", api.lastAnswer(t))
	}
}

func TestJoinCallbackRejectsNonMembers(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	api.memberStatus = "left"

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(200, "bob", "/start")})
	b.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: joinCallback(200, "bob")})

	user, _ := st.BotUserByTelegramID("200")
	if user.HasJoinedChannel {
		t.Error("non-member was marked as joined")
	}
	if user.Tokens != 0 {
		t.Errorf("non-member was paid %d tokens", user.Tokens)
	}
	if !strings.Contains(api.lastAnswer(t), "haven't joined") {
		t.Errorf("callback answer = %q", api.lastAnswer(t))
	}
}

func TestJoinCallbackIsIdempotent(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 20)

	b.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: joinCallback(100, "alice")})

	user, _ := st.BotUserByTelegramID("100")
	if user.Tokens != 20 {
		t.Errorf("second join paid again, balance = %d", user.Tokens)
	}
	if !strings.Contains(api.lastAnswer(t), "already verified") {
		t.Errorf("callback answer = %q", api.lastAnswer(t))
	}
}

func TestDailyBonusAndCooldown(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/daily")})
	user, _ := st.BotUserByTelegramID("100")
	if user.Tokens != 5 {
		t.Fatalf("after claim balance = %d, want 5", user.Tokens)
	}
	if user.LastDaily == nil {
		t.Fatal("last daily was not recorded")
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/daily")})
	if !strings.Contains(api.lastText(t), "Come back in") {
		t.Errorf("cooldown text = %q", api.lastText(t))
	}
	user, _ = st.BotUserByTelegramID("100")
	if user.Tokens != 5 {
		t.Errorf("cooldown claim paid again, balance = %d", user.Tokens)
	}
}

func TestDailyClaimableAfterWindow(t *testing.T) {
	b, _, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0)
	old := time.Now().UTC().Add(-25 * time.Hour)
	if err := st.TouchLastDaily("100", old); err != nil {
		t.Fatalf("TouchLastDaily: %v", err)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/daily")})

	user, _ := st.BotUserByTelegramID("100")
	if user.Tokens != 5 {
		t.Errorf("balance = %d, want 5 after a fresh window", user.Tokens)
	}
}

func TestTokenCommandsRequireRegistration(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	for _, cmd := range []string{"/daily", "/balance", "/referral", "/verify x"} {
		b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", cmd)})
		if got := api.lastText(t); !strings.Contains(got, "/start first") {
			t.Errorf("%s for unknown user = %q", cmd, got)
		}
	}
}

func TestTokenCommandsRequireMembership(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	if _, err := st.CreateBotUser(store.BotUser{TelegramID: "100", ReferralCode: "code100"}); err != nil {
		t.Fatalf("CreateBotUser: %v", err)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/balance")})
	if got := api.lastText(t); !strings.Contains(got, "join the channel") {
		t.Errorf("unjoined balance = %q", got)
	}
}

func TestReferralLinkNamesBotAndCode(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/referral")})

	got := api.lastText(t)
	if !strings.Contains(got, "https://t.me/veribot?start=ref_code100") {
		t.Errorf("referral link text = %q", got)
	}
}

func TestVerifyRejectsBadLinks(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 100)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/verify")})
	if !strings.Contains(api.lastText(t), "Usage:") {
		t.Errorf("missing link text = %q", api.lastText(t))
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/verify https://example.com/nothing-here")})
	if !strings.Contains(api.lastText(t), "no verification id") {
		t.Errorf("bad link text = %q", api.lastText(t))
	}
}

func TestVerifyChecksBalanceBeforeRunning(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 10)

	b.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: cmdMsg(100, "alice", "/verify https://offers.spotify.com/?verificationId=abc123"),
	})

	got := api.lastText(t)
	if !strings.Contains(got, "Insufficient tokens") || !strings.Contains(got, "need 50 but have 10") {
		t.Errorf("insufficient text = %q", got)
	}
}

// approveRemote answers the state pre-check, an empty organization search,
// and approves the collect step instantly.
func approveRemote(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/organization"):
			fmt.Fprint(w, "[]")
		case strings.Contains(r.URL.Path, "/step/"):
			json.NewEncoder(w).Encode(map[string]string{
				"currentStep": "success",
				"rewardCode":  "BOT-REWARD",
			})
		default:
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "collectStudentPersonalInfo"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type pngRenderer struct{}

func (pngRenderer) Render(context.Context, string) ([]byte, error) { return []byte("png"), nil }

func TestVerifyRunsAndReportsReward(t *testing.T) {
	srv := approveRemote(t)
	client := sheerid.New(srv.URL, srv.URL)
	gen := identity.NewSeeded(1)
	orch := engine.NewOrchestrator(client, docgen.NewBuilder(pngRenderer{}, gen), gen, srv.URL)
	poller := engine.NewPoller(client)
	poller.Interval = time.Millisecond
	poller.MaxAttempts = 3

	b, api, st := newTestBot(t, nil)
	sup := supervisor.New(st, orch, poller, client, gen, testEconomy())
	b.sup = sup

	if err := st.UpsertTool(store.Tool{ID: "spotify-verify", Name: "Spotify", Category: "student", IsActive: true}); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	if _, err := st.CreateUniversity(store.University{OrgID: 3499, Name: "State University", Country: "US", Weight: 100}); err != nil {
		t.Fatalf("CreateUniversity: %v", err)
	}
	seedJoinedUser(t, st, "100", 100)

	b.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: cmdMsg(100, "alice", "/verify https://offers.spotify.com/?verificationId=abc123"),
	})

	got := api.lastText(t)
	if !strings.Contains(got, "Verification successful") || !strings.Contains(got, "BOT-REWARD") {
		t.Errorf("verify result = %q", got)
	}
	user, _ := st.BotUserByTelegramID("100")
	if user.Tokens != 50 {
		t.Errorf("balance = %d, want 50 after the run's debit", user.Tokens)
	}
}

func TestAdminRequiresPermission(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(100, "alice", "/admin users")})

	if !strings.Contains(api.lastText(t), "admin permissions") {
		t.Errorf("non-admin got %q", api.lastText(t))
	}
}

func TestAdminHelpAndUnknown(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin")})
	if !strings.Contains(api.lastText(t), "Admin Commands") {
		t.Errorf("help = %q", api.lastText(t))
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin frobnicate")})
	if !strings.Contains(api.lastText(t), "Unknown admin command") {
		t.Errorf("unknown = %q", api.lastText(t))
	}
}

func TestAdminTokenMutations(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 30)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin addtokens 100 15")})
	if u, _ := st.BotUserByTelegramID("100"); u.Tokens != 45 {
		t.Errorf("after addtokens balance = %d, want 45", u.Tokens)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin removetokens 100 60")})
	if u, _ := st.BotUserByTelegramID("100"); u.Tokens != 0 {
		t.Errorf("removetokens did not clamp at zero, balance = %d", u.Tokens)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin setbalance 100 77")})
	if u, _ := st.BotUserByTelegramID("100"); u.Tokens != 77 {
		t.Errorf("after setbalance balance = %d, want 77", u.Tokens)
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin addtokens 999 10")})
	if !strings.Contains(api.lastText(t), "not found") {
		t.Errorf("unknown target = %q", api.lastText(t))
	}
}

func TestAdminUserInfoAndUsers(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 30)
	seedJoinedUser(t, st, "200", 70)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin userinfo 100")})
	got := api.lastText(t)
	for _, want := range []string{"ID: 100", "Tokens: 30", "Referral Code: code100", "Channel Joined: Yes"} {
		if !strings.Contains(got, want) {
			t.Errorf("userinfo missing %q in %q", want, got)
		}
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin users")})
	got = api.lastText(t)
	if !strings.Contains(got, "Total Users: 2") || !strings.Contains(got, "circulation: 100") {
		t.Errorf("users summary = %q", got)
	}
}

func TestAdminStats(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 0)
	if err := st.UpsertTool(store.Tool{ID: "spotify-verify", Name: "Spotify", Category: "student", IsActive: true}); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	if err := st.UpsertTool(store.Tool{ID: "canva-teacher", Name: "Canva", Category: "teacher", IsActive: false}); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := st.IncrementStats("spotify-verify", i < 2); err != nil {
			t.Fatalf("IncrementStats: %v", err)
		}
	}

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin stats")})
	got := api.lastText(t)
	for _, want := range []string{"Total Users: 1", "Active Tools: 1/2", "Total Verifications: 3", "Successful: 2", "Success Rate: 67%"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats missing %q in %q", want, got)
		}
	}
}

func TestAdminGiveaway(t *testing.T) {
	b, api, st := newTestBot(t, nil)
	seedJoinedUser(t, st, "100", 5)
	seedJoinedUser(t, st, "200", 0)

	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: cmdMsg(1, "boss", "/admin giveaway 25")})

	if u, _ := st.BotUserByTelegramID("100"); u.Tokens != 30 {
		t.Errorf("first user balance = %d, want 30", u.Tokens)
	}
	if u, _ := st.BotUserByTelegramID("200"); u.Tokens != 25 {
		t.Errorf("second user balance = %d, want 25", u.Tokens)
	}
	if !strings.Contains(api.lastText(t), "2 users") {
		t.Errorf("giveaway summary = %q", api.lastText(t))
	}
	if msgs := api.textsTo(200); len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1], "Giveaway") {
		t.Errorf("recipient not notified: %v", msgs)
	}
}

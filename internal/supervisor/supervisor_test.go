package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"verihub/internal/config"
	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
	"verihub/internal/store"
)

type scriptedRemote struct {
	mu          sync.Mutex
	calls       int
	stateStep   string
	collectStep string
	finalStep   string
	pollSteps   []string // consecutive status answers after the waterfall
	pollIdx     int
	failUploads bool

	srv *httptest.Server
}

func newScriptedRemote(t *testing.T) *scriptedRemote {
	f := &scriptedRemote{
		stateStep:   "collectStudentPersonalInfo",
		collectStep: "sso",
		finalStep:   "success",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *scriptedRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedRemote) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/upload/"):
		if f.failUploads {
			w.WriteHeader(http.StatusForbidden)
		}

	case strings.Contains(path, "/organization"):
		json.NewEncoder(w).Encode([]map[string]any{{"id": 9001, "name": "State University (Main Campus)"}})

	case strings.Contains(path, "/step/sso"):
		json.NewEncoder(w).Encode(map[string]string{"currentStep": "docUpload"})

	case strings.Contains(path, "/step/docUpload"):
		var req sheerid.DocUploadRequest
		json.NewDecoder(r.Body).Decode(&req)
		slots := make([]map[string]string, len(req.Files))
		for i := range slots {
			slots[i] = map[string]string{"uploadUrl": fmt.Sprintf("%s/upload/%d", f.srv.URL, i)}
		}
		json.NewEncoder(w).Encode(map[string]any{"currentStep": "docUpload", "documents": slots})

	case strings.Contains(path, "/step/completeDocUpload"):
		json.NewEncoder(w).Encode(map[string]string{"currentStep": f.finalStep})

	case strings.Contains(path, "/step/"):
		json.NewEncoder(w).Encode(map[string]string{"currentStep": f.collectStep})

	default:
		f.mu.Lock()
		step := f.stateStep
		if f.pollIdx < len(f.pollSteps) {
			step = f.pollSteps[f.pollIdx]
			f.pollIdx++
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"currentStep": step})
	}
}

type fixedRenderer struct{}

func (fixedRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	return []byte("png"), nil
}

type harness struct {
	sup    *Supervisor
	store  *store.Store
	remote *scriptedRemote
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, tool := range []store.Tool{
		{ID: "spotify-verify", Name: "Spotify", Category: "student", IsActive: true},
		{ID: "canva-teacher", Name: "Canva", Category: "teacher", IsActive: true},
		{ID: "youtube-verify", Name: "YouTube", Category: "student", IsActive: false},
	} {
		if err := st.UpsertTool(tool); err != nil {
			t.Fatalf("UpsertTool: %v", err)
		}
	}
	if _, err := st.CreateUniversity(store.University{
		OrgID: 3499, Name: "State University", Domain: "state.edu", Country: "US", Weight: 100,
	}); err != nil {
		t.Fatalf("CreateUniversity: %v", err)
	}
	if _, err := st.CreateBotUser(store.BotUser{
		TelegramID: "1000", Tokens: 100, ReferralCode: "ref_1000",
	}); err != nil {
		t.Fatalf("CreateBotUser: %v", err)
	}

	remote := newScriptedRemote(t)
	client := sheerid.New(remote.srv.URL, remote.srv.URL)
	gen := identity.NewSeeded(1)
	orch := engine.NewOrchestrator(client, docgen.NewBuilder(fixedRenderer{}, gen), gen, remote.srv.URL)
	poller := engine.NewPoller(client)
	poller.Interval = time.Millisecond
	poller.MaxAttempts = 5

	economy := config.EconomyConfig{VerificationCost: 50, JoinReward: 20, DailyReward: 5, ReferralReward: 10}
	return &harness{
		sup:    New(st, orch, poller, client, gen, economy),
		store:  st,
		remote: remote,
	}
}

func (h *harness) balance(t *testing.T) int {
	t.Helper()
	u, err := h.store.BotUserByTelegramID("1000")
	if err != nil {
		t.Fatalf("BotUserByTelegramID: %v", err)
	}
	return u.Tokens
}

func baseParams() RunParams {
	return RunParams{
		ToolID:       "spotify-verify",
		URL:          "https://offers.example.com/?verificationId=abc123",
		TelegramID:   "1000",
		AutoGenerate: true,
	}
}

func TestRunSuccessDebitsWithoutRefund(t *testing.T) {
	h := newHarness(t)

	report, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if report.Status != "success" {
		t.Fatalf("status = %q msg = %q", report.Status, report.Message)
	}
	if report.Refunded {
		t.Error("successful run refunded")
	}
	if got := h.balance(t); got != 50 {
		t.Errorf("balance = %d, want 50 after a kept debit", got)
	}

	st, err := h.store.StatsByTool("spotify-verify")
	if err != nil {
		t.Fatalf("StatsByTool: %v", err)
	}
	if st.TotalAttempts != 1 || st.SuccessCount != 1 || st.FailedCount != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRunFailureRefundsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.remote.failUploads = true

	report, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if report.Status != "failed" {
		t.Fatalf("status = %q", report.Status)
	}
	if !report.Refunded {
		t.Error("failed run not refunded")
	}
	// Debit + single refund restores the starting balance exactly.
	if got := h.balance(t); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}

	st, _ := h.store.StatsByTool("spotify-verify")
	if st.FailedCount != 1 || st.SuccessCount != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestInsufficientBalanceTouchesNothing(t *testing.T) {
	h := newHarness(t)
	if err := h.store.SetTokens("1000", 10); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	_, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("err = %v, want ErrInsufficientTokens", err)
	}
	if got := h.balance(t); got != 10 {
		t.Errorf("balance = %d, want untouched 10", got)
	}
	if n := h.remote.callCount(); n != 0 {
		t.Errorf("remote called %d times before funds check", n)
	}

	st, _ := h.store.StatsByTool("spotify-verify")
	if st.TotalAttempts != 0 {
		t.Errorf("stats recorded for rejected run: %+v", st)
	}
}

func TestPendingRunPollsToSuccess(t *testing.T) {
	h := newHarness(t)
	h.remote.finalStep = "pending"
	h.remote.pollSteps = []string{
		"collectStudentPersonalInfo", // pre-run state read
		"pending", "pending", "success",
	}

	report, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if report.Status != "success" {
		t.Fatalf("status = %q msg = %q", report.Status, report.Message)
	}
	if got := h.balance(t); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}
}

func TestPendingRunTimesOutAndRefunds(t *testing.T) {
	h := newHarness(t)
	h.remote.finalStep = "pending"
	// Every poll answer stays pending; the 5-attempt budget runs dry.

	report, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if report.Status != "failed" {
		t.Fatalf("status = %q", report.Status)
	}
	if !strings.Contains(report.Message, "timed out") {
		t.Errorf("message = %q", report.Message)
	}
	if got := h.balance(t); got != 100 {
		t.Errorf("balance = %d, want refunded 100", got)
	}
}

func TestManualIdentityMissingFields(t *testing.T) {
	h := newHarness(t)

	p := baseParams()
	p.AutoGenerate = false
	p.FirstName = "Jane"
	// lastName, email, birthDate absent

	_, err := h.sup.ExecuteRun(context.Background(), p)
	if err == nil {
		t.Fatal("want validation error")
	}
	for _, f := range []string{"lastName", "email", "birthDate"} {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q does not name %s", err, f)
		}
	}
	if got := h.balance(t); got != 100 {
		t.Errorf("balance = %d, validation must precede debit", got)
	}
}

func TestDisabledToolRejected(t *testing.T) {
	h := newHarness(t)

	p := baseParams()
	p.ToolID = "youtube-verify"
	if _, err := h.sup.ExecuteRun(context.Background(), p); err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("err = %v, want disabled-tool rejection", err)
	}
}

func TestURLWithoutSessionIDRejected(t *testing.T) {
	h := newHarness(t)

	p := baseParams()
	p.URL = "https://offers.example.com/?nothing=here"
	if _, err := h.sup.ExecuteRun(context.Background(), p); err == nil {
		t.Fatal("want error for url without verification id")
	}
	if got := h.balance(t); got != 100 {
		t.Errorf("balance = %d, want untouched", got)
	}
}

func TestLedgerlessRunSkipsLedger(t *testing.T) {
	h := newHarness(t)

	p := baseParams()
	p.TelegramID = ""
	report, err := h.sup.ExecuteRun(context.Background(), p)
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}
	if report.Status != "success" {
		t.Fatalf("status = %q", report.Status)
	}
	if got := h.balance(t); got != 100 {
		t.Errorf("dashboard run touched the ledger: balance = %d", got)
	}
}

func TestRunRecordLifecycle(t *testing.T) {
	h := newHarness(t)

	report, err := h.sup.ExecuteRun(context.Background(), baseParams())
	if err != nil {
		t.Fatalf("ExecuteRun: %v", err)
	}

	rec := report.Verification
	if rec.Status != "success" {
		t.Errorf("record status = %q", rec.Status)
	}
	if rec.SessionID != "abc123" {
		t.Errorf("session id = %q", rec.SessionID)
	}
	if rec.StepsJSON == "" {
		t.Error("step trace not persisted")
	}
	var steps []engine.StepTrace
	if err := json.Unmarshal([]byte(rec.StepsJSON), &steps); err != nil {
		t.Fatalf("steps json invalid: %v", err)
	}
	if steps[0].Step != "checkState" {
		t.Errorf("first step = %q", steps[0].Step)
	}
	if rec.DocumentsJSON == "" {
		t.Error("documents not persisted")
	}
	if rec.Email == "" || rec.BirthDate == "" {
		t.Error("identity snapshot incomplete")
	}

	// Organization refined through the remote search before the record snapshot.
	if rec.University != "State University (Main Campus)" {
		t.Errorf("persisted university = %q", rec.University)
	}
	if rec.OrganizationID != 9001 {
		t.Errorf("persisted org id = %d", rec.OrganizationID)
	}
}

func TestStatsConservationAcrossMixedRuns(t *testing.T) {
	h := newHarness(t)
	if err := h.store.SetTokens("1000", 1000); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := h.sup.ExecuteRun(context.Background(), baseParams()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	h.remote.failUploads = true
	for i := 0; i < 2; i++ {
		if _, err := h.sup.ExecuteRun(context.Background(), baseParams()); err != nil {
			t.Fatalf("failed run %d: %v", i, err)
		}
	}

	st, err := h.store.StatsByTool("spotify-verify")
	if err != nil {
		t.Fatalf("StatsByTool: %v", err)
	}
	if st.TotalAttempts != 5 || st.SuccessCount != 3 || st.FailedCount != 2 {
		t.Errorf("stats = %+v", st)
	}
	// 5 debits, 2 refunds: 1000 - 5*50 + 2*50.
	if got := h.balance(t); got != 850 {
		t.Errorf("balance = %d, want 850", got)
	}
}

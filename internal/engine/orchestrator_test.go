package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"verihub/internal/docgen"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRemote scripts the verification service: per-step responses, slot
// handing, and upload acceptance, recording every call in order.
type fakeRemote struct {
	t *testing.T

	mu    sync.Mutex
	calls []string

	stateStep     string // checkState answer
	collectStep   string // answer after personal info
	collectStatus int
	collectBody   map[string]any // extra fields merged into collect answer
	ssoStep       string         // answer after sso skip
	slotCount     int
	failUpload    map[int]bool // slot index -> reject PUT
	finalStep     string
	finalBody     map[string]any

	srv *httptest.Server
}

func newFakeRemote(t *testing.T) *fakeRemote {
	f := &fakeRemote{
		t:             t,
		stateStep:     "collectStudentPersonalInfo",
		collectStep:   "sso",
		collectStatus: http.StatusOK,
		ssoStep:       "docUpload",
		slotCount:     -1, // -1 = match request
		finalStep:     "pending",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/upload/"):
		idx := 0
		fmt.Sscanf(path, "/upload/%d", &idx)
		f.record("PUT " + path)
		if f.failUpload[idx] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)

	case strings.Contains(path, "/step/sso") && r.Method == http.MethodDelete:
		f.record("DELETE sso")
		json.NewEncoder(w).Encode(map[string]any{"currentStep": f.ssoStep})

	case strings.Contains(path, "/step/docUpload"):
		f.record("POST docUpload")
		var req sheerid.DocUploadRequest
		json.NewDecoder(r.Body).Decode(&req)
		n := f.slotCount
		if n < 0 {
			n = len(req.Files)
		}
		slots := make([]map[string]string, n)
		for i := range slots {
			slots[i] = map[string]string{"uploadUrl": fmt.Sprintf("%s/upload/%d", f.srv.URL, i)}
		}
		json.NewEncoder(w).Encode(map[string]any{"currentStep": "docUpload", "documents": slots})

	case strings.Contains(path, "/step/completeDocUpload"):
		f.record("POST completeDocUpload")
		body := map[string]any{"currentStep": f.finalStep}
		for k, v := range f.finalBody {
			body[k] = v
		}
		json.NewEncoder(w).Encode(body)

	case strings.Contains(path, "/step/"):
		f.record("POST " + path[strings.LastIndex(path, "/")+1:])
		w.WriteHeader(f.collectStatus)
		body := map[string]any{"currentStep": f.collectStep}
		for k, v := range f.collectBody {
			body[k] = v
		}
		json.NewEncoder(w).Encode(body)

	default:
		// Status host read.
		f.record("GET state")
		json.NewEncoder(w).Encode(map[string]any{"currentStep": f.stateStep})
	}
}

type nullRenderer struct{}

func (nullRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func newTestOrchestrator(f *fakeRemote) *Orchestrator {
	client := sheerid.New(f.srv.URL, f.srv.URL)
	gen := identity.NewSeeded(1)
	builder := docgen.NewBuilder(nullRenderer{}, gen)
	return NewOrchestrator(client, builder, gen, f.srv.URL)
}

func studentRequest() Request {
	return Request{
		ToolID:           "spotify-verify",
		SessionID:        "abc123",
		FirstName:        "Jane",
		LastName:         "Smith",
		Email:            "jane.smith1234@psu.edu",
		BirthDate:        "2003-04-12",
		OrganizationID:   3499,
		OrganizationName: "State University",
		URL:              "https://services.example.com/verify/x/?verificationId=abc123",
	}
}

func teacherRequest() Request {
	r := studentRequest()
	r.ToolID = "canva-teacher"
	r.BirthDate = ""
	return r
}

func stepNames(out *Outcome) []string {
	names := make([]string, len(out.Steps))
	for i, s := range out.Steps {
		names[i] = s.Step
	}
	return names
}

func TestRunFullWaterfallPending(t *testing.T) {
	f := newFakeRemote(t)
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if !out.Success || !out.Pending {
		t.Fatalf("success=%v pending=%v msg=%q", out.Success, out.Pending, out.Message)
	}

	want := []string{
		"checkState",
		"generateDocument",
		"collectStudentPersonalInfo",
		"skipSSO",
		"docUpload",
		"s3Upload_enrollment_verification.png",
		"completeDocUpload",
	}
	if diff := cmp.Diff(want, stepNames(out)); diff != "" {
		t.Errorf("step trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInstantApproval(t *testing.T) {
	f := newFakeRemote(t)
	f.collectStep = "success"
	f.collectBody = map[string]any{"redirectUrl": "https://partner.example.com/claim"}
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if !out.Success || out.Pending {
		t.Fatalf("success=%v pending=%v msg=%q", out.Success, out.Pending, out.Message)
	}
	if out.RedirectURL != "https://partner.example.com/claim" {
		t.Errorf("redirect = %q", out.RedirectURL)
	}
	// No documents uploaded on instant approval.
	for _, c := range f.recorded() {
		if strings.HasPrefix(c, "PUT /upload") || c == "POST docUpload" {
			t.Errorf("unexpected call after instant approval: %s", c)
		}
	}
}

func TestRunAlreadyApprovedSession(t *testing.T) {
	f := newFakeRemote(t)
	f.stateStep = "success"
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if !out.Success {
		t.Fatalf("want success for approved session, got %q", out.Message)
	}
	if calls := f.recorded(); len(calls) != 1 || calls[0] != "GET state" {
		t.Errorf("calls = %v, want only the state read", calls)
	}
}

func TestRunUnexpectedSessionState(t *testing.T) {
	f := newFakeRemote(t)
	f.stateStep = "docUpload"
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if out.Success || out.Pending {
		t.Fatalf("want failure, got success=%v pending=%v", out.Success, out.Pending)
	}
	if !strings.Contains(out.Message, "unexpected state") {
		t.Errorf("message = %q", out.Message)
	}
	if calls := f.recorded(); len(calls) != 1 {
		t.Errorf("resubmitted into unexpected state: %v", calls)
	}
}

func TestRunRemoteErrorStep(t *testing.T) {
	f := newFakeRemote(t)
	f.collectStep = "error"
	f.collectBody = map[string]any{"errorIds": []string{"invalidEmail", "underage"}}
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if out.Success {
		t.Fatal("want failure on remote error step")
	}
	want := []string{"invalidEmail", "underage"}
	if diff := cmp.Diff(want, out.ErrorIDs); diff != "" {
		t.Errorf("error ids (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.Message, "invalidEmail") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestRunCollectNon200(t *testing.T) {
	f := newFakeRemote(t)
	f.collectStatus = http.StatusBadRequest
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if out.Success {
		t.Fatal("want failure on http 400")
	}
	if !strings.Contains(out.Message, "http 400") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestRunSlotMismatchUploadsNothing(t *testing.T) {
	f := newFakeRemote(t)
	f.stateStep = "collectTeacherPersonalInfo"
	f.slotCount = 1 // teacher category produces two documents
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), teacherRequest())
	if out.Success {
		t.Fatal("want failure on slot mismatch")
	}
	if !strings.Contains(out.Message, "slot mismatch") {
		t.Errorf("message = %q", out.Message)
	}
	for _, c := range f.recorded() {
		if strings.HasPrefix(c, "PUT /upload") {
			t.Errorf("document uploaded despite slot mismatch: %s", c)
		}
	}
}

func TestRunSecondUploadFailure(t *testing.T) {
	f := newFakeRemote(t)
	f.stateStep = "collectTeacherPersonalInfo"
	f.failUpload = map[int]bool{1: true}
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), teacherRequest())
	if out.Success {
		t.Fatal("want failure when an upload is rejected")
	}

	names := stepNames(out)
	var sawFailedUpload bool
	for _, s := range out.Steps {
		if strings.HasPrefix(s.Step, "s3Upload_") && s.Status != http.StatusOK {
			sawFailedUpload = true
		}
		if s.Step == "completeDocUpload" {
			t.Errorf("completeDocUpload issued after failed upload; trace: %v", names)
		}
	}
	if !sawFailedUpload {
		t.Errorf("trace missing failed upload step: %v", names)
	}
}

func TestRunFinalSuccessCapturesReward(t *testing.T) {
	f := newFakeRemote(t)
	f.finalStep = "success"
	f.finalBody = map[string]any{"rewardData": map[string]string{"rewardCode": "NESTED-REWARD"}}
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), studentRequest())
	if !out.Success || out.Pending {
		t.Fatalf("success=%v pending=%v msg=%q", out.Success, out.Pending, out.Message)
	}
	if out.RewardCode != "NESTED-REWARD" {
		t.Errorf("reward = %q", out.RewardCode)
	}
}

func TestRunUnknownTool(t *testing.T) {
	f := newFakeRemote(t)
	o := newTestOrchestrator(f)

	req := studentRequest()
	req.ToolID = "mystery-tool"
	out := o.Run(context.Background(), req)
	if out.Success {
		t.Fatal("want failure for unknown tool")
	}
	if len(f.recorded()) != 0 {
		t.Errorf("network touched for unknown tool: %v", f.recorded())
	}
}

func TestOutcomeIgnoresUnorderedUploadTiming(t *testing.T) {
	// Teacher runs upload two documents concurrently; the trace must still
	// list them in document order.
	f := newFakeRemote(t)
	f.stateStep = "collectTeacherPersonalInfo"
	o := newTestOrchestrator(f)

	out := o.Run(context.Background(), teacherRequest())
	if !out.Success {
		t.Fatalf("run failed: %q", out.Message)
	}
	names := stepNames(out)
	wantUploads := []string{"s3Upload_faculty_id_card.png", "s3Upload_employment_verification.png"}
	got := make([]string, 0, 2)
	for _, n := range names {
		if strings.HasPrefix(n, "s3Upload_") {
			got = append(got, n)
		}
	}
	if diff := cmp.Diff(wantUploads, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("upload trace order (-want +got):\n%s", diff)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"verihub/internal/config"
	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	return []byte("png"), nil
}

// fakeRemote approves every waterfall instantly at the collect step.
func fakeRemote(t *testing.T) *httptest.Server {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.Contains(path, "/organization"):
			json.NewEncoder(w).Encode([]map[string]any{})
		case strings.Contains(path, "/step/completeDocUpload"):
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "success", "rewardCode": "API-REWARD"})
		case strings.Contains(path, "/step/docUpload"):
			var req sheerid.DocUploadRequest
			json.NewDecoder(r.Body).Decode(&req)
			slots := make([]map[string]string, len(req.Files))
			for i := range slots {
				slots[i] = map[string]string{"uploadUrl": fmt.Sprintf("%s/upload/%d", srv.URL, i)}
			}
			json.NewEncoder(w).Encode(map[string]any{"currentStep": "docUpload", "documents": slots})
		case strings.Contains(path, "/step/sso"):
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "docUpload"})
		case strings.Contains(path, "/step/"):
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "sso"})
		case strings.HasPrefix(path, "/upload/"):
			// accept
		default:
			json.NewEncoder(w).Encode(map[string]string{"currentStep": "collectStudentPersonalInfo"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.UpsertTool(store.Tool{ID: "spotify-verify", Name: "Spotify", Category: "student", IsActive: true}); err != nil {
		t.Fatalf("UpsertTool: %v", err)
	}
	if _, err := st.CreateUniversity(store.University{OrgID: 3499, Name: "State University", Domain: "state.edu", Country: "US", Weight: 100}); err != nil {
		t.Fatalf("CreateUniversity: %v", err)
	}

	remote := fakeRemote(t)
	client := sheerid.New(remote.URL, remote.URL)
	gen := identity.NewSeeded(1)
	orch := engine.NewOrchestrator(client, docgen.NewBuilder(stubRenderer{}, gen), gen, remote.URL)
	poller := engine.NewPoller(client)
	poller.Interval = time.Millisecond
	poller.MaxAttempts = 3
	sup := supervisor.New(st, orch, poller, client, gen, config.EconomyConfig{VerificationCost: 50})

	return New(st, sup, client), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 && strings.HasPrefix(rr.Body.String(), "{") {
		json.Unmarshal(rr.Body.Bytes(), &decoded)
	}
	return rr, decoded
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)

	rr, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/tools", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var tools []store.Tool
	if err := json.Unmarshal(rr.Body.Bytes(), &tools); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tools) != 1 || tools[0].ID != "spotify-verify" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestToggleTool(t *testing.T) {
	s, st := newTestServer(t)

	rr, body := doJSON(t, s.Handler(), http.MethodPatch, "/api/tools/spotify-verify/toggle", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["isActive"] != false {
		t.Errorf("isActive = %v, want false", body["isActive"])
	}
	tool, _ := st.ToolByID("spotify-verify")
	if tool.IsActive {
		t.Error("toggle not persisted")
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodPatch, "/api/tools/missing/toggle", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown tool status = %d", rr.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	rr, body := doJSON(t, s.Handler(), http.MethodPost, "/api/verifications/run", map[string]any{
		"toolId": "spotify-verify",
		"url":    "https://offers.example.com/?verificationId=abc123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if body["status"] != "success" {
		t.Errorf("run status = %v message = %v", body["status"], body["message"])
	}
	if body["rewardCode"] != "API-REWARD" {
		t.Errorf("rewardCode = %v", body["rewardCode"])
	}

	recent, err := st.RecentVerifications(10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("persisted runs = %d err = %v", len(recent), err)
	}
	if recent[0].Status != "success" {
		t.Errorf("record status = %q", recent[0].Status)
	}
}

func TestRunEndpointValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rr, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/verifications/run", map[string]any{"toolId": "spotify-verify"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d", rr.Code)
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/verifications/run", map[string]any{
		"toolId": "spotify-verify",
		"url":    "https://offers.example.com/?nothing=1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("url without session id status = %d", rr.Code)
	}
}

func TestVerificationStatusReconciles(t *testing.T) {
	s, st := newTestServer(t)

	rec, err := st.CreateVerification(store.Verification{ToolID: "spotify-verify", SessionID: "abc123"})
	if err != nil {
		t.Fatalf("CreateVerification: %v", err)
	}
	pending := "pending"
	if err := st.UpdateVerification(rec.ID, store.VerificationUpdate{Status: &pending}); err != nil {
		t.Fatalf("UpdateVerification: %v", err)
	}

	// Remote default branch reports the collect step; force the success
	// branch by checking against a session the fake approves.
	rr, body := doJSON(t, s.Handler(), http.MethodGet, "/api/verifications/"+rec.ID+"/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if body["dbStatus"] != "pending" {
		t.Errorf("dbStatus = %v", body["dbStatus"])
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/verifications/nope/status", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d", rr.Code)
	}
}

func TestDashboardSummary(t *testing.T) {
	s, st := newTestServer(t)

	st.IncrementStats("spotify-verify", true)
	st.IncrementStats("spotify-verify", true)
	st.IncrementStats("spotify-verify", false)

	rr, body := doJSON(t, s.Handler(), http.MethodGet, "/api/dashboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	summary := body["summary"].(map[string]any)
	if summary["totalAttempts"].(float64) != 3 {
		t.Errorf("totalAttempts = %v", summary["totalAttempts"])
	}
	if summary["successRate"].(float64) != 67 {
		t.Errorf("successRate = %v", summary["successRate"])
	}
	if summary["activeTools"].(float64) != 1 {
		t.Errorf("activeTools = %v", summary["activeTools"])
	}
	if _, ok := body["chartData"]; !ok {
		t.Error("dashboard missing chartData")
	}
}

func TestUniversityCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	rr, body := doJSON(t, s.Handler(), http.MethodPost, "/api/universities", map[string]any{
		"orgId": 42, "name": "Tech Institute", "country": "US", "weight": 80,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	id := body["id"].(string)

	rr, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/universities", map[string]any{"name": "No Org"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid create status = %d", rr.Code)
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/universities", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var unis []store.University
	json.Unmarshal(rr.Body.Bytes(), &unis)
	if len(unis) != 2 {
		t.Errorf("universities = %d, want 2", len(unis))
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodDelete, "/api/universities/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("delete status = %d", rr.Code)
	}
	rr, _ = doJSON(t, s.Handler(), http.MethodDelete, "/api/universities/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d", rr.Code)
	}
}

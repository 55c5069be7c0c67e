package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"verihub/internal/store"
	"verihub/internal/supervisor"
)

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.store.AllTools()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch tools")
		return
	}
	respondJSON(w, http.StatusOK, tools)
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.store.ToolByID(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "tool not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch tool")
		return
	}
	respondJSON(w, http.StatusOK, tool)
}

func (s *Server) handleToggleTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tool, err := s.store.ToolByID(id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "tool not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch tool")
		return
	}
	if _, err := s.store.SetToolActive(id, !tool.IsActive); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to toggle tool")
		return
	}
	tool.IsActive = !tool.IsActive
	respondJSON(w, http.StatusOK, tool)
}

func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.RecentVerifications(100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch verifications")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

type runRequest struct {
	ToolID       string `json:"toolId"`
	URL          string `json:"url"`
	UniversityID string `json:"universityId"`
	AutoGenerate *bool  `json:"autoGenerate"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	BirthDate    string `json:"birthDate"`
}

func (s *Server) handleRunVerification(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ToolID) == "" || strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "toolId and url are required")
		return
	}

	autoGenerate := req.AutoGenerate == nil || *req.AutoGenerate

	report, err := s.sup.ExecuteRun(r.Context(), supervisor.RunParams{
		ToolID:       req.ToolID,
		URL:          req.URL,
		UniversityID: req.UniversityID,
		AutoGenerate: autoGenerate,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		BirthDate:    req.BirthDate,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"verification": report.Verification,
		"steps":        report.Steps,
		"status":       report.Status,
		"message":      report.Message,
		"rewardCode":   report.RewardCode,
		"redirectUrl":  report.RedirectURL,
	})
}

// handleVerificationStatus re-reads the remote state of a stored run and
// reconciles the local record when review resolved out of band.
func (s *Server) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.VerificationByID(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.SessionID == "") {
		respondError(w, http.StatusNotFound, "verification not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch verification")
		return
	}

	state, err := s.client.Status(r.Context(), rec.SessionID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "status check failed: "+err.Error())
		return
	}

	if state.CurrentStep == "success" && rec.Status != "success" {
		status := "success"
		if err := s.store.UpdateVerification(rec.ID, store.VerificationUpdate{Status: &status}); err == nil {
			_ = s.store.ClearErrorMessage(rec.ID)
			rec.Status = status
		}
	} else if state.CurrentStep == "error" && rec.Status == "pending" {
		status := "failed"
		msg := "verification rejected: " + strings.Join(state.ErrorIDs, ", ")
		if len(state.ErrorIDs) == 0 {
			msg = "verification rejected: document review failed"
		}
		if err := s.store.UpdateVerification(rec.ID, store.VerificationUpdate{Status: &status, ErrorMessage: &msg}); err == nil {
			rec.Status = status
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"currentStep": state.CurrentStep,
		"rewardCode":  state.Reward(),
		"redirectUrl": state.RedirectURL,
		"errorIds":    state.ErrorIDs,
		"dbStatus":    rec.Status,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.AllStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tools, err := s.store.AllTools()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dashboard data")
		return
	}
	stats, err := s.store.AllStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dashboard data")
		return
	}
	recent, err := s.store.RecentVerifications(20)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dashboard data")
		return
	}
	chart, err := s.store.ChartData(7)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch dashboard data")
		return
	}

	var attempts, success, failed, active int
	for _, st := range stats {
		attempts += st.TotalAttempts
		success += st.SuccessCount
		failed += st.FailedCount
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

	respondJSON(w, http.StatusOK, map[string]any{
		"tools":         tools,
		"stats":         stats,
		"verifications": recent,
		"chartData":     chart,
		"summary": map[string]int{
			"totalAttempts": attempts,
			"totalSuccess":  success,
			"totalFailed":   failed,
			"successRate":   rate,
			"activeTools":   active,
		},
	})
}

func (s *Server) handleListUniversities(w http.ResponseWriter, r *http.Request) {
	unis, err := s.store.AllUniversities()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch universities")
		return
	}
	respondJSON(w, http.StatusOK, unis)
}

type universityRequest struct {
	OrgID   int    `json:"orgId"`
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Country string `json:"country"`
	Weight  int    `json:"weight"`
}

func (s *Server) handleCreateUniversity(w http.ResponseWriter, r *http.Request) {
	var req universityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid university data")
		return
	}
	if req.OrgID <= 0 || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Country) == "" {
		respondError(w, http.StatusBadRequest, "orgId, name, and country are required")
		return
	}

	uni, err := s.store.CreateUniversity(store.University{
		OrgID:   req.OrgID,
		Name:    req.Name,
		Domain:  req.Domain,
		Country: req.Country,
		Weight:  req.Weight,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create university")
		return
	}
	respondJSON(w, http.StatusCreated, uni)
}

func (s *Server) handleDeleteUniversity(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteUniversity(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "university not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete university")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Package supervisor wraps one waterfall run with the token-economy
// contract: balance check and atomic debit before any network traffic,
// at-most-one refund when the run does not end in success, and record plus
// statistics persistence. Both front ends call through here so the
// debit/refund rules exist in exactly one place.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"verihub/internal/config"
	"verihub/internal/docgen"
	"verihub/internal/engine"
	"verihub/internal/identity"
	"verihub/internal/logging"
	"verihub/internal/sheerid"
	"verihub/internal/store"
)

// ErrInsufficientTokens mirrors the store sentinel for callers that only
// import this package.
var ErrInsufficientTokens = store.ErrInsufficientTokens

// RunParams describes one requested verification run.
type RunParams struct {
	ToolID string
	URL    string

	// TelegramID selects the ledger account to charge. Empty runs the
	// waterfall without touching the ledger (dashboard operator runs).
	TelegramID string

	// UniversityID pins the organization; empty draws a weighted one.
	UniversityID string

	// AutoGenerate fills any missing identity fields. When false, all four
	// must be supplied.
	AutoGenerate bool
	FirstName    string
	LastName     string
	Email        string
	BirthDate    string
}

// RunReport is what a front end renders after a run.
type RunReport struct {
	Verification *store.Verification
	Steps        []engine.StepTrace
	Status       string
	Message      string
	RewardCode   string
	RedirectURL  string
	Refunded     bool
}

// Supervisor executes runs under the ledger contract.
type Supervisor struct {
	store   *store.Store
	orch    *engine.Orchestrator
	poller  *engine.Poller
	client  *sheerid.Client
	gen     *identity.Generator
	economy config.EconomyConfig

	rng *rand.Rand
}

// New wires the run pipeline.
func New(st *store.Store, orch *engine.Orchestrator, poller *engine.Poller, client *sheerid.Client, gen *identity.Generator, economy config.EconomyConfig) *Supervisor {
	return &Supervisor{
		store:   st,
		orch:    orch,
		poller:  poller,
		client:  client,
		gen:     gen,
		economy: economy,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// persistedDocument is the stored shape of one rendered document. Data
// round-trips as base64 through encoding/json.
type persistedDocument struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ExecuteRun validates, debits, runs the waterfall, polls pending outcomes,
// and persists the result. Validation failures cost nothing; the debit lands
// only after every local precondition passes, and any non-success outcome
// after the debit refunds it exactly once.
func (s *Supervisor) ExecuteRun(ctx context.Context, p RunParams) (*RunReport, error) {
	tool, err := s.store.ToolByID(p.ToolID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown tool %q", p.ToolID)
		}
		return nil, err
	}
	if !tool.IsActive {
		return nil, fmt.Errorf("tool %q is disabled", p.ToolID)
	}
	cfg, ok := engine.ConfigFor(p.ToolID)
	if !ok {
		return nil, fmt.Errorf("no program configured for tool %q", p.ToolID)
	}

	sessionID := sheerid.ParseVerificationID(p.URL)
	if sessionID == "" {
		return nil, errors.New("url carries no verification id")
	}

	uni, err := s.resolveUniversity(p.UniversityID)
	if err != nil {
		return nil, err
	}

	first, last, email, birthDate, err := s.resolveIdentity(p, cfg.Category, uni.Domain)
	if err != nil {
		return nil, err
	}

	// Ledger gate. Everything above is local; nothing has been spent yet.
	charged := false
	if p.TelegramID != "" {
		if _, err := s.store.DeductTokens(p.TelegramID, s.economy.VerificationCost); err != nil {
			if errors.Is(err, store.ErrInsufficientTokens) {
				return nil, ErrInsufficientTokens
			}
			return nil, err
		}
		charged = true
	}

	refunded := false
	refund := func() {
		// At most one refund per run, regardless of which failure path asks.
		if !charged || refunded {
			return
		}
		refunded = true
		if _, err := s.store.AddTokens(p.TelegramID, s.economy.VerificationCost); err != nil {
			logging.LedgerError("refund failed user=%s amount=%d: %v", p.TelegramID, s.economy.VerificationCost, err)
		}
	}

	// Refine the organization against the remote index; the local row is the
	// fallback when the search finds nothing.
	orgID, orgName := uni.OrgID, uni.Name
	if org, err := s.client.SearchOrganization(ctx, sessionID, uni.Name); err == nil && org != nil {
		orgID, orgName = org.ID, org.Name
	}

	rec, err := s.store.CreateVerification(store.Verification{
		ToolID:         p.ToolID,
		Email:          email,
		University:     orgName,
		Name:           first + " " + last,
		Country:        uni.Country,
		URL:            p.URL,
		FirstName:      first,
		LastName:       last,
		BirthDate:      birthDate,
		OrganizationID: orgID,
		SessionID:      sessionID,
	})
	if err != nil {
		refund()
		return nil, fmt.Errorf("create record: %w", err)
	}

	outcome := s.orch.Run(ctx, engine.Request{
		ToolID:           p.ToolID,
		SessionID:        sessionID,
		FirstName:        first,
		LastName:         last,
		Email:            email,
		BirthDate:        birthDate,
		OrganizationID:   orgID,
		OrganizationName: orgName,
		URL:              p.URL,
	})

	finalStatus := "failed"
	var errMsg *string
	rewardCode, redirectURL := outcome.RewardCode, outcome.RedirectURL

	switch {
	case outcome.Success && !outcome.Pending:
		finalStatus = "success"

	case outcome.Success && outcome.Pending:
		pending := "pending"
		if err := s.store.UpdateVerification(rec.ID, store.VerificationUpdate{Status: &pending}); err != nil {
			logging.StoreError("mark pending %s: %v", rec.ID, err)
		}
		poll, err := s.poller.Poll(ctx, sessionID)
		if err != nil {
			msg := fmt.Sprintf("poll aborted: %v", err)
			errMsg = &msg
		} else if poll.Success {
			finalStatus = "success"
			if poll.RewardCode != "" {
				rewardCode = poll.RewardCode
			}
			if poll.RedirectURL != "" {
				redirectURL = poll.RedirectURL
			}
		} else {
			errMsg = &poll.Message
		}

	default:
		errMsg = &outcome.Message
	}

	if finalStatus != "success" {
		refund()
	}

	update := store.VerificationUpdate{Status: &finalStatus, ErrorMessage: errMsg}
	if steps := encodeSteps(outcome.Steps); steps != "" {
		update.StepsJSON = &steps
	}
	if rewardCode != "" {
		update.RewardCode = &rewardCode
	}
	if redirectURL != "" {
		update.RedirectURL = &redirectURL
	}
	if err := s.store.UpdateVerification(rec.ID, update); err != nil {
		logging.StoreError("persist outcome %s: %v", rec.ID, err)
	}
	if docsJSON := encodeDocuments(outcome.Documents); docsJSON != "" {
		if err := s.store.SetVerificationDocuments(rec.ID, docsJSON); err != nil {
			logging.StoreError("persist documents %s: %v", rec.ID, err)
		}
	}

	if err := s.store.IncrementStats(p.ToolID, finalStatus == "success"); err != nil {
		logging.StoreError("increment stats %s: %v", p.ToolID, err)
	}

	final, err := s.store.VerificationByID(rec.ID)
	if err != nil {
		final = rec
	}

	report := &RunReport{
		Verification: final,
		Steps:        outcome.Steps,
		Status:       finalStatus,
		RewardCode:   rewardCode,
		RedirectURL:  redirectURL,
		Refunded:     refunded,
	}
	if errMsg != nil {
		report.Message = *errMsg
	} else {
		report.Message = outcome.Message
	}
	return report, nil
}

func (s *Supervisor) resolveUniversity(id string) (*store.University, error) {
	if id != "" {
		return s.store.UniversityByID(id)
	}
	uni, err := s.store.PickWeightedUniversity(s.rng)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("no universities seeded")
		}
		return nil, err
	}
	return uni, nil
}

func (s *Supervisor) resolveIdentity(p RunParams, cat identity.Category, domain string) (first, last, email, birthDate string, err error) {
	first = strings.TrimSpace(p.FirstName)
	last = strings.TrimSpace(p.LastName)
	email = strings.TrimSpace(p.Email)
	birthDate = strings.TrimSpace(p.BirthDate)

	if !p.AutoGenerate {
		var missing []string
		for _, f := range []struct{ name, val string }{
			{"firstName", first}, {"lastName", last}, {"email", email}, {"birthDate", birthDate},
		} {
			if f.val == "" {
				missing = append(missing, f.name)
			}
		}
		if len(missing) > 0 {
			return "", "", "", "", fmt.Errorf("manual identity missing fields: %s", strings.Join(missing, ", "))
		}
		return first, last, email, birthDate, nil
	}

	if first == "" || last == "" {
		gf, gl := s.gen.Name()
		if first == "" {
			first = gf
		}
		if last == "" {
			last = gl
		}
	}
	if email == "" {
		email = s.gen.Email(first, last, domain)
	}
	if birthDate == "" {
		birthDate = s.gen.BirthDate(cat)
	}
	return first, last, email, birthDate, nil
}

func encodeSteps(steps []engine.StepTrace) string {
	if len(steps) == 0 {
		return ""
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return ""
	}
	return string(b)
}

func encodeDocuments(docs []docgen.Document) string {
	if len(docs) == 0 {
		return ""
	}
	out := make([]persistedDocument, len(docs))
	for i, d := range docs {
		out[i] = persistedDocument{FileName: d.FileName, MimeType: d.MimeType, Data: d.Data}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(b)
}


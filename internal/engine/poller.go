package engine

import (
	"context"
	"strings"
	"time"

	"verihub/internal/logging"
	"verihub/internal/sheerid"
)

// PollResult is the terminal answer of a review poll.
type PollResult struct {
	Success     bool
	Message     string
	RewardCode  string
	RedirectURL string
	ErrorIDs    []string
}

// Poller watches a pending session until review resolves or the attempt
// budget runs out. Transient read errors are swallowed; only a definitive
// remote answer or exhaustion ends the poll.
type Poller struct {
	Client      *sheerid.Client
	MaxAttempts int
	Interval    time.Duration
}

// NewPoller returns a poller with the standard 30 x 10s budget.
func NewPoller(client *sheerid.Client) *Poller {
	return &Poller{Client: client, MaxAttempts: 30, Interval: 10 * time.Second}
}

// Poll blocks until the session resolves, the budget is exhausted, or ctx is
// canceled. Exhaustion is a failure, not an error: the review simply never
// answered in time.
func (p *Poller) Poll(ctx context.Context, sessionID string) (*PollResult, error) {
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		state, err := p.Client.Status(ctx, sessionID)
		if err != nil {
			logging.PollerDebug("attempt %d session=%s read failed: %v", attempt+1, sessionID, err)
			continue
		}
		logging.Poller("attempt %d session=%s step=%s", attempt+1, sessionID, state.CurrentStep)

		if state.CurrentStep == "success" {
			return &PollResult{
				Success:     true,
				Message:     "verification approved",
				RewardCode:  state.Reward(),
				RedirectURL: state.RedirectURL,
			}, nil
		}
		if state.CurrentStep == "error" || len(state.ErrorIDs) > 0 {
			msg := strings.Join(state.ErrorIDs, ", ")
			if msg == "" {
				msg = "document review failed"
			}
			return &PollResult{
				Success:  false,
				Message:  "verification rejected: " + msg,
				ErrorIDs: state.ErrorIDs,
			}, nil
		}
	}
	return &PollResult{Success: false, Message: "verification timed out awaiting review"}, nil
}

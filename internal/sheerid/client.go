// Package sheerid speaks the remote verification protocol: step submission,
// step skipping, status reads, organization search, and pre-signed document
// uploads. The client carries no retry policy; callers decide what a failed
// call means for their run.
package sheerid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"verihub/internal/logging"
)

const (
	protocolTimeout = 30 * time.Second
	uploadTimeout   = 60 * time.Second
)

// TransportError wraps a network-level failure, separating timeouts from
// connectivity errors so callers can classify.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the verification service. Protocol calls use a 30s budget;
// binary uploads to object storage get 60s.
type Client struct {
	servicesURL string
	statusURL   string
	protocol    *http.Client
	uploader    *http.Client
}

// New builds a client against the given base URLs. Trailing slashes are
// tolerated.
func New(servicesURL, statusURL string) *Client {
	return &Client{
		servicesURL: trimSlash(servicesURL),
		statusURL:   trimSlash(statusURL),
		protocol:    &http.Client{Timeout: protocolTimeout},
		uploader:    &http.Client{Timeout: uploadTimeout},
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// do performs one protocol call with JSON headers and returns the status and
// raw body. Bodies that fail to read or requests that fail to complete come
// back as TransportError.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*Result, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	timer := logging.StartTimer(logging.CategoryEngine, method+" "+rawURL)
	resp, err := c.protocol.Do(req)
	timer.StopWithThreshold(5 * time.Second)
	if err != nil {
		return nil, &TransportError{Op: method + " " + rawURL, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Timeout: isTimeout(err), Err: err}
	}
	return &Result{Status: resp.StatusCode, Body: data}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func (c *Client) stepURL(sessionID, step string) string {
	return fmt.Sprintf("%s/rest/v2/verification/%s/step/%s", c.servicesURL, sessionID, step)
}

// SubmitStep POSTs a step body and decodes the reply.
func (c *Client) SubmitStep(ctx context.Context, sessionID, step string, body any) (*StepResponse, int, error) {
	res, err := c.do(ctx, http.MethodPost, c.stepURL(sessionID, step), body)
	if err != nil {
		return nil, 0, err
	}
	return res.Step(), res.Status, nil
}

// SkipStep issues the DELETE that dismisses an optional step, such as sso.
func (c *Client) SkipStep(ctx context.Context, sessionID, step string) (*StepResponse, int, error) {
	res, err := c.do(ctx, http.MethodDelete, c.stepURL(sessionID, step), nil)
	if err != nil {
		return nil, 0, err
	}
	return res.Step(), res.Status, nil
}

// Status reads the session's current state from the status host.
func (c *Client) Status(ctx context.Context, sessionID string) (*StepResponse, error) {
	rawURL := fmt.Sprintf("%s/rest/v2/verification/%s", c.statusURL, sessionID)
	res, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("status check failed (http %d)", res.Status)
	}
	return res.Step(), nil
}

// SearchOrganization queries the session-scoped organization index and returns
// the first hit, or nil when nothing matches.
func (c *Client) SearchOrganization(ctx context.Context, sessionID, term string) (*Organization, error) {
	rawURL := fmt.Sprintf("%s/rest/v2/verification/%s/organization?searchTerm=%s",
		c.servicesURL, sessionID, url.QueryEscape(term))
	res, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("organization search failed (http %d)", res.Status)
	}
	var orgs []Organization
	if err := json.Unmarshal(res.Body, &orgs); err != nil {
		return nil, fmt.Errorf("decode organization search: %w", err)
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	return &orgs[0], nil
}

// Package engine drives the verification waterfall: state pre-check,
// personal-info submission, sso skip, upload slot negotiation, document
// uploads, and completion, with every remote interaction captured in an
// ordered step trace.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"verihub/internal/docgen"
	"verihub/internal/identity"
	"verihub/internal/logging"
	"verihub/internal/sheerid"
)

// Request is one waterfall invocation. Identity fields arrive resolved; the
// orchestrator never generates them.
type Request struct {
	ToolID           string
	SessionID        string
	FirstName        string
	LastName         string
	Email            string
	BirthDate        string
	OrganizationID   int
	OrganizationName string
	URL              string
}

// StepTrace is one entry of the run's ordered step log.
type StepTrace struct {
	Step   string `json:"step"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Outcome is the terminal result of one waterfall run. Pending means the
// remote accepted the documents and review is still open; the poller takes
// over from there.
type Outcome struct {
	Success     bool
	Pending     bool
	Message     string
	SessionID   string
	CurrentStep string
	ErrorIDs    []string
	RedirectURL string
	RewardCode  string
	Steps       []StepTrace
	Documents   []docgen.Document
}

// Orchestrator executes waterfall runs against one remote service.
type Orchestrator struct {
	client      *sheerid.Client
	builder     *docgen.Builder
	gen         *identity.Generator
	servicesURL string
}

// NewOrchestrator wires the protocol client, document builder, and identity
// generator. servicesURL shapes the refererUrl metadata only; all traffic
// goes through the client.
func NewOrchestrator(client *sheerid.Client, builder *docgen.Builder, gen *identity.Generator, servicesURL string) *Orchestrator {
	return &Orchestrator{client: client, builder: builder, gen: gen, servicesURL: strings.TrimRight(servicesURL, "/")}
}

func (o *Orchestrator) fail(out *Outcome, msg string) *Outcome {
	out.Success = false
	out.Pending = false
	out.Message = msg
	logging.EngineWarn("run failed session=%s: %s", out.SessionID, msg)
	return out
}

func detail(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Run executes the full waterfall. Every remote call appends to the step
// trace, success or not, so a failed run still explains itself.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Outcome {
	out := &Outcome{SessionID: req.SessionID}

	cfg, ok := ConfigFor(req.ToolID)
	if !ok {
		return o.fail(out, fmt.Sprintf("no configuration found for tool: %s", req.ToolID))
	}

	timer := logging.StartTimer(logging.CategoryEngine, "waterfall "+req.ToolID)
	defer timer.Stop()

	// Validate the session's remote state before touching it. Resubmitting
	// into a session that moved past collection corrupts its state.
	state, err := o.client.Status(ctx, req.SessionID)
	if err != nil {
		return o.fail(out, fmt.Sprintf("session state check failed: %v", err))
	}
	out.Steps = append(out.Steps, StepTrace{Step: "checkState", Status: http.StatusOK, Detail: detail(map[string]string{"currentStep": state.CurrentStep})})
	switch state.CurrentStep {
	case cfg.CollectStep, "sso":
		// Collection still open.
	case "success":
		out.Success = true
		out.CurrentStep = state.CurrentStep
		out.RedirectURL = state.RedirectURL
		out.RewardCode = state.Reward()
		out.Message = "verification already approved"
		return out
	default:
		return o.fail(out, fmt.Sprintf("session in unexpected state %q, refusing to resubmit", state.CurrentStep))
	}

	// Render documents before the first submission so a dead renderer fails
	// the run without spending a remote call.
	docs, err := o.builder.Build(ctx, req.FirstName, req.LastName, cfg.Category, req.OrganizationName)
	if err != nil {
		return o.fail(out, fmt.Sprintf("document generation failed: %v", err))
	}
	out.Documents = docs
	sizes := make([]int, len(docs))
	for i, d := range docs {
		sizes[i] = len(d.Data)
	}
	out.Steps = append(out.Steps, StepTrace{Step: "generateDocument", Status: http.StatusOK, Detail: detail(map[string]any{"count": len(docs), "sizes": sizes})})

	externalUserID := sheerid.ParseExternalUserID(req.URL)
	if externalUserID == "" {
		externalUserID = o.gen.ExternalUserToken()
	}
	payload := categoryStrategies[cfg.Category](payloadInput{
		cfg:               cfg,
		sessionID:         req.SessionID,
		servicesURL:       o.servicesURL,
		sourceURL:         req.URL,
		firstName:         req.FirstName,
		lastName:          req.LastName,
		email:             req.Email,
		birthDate:         req.BirthDate,
		organizationID:    req.OrganizationID,
		organizationName:  req.OrganizationName,
		deviceFingerprint: o.gen.DeviceFingerprint(),
		externalUserID:    externalUserID,
	})

	collect, status, err := o.client.SubmitStep(ctx, req.SessionID, cfg.CollectStep, payload)
	if err != nil {
		return o.fail(out, classifyTransport(err))
	}
	out.Steps = append(out.Steps, StepTrace{Step: cfg.CollectStep, Status: status, Detail: stepDetail(collect)})

	if status != http.StatusOK {
		return o.fail(out, fmt.Sprintf("personal info submission failed (http %d): %s", status, stepDetail(collect)))
	}
	if collect.CurrentStep == "error" {
		out.ErrorIDs = collect.ErrorIDs
		if len(out.ErrorIDs) == 0 {
			out.ErrorIDs = []string{"unknown error"}
		}
		return o.fail(out, "remote error: "+strings.Join(out.ErrorIDs, ", "))
	}

	currentStep := collect.CurrentStep
	redirectURL := collect.RedirectURL

	if currentStep == "sso" || currentStep == cfg.CollectStep {
		skip, skipStatus, err := o.client.SkipStep(ctx, req.SessionID, "sso")
		if err != nil {
			return o.fail(out, classifyTransport(err))
		}
		out.Steps = append(out.Steps, StepTrace{Step: "skipSSO", Status: skipStatus, Detail: stepDetail(skip)})
		if skip.CurrentStep != "" {
			currentStep = skip.CurrentStep
		}
	}

	if currentStep == "success" {
		out.Success = true
		out.CurrentStep = currentStep
		out.RedirectURL = redirectURL
		out.RewardCode = collect.Reward()
		out.Message = "verification approved instantly"
		return out
	}
	if currentStep == "pending" {
		out.Success = true
		out.Pending = true
		out.CurrentStep = currentStep
		out.Message = "submission accepted, awaiting review"
		return out
	}

	decl := sheerid.DocUploadRequest{Files: make([]sheerid.FileDecl, len(docs))}
	for i, d := range docs {
		decl.Files[i] = sheerid.FileDecl{FileName: d.FileName, MimeType: d.MimeType, FileSize: len(d.Data)}
	}
	slots, slotStatus, err := o.client.SubmitStep(ctx, req.SessionID, "docUpload", decl)
	if err != nil {
		return o.fail(out, classifyTransport(err))
	}
	out.Steps = append(out.Steps, StepTrace{Step: "docUpload", Status: slotStatus, Detail: stepDetail(slots)})

	// Fewer slots than documents is a protocol violation. Uploading a
	// truncated set would pass review with missing evidence, so nothing is
	// sent at all.
	if len(slots.Documents) < len(docs) {
		return o.fail(out, fmt.Sprintf("upload slot mismatch: %d slots for %d documents", len(slots.Documents), len(docs)))
	}

	uploadErrs := make([]error, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range docs {
		i := i
		g.Go(func() error {
			uploadErrs[i] = o.client.Upload(gctx, slots.Documents[i].UploadURL, docs[i].Data, docs[i].MimeType)
			return nil
		})
	}
	g.Wait()

	failed := false
	for i, d := range docs {
		st := http.StatusOK
		if uploadErrs[i] != nil {
			st = http.StatusInternalServerError
			failed = true
		}
		out.Steps = append(out.Steps, StepTrace{
			Step:   "s3Upload_" + d.FileName,
			Status: st,
			Detail: detail(map[string]any{"uploaded": uploadErrs[i] == nil, "fileName": d.FileName}),
		})
	}
	if failed {
		return o.fail(out, "one or more document uploads failed")
	}

	final, finalStatus, err := o.client.SubmitStep(ctx, req.SessionID, "completeDocUpload", nil)
	if err != nil {
		return o.fail(out, classifyTransport(err))
	}
	out.Steps = append(out.Steps, StepTrace{Step: "completeDocUpload", Status: finalStatus, Detail: stepDetail(final)})

	out.CurrentStep = final.CurrentStep
	if out.CurrentStep == "" {
		out.CurrentStep = "unknown"
	}
	out.RedirectURL = final.RedirectURL
	out.RewardCode = final.Reward()

	if out.CurrentStep == "success" {
		out.Success = true
		out.Message = "verification successful"
		return out
	}
	out.Success = true
	out.Pending = true
	out.Message = "documents submitted, awaiting review"
	return out
}

func stepDetail(r *sheerid.StepResponse) string {
	if r == nil {
		return ""
	}
	if r.Raw != "" {
		return r.Raw
	}
	return detail(r)
}

func classifyTransport(err error) string {
	var terr *sheerid.TransportError
	if errors.As(err, &terr) && terr.Timeout {
		return "remote api request timed out"
	}
	return fmt.Sprintf("remote api unreachable: %v", err)
}

package sheerid

import "encoding/json"

// StepResponse is the decoded body of a verification-step or status call.
// The remote mixes JSON and plain-text error bodies; non-JSON bodies land in
// Raw with the JSON fields zeroed.
type StepResponse struct {
	VerificationID string         `json:"verificationId"`
	CurrentStep    string         `json:"currentStep"`
	ErrorIDs       []string       `json:"errorIds"`
	RedirectURL    string         `json:"redirectUrl"`
	RewardCode     string         `json:"rewardCode"`
	RewardData     *RewardData    `json:"rewardData"`
	Documents      []DocumentSlot `json:"documents"`
	SubmissionURL  string         `json:"submissionUrl"`

	Raw string `json:"-"`
}

// RewardData is the nested reward payload some programs use instead of the
// top-level code.
type RewardData struct {
	RewardCode string `json:"rewardCode"`
}

// DocumentSlot is one pre-signed upload destination handed back by the
// docUpload step. Slots are consumed in order against the declared files.
type DocumentSlot struct {
	DocumentID string `json:"documentId"`
	UploadURL  string `json:"uploadUrl"`
	Status     string `json:"status"`
}

// Reward returns the reward code, preferring the top-level field over the
// nested rewardData block.
func (r *StepResponse) Reward() string {
	if r.RewardCode != "" {
		return r.RewardCode
	}
	if r.RewardData != nil {
		return r.RewardData.RewardCode
	}
	return ""
}

// Organization is one hit from the organization search endpoint.
type Organization struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FileDecl declares one pending upload in the docUpload request body.
type FileDecl struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int    `json:"fileSize"`
}

// DocUploadRequest is the body of the docUpload step submission.
type DocUploadRequest struct {
	Files []FileDecl `json:"files"`
}

// Result carries the raw outcome of one remote call. Decoding is left to the
// caller so error bodies keep their original text.
type Result struct {
	Status int
	Body   []byte
}

// Step decodes the result body into a StepResponse, tolerating plain-text
// bodies.
func (r *Result) Step() *StepResponse {
	var resp StepResponse
	if err := json.Unmarshal(r.Body, &resp); err != nil {
		resp = StepResponse{Raw: string(r.Body)}
	}
	return &resp
}

// OK reports a 2xx status.
func (r *Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

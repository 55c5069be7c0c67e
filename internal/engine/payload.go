package engine

import (
	"fmt"

	"verihub/internal/identity"
	"verihub/internal/sheerid"
)

// studentFlags is the client-side feature-flag blob the remote expects on
// student and k12 submissions. It rides as an opaque string inside metadata.
const studentFlags = `{"collect-info-step-email-first":"default","doc-upload-considerations":"default","doc-upload-may24":"default","doc-upload-redesign-use-legacy-message-keys":false,"docUpload-assertion-checklist":"default","font-size":"default","include-cvec-field-france-student":"not-labeled-optional"}`

const submissionOptIn = "By submitting the personal information above, I acknowledge that my personal information is being collected under the privacy policy of the business from which I am seeking a discount"

// payloadInput carries everything a category needs to shape its personal-info
// submission.
type payloadInput struct {
	cfg               ToolConfig
	sessionID         string
	servicesURL       string
	sourceURL         string
	firstName         string
	lastName          string
	email             string
	birthDate         string
	organizationID    int
	organizationName  string
	deviceFingerprint string
	externalUserID    string
}

type payloadBuilder func(in payloadInput) map[string]any

// categoryStrategies dispatches the per-category payload shape. Document-set
// shape lives in the docgen builder keyed by the same category.
var categoryStrategies = map[identity.Category]payloadBuilder{
	identity.CategoryStudent:    buildStudentPayload,
	identity.CategoryTeacher:    buildTeacherPayload,
	identity.CategoryK12Teacher: buildK12Payload,
}

func basePayload(in payloadInput) map[string]any {
	return map[string]any{
		"firstName":   in.firstName,
		"lastName":    in.lastName,
		"email":       in.email,
		"phoneNumber": "",
		"organization": map[string]any{
			"id":         in.organizationID,
			"idExtended": fmt.Sprintf("%d", in.organizationID),
			"name":       in.organizationName,
		},
		"deviceFingerprintHash": in.deviceFingerprint,
		"locale":                "en-US",
		"metadata": map[string]any{
			"marketConsentValue": false,
			"refererUrl": fmt.Sprintf("%s/verify/%s/?verificationId=%s",
				in.servicesURL, in.cfg.ProgramID, in.sessionID),
			"verificationId":  in.sessionID,
			"submissionOptIn": submissionOptIn,
		},
	}
}

func buildStudentPayload(in payloadInput) map[string]any {
	p := basePayload(in)
	p["birthDate"] = in.birthDate
	p["metadata"].(map[string]any)["flags"] = studentFlags
	return p
}

// buildTeacherPayload omits the birth date and rides the caller's external
// user id, falling back to a fresh token when the landing URL carried none.
func buildTeacherPayload(in payloadInput) map[string]any {
	p := basePayload(in)
	meta := p["metadata"].(map[string]any)
	p["externalUserId"] = in.externalUserID
	meta["externalUserId"] = in.externalUserID
	if uid := sheerid.ParseExternalUserID(in.sourceURL); uid != "" {
		meta["refererUrl"] = in.sourceURL
	}
	return p
}

func buildK12Payload(in payloadInput) map[string]any {
	p := basePayload(in)
	p["birthDate"] = in.birthDate
	p["metadata"].(map[string]any)["flags"] = studentFlags
	return p
}

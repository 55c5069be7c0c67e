package engine

import (
	"strings"
	"testing"
)

func basePayloadInput(toolID string) payloadInput {
	cfg, _ := ConfigFor(toolID)
	return payloadInput{
		cfg:               cfg,
		sessionID:         "abc123",
		servicesURL:       "https://services.example.com",
		sourceURL:         "https://partner.example.com/?verificationId=abc123",
		firstName:         "Jane",
		lastName:          "Smith",
		email:             "jane.smith1234@psu.edu",
		birthDate:         "2003-04-12",
		organizationID:    3499,
		organizationName:  "State University",
		deviceFingerprint: "0123456789abcdef0123456789abcdef",
		externalUserID:    "fresh-token",
	}
}

func TestStudentPayloadShape(t *testing.T) {
	p := buildStudentPayload(basePayloadInput("spotify-verify"))

	if p["birthDate"] != "2003-04-12" {
		t.Errorf("birthDate = %v", p["birthDate"])
	}
	meta := p["metadata"].(map[string]any)
	flags, ok := meta["flags"].(string)
	if !ok || !strings.Contains(flags, "collect-info-step-email-first") {
		t.Error("student metadata missing feature-flag blob")
	}
	if meta["verificationId"] != "abc123" {
		t.Errorf("verificationId = %v", meta["verificationId"])
	}
	referer := meta["refererUrl"].(string)
	if !strings.Contains(referer, "67c8c14f5f17a83b745e3f82") || !strings.Contains(referer, "abc123") {
		t.Errorf("refererUrl = %q", referer)
	}
	org := p["organization"].(map[string]any)
	if org["id"] != 3499 || org["idExtended"] != "3499" {
		t.Errorf("organization = %v", org)
	}
	if _, present := p["externalUserId"]; present {
		t.Error("student payload carries externalUserId")
	}
}

func TestTeacherPayloadShape(t *testing.T) {
	in := basePayloadInput("canva-teacher")
	p := buildTeacherPayload(in)

	if _, present := p["birthDate"]; present {
		t.Error("teacher payload carries birthDate")
	}
	if p["externalUserId"] != "fresh-token" {
		t.Errorf("externalUserId = %v", p["externalUserId"])
	}
	meta := p["metadata"].(map[string]any)
	if meta["externalUserId"] != "fresh-token" {
		t.Errorf("metadata externalUserId = %v", meta["externalUserId"])
	}
	if _, present := meta["flags"]; present {
		t.Error("teacher metadata carries student feature flags")
	}
}

func TestTeacherRefererFollowsSourceURL(t *testing.T) {
	in := basePayloadInput("canva-teacher")
	in.sourceURL = "https://partner.example.com/?verificationId=abc123&externalUserId=user-42"
	in.externalUserID = "user-42"
	p := buildTeacherPayload(in)

	meta := p["metadata"].(map[string]any)
	if meta["refererUrl"] != in.sourceURL {
		t.Errorf("refererUrl = %v, want source url when externalUserId came from it", meta["refererUrl"])
	}
}

func TestK12PayloadShape(t *testing.T) {
	p := buildK12Payload(basePayloadInput("k12-verify"))

	if p["birthDate"] != "2003-04-12" {
		t.Errorf("birthDate = %v", p["birthDate"])
	}
	meta := p["metadata"].(map[string]any)
	if _, ok := meta["flags"]; !ok {
		t.Error("k12 metadata missing feature-flag blob")
	}
}

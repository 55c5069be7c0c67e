package engine

import (
	"strings"

	"verihub/internal/identity"
)

// ToolConfig maps a dashboard tool to its remote program and category.
type ToolConfig struct {
	ProgramID   string
	Category    identity.Category
	CollectStep string
}

const (
	stepCollectStudent = "collectStudentPersonalInfo"
	stepCollectTeacher = "collectTeacherPersonalInfo"
)

var toolConfigs = map[string]ToolConfig{
	"spotify-verify": {
		ProgramID:   "67c8c14f5f17a83b745e3f82",
		Category:    identity.CategoryStudent,
		CollectStep: stepCollectStudent,
	},
	"youtube-verify": {
		ProgramID:   "67c8c14f5f17a83b745e3f82",
		Category:    identity.CategoryStudent,
		CollectStep: stepCollectStudent,
	},
	"one-verify": {
		ProgramID:   "67c8c14f5f17a83b745e3f82",
		Category:    identity.CategoryStudent,
		CollectStep: stepCollectStudent,
	},
	"boltnew-verify": {
		ProgramID:   "68cc6a2e64f55220de204448",
		Category:    identity.CategoryTeacher,
		CollectStep: stepCollectTeacher,
	},
	"canva-teacher": {
		ProgramID:   "68cc6a2e64f55220de204448",
		Category:    identity.CategoryTeacher,
		CollectStep: stepCollectTeacher,
	},
	"k12-verify": {
		ProgramID:   "68d47554aa292d20b9bec8f7",
		Category:    identity.CategoryK12Teacher,
		CollectStep: stepCollectTeacher,
	},
	"veterans-verify": {
		ProgramID:   "67c8c14f5f17a83b745e3f82",
		Category:    identity.CategoryStudent,
		CollectStep: stepCollectStudent,
	},
	"veterans-extension": {
		ProgramID:   "67c8c14f5f17a83b745e3f82",
		Category:    identity.CategoryStudent,
		CollectStep: stepCollectStudent,
	},
}

// ConfigFor returns the registry entry for a tool id.
func ConfigFor(toolID string) (ToolConfig, bool) {
	cfg, ok := toolConfigs[toolID]
	return cfg, ok
}

// ToolIDs lists every registered tool id.
func ToolIDs() []string {
	ids := make([]string, 0, len(toolConfigs))
	for id := range toolConfigs {
		ids = append(ids, id)
	}
	return ids
}

// DetectTool guesses a tool id from a landing URL or message text.
// Unrecognized input falls back to the student program.
func DetectTool(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "spotify"):
		return "spotify-verify"
	case strings.Contains(t, "youtube"):
		return "youtube-verify"
	case strings.Contains(t, "google"):
		return "one-verify"
	case strings.Contains(t, "bolt"):
		return "boltnew-verify"
	case strings.Contains(t, "canva"):
		return "canva-teacher"
	case strings.Contains(t, "chatgpt"), strings.Contains(t, "openai"):
		return "k12-verify"
	default:
		return "spotify-verify"
	}
}

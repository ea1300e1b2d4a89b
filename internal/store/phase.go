package store

import (
	"fmt"
	"strings"
)

// Phase is a named state in the job lifecycle. The string value doubles as
// the directory name the phase's records live under.
type Phase string

const (
	PhaseQueued        Phase = "queued"
	PhaseDataGenerated Phase = "data_generated"
	PhaseDocsGenerated Phase = "docs_generated"
	PhaseApplied       Phase = "applied"
	PhaseFollowUp      Phase = "follow_up"
	PhaseInterviewing  Phase = "interviewing"
	PhaseNegotiating   Phase = "negotiating"
	PhaseAccepted      Phase = "accepted"
	PhaseSkipped       Phase = "skipped"
	PhaseExpired       Phase = "expired"
	PhaseErrored       Phase = "errored"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseQueued,
	PhaseDataGenerated,
	PhaseDocsGenerated,
	PhaseApplied,
	PhaseFollowUp,
	PhaseInterviewing,
	PhaseNegotiating,
	PhaseAccepted,
	PhaseSkipped,
	PhaseExpired,
	PhaseErrored,
}

// Dir returns the directory name records in this phase live under.
func (p Phase) Dir() string { return string(p) }

// Terminal reports whether records in this phase are archived. Errored is
// terminal too, but can be reopened explicitly.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseAccepted, PhaseSkipped, PhaseExpired, PhaseErrored:
		return true
	}
	return false
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePhase accepts user-facing spellings ("DataGenerated", "data-generated",
// "data_generated") and returns the canonical phase.
func ParsePhase(s string) (Phase, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")
	for _, p := range Phases {
		if strings.ReplaceAll(string(p), "_", "") == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

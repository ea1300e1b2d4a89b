package events

import "fmt"

// Kind classifies event failures. The kind decides whether the retry policy
// will re-attempt an event and which recommended action lands in the
// diagnostic artifact.
type Kind string

const (
	// KindValidation marks malformed job or record data. Never retried.
	KindValidation Kind = "validation"
	// KindDependencyNotMet marks a missing upstream artifact. Never retried.
	KindDependencyNotMet Kind = "dependency_not_met"
	// KindExternalService marks a failed or timed-out collaborator call.
	KindExternalService Kind = "external_service"
	// KindNotFound marks an unknown event or job name. Surfaced directly to
	// the caller, bypassing retry and escalation.
	KindNotFound Kind = "not_found"
	// KindConcurrencyConflict marks a detected concurrent write to one job's
	// record. Should not occur under the single-writer discipline.
	KindConcurrencyConflict Kind = "concurrency_conflict"
	// KindFatalIO marks an unavailable storage layer.
	KindFatalIO Kind = "fatal_io"
	// KindInternal marks a panic captured at the executor boundary.
	KindInternal Kind = "internal"
)

// Retryable reports whether the retry policy may re-attempt a failure of
// this kind. Validation and dependency failures fail fast because retrying
// cannot fix them; NotFound bypasses the policy entirely.
func (k Kind) Retryable() bool {
	switch k {
	case KindExternalService, KindFatalIO, KindInternal, KindConcurrencyConflict:
		return true
	}
	return false
}

// RecommendedAction returns the next-step hint written into the diagnostic
// artifact for a terminal failure of this kind.
func (k Kind) RecommendedAction() string {
	switch k {
	case KindValidation:
		return "Fix the job's record data (job.json) and reopen the job."
	case KindDependencyNotMet:
		return "Run the upstream generation events first, then reopen the job."
	case KindExternalService:
		return "Check the external service (API key, network, quota) and reopen the job."
	case KindNotFound:
		return "Check the event name against `selftest` output."
	case KindConcurrencyConflict:
		return "Another process was writing this job's record; reopen and retry."
	case KindFatalIO:
		return "Check disk space and permissions under the record root, then reopen the job."
	default:
		return "Inspect the log, fix the cause, and reopen the job."
	}
}

// Detail is one structured failure attached to a Result.
type Detail struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (d Detail) Error() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

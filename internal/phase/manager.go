// Package phase implements the job lifecycle state machine: transition
// validation, atomic record relocation with file preservation, audit
// entries, and reopening errored records.
package phase

import (
	"fmt"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/notify"
	"github.com/jonathan/job-pipeline/internal/store"
)

// InvalidTransitionError reports a move the state machine forbids.
type InvalidTransitionError struct {
	From   store.Phase
	To     store.Phase
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// PreservationError reports files that changed or disappeared during a
// relocation. It should never occur on a healthy filesystem.
type PreservationError struct {
	Problems []string
}

func (e *PreservationError) Error() string {
	return fmt.Sprintf("file preservation violated after relocation: %v", e.Problems)
}

// Manager is the only component permitted to change a record's phase.
type Manager struct {
	Store *store.Store
	Sink  notify.Sink
}

// NewManager returns a manager notifying sink on every phase change.
func NewManager(st *store.Store, sink notify.Sink) *Manager {
	if sink == nil {
		sink = notify.Noop{}
	}
	return &Manager{Store: st, Sink: sink}
}

// Validate checks whether the record may move to target. Forward phases are
// user-driven and otherwise unordered; only the data-dependent transitions
// into data_generated and docs_generated are gated on artifact presence, and
// terminal phases admit no outbound moves (errored is reopened via Reopen).
func (m *Manager) Validate(rec *store.Record, target store.Phase) error {
	from := rec.Phase
	if !target.Valid() {
		return &InvalidTransitionError{From: from, To: target, Reason: "unknown phase"}
	}
	if from == target {
		return &InvalidTransitionError{From: from, To: target, Reason: "already in that phase"}
	}
	if from.Terminal() && target != store.PhaseErrored {
		return &InvalidTransitionError{From: from, To: target, Reason: "record is archived in a terminal phase"}
	}
	switch target {
	case store.PhaseDataGenerated:
		for _, name := range artifacts.SubcontentFiles() {
			if !rec.HasFile(name) {
				return &InvalidTransitionError{From: from, To: target,
					Reason: fmt.Sprintf("required subcontent file %s is missing", name)}
			}
		}
	case store.PhaseDocsGenerated:
		for _, name := range []string{artifacts.ResumeHTML, artifacts.CoverletterHTML, artifacts.ResumePDF, artifacts.CoverletterPDF} {
			if !rec.HasFile(name) {
				return &InvalidTransitionError{From: from, To: target,
					Reason: fmt.Sprintf("required document %s is missing", name)}
			}
		}
	}
	return nil
}

// Transition moves the record to target: validates, relocates the directory
// with every file byte-identical afterwards, persists the new phase, and
// appends exactly one audit entry before returning success.
func (m *Manager) Transition(rec *store.Record, target store.Phase) error {
	if err := m.Validate(rec, target); err != nil {
		return err
	}
	from := rec.Phase

	before, err := store.Inventory(rec.Dir())
	if err != nil {
		return fmt.Errorf("reading inventory before transition: %w", err)
	}

	if err := m.Store.Relocate(rec, target); err != nil {
		return err
	}

	after, err := store.Inventory(rec.Dir())
	if err != nil {
		return fmt.Errorf("reading inventory after transition: %w", err)
	}
	if err := verifyPreserved(before, after); err != nil {
		return err
	}

	rec.Phase = target
	rec.Files = after
	if err := m.Store.Save(rec); err != nil {
		return err
	}
	if err := m.Store.AppendLog(rec, "phase", fmt.Sprintf("%s -> %s", from, target)); err != nil {
		return err
	}

	m.Sink.Notify(notify.KindPhaseChanged, rec.Identity, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return nil
}

// Reopen returns an errored record to the phase it was in immediately before
// the failure, as tracked on its error record. The diagnostic artifact is
// preserved, not deleted.
func (m *Manager) Reopen(rec *store.Record) error {
	if rec.Phase != store.PhaseErrored {
		return &InvalidTransitionError{From: rec.Phase, To: rec.Phase, Reason: "only errored records can be reopened"}
	}
	if rec.LastError == nil {
		return fmt.Errorf("record %s has no error record to reopen from", rec.Identity.JobID)
	}
	target := rec.LastError.PhaseAtFailure
	if !target.Valid() || target == store.PhaseErrored {
		target = store.PhaseQueued
	}

	if err := m.Store.Relocate(rec, target); err != nil {
		return err
	}
	from := rec.Phase
	rec.Phase = target
	if err := m.Store.Save(rec); err != nil {
		return err
	}
	if err := m.Store.AppendLog(rec, "phase", fmt.Sprintf("%s -> %s (reopened)", from, target)); err != nil {
		return err
	}
	m.Sink.Notify(notify.KindPhaseChanged, rec.Identity, map[string]any{
		"from":     string(from),
		"to":       string(target),
		"reopened": true,
	})
	return nil
}

func verifyPreserved(before, after map[string]store.FileInfo) error {
	var problems []string
	for name, want := range before {
		got, ok := after[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s disappeared", name))
			continue
		}
		if got.SHA256 != want.SHA256 || got.Size != want.Size {
			problems = append(problems, fmt.Sprintf("%s changed content", name))
		}
	}
	if len(problems) > 0 {
		return &PreservationError{Problems: problems}
	}
	return nil
}

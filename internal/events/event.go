// Package events defines the contract between the pipeline core and its
// units of work: the Event interface, the tagged Result every execution
// returns, and the registry that resolves events by name.
package events

import (
	"context"
	"fmt"

	"github.com/jonathan/job-pipeline/internal/store"
)

// Context carries per-invocation configuration into an event body. It is
// immutable apart from Scratch, which is private to one invocation: the
// executor hands every invocation its own copy, never a shared reference.
type Context struct {
	// Root is the record store root directory.
	Root string
	// ResumeRef is the selected default-resume reference directory that
	// static subcontent events copy from.
	ResumeRef string
	// APIKey authenticates LLM-backed events.
	APIKey string
	// UploadURL is the endpoint for best-effort package uploads.
	UploadURL string
	// Verbose enables detailed progress output from event bodies.
	Verbose bool
	// TestMode makes externally-bound events produce deterministic local
	// output instead of calling out.
	TestMode bool
	// Scratch is free-form per-invocation state.
	Scratch map[string]any
}

// Clone returns an independent copy with its own Scratch map.
func (c *Context) Clone() *Context {
	if c == nil {
		return &Context{Scratch: map[string]any{}}
	}
	out := *c
	out.Scratch = make(map[string]any, len(c.Scratch))
	for k, v := range c.Scratch {
		out.Scratch[k] = v
	}
	return &out
}

// Result is the tagged outcome of one event execution. A failed event is a
// value, never a raised error: OK=false carries the failure details past the
// executor boundary.
type Result struct {
	OK              bool     `json:"ok"`
	UpdatedLocation string   `json:"updated_location,omitempty"`
	Message         string   `json:"message,omitempty"`
	Artifacts       []string `json:"artifacts,omitempty"`
	Errors          []Detail `json:"errors,omitempty"`
}

// Success builds a passing result naming the artifacts produced.
func Success(message string, artifacts ...string) Result {
	return Result{OK: true, Message: message, Artifacts: artifacts}
}

// Failure builds a failing result with a single classified error.
func Failure(kind Kind, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{OK: false, Message: msg, Errors: []Detail{{Kind: kind, Message: msg}}}
}

// FirstKind returns the kind of the first recorded error, or KindInternal
// when a failing result carries none.
func (r Result) FirstKind() Kind {
	if len(r.Errors) > 0 {
		return r.Errors[0].Kind
	}
	return KindInternal
}

// Event is a named, independently invocable unit of work.
type Event interface {
	Name() string
	Execute(ctx context.Context, rec *store.Record, ec *Context) Result
}

// SelfTester is optionally implemented by events that can verify their own
// wiring (templates parse, prompts exist) without touching a job.
type SelfTester interface {
	SelfTest(ctx context.Context) error
}

// NonBlocker is optionally implemented by best-effort events. When
// NonBlocking reports true, exhausting retries logs the failure but never
// moves the job to the errored phase.
type NonBlocker interface {
	NonBlocking() bool
}

// ExecuteFunc adapts a plain function to the Event interface.
type ExecuteFunc func(ctx context.Context, rec *store.Record, ec *Context) Result

// Func wraps fn as an Event with the given name.
func Func(name string, fn ExecuteFunc) Event {
	return &funcEvent{name: name, fn: fn}
}

type funcEvent struct {
	name string
	fn   ExecuteFunc
}

func (e *funcEvent) Name() string { return e.name }

func (e *funcEvent) Execute(ctx context.Context, rec *store.Record, ec *Context) Result {
	return e.fn(ctx, rec, ec)
}

// Package progress defines the external-collaborator interfaces the
// core consumes rather than calling directly: trust prompts, progress
// events, structured logging, and shell-profile edits. Each has a
// no-op default so orchestrator code is testable without a terminal.
package progress

import (
	"log/slog"

	"github.com/rojo-rbx/rokit/internal/id"
)

// EventKind classifies a progress event emitted during a batch
// operation.
type EventKind int

const (
	EventToolStart EventKind = iota
	EventToolDone
	EventToolError
	EventDownloadProgress
)

// Event is one progress notification for a single tool within a batch.
type Event struct {
	Kind     EventKind
	Alias    string
	Spec     string
	Err      error
	Done     int64 // bytes downloaded so far, for EventDownloadProgress
	Total    int64 // total bytes, 0 if unknown
	Message  string
}

// Sink receives progress events. Implementations must not block the
// caller for long; the orchestrator emits synchronously from worker
// goroutines.
type Sink interface {
	Progress(Event)
}

// NoopSink discards every event.
type NoopSink struct{}

func (NoopSink) Progress(Event) {}

// TrustDecision is the user's answer to a trust prompt.
type TrustDecision int

const (
	TrustDeny TrustDecision = iota
	TrustAccept
)

// TrustPrompter asks whether a previously-unseen ToolId should be
// trusted before any of its bytes are written to the store.
type TrustPrompter interface {
	PromptTrust(id.ToolId) TrustDecision
}

// AutoDenyTrustPrompter denies every prompt; it is the orchestrator's
// default prompter until one is set with WithTrustPrompter.
type AutoDenyTrustPrompter struct{}

func (AutoDenyTrustPrompter) PromptTrust(id.ToolId) TrustDecision { return TrustDeny }

// Logger is the structured logging sink the core writes to. It is
// satisfied directly by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewSlogLogger wraps an *slog.Logger as a Logger. base may be nil, in
// which case slog.Default() is used.
func NewSlogLogger(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return base
}

// ShellProfileEditor is consulted by self-install to ensure the bin
// directory is on PATH. pathEntry is the directory to add.
type ShellProfileEditor interface {
	EnsureOnPath(pathEntry string) error
}

// NoopShellProfileEditor makes no changes; used in tests and in
// environments where profile editing is explicitly disabled.
type NoopShellProfileEditor struct{}

func (NoopShellProfileEditor) EnsureOnPath(string) error { return nil }

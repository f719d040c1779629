// Package rerr provides structured, categorized error types for rokit.
// Errors carry a category and machine-readable code so the dispatcher
// and orchestrator can branch on error kind without string matching,
// while still rendering a human-readable message at the CLI boundary.
package rerr

// Category classifies an error into one of the kinds named in the
// error handling design.
type Category string

const (
	CategoryManifest   Category = "manifest"
	CategorySpec       Category = "spec"
	CategorySource     Category = "source"
	CategorySelector   Category = "selector"
	CategoryExtract    Category = "extract"
	CategoryTrust      Category = "trust"
	CategoryStore      Category = "store"
	CategoryDispatcher Category = "dispatcher"
	CategoryCancelled  Category = "cancelled"
)

// Code is a machine-readable error code.
type Code string

const (
	// Manifest errors (E1xx)
	CodeManifestParse Code = "E101"
	CodeManifestIO    Code = "E102"

	// Spec errors (E2xx)
	CodeSpecParse Code = "E201"

	// Source errors (E3xx)
	CodeSourceTransient Code = "E301"
	CodeSourceTerminal  Code = "E302"

	// Selector/extract errors (E4xx)
	CodeNoCompatibleArtifact  Code = "E401"
	CodeArchiveCorrupt        Code = "E402"
	CodeNoExecutableInArchive Code = "E403"
	CodeWrongBinaryKind       Code = "E404"

	// Trust errors (E5xx)
	CodeUntrustedTool Code = "E501"

	// Store errors (E6xx)
	CodeStoreLockTimeout Code = "E601"
	CodeStoreIO          Code = "E602"

	// Dispatcher errors (E7xx)
	CodeNoToolForAlias Code = "E701"
	CodeExecFailed     Code = "E702"

	// Cancellation (E8xx)
	CodeCancelled Code = "E801"
)

// Error is the base error type for rokit. It wraps an underlying
// cause (if any) and carries enough structure to format either a
// short CLI line or a batch-report entry.
type Error struct {
	Category Category
	Code     Code
	Message  string
	Details  map[string]any
	Hint     string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Code (when both
// have one), falling back to Category+Message comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != "" && t.Code != "" {
		return e.Code == t.Code
	}
	return e.Category == t.Category && e.Message == t.Message
}

// WithHint sets a hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetail adds a detail key/value and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given category, code, and message.
func New(category Category, code Code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap creates a new Error wrapping cause.
func Wrap(category Category, code Code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// IsTransient reports whether err represents a retryable source-side
// failure (connection reset, 5xx, 408, 429).
func IsTransient(err error) bool {
	var e *Error
	return AsError(err, &e) && e.Code == CodeSourceTransient
}

// IsCancelled reports whether err represents cooperative cancellation.
func IsCancelled(err error) bool {
	var e *Error
	return AsError(err, &e) && e.Code == CodeCancelled
}

// AsError is a small errors.As shim kept local to avoid importing the
// stdlib errors package under a name that would collide with this
// package's own name at call sites.
func AsError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

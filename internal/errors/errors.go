package errors

import (
	stdErrors "errors"
	"fmt"
	"sync"
)

// Code identifies a failure class shared across the client.
type Code string

// Severity describes how loudly a failure should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes carry the default behaviour attached to a code.
type Attributes struct {
	Message   string
	Severity  Severity
	Retryable bool
	Alert     bool
}

const (
	CodeUnknown Code = "UNKNOWN"
	// CodeNoProvider means no wallet capability was found. Fatal: there is
	// no retry path, the precondition is the user's environment.
	CodeNoProvider Code = "NO_PROVIDER"
	// CodeUserRejected covers declined signing or account authorization.
	CodeUserRejected Code = "USER_REJECTED"
	// CodeSwitchRejected means the provider refused to add or activate the
	// requested network; the write that needed it is aborted untouched.
	CodeSwitchRejected Code = "SWITCH_REJECTED"
	// CodeSubmitRejected means the transaction never entered the pool.
	CodeSubmitRejected Code = "SUBMIT_REJECTED"
	// CodeSubmitFailed means the transaction was mined but reverted, or
	// confirmation itself failed. Never auto-resubmitted: the effect state
	// on chain is unknown.
	CodeSubmitFailed Code = "SUBMIT_FAILED"
	// CodeReadFailure is a transport failure during a query. Distinct from
	// "no active creature", which is not an error at all.
	CodeReadFailure Code = "READ_FAILURE"
	// CodeNotYetVisible marks a confirmed write whose effect did not show
	// up within the poll budget. A warning, not a hard failure.
	CodeNotYetVisible Code = "NOT_YET_VISIBLE"
	// CodePipelineBusy rejects a second write while one is still in flight.
	CodePipelineBusy Code = "PIPELINE_BUSY"
	CodeInvalidName  Code = "INVALID_NAME"
	CodeNoCreature   Code = "NO_CREATURE"

	CodeStorageFailure Code = "STORAGE_FAILURE"
	CodeCacheFailure   Code = "CACHE_FAILURE"
	CodeAlertFailure   Code = "ALERT_FAILURE"
	CodeTimeout        Code = "TIMEOUT"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown: {
			Message:   "unknown error",
			Severity:  SeverityCritical,
			Retryable: false,
			Alert:     true,
		},
		CodeNoProvider: {
			Message:   "no wallet capability detected",
			Severity:  SeverityCritical,
			Retryable: false,
			Alert:     true,
		},
		CodeUserRejected: {
			Message:   "request rejected by user",
			Severity:  SeverityInfo,
			Retryable: true,
			Alert:     false,
		},
		CodeSwitchRejected: {
			Message:   "network switch rejected",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     false,
		},
		CodeSubmitRejected: {
			Message:   "transaction submission rejected",
			Severity:  SeverityInfo,
			Retryable: true,
			Alert:     false,
		},
		CodeSubmitFailed: {
			Message:   "transaction failed on chain",
			Severity:  SeverityWarning,
			Retryable: false,
			Alert:     true,
		},
		CodeReadFailure: {
			Message:   "contract read failed",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     false,
		},
		CodeNotYetVisible: {
			Message:   "confirmed write not yet visible",
			Severity:  SeverityWarning,
			Retryable: false,
			Alert:     true,
		},
		CodePipelineBusy: {
			Message:   "another write is still in flight",
			Severity:  SeverityInfo,
			Retryable: true,
			Alert:     false,
		},
		CodeInvalidName: {
			Message:   "invalid creature name",
			Severity:  SeverityInfo,
			Retryable: false,
			Alert:     false,
		},
		CodeNoCreature: {
			Message:   "no active creature",
			Severity:  SeverityInfo,
			Retryable: false,
			Alert:     false,
		},
		CodeStorageFailure: {
			Message:   "storage failure",
			Severity:  SeverityCritical,
			Retryable: true,
			Alert:     true,
		},
		CodeCacheFailure: {
			Message:   "cache failure",
			Severity:  SeverityInfo,
			Retryable: true,
			Alert:     false,
		},
		CodeAlertFailure: {
			Message:   "alert dispatch failure",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     false,
		},
		CodeTimeout: {
			Message:   "operation timed out",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
	}
)

// Register lets packages add or override code attributes during init.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the attributes for a code, falling back to UNKNOWN.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error is the single error type used across the client.
type Error struct {
	code      Code
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool
	alert     *bool
	severity  *Severity
}

// Option configures an Error at construction time.
type Option func(*Error)

// WithMetadata attaches a key/value pair to the error.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable overrides the registry default.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithAlert overrides whether the error should be dispatched as an alert.
func WithAlert(alert bool) Option {
	return func(e *Error) {
		e.alert = &alert
	}
}

// WithSeverity overrides the default severity.
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New builds an error for the given code. An empty message picks up the
// registry default.
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap attaches a cause to a freshly built error.
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches on the code so sentinel errors compare with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the human readable message.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata returns a copy of the attached metadata.
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable reports whether the caller may retry the failed operation.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return AttributesOf(e.code).Retryable
}

// ShouldAlert reports whether the error warrants an alert event.
func (e *Error) ShouldAlert() bool {
	if e == nil {
		return false
	}
	if e.alert != nil {
		return *e.alert
	}
	return AttributesOf(e.code).Alert
}

// Severity returns the effective severity.
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return AttributesOf(e.code).Severity
}

// From extracts the unified error type from an error chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of any error, UNKNOWN for foreign errors.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// RetryableError reports whether any error is retryable.
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

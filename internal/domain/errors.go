package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound      = fmt.Errorf("tool not found")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrMissingCredential = fmt.Errorf("missing API key")
	ErrProviderError     = fmt.Errorf("provider error")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrCircuitOpen       = fmt.Errorf("circuit open")
	ErrNoContent         = fmt.Errorf("no main content found")
	ErrSSRFBlocked       = fmt.Errorf("request to private/reserved IP blocked")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// timeoutError tags an error with ErrTimeout without changing its text.
type timeoutError struct{ err error }

func (e *timeoutError) Error() string   { return e.err.Error() }
func (e *timeoutError) Unwrap() []error { return []error{e.err, ErrTimeout} }

// MarkTimeout returns err tagged with ErrTimeout when it is a deadline or a
// net.Error reporting Timeout. Other errors are returned unchanged.
func MarkTimeout(err error) error {
	if err == nil || errors.Is(err, ErrTimeout) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &timeoutError{err: err}
	}
	return err
}

// ErrorKind classifies a tool failure. Each kind renders differently at the
// dispatcher boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConfig
	KindNetwork
	KindContent
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindNetwork:
		return "network"
	case KindContent:
		return "content"
	default:
		return "internal"
	}
}

// ToolError is the typed failure returned by tool handlers.
// Prefix is the short label used in rendered text ("search", "fetch").
type ToolError struct {
	Kind    ErrorKind
	Prefix  string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// ValidationError reports bad caller input. Message is shown verbatim.
func ValidationError(prefix, message string) *ToolError {
	return &ToolError{Kind: KindValidation, Prefix: prefix, Message: message, Err: ErrInvalidInput}
}

// ConfigError reports a missing or broken operator setting.
func ConfigError(prefix, message string, err error) *ToolError {
	return &ToolError{Kind: KindConfig, Prefix: prefix, Message: message, Err: err}
}

// NetworkError reports a failed call to an external dependency.
func NetworkError(prefix string, err error) *ToolError {
	return &ToolError{Kind: KindNetwork, Prefix: prefix, Err: err}
}

// ContentError reports a response that had nothing usable in it.
// Message is shown verbatim.
func ContentError(prefix, message string, err error) *ToolError {
	return &ToolError{Kind: KindContent, Prefix: prefix, Message: message, Err: err}
}

// InternalError reports an unexpected failure while processing a response
// or inside the tool itself.
func InternalError(prefix, message string, err error) *ToolError {
	return &ToolError{Kind: KindInternal, Prefix: prefix, Message: message, Err: err}
}

// RenderError turns any error into the text returned to the caller.
// Untyped errors render as "<prefix> error: <message>".
func RenderError(prefix string, err error) string {
	if err == nil {
		return ""
	}
	var te *ToolError
	if !errors.As(err, &te) {
		return fmt.Sprintf("%s error: %s", prefix, err)
	}
	if te.Prefix != "" {
		prefix = te.Prefix
	}
	switch te.Kind {
	case KindValidation:
		return te.Message
	case KindContent:
		return fmt.Sprintf("%s error: %s", prefix, te.Message)
	default:
		return fmt.Sprintf("%s error: %s", prefix, te.Error())
	}
}

// ErrorCode is a machine-parseable error category for logs and traces.
type ErrorCode string

const (
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeToolNotFound  ErrorCode = "TOOL_NOT_FOUND"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeMissingAPIKey ErrorCode = "MISSING_API_KEY"
	CodeConfig        ErrorCode = "CONFIG"
	CodeNetwork       ErrorCode = "NETWORK"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCircuitOpen   ErrorCode = "CIRCUIT_OPEN"
	CodeNoContent     ErrorCode = "NO_CONTENT"
	CodeSSRFBlocked   ErrorCode = "SSRF_BLOCKED"
	CodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	CodeInternal      ErrorCode = "INTERNAL"
	CodeContent       ErrorCode = "CONTENT"
)

// errorCodeMap maps sentinel errors to their codes. Sentinels take priority
// over the ToolError kind because they are more specific.
var errorCodeMap = map[error]ErrorCode{
	ErrToolNotFound:      CodeToolNotFound,
	ErrInvalidInput:      CodeInvalidInput,
	ErrMissingCredential: CodeMissingAPIKey,
	ErrProviderError:     CodeProviderError,
	ErrTimeout:           CodeTimeout,
	ErrCircuitOpen:       CodeCircuitOpen,
	ErrNoContent:         CodeNoContent,
	ErrSSRFBlocked:       CodeSSRFBlocked,
	ErrConfigLoad:        CodeConfigLoad,
}

var kindCodeMap = map[ErrorKind]ErrorCode{
	KindValidation: CodeInvalidInput,
	KindConfig:     CodeConfig,
	KindNetwork:    CodeNetwork,
	KindContent:    CodeContent,
	KindInternal:   CodeInternal,
}

// ErrorCodeOf returns the machine-parseable code for err.
// Returns CodeUnknown for nil or unclassified errors.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	var te *ToolError
	if errors.As(err, &te) {
		return kindCodeMap[te.Kind]
	}
	return CodeUnknown
}

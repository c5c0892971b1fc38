package errors

import (
	stdErrors "errors"
	"fmt"
	"sync"
)

// Code is the stable identifier of a wallet error.
type Code string

// Severity drives alerting and audit output.
type Severity string

// Category groups codes by how callers are expected to react.
type Category string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	// CategoryFatal errors need caller intervention (new passphrase, repaired file).
	CategoryFatal Category = "fatal"
	// CategoryRetryable errors feed the ledger client's retry and failover loop.
	CategoryRetryable Category = "retryable"
	// CategoryPolicy errors are authorization rejections and are never retried.
	CategoryPolicy Category = "policy"
	// CategoryValidation errors come from static transaction checks.
	CategoryValidation Category = "validation"
	// CategoryState errors mean the call is not valid for the current object state.
	CategoryState Category = "state"
)

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeKeyDerivation      Code = "KEY_DERIVATION"
	CodeAuthentication     Code = "AUTHENTICATION"
	CodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"
	CodeInvalidCiphertext  Code = "INVALID_CIPHERTEXT"
	CodeInvalidKey         Code = "INVALID_KEY"
	CodeSerialization      Code = "SERIALIZATION"
	CodeStorage            Code = "STORAGE"
	CodeNetwork            Code = "NETWORK"
	CodeTimeout            Code = "TIMEOUT"
	CodeRPC                Code = "RPC"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodePoolBusy           Code = "POOL_BUSY"
	CodeNoHealthyEndpoint  Code = "NO_HEALTHY_ENDPOINT"
	CodeRetriesExhausted   Code = "RETRIES_EXHAUSTED"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeLimitExceeded      Code = "LIMIT_EXCEEDED"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeValidation         Code = "VALIDATION"
	CodeNotSupported       Code = "NOT_SUPPORTED"
	CodeState              Code = "STATE"
)

// Attributes are the default behaviour attached to a code.
type Attributes struct {
	Message   string
	Severity  Severity
	Category  Category
	Retryable bool
	Alert     bool
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:            {Message: "unknown error", Severity: SeverityCritical, Category: CategoryFatal, Alert: true},
		CodeInvalidArgument:    {Message: "invalid argument", Severity: SeverityInfo, Category: CategoryValidation},
		CodeNotFound:           {Message: "wallet not found", Severity: SeverityInfo, Category: CategoryState},
		CodeAlreadyExists:      {Message: "wallet already exists", Severity: SeverityInfo, Category: CategoryState},
		CodeKeyDerivation:      {Message: "key derivation failed", Severity: SeverityWarning, Category: CategoryFatal},
		CodeAuthentication:     {Message: "authentication failed", Severity: SeverityWarning, Category: CategoryFatal},
		CodeUnsupportedVersion: {Message: "unsupported format version", Severity: SeverityWarning, Category: CategoryFatal},
		CodeInvalidCiphertext:  {Message: "malformed ciphertext", Severity: SeverityWarning, Category: CategoryFatal},
		CodeInvalidKey:         {Message: "invalid key material", Severity: SeverityCritical, Category: CategoryFatal, Alert: true},
		CodeSerialization:      {Message: "serialization failed", Severity: SeverityCritical, Category: CategoryFatal, Alert: true},
		CodeStorage:            {Message: "storage failure", Severity: SeverityCritical, Category: CategoryFatal, Alert: true},
		CodeNetwork:            {Message: "network failure", Severity: SeverityWarning, Category: CategoryRetryable, Retryable: true},
		CodeTimeout:            {Message: "operation timed out", Severity: SeverityWarning, Category: CategoryRetryable, Retryable: true},
		CodeRPC:                {Message: "rpc error", Severity: SeverityWarning, Category: CategoryRetryable, Retryable: true},
		CodeRateLimited:        {Message: "rate limit exceeded", Severity: SeverityInfo, Category: CategoryRetryable, Retryable: true},
		CodePoolBusy:           {Message: "all connections are in use", Severity: SeverityWarning, Category: CategoryRetryable, Retryable: true},
		CodeNoHealthyEndpoint:  {Message: "no healthy endpoint available", Severity: SeverityCritical, Category: CategoryRetryable, Alert: true},
		CodeRetriesExhausted:   {Message: "all retries failed", Severity: SeverityWarning, Category: CategoryRetryable, Alert: true},
		CodePermissionDenied:   {Message: "permission denied", Severity: SeverityWarning, Category: CategoryPolicy},
		CodeLimitExceeded:      {Message: "spending limit exceeded", Severity: SeverityWarning, Category: CategoryPolicy},
		CodeInsufficientFunds:  {Message: "insufficient funds", Severity: SeverityInfo, Category: CategoryPolicy},
		CodeValidation:         {Message: "transaction validation failed", Severity: SeverityInfo, Category: CategoryValidation},
		CodeNotSupported:       {Message: "operation not supported", Severity: SeverityInfo, Category: CategoryState},
		CodeState:              {Message: "invalid state", Severity: SeverityWarning, Category: CategoryState},
	}
)

// Register adds or overrides the attributes of a code.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the registered attributes, falling back to UNKNOWN.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error is the wallet's unified error type.
type Error struct {
	code      Code
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool
	severity  *Severity
}

// Option customises an Error at construction time.
type Option func(*Error)

// WithMetadata attaches a key/value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable overrides the code's default retry behaviour.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithSeverity overrides the code's default severity.
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New creates an error. An empty message falls back to the code's default.
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

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an error carrying cause.
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

// Is matches on code so errors.Is(err, errors.New(CodeNotFound, "")) works.
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

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

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

func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return AttributesOf(e.code).Retryable
}

func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return AttributesOf(e.code).Severity
}

func (e *Error) Category() Category {
	if e == nil {
		return CategoryFatal
	}
	return AttributesOf(e.code).Category
}

// From extracts the first *Error in err's chain.
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

// CodeOf returns the code of err or UNKNOWN.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{code: code})
}

// CategoryOf returns the category of err; untyped errors are fatal.
func CategoryOf(err error) Category {
	if e, ok := From(err); ok {
		return e.Category()
	}
	return CategoryFatal
}

// RetryableError reports whether err may be retried.
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

// Recoverable reports whether a later attempt of the same operation may
// succeed without caller intervention.
func Recoverable(err error) bool {
	return CategoryOf(err) == CategoryRetryable
}

// SeverityOf returns the severity of err.
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeUnknown).Severity
}

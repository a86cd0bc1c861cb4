package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound  ErrorCode = "PLAN-001"
	ErrCodePlanCorrupt   ErrorCode = "PLAN-002"
	ErrCodePlanExists    ErrorCode = "PLAN-003"
	ErrCodePlanMarshal   ErrorCode = "PLAN-004"
	ErrCodePlanUnmarshal ErrorCode = "PLAN-005"

	// Stage errors (STAGE-001 to STAGE-099)
	ErrCodeStageNotFound   ErrorCode = "STAGE-001"
	ErrCodeStageLocked     ErrorCode = "STAGE-002"
	ErrCodeStageDependency ErrorCode = "STAGE-003"

	// Task errors (TASK-001 to TASK-099)
	ErrCodeTaskNotFound      ErrorCode = "TASK-001"
	ErrCodeTaskInvalidStatus ErrorCode = "TASK-002"
	ErrCodeTaskInvalidMode   ErrorCode = "TASK-003"
	ErrCodeTaskReadOnly      ErrorCode = "TASK-004"

	// Synthesis errors (SYNTH-001 to SYNTH-099)
	ErrCodeSynthProviderNotFound ErrorCode = "SYNTH-001"
	ErrCodeSynthConfig           ErrorCode = "SYNTH-002"
	ErrCodeSynthAuth             ErrorCode = "SYNTH-003"
	ErrCodeSynthAPI              ErrorCode = "SYNTH-004"
	ErrCodeSynthRateLimit        ErrorCode = "SYNTH-005"
	ErrCodeSynthUnparseable      ErrorCode = "SYNTH-006"

	// Storage errors (STORE-001 to STORE-099)
	ErrCodeStoreNotFound    ErrorCode = "STORE-001"
	ErrCodeStoreReadFailed  ErrorCode = "STORE-002"
	ErrCodeStoreWriteFailed ErrorCode = "STORE-003"
	ErrCodeStoreRemote      ErrorCode = "STORE-004"

	// Gate errors (GATE-001 to GATE-099)
	ErrCodeGatePredecessor ErrorCode = "GATE-001"
	ErrCodeGatePremium     ErrorCode = "GATE-002"

	// License errors (LICENSE-001 to LICENSE-099)
	ErrCodeLicenseInvalid ErrorCode = "LICENSE-001"
	ErrCodeLicenseExpired ErrorCode = "LICENSE-002"
)

// CompassError represents an enhanced error with code, suggestions, and documentation
type CompassError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *CompassError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *CompassError) Unwrap() error {
	return e.Cause
}

// New creates a new CompassError
func New(code ErrorCode, message string) *CompassError {
	return &CompassError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CompassError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *CompassError {
	return &CompassError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *CompassError) WithSuggestion(suggestion string) *CompassError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *CompassError) WithSuggestions(suggestions ...string) *CompassError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *CompassError) WithDocs(url string) *CompassError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewPlanNotFoundError creates a plan not found error
func NewPlanNotFoundError(planID string) *CompassError {
	return New(ErrCodePlanNotFound, fmt.Sprintf("plan not found: %s", planID)).
		WithSuggestion("Run 'compass init' to start a new plan").
		WithSuggestion("Run 'compass status' to see the current plan")
}

// NewStageNotFoundError creates a stage not found error
func NewStageNotFoundError(stageID string) *CompassError {
	return New(ErrCodeStageNotFound, fmt.Sprintf("unknown stage: %s", stageID)).
		WithSuggestion("Use one of: discovery, validation, mvp, launch").
		WithSuggestion("Run 'compass status' to list stages")
}

// NewTaskNotFoundError creates a task not found error
func NewTaskNotFoundError(stageID, taskID string) *CompassError {
	return New(ErrCodeTaskNotFound, fmt.Sprintf("unknown task %q in stage %q", taskID, stageID)).
		WithSuggestion("Run 'compass status' to list tasks per stage")
}

// NewTaskReadOnlyError is returned when manual content is written to a task
// that is still in auto mode.
func NewTaskReadOnlyError(taskID string) *CompassError {
	return New(ErrCodeTaskReadOnly, fmt.Sprintf("task %q is in auto mode", taskID)).
		WithSuggestion(fmt.Sprintf("Run 'compass task mode <stage> %s manual' first", taskID))
}

// NewSynthAuthError creates a provider authentication error
func NewSynthAuthError(provider string) *CompassError {
	return New(ErrCodeSynthAuth, fmt.Sprintf("authentication failed for provider: %s", provider)).
		WithSuggestion(fmt.Sprintf("Set the %s_API_KEY environment variable", strings.ToUpper(provider))).
		WithSuggestion("Check if your API key is valid and not expired")
}

// NewSynthRateLimitError creates a rate limit error
func NewSynthRateLimitError(provider string, retryAfter string) *CompassError {
	msg := fmt.Sprintf("rate limit exceeded for provider: %s", provider)
	if retryAfter != "" {
		msg += fmt.Sprintf(" (retry after: %s)", retryAfter)
	}

	return New(ErrCodeSynthRateLimit, msg).
		WithSuggestion("Wait before retrying the request").
		WithSuggestion("Run 'compass refresh' again once the limit resets")
}

// NewStoreWriteError creates a persistence write error
func NewStoreWriteError(planID string, cause error) *CompassError {
	return Wrap(ErrCodeStoreWriteFailed, fmt.Sprintf("failed to persist plan %s", planID), cause).
		WithSuggestion("Check the workspace directory permissions").
		WithSuggestion("The in-memory plan state is unchanged; retry the command")
}

// NewStageLockedError creates a gated stage transition error
func NewStageLockedError(stageID, reason string) *CompassError {
	return New(ErrCodeStageLocked, fmt.Sprintf("stage %q is locked: %s", stageID, reason)).
		WithSuggestion("Complete the preceding stage first").
		WithSuggestion("Premium stages require a pro license; run 'compass license show'")
}

// NewLicenseExpiredError creates a license expiry error
func NewLicenseExpiredError() *CompassError {
	return New(ErrCodeLicenseExpired, "license expired").
		WithSuggestion("Run 'compass license activate' with a current key").
		WithSuggestion("Expired licenses fall back to the free tier")
}

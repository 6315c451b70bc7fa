package core

import "fmt"

// AdmissionError is the structured denial returned when a usage budget is
// exhausted. It is a normal decision, not a crash: callers branch on Action.
type AdmissionError struct {
	Message    string `json:"message"`
	Action     string `json:"action"` // "signup", "upgrade" or "new_conversation"
	TokensUsed int64  `json:"tokens_used"`
	TokenLimit int64  `json:"token_limit"`
}

func (e *AdmissionError) Error() string {
	return e.Message
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failed external call (enhancement or generation).
// Retrieval and accounting failures never surface as UpstreamError; they
// degrade in place.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

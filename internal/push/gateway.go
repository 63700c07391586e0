// Package push sends batched notifications to device tokens through a push
// provider and reports one result per token, index-aligned with the request.
package push

import (
	"context"
	"errors"
)

// ErrNoTokens is returned when a message has no recipients.
var ErrNoTokens = errors.New("push: message has no tokens")

// Provider error codes carried on failed results.
const (
	CodeUnregistered     = "unregistered"
	CodeInvalidArgument  = "invalid-argument"
	CodeSenderIDMismatch = "sender-id-mismatch"
	CodeQuotaExceeded    = "quota-exceeded"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
	CodeUnknown          = "unknown"
)

// Priority is the Android delivery priority.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Hints are platform delivery options.
type Hints struct {
	AndroidPriority Priority
	// ContentAvailable wakes the iOS app for background delivery.
	ContentAvailable bool
}

// Message is one batch send request.
type Message struct {
	Tokens []string
	// Title and Body are empty for data-only messages.
	Title string
	Body  string
	Data  map[string]string
	Hints Hints
}

// DataOnly reports whether the message carries no display content.
func (m *Message) DataOnly() bool {
	return m.Title == "" && m.Body == ""
}

// Result is the outcome for the token at the same index in Message.Tokens.
type Result struct {
	Token     string
	Success   bool
	MessageID string
	ErrorCode string
	Err       error
}

// Gateway delivers a message to every token in one batched call. An error
// means the batch as a whole failed and no results are available.
type Gateway interface {
	SendMulticast(ctx context.Context, msg *Message) ([]Result, error)
}

// IsPermanent reports provider codes that mean the token will never work again.
func IsPermanent(code string) bool {
	switch code {
	case CodeUnregistered, CodeInvalidArgument, CodeSenderIDMismatch:
		return true
	}
	return false
}

// Package notify queues short messages ("toasts") shown on a browser's next page.
package notify

import (
	"context"
	"fmt"
	"time"

	"rushweb/internal/rushclient"
)

// Level is the severity of a message.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// Message is one toast.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Store keeps pending messages per browser key.
type Store interface {
	Push(ctx context.Context, key string, msg Message) error
	Drain(ctx context.Context, key string) ([]Message, error)
	// Allow reserves key for gap. It returns false while an earlier reservation is live.
	Allow(ctx context.Context, key string, gap time.Duration) (bool, error)
}

// Notifier shows at most one message per key per throttle gap; the rest are dropped.
type Notifier struct {
	store Store
	gap   time.Duration
}

// New returns a notifier. A zero gap means one second.
func New(store Store, gap time.Duration) *Notifier {
	if gap <= 0 {
		gap = time.Second
	}
	return &Notifier{store: store, gap: gap}
}

// Show queues msg for key unless another message was shown within the gap.
func (n *Notifier) Show(ctx context.Context, key string, msg Message) (bool, error) {
	ok, err := n.store.Allow(ctx, key, n.gap)
	if err != nil {
		return false, fmt.Errorf("notify throttle: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := n.store.Push(ctx, key, msg); err != nil {
		return false, fmt.Errorf("notify push: %w", err)
	}
	return true, nil
}

// Drain pops every pending message of key, oldest first.
func (n *Notifier) Drain(ctx context.Context, key string) ([]Message, error) {
	msgs, err := n.store.Drain(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("notify drain: %w", err)
	}
	return msgs, nil
}

// Error, Warning, Info and Success build messages of the matching level.
func Error(text string) Message   { return Message{Level: LevelError, Text: text} }
func Warning(text string) Message { return Message{Level: LevelWarning, Text: text} }
func Info(text string) Message    { return Message{Level: LevelInfo, Text: text} }
func Success(text string) Message { return Message{Level: LevelSuccess, Text: text} }

// HandleError turns a failed backend call into a message. Rejections (401/403)
// become a warning with authText; every other failure becomes an error with internalText.
func HandleError(err error, authText, internalText string) Message {
	if rushclient.IsAuthError(err) {
		return Warning(authText)
	}
	return Error(internalText)
}

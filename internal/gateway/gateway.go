// Package gateway describes the chat platform as the dispatcher sees it:
// outbound messages with button grids and inbound interaction events.
package gateway

import (
	"context"
	"fmt"
)

// MessageRef identifies a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is either an action button (Action set) or a link (URL set).
type Button struct {
	Text   string
	Action string
	URL    string
}

// Controls attached to a message. Inline renders under the message;
// ContactRequest asks the user to share their phone through the client
// keyboard; RemoveKeyboard clears a previous contact request.
type Controls struct {
	Inline         [][]Button
	ContactRequest string
	RemoveKeyboard bool
}

// Row is a convenience for building one-row inline grids.
func Row(buttons ...Button) *Controls {
	return &Controls{Inline: [][]Button{buttons}}
}

type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, c *Controls) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, c *Controls) error
	EditControls(ctx context.Context, ref MessageRef, c *Controls) error
	// Acknowledge answers a button press. Urgent shows a blocking alert.
	Acknowledge(ctx context.Context, interactionID, text string, urgent bool) error
}

// Error wraps a failed gateway call.
type Error struct {
	Method string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("gateway: %s: %v", e.Method, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

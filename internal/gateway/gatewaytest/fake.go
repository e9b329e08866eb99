// Package gatewaytest provides a recording gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
)

type Call struct {
	Method   string
	ChatID   int64
	Ref      gateway.MessageRef
	Text     string
	Controls *gateway.Controls
	// Acknowledge fields.
	InteractionID string
	Urgent        bool
}

// Gateway records every call. Fail, when set, makes the named method fail.
type Gateway struct {
	mu     sync.Mutex
	calls  []Call
	nextID int
	Fail   map[string]error
}

var _ gateway.Gateway = (*Gateway)(nil)

func New() *Gateway { return &Gateway{Fail: map[string]error{}} }

func (g *Gateway) record(c Call) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
	if err := g.Fail[c.Method]; err != nil {
		return &gateway.Error{Method: c.Method, Err: err}
	}
	return nil
}

func (g *Gateway) Send(_ context.Context, chatID int64, text string, c *gateway.Controls) (gateway.MessageRef, error) {
	g.mu.Lock()
	g.nextID++
	ref := gateway.MessageRef{ChatID: chatID, MessageID: g.nextID}
	g.mu.Unlock()
	if err := g.record(Call{Method: "send", ChatID: chatID, Ref: ref, Text: text, Controls: c}); err != nil {
		return gateway.MessageRef{}, err
	}
	return ref, nil
}

func (g *Gateway) EditText(_ context.Context, ref gateway.MessageRef, text string, c *gateway.Controls) error {
	return g.record(Call{Method: "editText", ChatID: ref.ChatID, Ref: ref, Text: text, Controls: c})
}

func (g *Gateway) EditControls(_ context.Context, ref gateway.MessageRef, c *gateway.Controls) error {
	return g.record(Call{Method: "editControls", ChatID: ref.ChatID, Ref: ref, Controls: c})
}

func (g *Gateway) Acknowledge(_ context.Context, id, text string, urgent bool) error {
	return g.record(Call{Method: "ack", InteractionID: id, Text: text, Urgent: urgent})
}

// Calls returns the recorded calls, optionally filtered by method.
func (g *Gateway) Calls(method string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

// FirstAction returns the action token of the first inline button, or "".
func FirstAction(c *gateway.Controls) string {
	if c == nil || len(c.Inline) == 0 || len(c.Inline[0]) == 0 {
		return ""
	}
	return c.Inline[0][0].Action
}

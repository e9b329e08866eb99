package gateway

import "fmt"

// Event is one inbound interaction: Command, ContactShared, ButtonPressed or
// Ignored.
type Event interface {
	Kind() string
}

type Actor struct {
	ID        int64
	Handle    string
	FirstName string
	LastName  string
}

// Mention returns "@handle" or the numeric id when no handle is set.
func (a Actor) Mention() string {
	if a.Handle != "" {
		return "@" + a.Handle
	}
	return fmt.Sprint(a.ID)
}

type Chat struct {
	ID   int64
	Type string // private | group | supergroup | channel
}

func (c Chat) IsBroadcast() bool { return c.Type == "channel" }

type Command struct {
	Name  string
	Chat  Chat
	Actor *Actor // nil for channel posts
}

type ContactShared struct {
	Actor   Actor
	OwnerID int64 // user the shared contact belongs to
	Phone   string
	Chat    Chat
}

type ButtonPressed struct {
	Action        string
	OrderID       int64
	InteractionID string
	Actor         Actor
	Message       *MessageRef
}

// Ignored covers updates the dispatcher has no use for. InteractionID is set
// when the update still needs an acknowledgement.
type Ignored struct {
	InteractionID string
}

func (Command) Kind() string       { return "command" }
func (ContactShared) Kind() string { return "contact" }
func (ButtonPressed) Kind() string { return "button" }
func (Ignored) Kind() string       { return "ignored" }

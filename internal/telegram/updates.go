package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
)

// ParseUpdate normalizes a webhook update into a gateway event.
func ParseUpdate(u tgbotapi.Update) gateway.Event {
	switch {
	case u.CallbackQuery != nil:
		return parseCallback(u.CallbackQuery)
	case u.Message != nil:
		return parseMessage(u.Message)
	case u.ChannelPost != nil:
		return parseMessage(u.ChannelPost)
	}
	return gateway.Ignored{}
}

func parseCallback(q *tgbotapi.CallbackQuery) gateway.Event {
	if q.Data == "" || q.Message == nil || q.From == nil {
		return gateway.Ignored{InteractionID: q.ID}
	}
	action, orderID := gateway.ParseActionToken(q.Data)
	ev := gateway.ButtonPressed{
		Action:        action,
		OrderID:       orderID,
		InteractionID: q.ID,
		Actor:         actor(q.From),
	}
	if q.Message.Chat != nil {
		ev.Message = &gateway.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
	}
	return ev
}

func parseMessage(m *tgbotapi.Message) gateway.Event {
	if m.Chat == nil {
		return gateway.Ignored{}
	}
	chat := gateway.Chat{ID: m.Chat.ID, Type: m.Chat.Type}

	if m.Contact != nil {
		if m.From == nil {
			return gateway.Ignored{}
		}
		return gateway.ContactShared{
			Actor:   actor(m.From),
			OwnerID: m.Contact.UserID,
			Phone:   m.Contact.PhoneNumber,
			Chat:    chat,
		}
	}

	name, ok := commandName(m.Text)
	if !ok {
		return gateway.Ignored{}
	}
	cmd := gateway.Command{Name: name, Chat: chat}
	if m.From != nil {
		a := actor(m.From)
		cmd.Actor = &a
	}
	return cmd
}

// commandName extracts "start" from "/start@somebot payload".
func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd), cmd != ""
}

func actor(u *tgbotapi.User) gateway.Actor {
	return gateway.Actor{
		ID:        u.ID,
		Handle:    u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

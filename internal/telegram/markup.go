package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
)

// replyMarkup converts controls for sendMessage, which accepts inline,
// reply or remove keyboards.
func replyMarkup(c *gateway.Controls) any {
	switch {
	case c == nil:
		return nil
	case c.ContactRequest != "":
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(c.ContactRequest)),
		)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		return kb
	case c.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	case len(c.Inline) > 0:
		if kb := inlineMarkup(c); kb != nil {
			return *kb
		}
	}
	return nil
}

// inlineMarkup converts the inline part of controls; nil removes the keyboard.
func inlineMarkup(c *gateway.Controls) *tgbotapi.InlineKeyboardMarkup {
	if c == nil || len(c.Inline) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(c.Inline))
	for _, r := range c.Inline {
		if len(r) == 0 {
			continue
		}
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Action))
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

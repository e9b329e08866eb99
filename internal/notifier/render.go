package notifier

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

var printer = message.NewPrinter(language.Russian)

var kindLabels = map[orders.JobKind]string{
	orders.KindRide:     "ТАКСИ",
	orders.KindDelivery: "ДОСТАВКА",
}

func escape(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeHTML, s) }

// RenderSummary renders the order as HTML. Free-text fields are escaped.
func RenderSummary(o *orders.Order) string {
	label, ok := kindLabels[o.Kind]
	if !ok {
		label = escape(string(o.Kind))
	}
	head := "<b>" + label + "</b>"
	if o.City != nil && *o.City != "" {
		head += " · " + escape(*o.City)
	}

	lines := []string{
		head,
		"От: <b>" + escape(o.Origin) + "</b>",
		"Куда: <b>" + escape(o.Destination) + "</b>",
	}
	if o.Comment != nil && *o.Comment != "" {
		lines = append(lines, "Комментарий: "+escape(*o.Comment))
	}
	if o.DistanceKm != nil && *o.DistanceKm > 0 {
		lines = append(lines, "Дистанция: "+printer.Sprint(number.Decimal(*o.DistanceKm, number.MaxFractionDigits(1)))+" км")
	}
	if o.PriceEstimate != nil && *o.PriceEstimate > 0 {
		lines = append(lines, "Предварительно: <b>"+printer.Sprint(number.Decimal(*o.PriceEstimate, number.MaxFractionDigits(0)))+"₸</b>")
	}
	return strings.Join(lines, "\n")
}

// claimantMention is "@handle", or the worker id when no handle is known.
func claimantMention(o *orders.Order) string {
	if o.ClaimantHandle != nil && *o.ClaimantHandle != "" {
		return "@" + *o.ClaimantHandle
	}
	if o.ClaimantID != nil {
		return strconv.FormatInt(*o.ClaimantID, 10)
	}
	return ""
}

// Package notifier turns order state into chat messages: the broadcast post
// in the drivers channel and the direct messages to workers.
package notifier

import (
	"context"
	"strconv"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

type Notifier struct {
	GW gateway.Gateway
	// SiteURL, when set, adds an "open on site" link to new posts.
	SiteURL string
}

func New(gw gateway.Gateway, siteURL string) *Notifier {
	return &Notifier{GW: gw, SiteURL: siteURL}
}

// openControls is the keyboard of an unclaimed broadcast post.
func (n *Notifier) openControls(orderID int64) *gateway.Controls {
	c := gateway.Row(gateway.Button{Text: btnClaim, Action: gateway.ActionToken(gateway.ActionClaim, orderID)})
	if n.SiteURL != "" {
		c.Inline = append(c.Inline, []gateway.Button{{Text: btnOpenSite, URL: n.SiteURL + "/client"}})
	}
	return c
}

// PublishNew posts the order to the channel and returns the post reference.
func (n *Notifier) PublishNew(ctx context.Context, o *orders.Order, channelID int64) (gateway.MessageRef, error) {
	return n.GW.Send(ctx, channelID, RenderSummary(o), n.openControls(o.ID))
}

func broadcastRef(o *orders.Order) (gateway.MessageRef, bool) {
	if !o.Published() {
		return gateway.MessageRef{}, false
	}
	return gateway.MessageRef{ChatID: *o.BroadcastChatID, MessageID: *o.BroadcastMessageID}, true
}

// MarkClaimed edits the broadcast post to show the claimant. No-op when the
// order was never published.
func (n *Notifier) MarkClaimed(ctx context.Context, o *orders.Order) error {
	ref, ok := broadcastRef(o)
	if !ok {
		return nil
	}
	who := escape(claimantMention(o))
	text := RenderSummary(o) + "\n\n<i>" + textTakenBy + who + "</i>"
	taken := gateway.Row(gateway.Button{Text: btnTaken + " " + claimantMention(o), Action: gateway.ActionNoop})
	return n.GW.EditText(ctx, ref, text, taken)
}

// MarkReleased restores the unclaimed post with the claim button.
func (n *Notifier) MarkReleased(ctx context.Context, o *orders.Order) error {
	ref, ok := broadcastRef(o)
	if !ok {
		return nil
	}
	return n.GW.EditText(ctx, ref, RenderSummary(o), n.openControls(o.ID))
}

// NotifyWorkerOfClaim sends the claimant the order details and a release button.
func (n *Notifier) NotifyWorkerOfClaim(ctx context.Context, o *orders.Order, workerID int64) error {
	text := textNewOrderTitle + strconv.FormatInt(o.ID, 10) + "\n" + RenderSummary(o)
	if o.RequesterPhone != nil && *o.RequesterPhone != "" {
		text += "\n" + textClientPhone + "<b>" + escape(*o.RequesterPhone) + "</b>"
	}
	release := gateway.Row(gateway.Button{Text: btnRelease, Action: gateway.ActionToken(gateway.ActionRelease, o.ID)})
	_, err := n.GW.Send(ctx, workerID, text, release)
	return err
}

// NotifyRegistration greets a worker; without a phone on file it asks for one.
func (n *Notifier) NotifyRegistration(ctx context.Context, workerID int64, hasPhone bool) error {
	if hasPhone {
		_, err := n.GW.Send(ctx, workerID, textReady, nil)
		return err
	}
	_, err := n.GW.Send(ctx, workerID, textAskPhone, &gateway.Controls{ContactRequest: btnSharePhone})
	return err
}

func (n *Notifier) ConfirmPhone(ctx context.Context, workerID int64) error {
	_, err := n.GW.Send(ctx, workerID, textPhoneSaved, &gateway.Controls{RemoveKeyboard: true})
	return err
}

func (n *Notifier) ConfirmBinding(ctx context.Context, channelID int64) error {
	_, err := n.GW.Send(ctx, channelID, textBound, nil)
	return err
}

func (n *Notifier) Help(ctx context.Context, chatID int64) error {
	_, err := n.GW.Send(ctx, chatID, textHelp, nil)
	return err
}

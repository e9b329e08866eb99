package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/telegram"
)

var tracer = otel.Tracer("dispatch/httpx")

// EventHandler is satisfied by *bot.Router.
type EventHandler interface {
	Handle(ctx context.Context, ev gateway.Event) error
}

type Deduper interface {
	Seen(ctx context.Context, service, id string) (bool, error)
}

type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, url string) error
}

type WebhookHandler struct {
	Events    EventHandler
	Dedup     Deduper          // optional
	Registrar WebhookRegistrar // optional
	Secret    string
	PublicURL string
	Logger    *slog.Logger
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/tg/webhook", h.receive)
	r.Get("/tg/set-webhook", h.setWebhook)
}

// authorized fails closed: without a configured secret nothing is accepted.
func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.Secret == "" {
		return false
	}
	got := r.URL.Query().Get("secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) == 1
}

// receive always answers 200 once the update is accepted, so the platform
// does not redeliver updates that failed inside the dispatcher.
func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		// redelivery tidak akan memperbaiki body rusak
		h.Logger.Warn("drop undecodable update", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	ctx, span := tracer.Start(r.Context(), "tg.webhook", trace.WithAttributes(attribute.Int("update.id", u.UpdateID)))
	defer span.End()

	if h.Dedup != nil && u.UpdateID != 0 {
		seen, err := h.Dedup.Seen(ctx, "webhook", strconv.Itoa(u.UpdateID))
		switch {
		case err != nil:
			// redis down: proses saja, klaim tetap aman di store
			h.Logger.Warn("update dedup failed", "update_id", u.UpdateID, "error", err)
		case seen:
			h.Logger.Info("duplicate update skipped", "update_id", u.UpdateID)
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
	}

	ev := telegram.ParseUpdate(u)
	if err := h.Events.Handle(ctx, ev); err != nil {
		span.RecordError(err)
		h.Logger.Error("handle update failed", "update_id", u.UpdateID, "kind", ev.Kind(), "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *WebhookHandler) setWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if h.Registrar == nil || h.PublicURL == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "webhook registration not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	hook := h.PublicURL + "/tg/webhook?secret=" + url.QueryEscape(h.Secret)
	if err := h.Registrar.SetWebhook(ctx, hook); err != nil {
		h.Logger.Error("set webhook failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "set webhook failed"})
		return
	}
	h.Logger.Info("webhook registered", "url", h.PublicURL+"/tg/webhook")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-order-dispatch/internal/notifier"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

// OrderCache is the redis side of the order endpoints. Optional.
type OrderCache interface {
	IdempotentOrder(ctx context.Context, key string) (int64, bool, error)
	RememberOrder(ctx context.Context, key string, orderID int64) error
	OrderStatus(ctx context.Context, orderID int64) (*orders.StatusView, bool, error)
	// SetOrderStatus must not replace a newer cached status.
	SetOrderStatus(ctx context.Context, v orders.StatusView) (bool, error)
}

type OrdersHandler struct {
	Store    orders.Store
	Notifier *notifier.Notifier
	Cache    OrderCache       // optional
	Events   orders.Publisher // optional
	Service  string
	Logger   *slog.Logger
}

// CreateOrderReq accepts both the API field names and the aliases sent by
// the client web form (type/from/to/...).
type CreateOrderReq struct {
	Kind           string   `json:"job_kind"`
	Type           string   `json:"type"`
	City           *string  `json:"city"`
	Origin         string   `json:"origin"`
	From           string   `json:"from"`
	Destination    string   `json:"destination"`
	To             string   `json:"to"`
	Comment        *string  `json:"comment"`
	DistanceKm     *float64 `json:"distance_km"`
	DistanceKmAlt  *float64 `json:"distanceKm"`
	PriceEstimate  *float64 `json:"price_estimate"`
	PriceAlt       *float64 `json:"priceEstimate"`
	RequesterPhone *string  `json:"requester_phone"`
	ClientPhone    *string  `json:"clientPhone"`
}

type CreateOrderResp struct {
	Order      *orders.Order `json:"order"`
	Published  bool          `json:"published"`
	Idempotent bool          `json:"idempotent"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
}

func (req CreateOrderReq) input() orders.OrderInput {
	raw := strings.TrimSpace(firstNonEmpty(req.Kind, req.Type))
	kind, ok := orders.ParseJobKind(raw)
	if !ok {
		// biarkan validator yang menolak
		kind = orders.JobKind(strings.ToUpper(raw))
	}
	return orders.OrderInput{
		Kind:           kind,
		City:           nonBlank(req.City),
		Origin:         firstNonEmpty(req.Origin, req.From),
		Destination:    firstNonEmpty(req.Destination, req.To),
		Comment:        nonBlank(req.Comment),
		DistanceKm:     firstSet(req.DistanceKm, req.DistanceKmAlt),
		PriceEstimate:  firstSet(req.PriceEstimate, req.PriceAlt),
		RequesterPhone: nonBlank(firstSet(req.RequesterPhone, req.ClientPhone)),
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis (optional)
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Cache != nil {
		if id, ok, err := h.Cache.IdempotentOrder(ctx, idemKey); err != nil {
			h.Logger.Warn("idempotency lookup failed", "error", err)
		} else if ok {
			if o, err := h.Store.GetOrder(ctx, id); err == nil {
				writeJSON(w, http.StatusOK, CreateOrderResp{Order: o, Published: o.Published(), Idempotent: true})
				return
			}
		}
	}

	o, err := h.Store.CreateOrder(ctx, req.input())
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verr.Fields})
		return
	case err != nil:
		h.Logger.Error("create order failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.Logger.Info("order created", "order_id", o.ID, "kind", o.Kind)

	if idemKey != "" && h.Cache != nil {
		if err := h.Cache.RememberOrder(ctx, idemKey, o.ID); err != nil {
			h.Logger.Warn("remember idempotency key failed", "order_id", o.ID, "error", err)
		}
	}

	published := h.publish(ctx, o)

	err = orders.Emit(ctx, h.Events, orders.EventOrderCreated, h.Service, middleware.GetReqID(r.Context()), o.ID,
		orders.OrderCreatedPayload{OrderID: o.ID, Kind: o.Kind, Origin: o.Origin, Destination: o.Destination, Published: published})
	if err != nil {
		h.Logger.Warn("publish event failed", "order_id", o.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{Order: o, Published: published})
}

// publish posts the order to the bound channel and stores the post ref.
// The order exists either way; a failure here only leaves it unpublished.
func (h *OrdersHandler) publish(ctx context.Context, o *orders.Order) bool {
	channelID, ok, err := h.Store.GetChannelBinding(ctx)
	if err != nil {
		h.Logger.Error("read channel binding failed", "order_id", o.ID, "error", err)
		return false
	}
	if !ok {
		h.Logger.Warn("drivers channel not bound, order not published", "order_id", o.ID)
		return false
	}
	ref, err := h.Notifier.PublishNew(ctx, o, channelID)
	if err != nil {
		h.Logger.Error("publish to channel failed", "order_id", o.ID, "chat_id", channelID, "error", err)
		return false
	}
	if err := h.Store.AttachBroadcastRef(ctx, o.ID, ref.ChatID, ref.MessageID); err != nil {
		h.Logger.Error("attach broadcast ref failed", "order_id", o.ID, "error", err)
		return false
	}
	o.BroadcastChatID = &ref.ChatID
	o.BroadcastMessageID = &ref.MessageID
	return true
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Cache != nil {
		if v, ok, err := h.Cache.OrderStatus(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, v)
			return
		}
	}

	// 2) fallback store
	o, err := h.Store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		h.Logger.Error("get order failed", "order_id", orderID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	v := orders.ViewOf(o)
	if h.Cache != nil {
		// snapshot ini bisa kalah cepat dari claim/release; cache menolak yang lebih lama
		if _, err := h.Cache.SetOrderStatus(ctx, v); err != nil {
			h.Logger.Warn("cache order status failed", "order_id", orderID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSet[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-order-dispatch/internal/bot"
	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/gateway/gatewaytest"
	"github.com/ariefcatur/go-order-dispatch/internal/notifier"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
	"github.com/ariefcatur/go-order-dispatch/internal/workers"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingEvents struct {
	mu  sync.Mutex
	got []gateway.Event
	err error
}

func (e *recordingEvents) Handle(_ context.Context, ev gateway.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, ev)
	return e.err
}

type memCache struct {
	seen  map[string]bool
	idem  map[string]int64
	views map[int64]orders.StatusView
}

func newMemCache() *memCache {
	return &memCache{seen: map[string]bool{}, idem: map[string]int64{}, views: map[int64]orders.StatusView{}}
}

func (c *memCache) Seen(_ context.Context, service, id string) (bool, error) {
	k := service + ":" + id
	was := c.seen[k]
	c.seen[k] = true
	return was, nil
}

func (c *memCache) IdempotentOrder(_ context.Context, key string) (int64, bool, error) {
	id, ok := c.idem[key]
	return id, ok, nil
}

func (c *memCache) RememberOrder(_ context.Context, key string, id int64) error {
	c.idem[key] = id
	return nil
}

func (c *memCache) OrderStatus(_ context.Context, id int64) (*orders.StatusView, bool, error) {
	v, ok := c.views[id]
	return &v, ok, nil
}

// SetOrderStatus keeps the newest view, like the redis script.
func (c *memCache) SetOrderStatus(_ context.Context, v orders.StatusView) (bool, error) {
	if cur, ok := c.views[v.OrderID]; ok && cur.UpdatedAt.After(v.UpdatedAt) {
		return false, nil
	}
	c.views[v.OrderID] = v
	return true, nil
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func webhookServer(events EventHandler, cache Deduper) *chi.Mux {
	return webhookServerWithSecret(events, cache, "s3cret")
}

func webhookServerWithSecret(events EventHandler, cache Deduper, secret string) *chi.Mux {
	r := NewRouter()
	(&WebhookHandler{Events: events, Dedup: cache, Secret: secret, Logger: discard}).Register(r)
	return r
}

const callbackUpdate = `{"update_id": 10, "callback_query": {"id": "cb1", "data": "accept:7",
	"from": {"id": 5, "username": "w5"}, "message": {"message_id": 3, "chat": {"id": -100, "type": "channel"}}}}`

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		target     string
		body       string
		handlerErr error
		wantCode   int
		wantEvents int
	}{
		{"bad secret", "s3cret", "/tg/webhook?secret=nope", callbackUpdate, nil, http.StatusUnauthorized, 0},
		{"missing secret", "s3cret", "/tg/webhook", callbackUpdate, nil, http.StatusUnauthorized, 0},
		{"no secret configured", "", "/tg/webhook", callbackUpdate, nil, http.StatusUnauthorized, 0},
		{"no secret configured, empty param", "", "/tg/webhook?secret=", callbackUpdate, nil, http.StatusUnauthorized, 0},
		{"malformed body", "s3cret", "/tg/webhook?secret=s3cret", "{", nil, http.StatusOK, 0},
		{"ok", "s3cret", "/tg/webhook?secret=s3cret", callbackUpdate, nil, http.StatusOK, 1},
		{"handler error still 200", "s3cret", "/tg/webhook?secret=s3cret", callbackUpdate, errors.New("db down"), http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recordingEvents{err: tt.handlerErr}
			rec := do(t, webhookServerWithSecret(events, newMemCache(), tt.secret), http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("got %d, want %d", rec.Code, tt.wantCode)
			}
			if len(events.got) != tt.wantEvents {
				t.Fatalf("got %d events, want %d", len(events.got), tt.wantEvents)
			}
		})
	}
}

func TestWebhookParsesButton(t *testing.T) {
	events := &recordingEvents{}
	do(t, webhookServer(events, nil), http.MethodPost, "/tg/webhook?secret=s3cret", callbackUpdate)
	if len(events.got) != 1 {
		t.Fatalf("got %d events", len(events.got))
	}
	bp, ok := events.got[0].(gateway.ButtonPressed)
	if !ok || bp.Action != gateway.ActionClaim || bp.OrderID != 7 || bp.Actor.ID != 5 || bp.InteractionID != "cb1" {
		t.Fatalf("got %#v", events.got[0])
	}
}

func TestWebhookSkipsRedeliveredUpdate(t *testing.T) {
	events := &recordingEvents{}
	srv := webhookServer(events, newMemCache())
	for i := 0; i < 3; i++ {
		if rec := do(t, srv, http.MethodPost, "/tg/webhook?secret=s3cret", callbackUpdate); rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: got %d", i, rec.Code)
		}
	}
	if len(events.got) != 1 {
		t.Fatalf("got %d events, want 1", len(events.got))
	}
}

type registrar struct{ url string }

func (r *registrar) SetWebhook(_ context.Context, url string) error {
	r.url = url
	return nil
}

func TestSetWebhook(t *testing.T) {
	reg := &registrar{}
	r := NewRouter()
	(&WebhookHandler{Events: &recordingEvents{}, Registrar: reg, Secret: "a b", PublicURL: "https://x.example", Logger: discard}).Register(r)

	open := NewRouter()
	(&WebhookHandler{Events: &recordingEvents{}, Registrar: reg, PublicURL: "https://x.example", Logger: discard}).Register(open)
	if rec := do(t, open, http.MethodGet, "/tg/set-webhook", ""); rec.Code != http.StatusUnauthorized || reg.url != "" {
		t.Fatalf("no secret configured: got %d, registered %q", rec.Code, reg.url)
	}

	if rec := do(t, r, http.MethodGet, "/tg/set-webhook?secret=wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/tg/set-webhook?secret=a+b", ""); rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if reg.url != "https://x.example/tg/webhook?secret=a+b" {
		t.Fatalf("registered %q", reg.url)
	}
}

type intake struct {
	srv   *chi.Mux
	store *orders.MemoryStore
	gw    *gatewaytest.Gateway
	cache *memCache
}

func newIntake(t *testing.T) *intake {
	t.Helper()
	in := &intake{store: orders.NewMemoryStore(), gw: gatewaytest.New(), cache: newMemCache()}
	in.srv = NewRouter()
	(&OrdersHandler{
		Store:    in.store,
		Notifier: notifier.New(in.gw, ""),
		Cache:    in.cache,
		Service:  "test",
		Logger:   discard,
	}).Register(in.srv)
	return in
}

func decodeResp(t *testing.T, rec *httptest.ResponseRecorder) CreateOrderResp {
	t.Helper()
	var resp CreateOrderResp
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing origin", `{"type":"TAXI","to":"B"}`},
		{"blank destination", `{"type":"TAXI","from":"A","to":"   "}`},
		{"unknown kind", `{"type":"BOAT","from":"A","to":"B"}`},
		{"negative price", `{"job_kind":"RIDE","origin":"A","destination":"B","price_estimate":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newIntake(t)
			if rec := do(t, in.srv, http.MethodPost, "/orders", tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400: %s", rec.Code, rec.Body)
			}
			if len(in.gw.Calls("")) != 0 {
				t.Fatal("rejected order was published")
			}
		})
	}
}

func TestCreateOrderPublishes(t *testing.T) {
	in := newIntake(t)
	ctx := context.Background()
	if err := in.store.SetChannelBinding(ctx, -100); err != nil {
		t.Fatal(err)
	}

	rec := do(t, in.srv, http.MethodPost, "/orders",
		`{"type":"TAXI","from":"Lenina 1","to":"Airport","priceEstimate":1500,"clientPhone":"+7 700"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body)
	}
	resp := decodeResp(t, rec)
	if !resp.Published || resp.Order.Kind != orders.KindRide || *resp.Order.RequesterPhone != "+7 700" {
		t.Fatalf("got %+v", resp)
	}

	sent := in.gw.Calls("send")
	if len(sent) != 1 || sent[0].ChatID != -100 {
		t.Fatalf("sent = %+v", sent)
	}
	if gatewaytest.FirstAction(sent[0].Controls) != gateway.ActionToken(gateway.ActionClaim, resp.Order.ID) {
		t.Fatalf("post controls = %+v", sent[0].Controls)
	}
	stored, _ := in.store.GetOrder(ctx, resp.Order.ID)
	if !stored.Published() || *stored.BroadcastMessageID != sent[0].Ref.MessageID {
		t.Fatalf("stored ref = %v/%v", stored.BroadcastChatID, stored.BroadcastMessageID)
	}
}

func TestCreateOrderWithoutChannelOrGateway(t *testing.T) {
	tests := []struct {
		name    string
		bind    bool
		sendErr error
	}{
		{"channel not bound", false, nil},
		{"gateway down", true, errors.New("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newIntake(t)
			if tt.bind {
				_ = in.store.SetChannelBinding(context.Background(), -100)
			}
			if tt.sendErr != nil {
				in.gw.Fail["send"] = tt.sendErr
			}
			rec := do(t, in.srv, http.MethodPost, "/orders", `{"job_kind":"DELIVERY","origin":"A","destination":"B"}`)
			if rec.Code != http.StatusCreated {
				t.Fatalf("got %d, want 201", rec.Code)
			}
			resp := decodeResp(t, rec)
			if resp.Published {
				t.Fatal("got published")
			}
			if o, err := in.store.GetOrder(context.Background(), resp.Order.ID); err != nil || o.Status != orders.StatusOpen {
				t.Fatalf("order not stored: %v", err)
			}
		})
	}
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	in := newIntake(t)
	body := `{"job_kind":"RIDE","origin":"A","destination":"B"}`

	first := decodeResp(t, do(t, in.srv, http.MethodPost, "/orders", body, "Idempotency-Key", "k-1"))
	rec := do(t, in.srv, http.MethodPost, "/orders", body, "Idempotency-Key", "k-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("replay got %d, want 200", rec.Code)
	}
	second := decodeResp(t, rec)
	if !second.Idempotent || second.Order.ID != first.Order.ID {
		t.Fatalf("replay = %+v, want order %d", second, first.Order.ID)
	}
}

func TestGetOrder(t *testing.T) {
	in := newIntake(t)
	o, err := in.store.CreateOrder(context.Background(), orders.OrderInput{Kind: orders.KindRide, Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/orders/abc", http.StatusBadRequest},
		{"/orders/999", http.StatusNotFound},
		{"/orders/1", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, in.srv, http.MethodGet, tt.target, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}
	if v, ok := in.cache.views[o.ID]; !ok || v.Status != orders.StatusOpen {
		t.Fatalf("status not cached: %+v", v)
	}

	// cache wins over the store
	w := int64(4)
	in.cache.views[o.ID] = orders.StatusView{OrderID: o.ID, Status: orders.StatusClaimed, ClaimantID: &w, UpdatedAt: time.Now().Add(time.Hour)}
	var v orders.StatusView
	_ = json.NewDecoder(do(t, in.srv, http.MethodGet, "/orders/1", "").Body).Decode(&v)
	if v.Status != orders.StatusClaimed {
		t.Fatalf("got %+v, want cached CLAIMED", v)
	}
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("amqp: connection is closed") }
	tests := []struct {
		name     string
		checks   []HealthCheck
		wantCode int
	}{
		{"no checks", nil, http.StatusOK},
		{"all healthy", []HealthCheck{ok, ok}, http.StatusOK},
		{"one down", []HealthCheck{ok, down}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewRouter(tt.checks...), http.MethodGet, "/healthz", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("got %d %q, want %d", rec.Code, rec.Body, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && rec.Body.String() != "ok" {
				t.Fatalf("body %q", rec.Body)
			}
		})
	}
}

func getStatus(t *testing.T, h http.Handler, id int64) orders.StatusView {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET order %d = %d", id, rec.Code)
	}
	var v orders.StatusView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestGetOrderFollowsClaimAndRelease(t *testing.T) {
	in := newIntake(t)
	ctx := context.Background()
	router := bot.NewRouter(in.store, workers.NewMemoryRegistry(), notifier.New(in.gw, ""), nil, "test", discard)
	router.Statuses = in.cache

	o := decodeResp(t, do(t, in.srv, http.MethodPost, "/orders", `{"job_kind":"RIDE","origin":"A","destination":"B"}`)).Order
	if v := getStatus(t, in.srv, o.ID); v.Status != orders.StatusOpen {
		t.Fatalf("before claim: %s", v.Status)
	}

	worker := gateway.Actor{ID: 9, Handle: "w9"}
	claim := gateway.ButtonPressed{Action: gateway.ActionClaim, OrderID: o.ID, InteractionID: "cb1", Actor: worker}
	if err := router.Handle(ctx, claim); err != nil {
		t.Fatal(err)
	}
	v := getStatus(t, in.srv, o.ID)
	if v.Status != orders.StatusClaimed || v.ClaimantID == nil || *v.ClaimantID != 9 {
		t.Fatalf("after claim: %+v", v)
	}

	release := gateway.ButtonPressed{Action: gateway.ActionRelease, OrderID: o.ID, InteractionID: "cb2", Actor: worker}
	if err := router.Handle(ctx, release); err != nil {
		t.Fatal(err)
	}
	if v := getStatus(t, in.srv, o.ID); v.Status != orders.StatusOpen || v.ClaimantID != nil {
		t.Fatalf("after release: %+v", v)
	}
}

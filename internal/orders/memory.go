package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. Safe for concurrent access; the claim
// predicate is checked and applied under one lock. Intended for tests and
// local development (STORE_DRIVER=memory).
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]*Order
	channel *int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int64]*Order), now: time.Now}
}

func (m *MemoryStore) CreateOrder(_ context.Context, in OrderInput) (*Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now().UTC()
	o := &Order{
		ID:             m.nextID,
		Kind:           in.Kind,
		City:           in.City,
		Origin:         in.Origin,
		Destination:    in.Destination,
		Comment:        in.Comment,
		DistanceKm:     in.DistanceKm,
		PriceEstimate:  in.PriceEstimate,
		RequesterPhone: in.RequesterPhone,
		Status:         StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.orders[o.ID] = o
	return clone(o), nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(o), nil
}

func (m *MemoryStore) AttachBroadcastRef(_ context.Context, id, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.BroadcastMessageID != nil {
		return nil
	}
	o.BroadcastChatID = &chatID
	o.BroadcastMessageID = &messageID
	o.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) TryClaim(_ context.Context, id int64, c Claimant) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(o.Status, StatusClaimed) || o.ClaimantID != nil {
		return nil, ErrClaimConflict
	}
	now := m.now().UTC()
	wid := c.WorkerID
	o.Status = StatusClaimed
	o.ClaimantID = &wid
	o.ClaimantHandle = c.Handle
	o.ClaimantPhone = c.Phone
	o.ClaimedAt = &now
	o.UpdatedAt = now
	return clone(o), nil
}

func (m *MemoryStore) Release(_ context.Context, id, workerID int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(o.Status, StatusOpen) {
		return nil, ErrNotClaimed
	}
	if !o.ClaimedBy(workerID) {
		return nil, ErrNotAuthorized
	}
	o.Status = StatusOpen
	o.ClaimantID = nil
	o.ClaimantHandle = nil
	o.ClaimantPhone = nil
	o.ClaimedAt = nil
	o.UpdatedAt = m.now().UTC()
	return clone(o), nil
}

func (m *MemoryStore) GetChannelBinding(_ context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channel == nil {
		return 0, false, nil
	}
	return *m.channel, true, nil
}

func (m *MemoryStore) SetChannelBinding(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channel = &chatID
	return nil
}

func (m *MemoryStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[Status]int{StatusOpen: 0, StatusClaimed: 0}
	for _, o := range m.orders {
		out[o.Status]++
	}
	return out, nil
}

// clone copies the record so callers never share pointers with the store.
func clone(o *Order) *Order {
	c := *o
	c.City = cloneStr(o.City)
	c.Comment = cloneStr(o.Comment)
	c.RequesterPhone = cloneStr(o.RequesterPhone)
	c.ClaimantHandle = cloneStr(o.ClaimantHandle)
	c.ClaimantPhone = cloneStr(o.ClaimantPhone)
	if o.DistanceKm != nil {
		v := *o.DistanceKm
		c.DistanceKm = &v
	}
	if o.PriceEstimate != nil {
		v := *o.PriceEstimate
		c.PriceEstimate = &v
	}
	if o.ClaimantID != nil {
		v := *o.ClaimantID
		c.ClaimantID = &v
	}
	if o.ClaimedAt != nil {
		v := *o.ClaimedAt
		c.ClaimedAt = &v
	}
	if o.BroadcastChatID != nil {
		v := *o.BroadcastChatID
		c.BroadcastChatID = &v
	}
	if o.BroadcastMessageID != nil {
		v := *o.BroadcastMessageID
		c.BroadcastMessageID = &v
	}
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package orders

import "time"

type Order struct {
	ID             int64      `json:"id"`
	Kind           JobKind    `json:"job_kind"`
	City           *string    `json:"city,omitempty"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	Comment        *string    `json:"comment,omitempty"`
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	PriceEstimate  *float64   `json:"price_estimate,omitempty"`
	RequesterPhone *string    `json:"requester_phone,omitempty"`
	Status         Status     `json:"status"` // lihat status.go
	ClaimantID     *int64     `json:"claimant_id,omitempty"`
	ClaimantHandle *string    `json:"claimant_handle,omitempty"`
	ClaimantPhone  *string    `json:"claimant_phone,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`

	// Diisi sekali saat pesanan dipublikasikan ke channel.
	BroadcastChatID    *int64 `json:"broadcast_chat_id,omitempty"`
	BroadcastMessageID *int   `json:"broadcast_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Published reports whether the order has a broadcast post to edit.
func (o *Order) Published() bool {
	return o.BroadcastChatID != nil && o.BroadcastMessageID != nil
}

// ClaimedBy reports whether workerID is the recorded claimant.
func (o *Order) ClaimedBy(workerID int64) bool {
	return o.Status == StatusClaimed && o.ClaimantID != nil && *o.ClaimantID == workerID
}

// Claimant is the worker identity written onto an order by TryClaim.
type Claimant struct {
	WorkerID int64
	Handle   *string
	Phone    *string
}

// OrderInput is the normalized intake payload.
type OrderInput struct {
	Kind           JobKind  `json:"job_kind" validate:"required,oneof=RIDE DELIVERY"`
	City           *string  `json:"city,omitempty"`
	Origin         string   `json:"origin" validate:"required"`
	Destination    string   `json:"destination" validate:"required"`
	Comment        *string  `json:"comment,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty" validate:"omitempty,gte=0"`
	PriceEstimate  *float64 `json:"price_estimate,omitempty" validate:"omitempty,gte=0"`
	RequesterPhone *string  `json:"requester_phone,omitempty"`
}

// ChannelBinding key di tabel bot_settings.
const SettingDriversChannel = "drivers_channel_id"

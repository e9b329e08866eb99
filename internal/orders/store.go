package orders

import "context"

// Store owns order records, the claim/release transition and the channel
// binding. TryClaim is the only serialization point between concurrent
// claimants; implementations must apply it as a single conditional write.
type Store interface {
	CreateOrder(ctx context.Context, in OrderInput) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	AttachBroadcastRef(ctx context.Context, id, chatID int64, messageID int) error
	TryClaim(ctx context.Context, id int64, c Claimant) (*Order, error)
	Release(ctx context.Context, id, workerID int64) (*Order, error)
	GetChannelBinding(ctx context.Context) (chatID int64, ok bool, err error)
	SetChannelBinding(ctx context.Context, chatID int64) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

var (
	_ Store = (*Repo)(nil)
	_ Store = (*MemoryStore)(nil)
)

package orders

type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClaimed Status = "CLAIMED"
)

// Hanya dua state: tidak ada COMPLETED/CANCELLED.
var validNext = map[Status]map[Status]bool{
	StatusOpen:    {StatusClaimed: true},
	StatusClaimed: {StatusOpen: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type JobKind string

const (
	KindRide     JobKind = "RIDE"
	KindDelivery JobKind = "DELIVERY"
)

// ParseJobKind menerima juga alias lama dari form klien (TAXI).
func ParseJobKind(s string) (JobKind, bool) {
	switch s {
	case "RIDE", "TAXI", "ride", "taxi":
		return KindRide, true
	case "DELIVERY", "delivery":
		return KindDelivery, true
	}
	return "", false
}

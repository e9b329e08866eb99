package gateway

import (
	"strconv"
	"strings"
)

// Action tokens carried by buttons. "accept" is kept for posts published
// before the claim flow was renamed.
const (
	ActionClaim   = "accept"
	ActionRelease = "release"
	ActionNoop    = "noop"
)

// ActionToken encodes "<action>:<orderID>".
func ActionToken(action string, orderID int64) string {
	return action + ":" + strconv.FormatInt(orderID, 10)
}

// ParseActionToken splits a token; orderID is 0 when absent or malformed.
func ParseActionToken(data string) (action string, orderID int64) {
	action, idStr, _ := strings.Cut(data, ":")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		orderID = 0
	}
	return action, orderID
}

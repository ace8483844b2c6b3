package chat

import (
	"fmt"
	"strings"
)

type Intent uint8

const (
	IntentOrderStatusInquiry Intent = iota + 1
	IntentOrderHistory
	IntentTrackingInfo
	IntentGeneralInquiry
	IntentUnknown
)

var intentNames = map[Intent]string{
	IntentOrderStatusInquiry: "ORDER_STATUS_INQUIRY",
	IntentOrderHistory:       "ORDER_HISTORY",
	IntentTrackingInfo:       "TRACKING_INFO",
	IntentGeneralInquiry:     "GENERAL_INQUIRY",
	IntentUnknown:            "UNKNOWN",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Intent(%d)", uint8(i))
}

func (i Intent) MarshalText() ([]byte, error) {
	if _, ok := intentNames[i]; !ok {
		return nil, fmt.Errorf("invalid intent %d", uint8(i))
	}
	return []byte(i.String()), nil
}

// Classify maps a message to an intent by keyword. Rules are checked in order
// and the first match wins.
func Classify(message string) Intent {
	msg := strings.ToLower(message)

	switch {
	case containsAny(msg, "order") && containsAny(msg, "status", "where", "track"):
		return IntentOrderStatusInquiry
	case containsAny(msg, "order") && containsAny(msg, "history", "past", "previous"):
		return IntentOrderHistory
	case containsAny(msg, "track", "shipping", "delivery"):
		return IntentTrackingInfo
	default:
		return IntentGeneralInquiry
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package chat

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/order-chatbot/backend/internal/storage/models"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d+$`)

// statusKeywords is checked in order; the first keyword present wins.
var statusKeywords = []struct {
	keyword string
	status  models.OrderStatus
}{
	{"shipped", models.StatusShipped},
	{"processing", models.StatusProcessing},
	{"delivered", models.StatusDelivered},
	{"cancelled", models.StatusCancelled},
}

// ExtractOrderNumber returns the first whitespace-separated token of the form
// ORD-<digits>. Surrounding punctuation such as "ORD-7?" or "(ORD-7)" is
// ignored; the prefix is case-sensitive.
func ExtractOrderNumber(message string) (string, bool) {
	for _, token := range strings.Fields(message) {
		token = strings.TrimFunc(token, isEdgePunct)
		if orderNumberPattern.MatchString(token) {
			return token, true
		}
	}
	return "", false
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func ExtractStatusKeyword(message string) (models.OrderStatus, bool) {
	msg := strings.ToLower(message)
	for _, kw := range statusKeywords {
		if strings.Contains(msg, kw.keyword) {
			return kw.status, true
		}
	}
	return 0, false
}

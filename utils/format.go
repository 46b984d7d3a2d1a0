package utils

import (
	"fmt"
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupeePrinter = message.NewPrinter(language.English)

// FormatRupees renders an amount with digit grouping for user-facing
// messages and logs, e.g. "₹150,000".
func FormatRupees(amount float64) string {
	if amount == float64(int64(amount)) {
		return rupeePrinter.Sprintf("₹%d", int64(amount))
	}
	return rupeePrinter.Sprintf("₹%.2f", amount)
}

// NormalizeUsername folds a display name to plain ASCII for codes and object
// keys. Usernames arrive from the auth service and may carry any script.
func NormalizeUsername(name string) string {
	folded := unidecode.Unidecode(name)
	folded = strings.TrimSpace(folded)
	if folded == "" {
		return "player"
	}
	return folded
}

// SequenceCode renders a human-friendly code like "DA-000123" or "HA-000124".
func SequenceCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

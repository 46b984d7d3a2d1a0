package utils

import (
	"fmt"
	"os"
	"time"
)

var auctionLoc *time.Location

// InitTimezone loads the single civil timezone all auction timestamps live
// in (env TIMEZONE, default Asia/Kolkata). Every stored timestamp is a true
// instant; this location is the one conversion boundary for slot-time math
// and display.
func InitTimezone() error {
	name := os.Getenv("TIMEZONE")
	if name == "" {
		name = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	auctionLoc = loc
	return nil
}

// AuctionLocation returns the configured civil timezone.
func AuctionLocation() *time.Location {
	if auctionLoc == nil {
		return time.UTC
	}
	return auctionLoc
}

// NowLocal is the reference clock in the auction timezone.
func NowLocal() time.Time {
	return time.Now().In(AuctionLocation())
}

// StartOfDay truncates an instant to midnight of its civil day.
func StartOfDay(t time.Time) time.Time {
	t = t.In(AuctionLocation())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, AuctionLocation())
}

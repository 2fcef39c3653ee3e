package watch

import (
	"time"

	"github.com/google/uuid"
)

// Entry marks a user watching an auction, with per-event notification
// preferences. Read-mostly; consumed by the outbid notifier for fan-out.
type Entry struct {
	AuctionID        uuid.UUID `json:"auction_id"`
	WatcherID        uuid.UUID `json:"watcher_id"`
	NotifyOutbid     bool      `json:"notify_outbid"`
	NotifyEndingSoon bool      `json:"notify_ending_soon"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewEntry creates a watch entry with both notifications enabled.
func NewEntry(auctionID, watcherID uuid.UUID) *Entry {
	return &Entry{
		AuctionID:        auctionID,
		WatcherID:        watcherID,
		NotifyOutbid:     true,
		NotifyEndingSoon: true,
		CreatedAt:        time.Now().UTC(),
	}
}

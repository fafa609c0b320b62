package web

import (
	"context"
	"fmt"
	"time"

	"flowerboard.live/fbd/internal/hub"
	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/logger"
	"flowerboard.live/fbd/internal/ranks"
)

// broadcaster implements board.Notifier on top of the hub. Each rank
// event re-reads the ledger and aggregates with no focus name so every
// subscriber gets the same global view. Failures are logged and
// swallowed: the triggering write already committed.
type broadcaster struct {
	store   ledger.RowStore
	hub     *hub.Hub
	log     *logger.Logger
	timeout time.Duration
}

func (b *broadcaster) RanksChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	rows, err := b.store.Rows(ctx)
	if err != nil {
		b.log.Error(fmt.Sprintf("Failed to re-read ledger for broadcast: %v", err))
		return
	}

	b.hub.BroadcastRanks(ranks.Aggregate(rows, ""))
}

func (b *broadcaster) AnnouncementPosted(message string) {
	b.hub.BroadcastAnnouncement(message)
}

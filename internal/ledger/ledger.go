// Package ledger defines the storage contracts for the flower board. The
// system of record is an external row store of (name, country, total)
// entries plus a single announcement scalar; this package only names the
// operations the core needs, leaving addressing details to the backends.
package ledger

import (
	"context"
	"errors"

	"flowerboard.live/fbd/internal/types"
)

// Sentinel errors wrapped by backend failures so callers can classify
// them without knowing which backend is configured.
var (
	ErrReadFailed  = errors.New("ledger read failed")
	ErrWriteFailed = errors.New("ledger write failed")
)

// RowStore provides ordered access to the ledger rows. Row order is
// ledger order: appends go to the end and updates keep their position.
type RowStore interface {
	// Rows returns the full ledger as an ordered snapshot.
	Rows(ctx context.Context) ([]types.Entry, error)
	// UpdateRow overwrites the row at the given 0-based position.
	UpdateRow(ctx context.Context, index int, e types.Entry) error
	// AppendRow adds a new row after all existing rows.
	AppendRow(ctx context.Context, e types.Entry) error
}

// AnnouncementStore persists the single announcement value. A backend
// with no stored value returns ("", nil); the default welcome text is
// applied by the caller, not the store.
type AnnouncementStore interface {
	Announcement(ctx context.Context) (string, error)
	SetAnnouncement(ctx context.Context, message string) error
}

// Store is the full persistence surface the board needs.
type Store interface {
	RowStore
	AnnouncementStore
}

// Package board implements the contribution reconciliation and
// announcement logic on top of a ledger store. It owns the only write
// path to the ledger and serializes it, recomputes rankings on demand,
// and fires change notifications after each committed write.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/logger"
	"flowerboard.live/fbd/internal/ranks"
	"flowerboard.live/fbd/internal/types"
)

// ErrInvalidInput rejects a submission before any ledger access happens.
var ErrInvalidInput = errors.New("invalid submission")

const defaultTimeout = 10 * time.Second

// Notifier receives change events after a ledger write has committed.
// Delivery is best-effort: implementations log their own failures and
// never fail the write that triggered them.
type Notifier interface {
	// RanksChanged signals that the rank rows changed and subscribers
	// should receive a fresh aggregation.
	RanksChanged()
	// AnnouncementPosted signals a new announcement value.
	AnnouncementPosted(message string)
}

// Service coordinates reads and writes against the ledger store.
type Service struct {
	store    ledger.Store
	notifier Notifier
	log      *logger.Logger
	timeout  time.Duration

	// writeMu serializes the read-scan-write reconciliation sequence.
	// The store has no atomic increment, so without this two concurrent
	// submissions for the same (name, country) key could both read the
	// old total and lose an update.
	writeMu sync.Mutex
}

// NewService creates a board service. notifier may be nil; timeout <= 0
// falls back to a default per-operation store timeout.
func NewService(store ledger.Store, notifier Notifier, log *logger.Logger, timeout time.Duration) *Service {
	if log == nil {
		log = logger.New(100)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
	}
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Submit credits flowers to the (name, country) key: an existing row is
// incremented in place, a missing one is appended at the ledger end.
// Validation is strict: name must be non-empty and flowers a positive
// integer. After the write commits the notifier is told to rebroadcast;
// notification failures never surface to the caller.
func (s *Service) Submit(ctx context.Context, name, country string, flowers int) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if flowers < 1 {
		return fmt.Errorf("%w: flowers must be a positive integer, got %d", ErrInvalidInput, flowers)
	}

	s.writeMu.Lock()
	err := s.reconcile(ctx, name, country, flowers)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	s.log.Info(fmt.Sprintf("Recorded %d flower(s) from %s (%s)", flowers, name, country))
	if s.notifier != nil {
		s.notifier.RanksChanged()
	}
	return nil
}

// reconcile performs one read-scan-update-or-append pass. Keys match on
// exact equality only; the first matching row wins.
func (s *Service) reconcile(ctx context.Context, name, country string, flowers int) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.store.Rows(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		if row.Name == name && row.Country == country {
			row.Flowers += flowers
			return s.store.UpdateRow(ctx, i, row)
		}
	}

	return s.store.AppendRow(ctx, types.Entry{Name: name, Country: country, Flowers: flowers})
}

// Ranks aggregates a fresh ledger snapshot. focusName may be empty for
// the global view.
func (s *Service) Ranks(ctx context.Context, focusName string) (types.RankSummary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.store.Rows(ctx)
	if err != nil {
		return types.RankSummary{}, err
	}

	return ranks.Aggregate(rows, focusName), nil
}

// Announcement returns the current announcement, substituting the fixed
// default when nothing was ever posted.
func (s *Service) Announcement(ctx context.Context) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	msg, err := s.store.Announcement(ctx)
	if err != nil {
		return "", err
	}
	if msg == "" {
		return types.DefaultAnnouncement, nil
	}
	return msg, nil
}

// PostAnnouncement overwrites the announcement and notifies subscribers.
func (s *Service) PostAnnouncement(ctx context.Context, message string) error {
	ctx2, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.store.SetAnnouncement(ctx2, message); err != nil {
		return err
	}

	s.log.Info("Announcement updated")
	if s.notifier != nil {
		s.notifier.AnnouncementPosted(message)
	}
	return nil
}

// Package store holds the dashboard's state containers. Each container owns
// exactly one persisted blob; entities cross container boundaries by value
// only.
package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/notifier"
	"github.com/openpayroll/batchpay/internal/storage"
)

// scientificNotationPattern catches numeric artifacts left behind by
// spreadsheet re-saves ("2.5e+21"); a staged amount must never look like
// this.
var scientificNotationPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)?[eE][+-]?\d+$`)

// PaymentStore owns the authoritative working set of staged payment rows and
// the current batch estimate derived from them. Any row mutation invalidates
// the estimate so a stale one can never back an execution confirmation.
type PaymentStore struct {
	mu       sync.RWMutex
	rows     []domain.PaymentRow
	estimate *domain.BatchEstimate

	blobs    storage.BlobStore
	notifier notifier.Notifier
	logger   *zap.Logger

	subMu       sync.Mutex
	subscribers map[chan struct{}]struct{}
}

func NewPaymentStore(blobs storage.BlobStore, n notifier.Notifier, logger *zap.Logger) *PaymentStore {
	if n == nil {
		n = notifier.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentStore{
		blobs:       blobs,
		notifier:    n,
		logger:      logger,
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// Load restores the staged rows from the persisted blob. An absent blob is an
// empty board; an unparsable one triggers the corruption fail-safe.
func (s *PaymentStore) Load(ctx context.Context) error {
	var rows []domain.PaymentRow
	err := storage.LoadJSON(ctx, s.blobs, storage.KeyPayments, &rows)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rows = nil
	case errors.Is(err, domain.ErrCorruptedStorage):
		s.logger.Warn("staged rows blob is unparsable, resetting", zap.Error(err))
		s.reset(ctx)
		return nil
	case err != nil:
		return err
	}

	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// Rows returns the staged rows for display or batch use. If any row fails
// the address shape check or carries a scientific-notation amount artifact,
// the whole set is treated as corrupted: everything is cleared, the blob is
// dropped and a single notice is raised. Partial corruption is never patched
// row by row at this layer.
func (s *PaymentStore) Rows(ctx context.Context) []domain.PaymentRow {
	s.mu.RLock()
	corrupted := false
	for _, row := range s.rows {
		if rowLooksCorrupted(row) {
			corrupted = true
			break
		}
	}
	rows := make([]domain.PaymentRow, len(s.rows))
	copy(rows, s.rows)
	s.mu.RUnlock()

	if !corrupted {
		return rows
	}

	s.logger.Warn("corrupted staged rows detected, clearing store")
	s.reset(ctx)
	return []domain.PaymentRow{}
}

// ReplaceAll discards the current rows and installs the new set verbatim.
func (s *PaymentStore) ReplaceAll(ctx context.Context, rows []domain.PaymentRow) {
	s.mu.Lock()
	s.rows = append([]domain.PaymentRow(nil), rows...)
	s.estimate = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.notifyChange()
}

// Append inserts one row with most-recent-first ordering.
func (s *PaymentStore) Append(ctx context.Context, row domain.PaymentRow) {
	s.mu.Lock()
	s.rows = append([]domain.PaymentRow{row}, s.rows...)
	s.estimate = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.notifyChange()
}

// MergeAppend appends a whole imported batch after the existing rows without
// reordering anything already staged.
func (s *PaymentStore) MergeAppend(ctx context.Context, rows []domain.PaymentRow) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	s.rows = append(s.rows, rows...)
	s.estimate = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.notifyChange()
}

// Update mutates exactly the row matching id; no-op when absent.
func (s *PaymentStore) Update(ctx context.Context, id string, patch domain.PaymentRowPatch) {
	s.mu.Lock()
	found := false
	for i := range s.rows {
		if s.rows[i].ID != id {
			continue
		}
		if patch.Name != nil {
			s.rows[i].Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Wallet != nil {
			s.rows[i].Wallet = strings.TrimSpace(*patch.Wallet)
		}
		if patch.Amount != nil {
			s.rows[i].Amount = strings.TrimSpace(*patch.Amount)
		}
		found = true
		break
	}
	if found {
		s.estimate = nil
	}
	s.mu.Unlock()

	if !found {
		return
	}
	s.persist(ctx)
	s.notifyChange()
}

// Remove deletes exactly the row matching id; no-op when absent.
func (s *PaymentStore) Remove(ctx context.Context, id string) {
	s.RemoveMany(ctx, []string{id})
}

// RemoveMany deletes every row whose id is listed. The batch executor uses it
// to drop the submitted rows on confirmation.
func (s *PaymentStore) RemoveMany(ctx context.Context, ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	kept := s.rows[:0]
	removed := false
	for _, row := range s.rows {
		if drop[row.ID] {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	if removed {
		s.estimate = nil
	}
	s.mu.Unlock()

	if !removed {
		return
	}
	s.persist(ctx)
	s.notifyChange()
}

// Clear empties the staged set and discards any previously computed estimate.
func (s *PaymentStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.rows = nil
	s.estimate = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.notifyChange()
}

// Estimate returns the current batch estimate, or nil when none is valid for
// the staged row set.
func (s *PaymentStore) Estimate() *domain.BatchEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.estimate == nil {
		return nil
	}
	copied := *s.estimate
	return &copied
}

// SetEstimate installs the estimate computed for the current row set.
func (s *PaymentStore) SetEstimate(estimate *domain.BatchEstimate) {
	s.mu.Lock()
	s.estimate = estimate
	s.mu.Unlock()
	s.notifyChange()
}

// ClearEstimate invalidates the current estimate.
func (s *PaymentStore) ClearEstimate() {
	s.SetEstimate(nil)
}

// Subscribe returns a channel that ticks after every state change.
func (s *PaymentStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		delete(s.subscribers, ch)
		close(ch)
		s.subMu.Unlock()
	}
	return ch, unsubscribe
}

// reset is the coarse-grained fail-safe: clear everything, drop the blob,
// raise exactly one user notice.
func (s *PaymentStore) reset(ctx context.Context) {
	s.mu.Lock()
	s.rows = nil
	s.estimate = nil
	s.mu.Unlock()

	if err := s.blobs.Delete(ctx, storage.KeyPayments); err != nil {
		s.logger.Error("failed to drop corrupted payments blob", zap.Error(err))
	}
	s.notifier.Notify(ctx, notifier.Event{
		Level:   notifier.LevelError,
		Message: "Dados de pagamento corrompidos foram removidos. Importe a planilha novamente.",
	})
	s.notifyChange()
}

func (s *PaymentStore) persist(ctx context.Context) {
	s.mu.RLock()
	rows := make([]domain.PaymentRow, len(s.rows))
	copy(rows, s.rows)
	s.mu.RUnlock()

	if err := storage.SaveJSON(ctx, s.blobs, storage.KeyPayments, rows); err != nil {
		s.logger.Error("failed to persist staged rows", zap.Error(err))
	}
}

func (s *PaymentStore) notifyChange() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func rowLooksCorrupted(row domain.PaymentRow) bool {
	wallet := strings.TrimSpace(row.Wallet)
	if wallet != "" && (!strings.HasPrefix(wallet, "0x") || len(wallet) != 42) {
		return true
	}
	return scientificNotationPattern.MatchString(strings.TrimSpace(row.Amount))
}

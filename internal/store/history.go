package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
)

// HistoryStore owns the permanent record of executed batches. Entries are
// kept most-recent-first and are append-only except for transaction status
// patches.
type HistoryStore struct {
	mu    sync.RWMutex
	items []domain.HistoryDetail

	blobs  storage.BlobStore
	logger *zap.Logger
}

func NewHistoryStore(blobs storage.BlobStore, logger *zap.Logger) *HistoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryStore{blobs: blobs, logger: logger}
}

// Load restores recorded batches from the persisted blob. An unparsable blob
// is dropped whole rather than partially recovered.
func (s *HistoryStore) Load(ctx context.Context) error {
	var items []domain.HistoryDetail
	err := storage.LoadJSON(ctx, s.blobs, storage.KeyHistory, &items)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		items = nil
	case errors.Is(err, domain.ErrCorruptedStorage):
		s.logger.Warn("history blob is unparsable, resetting", zap.Error(err))
		if deleteErr := s.blobs.Delete(ctx, storage.KeyHistory); deleteErr != nil {
			s.logger.Error("failed to drop corrupted history blob", zap.Error(deleteErr))
		}
		items = nil
	case err != nil:
		return err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Record prepends a newly executed batch so the most recent appears first.
func (s *HistoryStore) Record(ctx context.Context, detail domain.HistoryDetail) {
	s.mu.Lock()
	s.items = append([]domain.HistoryDetail{detail}, s.items...)
	s.mu.Unlock()

	s.persist(ctx)
}

// List returns the summary projection of every recorded batch, newest first.
func (s *HistoryStore) List() []domain.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.HistoryItem, len(s.items))
	for i, detail := range s.items {
		items[i] = detail.HistoryItem
	}
	return items
}

// Lookup returns the full detail of one recorded batch, recipients included.
func (s *HistoryStore) Lookup(id string) (*domain.HistoryDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, detail := range s.items {
		if detail.ID == id {
			copied := detail
			copied.Recipients = append([]domain.HistoryRecipient(nil), detail.Recipients...)
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// UpdateStatus patches the transaction status of one recorded batch and
// cascades the per-recipient status. Count, recipients and date are frozen at
// record time and never rewritten.
func (s *HistoryStore) UpdateStatus(ctx context.Context, id string, status domain.TxStatus) error {
	if !status.IsValid() {
		return domain.ErrValidation
	}

	recipientStatus := domain.RecipientStatusSuccess
	if status == domain.TxStatusFailed {
		recipientStatus = domain.RecipientStatusFailed
	}

	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Status = status
		for j := range s.items[i].Recipients {
			s.items[i].Recipients[j].Status = recipientStatus
		}
		found = true
		break
	}
	s.mu.Unlock()

	if !found {
		return domain.ErrNotFound
	}
	s.persist(ctx)
	return nil
}

// Clear wipes the full execution record.
func (s *HistoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if err := s.blobs.Delete(ctx, storage.KeyHistory); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to drop history blob", zap.Error(err))
	}
}

func (s *HistoryStore) persist(ctx context.Context) {
	s.mu.RLock()
	items := make([]domain.HistoryDetail, len(s.items))
	copy(items, s.items)
	s.mu.RUnlock()

	if err := storage.SaveJSON(ctx, s.blobs, storage.KeyHistory, items); err != nil {
		s.logger.Error("failed to persist history", zap.Error(err))
	}
}

// Package migrator rewrites persisted wallet addresses to their canonical
// checksum form. It runs once at application start, before any store loads
// its blob.
package migrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/address"
	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
)

// Report counts what one run changed. A second run with no intervening
// writes reports all zeros and performs no write-backs.
type Report struct {
	RowsDropped    int
	RowsRewritten  int
	BlobsDiscarded int
}

func (r Report) Changed() bool {
	return r.RowsDropped > 0 || r.RowsRewritten > 0 || r.BlobsDiscarded > 0
}

type Migrator struct {
	blobs  storage.BlobStore
	logger *zap.Logger
}

func New(blobs storage.BlobStore, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{blobs: blobs, logger: logger}
}

// Run migrates the staged-row and history blobs. Rows whose wallet fails
// normalization are dropped entirely; wallets that normalize to a different
// string are rewritten. A blob that cannot be parsed at all is discarded
// whole rather than partially recovered.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	var report Report

	if err := m.migratePayments(ctx, &report); err != nil {
		return report, fmt.Errorf("failed to migrate staged rows: %w", err)
	}
	if err := m.migrateHistory(ctx, &report); err != nil {
		return report, fmt.Errorf("failed to migrate history: %w", err)
	}

	if report.Changed() {
		m.logger.Info("storage migration applied",
			zap.Int("rowsDropped", report.RowsDropped),
			zap.Int("rowsRewritten", report.RowsRewritten),
			zap.Int("blobsDiscarded", report.BlobsDiscarded),
		)
	}
	return report, nil
}

func (m *Migrator) migratePayments(ctx context.Context, report *Report) error {
	var rows []domain.PaymentRow
	err := storage.LoadJSON(ctx, m.blobs, storage.KeyPayments, &rows)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case errors.Is(err, domain.ErrCorruptedStorage):
		return m.discard(ctx, storage.KeyPayments, report)
	case err != nil:
		return err
	}

	kept := make([]domain.PaymentRow, 0, len(rows))
	changed := false
	for _, row := range rows {
		normalized, ok := address.Normalize(row.Wallet)
		if !ok {
			report.RowsDropped++
			changed = true
			continue
		}
		if normalized != row.Wallet {
			row.Wallet = normalized
			report.RowsRewritten++
			changed = true
		}
		kept = append(kept, row)
	}

	if !changed {
		return nil
	}
	return storage.SaveJSON(ctx, m.blobs, storage.KeyPayments, kept)
}

func (m *Migrator) migrateHistory(ctx context.Context, report *Report) error {
	var items []domain.HistoryDetail
	err := storage.LoadJSON(ctx, m.blobs, storage.KeyHistory, &items)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case errors.Is(err, domain.ErrCorruptedStorage):
		return m.discard(ctx, storage.KeyHistory, report)
	case err != nil:
		return err
	}

	changed := false
	for i := range items {
		kept := make([]domain.HistoryRecipient, 0, len(items[i].Recipients))
		for _, recipient := range items[i].Recipients {
			normalized, ok := address.Normalize(recipient.Wallet)
			if !ok {
				report.RowsDropped++
				changed = true
				continue
			}
			if normalized != recipient.Wallet {
				recipient.Wallet = normalized
				report.RowsRewritten++
				changed = true
			}
			kept = append(kept, recipient)
		}
		items[i].Recipients = kept
	}

	if !changed {
		return nil
	}
	return storage.SaveJSON(ctx, m.blobs, storage.KeyHistory, items)
}

func (m *Migrator) discard(ctx context.Context, key string, report *Report) error {
	m.logger.Warn("discarding unparsable blob", zap.String("key", key))
	if err := m.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	report.BlobsDiscarded++
	return nil
}

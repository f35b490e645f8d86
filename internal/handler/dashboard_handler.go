package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
	"github.com/openpayroll/batchpay/internal/store"
)

// StatsReader is the slice of the batch service the dashboard needs.
type StatsReader interface {
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

type DashboardHandler struct {
	stats    StatsReader
	payments *store.PaymentStore
	history  *store.HistoryStore
	blobs    storage.BlobStore
}

func NewDashboardHandler(stats StatsReader, payments *store.PaymentStore, history *store.HistoryStore, blobs storage.BlobStore) (*DashboardHandler, error) {
	if stats == nil || payments == nil || history == nil || blobs == nil {
		return nil, fmt.Errorf("stats reader, stores and blob store are required")
	}
	return &DashboardHandler{stats: stats, payments: payments, history: history, blobs: blobs}, nil
}

func RegisterDashboardRoutes(router fiber.Router, stats StatsReader, payments *store.PaymentStore, history *store.HistoryStore, blobs storage.BlobStore) error {
	h, err := NewDashboardHandler(stats, payments, history, blobs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/stats", h.GetStats)
	v1.Post("/reset", h.ResetData)

	return nil
}

func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stats.DashboardStats(c.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// ResetData wipes every persisted blob. Explicit data-reset tooling only;
// nothing in the normal batch flow calls this.
func (h *DashboardHandler) ResetData(c *fiber.Ctx) error {
	ctx := c.Context()

	h.payments.Clear(ctx)
	h.history.Clear(ctx)

	for _, key := range storage.AllKeys() {
		if err := h.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

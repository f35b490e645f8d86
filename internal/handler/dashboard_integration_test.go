package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
	"github.com/openpayroll/batchpay/internal/store"
	"github.com/openpayroll/batchpay/internal/transport"
)

type stubStatsReader struct {
	stats *domain.DashboardStats
	err   error
}

func (s *stubStatsReader) DashboardStats(context.Context) (*domain.DashboardStats, error) {
	return s.stats, s.err
}

func TestDashboardIntegration_GetStats(t *testing.T) {
	t.Parallel()

	blobs := storage.NewMemoryBlobStore()
	payments := store.NewPaymentStore(blobs, nil, nil)
	history := store.NewHistoryStore(blobs, nil)
	reader := &stubStatsReader{stats: &domain.DashboardStats{QueuedCount: 4, QueuedTotal: "12.5000", TotalPayments: 120, TotalBatches: 9}}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterDashboardRoutes(app, reader, payments, history, blobs); err != nil {
		t.Fatalf("RegisterDashboardRoutes() error = %v", err)
	}

	resp, payload := performRequest(t, app, http.MethodGet, "/v1/stats", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["queuedTotal"] != "12.5000" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestDashboardIntegration_ResetWipesAllBlobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := storage.NewMemoryBlobStore()
	payments := store.NewPaymentStore(blobs, nil, nil)
	history := store.NewHistoryStore(blobs, nil)

	payments.Append(ctx, domain.NewPaymentRow("Alice", walletAlice, "1.5"))
	history.Record(ctx, domain.NewHistoryDetail("h1", "0xaaa", domain.TxStatusConfirmed,
		[]domain.PaymentRow{domain.NewPaymentRow("Bob", walletBob, "2")}, time.Now().UTC()))
	if err := storage.SaveJSON(ctx, blobs, storage.KeyUsers, []domain.User{{ID: "u1", Name: "Alice"}}); err != nil {
		t.Fatalf("seed users blob: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterDashboardRoutes(app, &stubStatsReader{stats: &domain.DashboardStats{}}, payments, history, blobs); err != nil {
		t.Fatalf("RegisterDashboardRoutes() error = %v", err)
	}

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/reset", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	if rows := payments.Rows(ctx); len(rows) != 0 {
		t.Fatalf("rows = %+v, want empty", rows)
	}
	if items := history.List(); len(items) != 0 {
		t.Fatalf("history = %+v, want empty", items)
	}
	for _, key := range storage.AllKeys() {
		if _, err := blobs.Load(ctx, key); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("blob %s still present, err = %v", key, err)
		}
	}
}

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, map[string]Check{
			"redis": func(context.Context) error { return nil },
		})

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when a dependency is down", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, map[string]Check{
			"redis":  func(context.Context) error { return nil },
			"wallet": func(context.Context) error { return errors.New("wallet gateway down") },
		})

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

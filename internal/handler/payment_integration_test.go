package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/storage"
	"github.com/openpayroll/batchpay/internal/store"
	"github.com/openpayroll/batchpay/internal/transport"
)

const (
	walletAlice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletBob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type stubBatchRunner struct {
	estimateFn      func(ctx context.Context) (*domain.BatchEstimate, error)
	executeFn       func(ctx context.Context) (*domain.BatchExecuteResult, error)
	executeSingleFn func(ctx context.Context, rowID string) (*domain.BatchExecuteResult, error)
}

func (s *stubBatchRunner) Estimate(ctx context.Context) (*domain.BatchEstimate, error) {
	if s.estimateFn != nil {
		return s.estimateFn(ctx)
	}
	return &domain.BatchEstimate{TotalAmount: "0.0000"}, nil
}

func (s *stubBatchRunner) Execute(ctx context.Context) (*domain.BatchExecuteResult, error) {
	if s.executeFn != nil {
		return s.executeFn(ctx)
	}
	return &domain.BatchExecuteResult{BatchID: "b1", TxHash: "0xabc", Status: domain.TxStatusConfirmed}, nil
}

func (s *stubBatchRunner) ExecuteSingle(ctx context.Context, rowID string) (*domain.BatchExecuteResult, error) {
	if s.executeSingleFn != nil {
		return s.executeSingleFn(ctx, rowID)
	}
	return &domain.BatchExecuteResult{BatchID: "b1", TxHash: "0xabc", Status: domain.TxStatusConfirmed}, nil
}

type paymentTestApp struct {
	app      *fiber.App
	payments *store.PaymentStore
}

func newPaymentTestApp(t *testing.T, runner BatchRunner) *paymentTestApp {
	t.Helper()

	payments := store.NewPaymentStore(storage.NewMemoryBlobStore(), nil, nil)
	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterPaymentRoutes(app, payments, runner, nil); err != nil {
		t.Fatalf("RegisterPaymentRoutes() error = %v", err)
	}
	return &paymentTestApp{app: app, payments: payments}
}

func performRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, payload
}

func TestPaymentIntegration_AddAndList(t *testing.T) {
	t.Parallel()

	fx := newPaymentTestApp(t, &stubBatchRunner{})

	body := `{"name":"Alice","wallet":"` + walletAlice + `","amount":"1.5"}`
	resp, payload := performRequest(t, fx.app, http.MethodPost, "/v1/payments", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(payload))
	}

	resp, payload = performRequest(t, fx.app, http.MethodGet, "/v1/payments", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var parsed listPaymentsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Data) != 1 || parsed.Data[0].Name != "Alice" || !parsed.Data[0].Valid {
		t.Fatalf("data = %+v", parsed.Data)
	}
}

func TestPaymentIntegration_AddRejectsInvalidRowWithAggregatedMessage(t *testing.T) {
	t.Parallel()

	fx := newPaymentTestApp(t, &stubBatchRunner{})

	body := `{"name":"","wallet":"bad","amount":"-1"}`
	resp, payload := performRequest(t, fx.app, http.MethodPost, "/v1/payments", body)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var parsed map[string]string
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	message := parsed["error"]
	if !strings.Contains(message, "Nome inválido") ||
		!strings.Contains(message, "Wallet inválida") ||
		!strings.Contains(message, "Valor inválido") {
		t.Fatalf("error = %q, want all three defects aggregated", message)
	}
	if strings.Count(message, "\n") != 2 {
		t.Fatalf("error = %q, want one multi-line message", message)
	}
}

func TestPaymentIntegration_UpdateAndRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newPaymentTestApp(t, &stubBatchRunner{})

	staged := domain.NewPaymentRow("Alice", walletAlice, "1.5")
	fx.payments.ReplaceAll(ctx, []domain.PaymentRow{staged})

	resp, _ := performRequest(t, fx.app, http.MethodPatch, "/v1/payments/"+staged.ID, `{"amount":"2.5"}`)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("patch status = %d, want 204", resp.StatusCode)
	}
	if rows := fx.payments.Rows(ctx); rows[0].Amount != "2.5" {
		t.Fatalf("amount = %q", rows[0].Amount)
	}

	resp, _ = performRequest(t, fx.app, http.MethodDelete, "/v1/payments/"+staged.ID, "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	if rows := fx.payments.Rows(ctx); len(rows) != 0 {
		t.Fatalf("rows = %+v, want empty", rows)
	}
}

func TestPaymentIntegration_ImportMergesRows(t *testing.T) {
	t.Parallel()

	fx := newPaymentTestApp(t, &stubBatchRunner{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "payees.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	csv := "name,wallet,amount\nAlice," + walletAlice + ",1.5\nBob," + walletBob + ",2.25\n"
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := fx.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(payload))
	}

	var parsed importResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Rows) != 2 || len(parsed.Errors) != 0 {
		t.Fatalf("parsed = %+v", parsed)
	}
	if rows := fx.payments.Rows(context.Background()); len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestPaymentIntegration_ImportHeaderGateReturnsZeroRows(t *testing.T) {
	t.Parallel()

	fx := newPaymentTestApp(t, &stubBatchRunner{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "payees.csv")
	_, _ = part.Write([]byte("name,wallet\nAlice," + walletAlice + "\n"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := fx.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	payload, _ := io.ReadAll(resp.Body)

	var parsed importResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Rows) != 0 {
		t.Fatalf("rows = %+v, want none past the header gate", parsed.Rows)
	}
	if len(parsed.Errors) != 1 || parsed.Errors[0] != "Coluna ausente: amount" {
		t.Fatalf("errors = %+v", parsed.Errors)
	}
	if rows := fx.payments.Rows(context.Background()); len(rows) != 0 {
		t.Fatalf("rows = %+v, want staging untouched", rows)
	}
}

func TestPaymentIntegration_ExecuteStatuses(t *testing.T) {
	t.Parallel()

	t.Run("in-flight batch maps to conflict", func(t *testing.T) {
		t.Parallel()

		fx := newPaymentTestApp(t, &stubBatchRunner{
			executeFn: func(context.Context) (*domain.BatchExecuteResult, error) {
				return nil, domain.ErrBatchInFlight
			},
		})
		resp, _ := performRequest(t, fx.app, http.MethodPost, "/v1/payments/execute", "")
		if resp.StatusCode != fiber.StatusConflict {
			t.Fatalf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("empty batch maps to bad request", func(t *testing.T) {
		t.Parallel()

		fx := newPaymentTestApp(t, &stubBatchRunner{
			executeFn: func(context.Context) (*domain.BatchExecuteResult, error) {
				return nil, domain.ErrEmptyBatch
			},
		})
		resp, _ := performRequest(t, fx.app, http.MethodPost, "/v1/payments/execute", "")
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("reverted execution still reports the result", func(t *testing.T) {
		t.Parallel()

		fx := newPaymentTestApp(t, &stubBatchRunner{
			executeFn: func(context.Context) (*domain.BatchExecuteResult, error) {
				return &domain.BatchExecuteResult{BatchID: "b1", TxHash: "0xdead", Status: domain.TxStatusFailed},
					errors.New("transaction reverted")
			},
		})
		resp, payload := performRequest(t, fx.app, http.MethodPost, "/v1/payments/execute", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		var parsed executeResponse
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Fatalf("json unmarshal error = %v", err)
		}
		if parsed.Status != "failed" || parsed.TxHash != "0xdead" {
			t.Fatalf("parsed = %+v", parsed)
		}
	})
}

package handler

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/importer"
	"github.com/openpayroll/batchpay/internal/observability"
	"github.com/openpayroll/batchpay/internal/store"
)

// BatchRunner is the slice of the batch service the payment handler needs.
type BatchRunner interface {
	Estimate(ctx context.Context) (*domain.BatchEstimate, error)
	Execute(ctx context.Context) (*domain.BatchExecuteResult, error)
	ExecuteSingle(ctx context.Context, rowID string) (*domain.BatchExecuteResult, error)
}

type PaymentHandler struct {
	payments *store.PaymentStore
	batches  BatchRunner
	metrics  *observability.Metrics
}

func NewPaymentHandler(payments *store.PaymentStore, batches BatchRunner, metrics *observability.Metrics) (*PaymentHandler, error) {
	if payments == nil || batches == nil {
		return nil, fmt.Errorf("payment store and batch runner are required")
	}
	return &PaymentHandler{payments: payments, batches: batches, metrics: metrics}, nil
}

func RegisterPaymentRoutes(router fiber.Router, payments *store.PaymentStore, batches BatchRunner, metrics *observability.Metrics) error {
	h, err := NewPaymentHandler(payments, batches, metrics)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/payments", h.ListPayments)
	v1.Post("/payments", h.AddPayment)
	v1.Patch("/payments/:id", h.UpdatePayment)
	v1.Delete("/payments/:id", h.RemovePayment)
	v1.Delete("/payments", h.ClearPayments)
	v1.Post("/payments/import", h.ImportPayments)
	v1.Post("/payments/estimate", h.EstimateBatch)
	v1.Post("/payments/execute", h.ExecuteBatch)
	v1.Post("/payments/:id/execute", h.ExecuteSinglePayment)

	return nil
}

type paymentRequest struct {
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
	Amount string `json:"amount"`
}

type paymentPatchRequest struct {
	Name   *string `json:"name"`
	Wallet *string `json:"wallet"`
	Amount *string `json:"amount"`
}

type paymentResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Wallet string   `json:"wallet"`
	Amount string   `json:"amount"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type listPaymentsResponse struct {
	Data     []paymentResponse  `json:"data"`
	Estimate *batchEstimateBody `json:"estimate,omitempty"`
}

type batchEstimateBody struct {
	TotalAmount string   `json:"totalAmount"`
	Recipients  []string `json:"recipients"`
	Amounts     []string `json:"amounts"`
}

type importResponse struct {
	Rows   []paymentResponse `json:"rows"`
	Errors []string          `json:"errors"`
}

type executeResponse struct {
	BatchID string `json:"batchId"`
	TxHash  string `json:"txHash"`
	Status  string `json:"status"`
}

func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	rows := h.payments.Rows(c.Context())

	response := listPaymentsResponse{Data: toPaymentResponses(rows)}
	if estimate := h.payments.Estimate(); estimate != nil {
		response.Estimate = toEstimateBody(estimate)
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *PaymentHandler) AddPayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	row := domain.NewPaymentRow(req.Name, req.Wallet, req.Amount)
	if validation := domain.ValidateRow(row); !validation.Valid {
		return fiber.NewError(fiber.StatusBadRequest, joinValidationErrors(validation))
	}

	h.payments.Append(c.Context(), row)
	return c.Status(fiber.StatusCreated).JSON(toPaymentResponse(row))
}

func (h *PaymentHandler) UpdatePayment(c *fiber.Ctx) error {
	var req paymentPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	h.payments.Update(c.Context(), id, domain.PaymentRowPatch{
		Name:   req.Name,
		Wallet: req.Wallet,
		Amount: req.Amount,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PaymentHandler) RemovePayment(c *fiber.Ctx) error {
	h.payments.Remove(c.Context(), strings.TrimSpace(c.Params("id")))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PaymentHandler) ClearPayments(c *fiber.Ctx) error {
	h.payments.Clear(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PaymentHandler) ImportPayments(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}

	result := importer.Parse(fileHeader.Filename, data)
	h.metrics.IncImport(filepath.Ext(fileHeader.Filename))
	h.metrics.AddImportRows(len(result.Rows), len(result.Errors))

	if len(result.Rows) > 0 {
		h.payments.MergeAppend(c.Context(), result.Rows)
	}

	return c.Status(fiber.StatusOK).JSON(importResponse{
		Rows:   toPaymentResponses(result.Rows),
		Errors: result.Errors,
	})
}

func (h *PaymentHandler) EstimateBatch(c *fiber.Ctx) error {
	estimate, err := h.batches.Estimate(c.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toEstimateBody(estimate))
}

func (h *PaymentHandler) ExecuteBatch(c *fiber.Ctx) error {
	result, err := h.batches.Execute(c.Context())
	return h.respondExecution(c, result, err)
}

func (h *PaymentHandler) ExecuteSinglePayment(c *fiber.Ctx) error {
	result, err := h.batches.ExecuteSingle(c.Context(), strings.TrimSpace(c.Params("id")))
	return h.respondExecution(c, result, err)
}

func (h *PaymentHandler) respondExecution(c *fiber.Ctx, result *domain.BatchExecuteResult, err error) error {
	if err != nil && result == nil {
		return toHTTPError(err)
	}

	// A reverted transaction still has an auditable result to report.
	return c.Status(fiber.StatusOK).JSON(executeResponse{
		BatchID: result.BatchID,
		TxHash:  result.TxHash,
		Status:  result.Status.String(),
	})
}

func toPaymentResponses(rows []domain.PaymentRow) []paymentResponse {
	responses := make([]paymentResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, toPaymentResponse(row))
	}
	return responses
}

func toPaymentResponse(row domain.PaymentRow) paymentResponse {
	validation := domain.ValidateRow(row)

	response := paymentResponse{
		ID:     row.ID,
		Name:   row.Name,
		Wallet: row.Wallet,
		Amount: row.Amount,
		Valid:  validation.Valid,
	}
	for _, kind := range validation.Errors {
		response.Errors = append(response.Errors, kind.Message())
	}
	return response
}

func toEstimateBody(estimate *domain.BatchEstimate) *batchEstimateBody {
	return &batchEstimateBody{
		TotalAmount: estimate.TotalAmount,
		Recipients:  estimate.Recipients,
		Amounts:     estimate.Amounts,
	}
}

// joinValidationErrors aggregates row defects into a single multi-line
// message instead of one notification per field.
func joinValidationErrors(validation domain.RowValidation) string {
	messages := make([]string, 0, len(validation.Errors))
	for _, kind := range validation.Errors {
		messages = append(messages, kind.Message())
	}
	return strings.Join(messages, "\n")
}

package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/store"
)

type HistoryHandler struct {
	history *store.HistoryStore
}

func NewHistoryHandler(history *store.HistoryStore) (*HistoryHandler, error) {
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	return &HistoryHandler{history: history}, nil
}

func RegisterHistoryRoutes(router fiber.Router, history *store.HistoryStore) error {
	h, err := NewHistoryHandler(history)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/history", h.ListHistory)
	v1.Get("/history/:id", h.GetHistoryDetail)

	return nil
}

type historyItemResponse struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	TxHash     string `json:"txHash"`
	Count      int    `json:"count"`
	GasCostWei string `json:"gasCostWei,omitempty"`
	Status     string `json:"status"`
}

type historyRecipientResponse struct {
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

type historyDetailResponse struct {
	historyItemResponse
	Recipients []historyRecipientResponse `json:"recipients"`
}

func (h *HistoryHandler) ListHistory(c *fiber.Ctx) error {
	items := h.history.List()

	responses := make([]historyItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toHistoryItemResponse(item))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *HistoryHandler) GetHistoryDetail(c *fiber.Ctx) error {
	detail, err := h.history.Lookup(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	response := historyDetailResponse{
		historyItemResponse: toHistoryItemResponse(detail.HistoryItem),
		Recipients:          make([]historyRecipientResponse, 0, len(detail.Recipients)),
	}
	for _, recipient := range detail.Recipients {
		response.Recipients = append(response.Recipients, historyRecipientResponse{
			Name:   recipient.Name,
			Wallet: recipient.Wallet,
			Amount: recipient.Amount,
			Status: string(recipient.Status),
		})
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func toHistoryItemResponse(item domain.HistoryItem) historyItemResponse {
	return historyItemResponse{
		ID:         item.ID,
		Date:       item.Date,
		TxHash:     item.TxHash,
		Count:      item.Count,
		GasCostWei: item.GasCostWei,
		Status:     item.Status.String(),
	}
}

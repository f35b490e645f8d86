package domain

import (
	"strings"

	"github.com/google/uuid"
)

// TxStatus represents the lifecycle state of an on-chain transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

func (s TxStatus) String() string { return string(s) }

func (s TxStatus) IsValid() bool {
	switch s {
	case TxStatusPending, TxStatusConfirmed, TxStatusFailed:
		return true
	}
	return false
}

// RecipientStatus is the per-payee outcome inside an executed batch.
type RecipientStatus string

const (
	RecipientStatusSuccess RecipientStatus = "success"
	RecipientStatusFailed  RecipientStatus = "failed"
)

// PaymentRow is a staged, not-yet-executed payment intent. Amounts stay
// string-encoded decimals end to end; they are never held as binary floats.
type PaymentRow struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Wallet string            `json:"wallet"`
	Amount string            `json:"amount"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// NewPaymentRow builds a row with a fresh id and trimmed fields.
func NewPaymentRow(name, wallet, amount string) PaymentRow {
	return PaymentRow{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(name),
		Wallet: strings.TrimSpace(wallet),
		Amount: strings.TrimSpace(amount),
	}
}

// PaymentRowPatch carries the editable fields of a row; nil means unchanged.
type PaymentRowPatch struct {
	Name   *string `json:"name"`
	Wallet *string `json:"wallet"`
	Amount *string `json:"amount"`
}

// BatchEstimate is a derived, disposable snapshot of the rows selected for
// execution. Recipients and amounts are parallel sequences in row order.
type BatchEstimate struct {
	TotalAmount string   `json:"totalAmount"`
	Recipients  []string `json:"recipients"`
	Amounts     []string `json:"amounts"`
}

// BatchExecuteResult is the outcome of one submission attempt.
type BatchExecuteResult struct {
	BatchID string   `json:"batchId"`
	TxHash  string   `json:"txHash"`
	Status  TxStatus `json:"status"`
}

// DashboardStats mirrors the read-only counters exposed by the payment
// contract.
type DashboardStats struct {
	QueuedCount   int64  `json:"queuedCount"`
	QueuedTotal   string `json:"queuedTotal"`
	TotalPayments int64  `json:"totalPayments"`
	TotalBatches  int64  `json:"totalBatches"`
}

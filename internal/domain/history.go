package domain

import "time"

// HistoryRecipient captures one payee of an executed batch by value. It is a
// copy of the staged row at the moment of execution, never a reference.
type HistoryRecipient struct {
	Name   string          `json:"name,omitempty"`
	Wallet string          `json:"wallet"`
	Amount string          `json:"amount"`
	Status RecipientStatus `json:"status,omitempty"`
}

// HistoryItem is the list-view projection of an executed batch.
type HistoryItem struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	TxHash     string   `json:"txHash"`
	Count      int      `json:"count"`
	GasCostWei string   `json:"gasCostWei,omitempty"`
	Status     TxStatus `json:"status"`
}

// HistoryDetail is the permanent record of one executed batch. Recipients and
// Count are immutable after creation; only Status and per-recipient statuses
// may be patched as confirmation arrives.
type HistoryDetail struct {
	HistoryItem
	Recipients []HistoryRecipient `json:"recipients"`
}

// NewHistoryDetail snapshots the given rows into a history record.
func NewHistoryDetail(id, txHash string, status TxStatus, rows []PaymentRow, now time.Time) HistoryDetail {
	recipientStatus := RecipientStatusSuccess
	if status == TxStatusFailed {
		recipientStatus = RecipientStatusFailed
	}

	recipients := make([]HistoryRecipient, 0, len(rows))
	for _, row := range rows {
		recipients = append(recipients, HistoryRecipient{
			Name:   row.Name,
			Wallet: row.Wallet,
			Amount: row.Amount,
			Status: recipientStatus,
		})
	}

	return HistoryDetail{
		HistoryItem: HistoryItem{
			ID:     id,
			Date:   now.UTC().Format(time.RFC3339),
			TxHash: txHash,
			Count:  len(rows),
			Status: status,
		},
		Recipients: recipients,
	}
}

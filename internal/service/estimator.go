// Package service implements the dashboard's use cases on top of the state
// containers and the chain collaborator.
package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openpayroll/batchpay/internal/domain"
)

// nonNumericPattern strips everything a decimal parser cannot digest. Rows
// reaching the estimator already passed validation; this is a defensive
// fallback, not primary validation.
var nonNumericPattern = regexp.MustCompile(`[^0-9.-]`)

// EstimateBatch turns a validated row set into a batch estimate. The total is
// rendered with fixed 4-decimal precision and recipients/amounts keep the
// input order, as the contract takes them as parallel sequences.
func EstimateBatch(rows []domain.PaymentRow) *domain.BatchEstimate {
	total := decimal.Zero
	recipients := make([]string, 0, len(rows))
	amounts := make([]string, 0, len(rows))

	for _, row := range rows {
		recipients = append(recipients, row.Wallet)
		amounts = append(amounts, row.Amount)
		total = total.Add(parseAmount(row.Amount))
	}

	return &domain.BatchEstimate{
		TotalAmount: total.StringFixed(4),
		Recipients:  recipients,
		Amounts:     amounts,
	}
}

// parseAmount parses one row amount, treating a comma as the decimal
// separator. Unparseable leftovers contribute zero to the sum.
func parseAmount(raw string) decimal.Decimal {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	cleaned = nonNumericPattern.ReplaceAllString(cleaned, "")

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}

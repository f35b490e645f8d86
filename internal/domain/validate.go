package domain

import (
	"regexp"
	"strings"

	"github.com/openpayroll/batchpay/internal/address"
)

// RowErrorKind tags one defect of a payment row.
type RowErrorKind string

const (
	ErrInvalidName   RowErrorKind = "invalid_name"
	ErrInvalidWallet RowErrorKind = "invalid_wallet"
	ErrInvalidAmount RowErrorKind = "invalid_amount"
)

func (k RowErrorKind) String() string { return string(k) }

// Message returns the user-facing text for the error kind.
func (k RowErrorKind) Message() string {
	switch k {
	case ErrInvalidName:
		return "Nome inválido"
	case ErrInvalidWallet:
		return "Wallet inválida"
	case ErrInvalidAmount:
		return "Valor inválido"
	}
	return string(k)
}

// RowValidation is the full outcome of validating a single row. Every
// applicable error kind is reported, never just the first.
type RowValidation struct {
	Valid  bool
	Errors []RowErrorKind
}

// amountPattern accepts unsigned decimals with a single '.' or ',' separator,
// no sign, no exponent.
var amountPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

func IsValidName(name string) bool {
	return len(strings.TrimSpace(name)) >= 2
}

func IsValidWallet(wallet string) bool {
	_, ok := address.Normalize(wallet)
	return ok
}

func IsValidAmount(amount string) bool {
	trimmed := strings.TrimSpace(amount)
	if !amountPattern.MatchString(trimmed) {
		return false
	}
	normalized := strings.ReplaceAll(trimmed, ",", ".")
	// The pattern guarantees a parseable unsigned decimal; only the
	// strictly-positive check remains.
	return strings.Trim(normalized, "0.") != ""
}

// ValidateRow checks a row's name, wallet and amount and returns every
// applicable error kind. The wallet is not required to already be
// checksummed, only to be normalizable.
func ValidateRow(row PaymentRow) RowValidation {
	var errs []RowErrorKind
	if !IsValidName(row.Name) {
		errs = append(errs, ErrInvalidName)
	}
	if !IsValidWallet(row.Wallet) {
		errs = append(errs, ErrInvalidWallet)
	}
	if !IsValidAmount(row.Amount) {
		errs = append(errs, ErrInvalidAmount)
	}
	return RowValidation{Valid: len(errs) == 0, Errors: errs}
}

// FilterValid returns the subset of rows that pass ValidateRow, preserving
// order.
func FilterValid(rows []PaymentRow) []PaymentRow {
	valid := make([]PaymentRow, 0, len(rows))
	for _, row := range rows {
		if ValidateRow(row).Valid {
			valid = append(valid, row)
		}
	}
	return valid
}

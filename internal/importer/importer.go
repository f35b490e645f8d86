// Package importer turns uploaded spreadsheet/CSV payloads into candidate
// payment rows. It extracts shape only; semantic validation of the produced
// rows is the row validator's job.
package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openpayroll/batchpay/internal/domain"
)

// Result is the outcome of parsing one uploaded file. Errors are user-facing
// strings; Parse itself never fails with a Go error.
type Result struct {
	Rows   []domain.PaymentRow `json:"rows"`
	Errors []string            `json:"errors"`
}

var requiredColumns = []string{"name", "wallet", "amount"}

// strategy is one pure bytes-in, grid-or-error-out parsing attempt. Parse
// tries strategies in order until one succeeds or all fail.
type strategy struct {
	name  string
	parse func(data []byte) ([][]string, error)
}

var (
	spreadsheetStrategy = strategy{name: "xlsx", parse: parseXLSX}
	csvStrategy         = strategy{name: "csv", parse: parseCSV}
)

// Parse reads the uploaded file into candidate rows. The primary strategy is
// inferred from the file extension, with a fallback to the generic
// spreadsheet reader and then to the dedicated CSV reader.
func Parse(filename string, data []byte) Result {
	grid, readErr := parseGrid(filename, data)
	if readErr != nil {
		return Result{
			Rows:   []domain.PaymentRow{},
			Errors: []string{"Falha ao ler arquivo: " + readErr.Error()},
		}
	}

	header := []string{}
	if len(grid) > 0 {
		header = grid[0]
	}
	if missing := missingColumns(header); len(missing) > 0 {
		errs := make([]string, 0, len(missing))
		for _, col := range missing {
			errs = append(errs, "Coluna ausente: "+col)
		}
		return Result{Rows: []domain.PaymentRow{}, Errors: errs}
	}

	return buildRows(header, grid[1:])
}

func parseGrid(filename string, data []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var primary strategy
	switch ext {
	case ".xlsx", ".xls":
		primary = spreadsheetStrategy
	case ".csv":
		primary = csvStrategy
	default:
		primary = spreadsheetStrategy
	}

	ordered := []strategy{primary, spreadsheetStrategy, csvStrategy}
	tried := map[string]bool{}

	var lastErr error
	for _, s := range ordered {
		if tried[s.name] {
			continue
		}
		tried[s.name] = true

		grid, err := s.parse(data)
		if err == nil {
			return grid, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// missingColumns checks the detected header row for the required logical
// columns, case-insensitively and ignoring surrounding whitespace.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func buildRows(header []string, records [][]string) Result {
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cell := func(record []string, col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rows := []domain.PaymentRow{}
	errors := []string{}

	for i, record := range records {
		row := domain.NewPaymentRow(
			cell(record, "name"),
			cell(record, "wallet"),
			cell(record, "amount"),
		)

		// Completely blank rows are skipped silently; they are neither
		// output nor counted as errors.
		if row.Name == "" && row.Wallet == "" && row.Amount == "" {
			continue
		}
		if row.Name == "" || row.Wallet == "" || row.Amount == "" {
			// 1-based source line number, counting the header row.
			errors = append(errors, fmt.Sprintf("Linha %d: campos obrigatórios ausentes", i+2))
		}
		rows = append(rows, row)
	}

	return Result{Rows: rows, Errors: errors}
}

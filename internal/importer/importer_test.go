package importer

import (
	"strings"
	"testing"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	walletC = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func TestParseMissingColumnAbortsWithZeroRows(t *testing.T) {
	t.Parallel()

	data := []byte("name,wallet\nAna," + walletA + "\n")
	result := Parse("payees.csv", data)

	if len(result.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(result.Rows))
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Coluna ausente: amount" {
		t.Fatalf("errors = %v, want [Coluna ausente: amount]", result.Errors)
	}
}

func TestParseMissingAllColumns(t *testing.T) {
	t.Parallel()

	result := Parse("payees.csv", []byte("foo,bar\n1,2\n"))
	if len(result.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(result.Rows))
	}
	if len(result.Errors) != 3 {
		t.Fatalf("errors = %v, want one per missing column", result.Errors)
	}
}

func TestParseWellFormedCSV(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Join([]string{
		"name,wallet,amount",
		"Ana," + walletA + ",1.5",
		"Bruno," + walletB + ",2.25",
		"Carla," + walletC + ",0.25",
	}, "\n"))

	result := Parse("payees.csv", data)
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(result.Rows))
	}

	wantNames := []string{"Ana", "Bruno", "Carla"}
	for i, row := range result.Rows {
		if row.Name != wantNames[i] {
			t.Errorf("row %d name = %q, want %q (source order must be preserved)", i, row.Name, wantNames[i])
		}
		if row.ID == "" {
			t.Errorf("row %d has no generated id", i)
		}
	}
	if result.Rows[0].Wallet != walletA || result.Rows[0].Amount != "1.5" {
		t.Fatalf("row 0 mapped incorrectly: %+v", result.Rows[0])
	}
}

func TestParseSkipsBlankRowsAndReportsPartialRows(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Join([]string{
		"name,wallet,amount",
		"Ana," + walletA + ",1.5",
		",,",
		"Bruno,,",
	}, "\n"))

	result := Parse("payees.csv", data)

	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank skipped, partial kept)", len(result.Rows))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", result.Errors)
	}
	if result.Errors[0] != "Linha 4: campos obrigatórios ausentes" {
		t.Fatalf("error = %q, want source line 4", result.Errors[0])
	}
	if result.Rows[1].Name != "Bruno" {
		t.Fatalf("partial row should be included: %+v", result.Rows[1])
	}
}

func TestParseHeadersCaseInsensitiveAndTrimmed(t *testing.T) {
	t.Parallel()

	data := []byte(" Name , WALLET ,Amount\nAna," + walletA + ",1\n")
	result := Parse("payees.csv", data)

	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}
	if len(result.Rows) != 1 || result.Rows[0].Wallet != walletA {
		t.Fatalf("rows = %+v", result.Rows)
	}
}

func TestParseUnknownExtensionFallsBackToCSV(t *testing.T) {
	t.Parallel()

	data := []byte("name,wallet,amount\nAna," + walletA + ",1\n")
	result := Parse("payees.txt", data)

	if len(result.Rows) != 1 {
		t.Fatalf("fallback chain should reach the CSV reader, got %+v", result)
	}
}

func TestParseUnreadableFile(t *testing.T) {
	t.Parallel()

	result := Parse("payees.xlsx", []byte("\"unterminated"))

	if len(result.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(result.Rows))
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "Falha ao ler arquivo: ") {
		t.Fatalf("errors = %v, want single read-failure error", result.Errors)
	}
}

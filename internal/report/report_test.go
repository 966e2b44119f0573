package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

func sampleBond(code string, available int, nominal, current string) models.OwnedBond {
	return models.OwnedBond{
		IssueCode: code,
		Available: available,
		Nominal:   models.NewMoney(decimal.RequireFromString(nominal)),
		Current:   models.NewMoney(decimal.RequireFromString(current)),
		Schedule: []models.InterestPeriod{
			{Period: 1, Rate: decimal.RequireFromString("6.50")},
		},
		Maturity: time.Date(2033, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPortfolioTotals(t *testing.T) {
	var buf bytes.Buffer
	bonds := []models.OwnedBond{
		sampleBond("ROD0533", 10, "1000.00", "1023.40"),
		sampleBond("EDO0534", 5, "500.00", "501.10"),
	}
	if err := Portfolio(&buf, bonds); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ROD0533", "EDO0534", "Razem", "15", "1500.00 PLN", "1524.50 PLN", "6.50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	entries := []models.HistoryEntry{
		{
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Kind:     "Zakup papierów",
			BondCode: "ROD0533",
			RecordNo: 123,
			Series:   1,
			Units:    10,
			Amount:   decimal.RequireFromString("1000.00"),
			Status:   "Zrealizowana",
		},
	}
	if err := HistoryCSV(&buf, entries); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Data dyspozycji,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "2024-03-01,Zakup papierów,ROD0533,123,1,10,1000.00,Zrealizowana,") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestHistoryJSON(t *testing.T) {
	var buf bytes.Buffer
	entries := []models.HistoryEntry{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), BondCode: "EDO0534", Units: 3},
	}
	if err := HistoryJSON(&buf, entries); err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0]["bond_code"] != "EDO0534" {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one disposition row from the account history table.
type HistoryEntry struct {
	Date     time.Time       `json:"date"`
	Kind     string          `json:"kind"`
	BondCode string          `json:"bond_code"`
	RecordNo int             `json:"record_no"`
	Series   int             `json:"series"`
	Units    int             `json:"units"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
	Remarks  string          `json:"remarks"`
}

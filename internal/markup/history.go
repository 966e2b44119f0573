package markup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

const historyTableSelector = `tbody[id="historia:tbl_data"]`

// History extracts the disposition history table in document order.
func History(doc *goquery.Document) ([]models.HistoryEntry, error) {
	tbody := doc.Find(historyTableSelector)
	if tbody.Length() == 0 {
		return nil, pageErr("history table body", "no historia:tbl_data tbody")
	}

	var entries []models.HistoryEntry
	var rowErr error
	tbody.First().Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		tds := row.Find("td")
		if tds.Length() < 9 {
			rowErr = pageErr("history row with 9 cells", fmt.Sprintf("row %d has %d", i, tds.Length()))
			return false
		}
		cell := func(n int) string { return strings.TrimSpace(tds.Eq(n).Text()) }

		entry := models.HistoryEntry{
			Kind:     cell(1),
			BondCode: cell(2),
			Status:   cell(7),
			Remarks:  cell(8),
		}
		if entry.Date, rowErr = time.Parse(time.DateOnly, cell(0)); rowErr != nil {
			return false
		}
		if entry.RecordNo, rowErr = strconv.Atoi(cell(3)); rowErr != nil {
			return false
		}
		if entry.Series, rowErr = strconv.Atoi(cell(4)); rowErr != nil {
			return false
		}
		if entry.Units, rowErr = strconv.Atoi(cell(5)); rowErr != nil {
			return false
		}
		if entry.Amount, rowErr = decimal.NewFromString(cell(6)); rowErr != nil {
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return entries, nil
}

// Package report renders portfolio, catalog and history data for the
// terminal and for machine-readable export.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

const dateLayout = "2006-01-02"

// Portfolio writes the holdings table with a totals row.
func Portfolio(w io.Writer, bonds []models.OwnedBond) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Emisja\tDostępnych\tZablokowanych\tWartość\tAktualna\tData wykupu\tOprocentowanie")

	var available, blocked int
	nominal := decimal.Zero
	current := decimal.Zero
	for _, b := range bonds {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s%%\n",
			b.IssueCode, b.Available, b.Blocked, b.Nominal, b.Current,
			b.Maturity.Format(dateLayout), b.CurrentRate().StringFixed(2))
		available += b.Available
		blocked += b.Blocked
		nominal = nominal.Add(b.Nominal.Amount)
		current = current.Add(b.Current.Amount)
	}
	fmt.Fprintf(tw, "Razem\t%d\t%d\t%s %s\t%s %s\t\t\n",
		available, blocked,
		nominal.StringFixed(2), models.DefaultCurrency,
		current.StringFixed(2), models.DefaultCurrency)
	return tw.Flush()
}

// Catalog writes the purchasable issues table.
func Catalog(w io.Writer, bonds []models.AvailableBond) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Długość\tEmisja\tOd\tDo\tOprocentowanie")
	for _, b := range bonds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\n",
			b.Kind, b.IssueCode,
			b.SaleFrom.Format(dateLayout), b.SaleTo.Format(dateLayout),
			b.Rate.StringFixed(2))
	}
	return tw.Flush()
}

// historyColumns matches the order of the brokerage's history table.
var historyColumns = []string{
	"Data dyspozycji", "Rodzaj dyspozycji", "Kod obligacji", "Numer zapisu",
	"Seria", "Liczba obligacji", "Kwota operacji", "Status", "Uwagi",
}

// History writes the disposition history table.
func History(w io.Writer, entries []models.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range historyColumns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			e.Date.Format(dateLayout), e.Kind, e.BondCode, e.RecordNo,
			e.Series, e.Units, e.Amount.StringFixed(2), e.Status, e.Remarks)
	}
	return tw.Flush()
}

// HistoryCSV exports history rows as CSV with the table's headers.
func HistoryCSV(w io.Writer, entries []models.HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyColumns); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.Date.Format(dateLayout), e.Kind, e.BondCode,
			strconv.Itoa(e.RecordNo), strconv.Itoa(e.Series), strconv.Itoa(e.Units),
			e.Amount.StringFixed(2), e.Status, e.Remarks,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// HistoryJSON exports history rows as an indented JSON array.
func HistoryJSON(w io.Writer, entries []models.HistoryEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Package models defines the domain types exchanged between the protocol
// client, the markup extractors, and the CLI: bonds, catalogs, dispositions
// and account history.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestPeriod is one entry of a bond's interest schedule. Periods are
// 1-based and contiguous; the portfolio extractor validates that.
type InterestPeriod struct {
	Period int             `json:"period"`
	Rate   decimal.Decimal `json:"rate"` // percent
}

// OwnedBond is an immutable snapshot of one row of the holdings table.
type OwnedBond struct {
	IssueCode string           `json:"issue_code"`
	Available int              `json:"available"`
	Blocked   int              `json:"blocked"`
	Nominal   Money            `json:"nominal"`
	Current   Money            `json:"current"`
	Schedule  []InterestPeriod `json:"schedule"`
	Maturity  time.Time        `json:"maturity"`
}

// CurrentRate returns the rate of the last interest period, which is the
// one currently accruing.
func (b OwnedBond) CurrentRate() decimal.Decimal {
	if len(b.Schedule) == 0 {
		return decimal.Zero
	}
	return b.Schedule[len(b.Schedule)-1].Rate
}

// SelectAction holds the two protocol identifiers extracted from a catalog
// row's "wybierz" link. Firing a partial-AJAX step with them starts the
// purchase of that row's issue.
type SelectAction struct {
	Source string `json:"source"`
	Render string `json:"render"`
}

// AvailableBond is one purchasable issue listed on a catalog page.
type AvailableBond struct {
	Issuer        string          `json:"issuer"`
	Kind          string          `json:"kind"` // tenor label, e.g. "10-letnie"
	IssueCode     string          `json:"issue_code"`
	SaleFrom      time.Time       `json:"sale_from"`
	SaleTo        time.Time       `json:"sale_to"`
	Rate          decimal.Decimal `json:"rate"` // percent, first period
	ProspectusURL string          `json:"prospectus_url"`
	Select        SelectAction    `json:"-"`
	// CatalogPath is the page the row came from. Purchases must re-navigate
	// to it before firing Select, the descriptor is only valid there.
	CatalogPath string `json:"catalog_path"`

	// DurationMonths is derived from Kind by the catalog extractor.
	DurationMonths int `json:"duration_months"`
}

// BondCatalog is the merged view of the general-sale and family-program
// catalog pages.
type BondCatalog struct {
	Balance Money           `json:"balance"`
	Bonds   []AvailableBond `json:"bonds"`
	// FamilyNominal is the cumulative nominal value already purchased under
	// the family-subsidy program. Only the family catalog page reports it.
	FamilyNominal *Money `json:"family_nominal,omitempty"`
}

// Lookup returns issue code -> bond for the catalog. Later entries win,
// so a code listed in both catalogs resolves to the family-program row.
func (c BondCatalog) Lookup() map[string]AvailableBond {
	lookup := make(map[string]AvailableBond, len(c.Bonds))
	for _, b := range c.Bonds {
		lookup[b.IssueCode] = b
	}
	return lookup
}

// PurchaseDisposition is the server's pre-confirmation snapshot of a
// purchase order, parsed from the "dane dyspozycji" page.
type PurchaseDisposition struct {
	IssueCode string          `json:"issue_code"`
	FullName  string          `json:"full_name"`
	Rate      decimal.Decimal `json:"rate"`
	UnitValue Money           `json:"unit_value"`
	// MaxUnits is nil for uncapped issues; the purchase workflow then
	// derives an effective cap from the cash balance.
	MaxUnits *int  `json:"max_units,omitempty"`
	Balance  Money `json:"balance"`
	Suitable bool  `json:"suitable"`
}

// EffectiveMaxUnits returns the server-reported cap, or balance divided by
// unit price rounded down when the server reports none.
func (d PurchaseDisposition) EffectiveMaxUnits() int {
	if d.MaxUnits != nil {
		return *d.MaxUnits
	}
	if d.UnitValue.Amount.IsZero() {
		return 0
	}
	return int(d.Balance.Amount.Div(d.UnitValue.Amount).IntPart())
}

// PurchaseReceipt reports a committed order.
type PurchaseReceipt struct {
	IssueCode  string    `json:"issue_code"`
	Units      int       `json:"units"`
	AcceptedAt time.Time `json:"accepted_at"`
}

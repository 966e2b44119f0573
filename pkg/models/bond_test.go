package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCatalogLookupLastWriteWins(t *testing.T) {
	catalog := BondCatalog{Bonds: []AvailableBond{
		{IssueCode: "ROD0535", CatalogPath: "/zakupObligacji.html"},
		{IssueCode: "ROS0529", CatalogPath: "/zakupObligacji.html"},
		{IssueCode: "ROD0535", CatalogPath: "/zakupObligacji500Plus.html"},
	}}
	lookup := catalog.Lookup()
	if len(lookup) != 2 {
		t.Fatalf("lookup size = %d, want 2", len(lookup))
	}
	if lookup["ROD0535"].CatalogPath != "/zakupObligacji500Plus.html" {
		t.Errorf("duplicate code resolved to %q, want the later catalog", lookup["ROD0535"].CatalogPath)
	}
}

func TestEffectiveMaxUnits(t *testing.T) {
	seven := 7
	d := PurchaseDisposition{
		MaxUnits:  &seven,
		UnitValue: NewMoney(decimal.NewFromInt(100)),
		Balance:   NewMoney(decimal.NewFromInt(100000)),
	}
	if got := d.EffectiveMaxUnits(); got != 7 {
		t.Errorf("server cap: got %d, want 7", got)
	}

	d.MaxUnits = nil
	d.Balance = NewMoney(decimal.RequireFromString("550.00"))
	if got := d.EffectiveMaxUnits(); got != 5 {
		t.Errorf("derived cap: got %d, want 5", got)
	}

	d.UnitValue = NewMoney(decimal.Zero)
	if got := d.EffectiveMaxUnits(); got != 0 {
		t.Errorf("zero unit value: got %d, want 0", got)
	}
}

func TestMoneyEqual(t *testing.T) {
	a := NewMoney(decimal.RequireFromString("100.00"))
	b := NewMoney(decimal.RequireFromString("100"))
	if !a.Equal(b) {
		t.Error("equal amounts with different scales compared unequal")
	}
	c := Money{Amount: a.Amount, Currency: "EUR"}
	if a.Equal(c) {
		t.Error("amounts in different currencies compared equal")
	}
}

func TestCurrentRate(t *testing.T) {
	bond := OwnedBond{Schedule: []InterestPeriod{
		{Period: 1, Rate: decimal.RequireFromString("7.00")},
		{Period: 2, Rate: decimal.RequireFromString("7.25")},
	}}
	if !bond.CurrentRate().Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("CurrentRate = %s", bond.CurrentRate())
	}
	if !(OwnedBond{}).CurrentRate().Equal(decimal.Zero) {
		t.Error("empty schedule should rate zero")
	}
}

package client

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// ListBonds reads both catalog pages, the general sale and the
// family-program sale, and merges them into one sorted, deduplicated
// view. An issue listed in both catalogs keeps the family-program row,
// so purchases of it go through the subsidized page. The pages must
// agree on the cash balance; a mismatch means the two reads straddle
// some account mutation and nothing downstream can be trusted.
func (c *Client) ListBonds(ctx context.Context) (*models.BondCatalog, error) {
	general, generalBalance, err := c.readCatalogPage(ctx, generalSalePath)
	if err != nil {
		return nil, err
	}

	familyDoc, err := c.navigate(ctx, familySalePath, catalogFormID)
	if err != nil {
		return nil, err
	}
	family, err := markup.AvailableBonds(familyDoc, familySalePath)
	if err != nil {
		return nil, err
	}
	familyBalance, err := markup.CashBalance(familyDoc)
	if err != nil {
		return nil, err
	}
	familyNominal, err := markup.FamilyNominal(familyDoc)
	if err != nil {
		return nil, err
	}

	if !generalBalance.Equal(familyBalance) {
		return nil, &ConsistencyError{Detail: fmt.Sprintf(
			"catalog pages disagree on cash balance: %s vs %s", generalBalance, familyBalance)}
	}

	// Lookup is last-write-wins over the fetch order, general then
	// family, so the shared codes resolve to the family-program rows.
	lookup := models.BondCatalog{Bonds: append(general, family...)}.Lookup()
	bonds := make([]models.AvailableBond, 0, len(lookup))
	for _, bond := range lookup {
		bonds = append(bonds, bond)
	}
	catalog := &models.BondCatalog{
		Balance:       generalBalance,
		Bonds:         bonds,
		FamilyNominal: &familyNominal,
	}
	sortCatalog(catalog.Bonds)
	c.catalog = catalog
	return catalog, nil
}

func (c *Client) readCatalogPage(ctx context.Context, path string) ([]models.AvailableBond, models.Money, error) {
	doc, err := c.navigate(ctx, path, catalogFormID)
	if err != nil {
		return nil, models.Money{}, err
	}
	bonds, err := markup.AvailableBonds(doc, path)
	if err != nil {
		return nil, models.Money{}, err
	}
	balance, err := markup.CashBalance(doc)
	if err != nil {
		return nil, models.Money{}, err
	}
	return bonds, balance, nil
}

// sortCatalog orders bonds by (duration, sale-window start, rate, code)
// ascending. The sort is stable so equal keys keep catalog order.
func sortCatalog(bonds []models.AvailableBond) {
	sort.SliceStable(bonds, func(i, j int) bool {
		a, b := bonds[i], bonds[j]
		if a.DurationMonths != b.DurationMonths {
			return a.DurationMonths < b.DurationMonths
		}
		if !a.SaleFrom.Equal(b.SaleFrom) {
			return a.SaleFrom.Before(b.SaleFrom)
		}
		if cmp := a.Rate.Cmp(b.Rate); cmp != 0 {
			return cmp < 0
		}
		return a.IssueCode < b.IssueCode
	})
}

// findBond expands a possibly partial issue code ("ROD") to the matching
// catalog entry, refreshing the catalog if none is cached.
func (c *Client) findBond(ctx context.Context, code string) (models.AvailableBond, error) {
	if c.catalog == nil {
		if _, err := c.ListBonds(ctx); err != nil {
			return models.AvailableBond{}, err
		}
	}
	for _, bond := range c.catalog.Bonds {
		if strings.HasPrefix(bond.IssueCode, code) {
			return bond, nil
		}
	}
	return models.AvailableBond{}, fmt.Errorf("issue %q not found in catalog", code)
}

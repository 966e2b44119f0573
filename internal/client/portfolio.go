package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// pageSize is the server-side page size of the holdings table.
const pageSize = 20

// Balance reads the cash balance from the account page.
func (c *Client) Balance(ctx context.Context) (models.Money, error) {
	doc, err := c.navigate(ctx, accountPath, accountFormID)
	if err != nil {
		return models.Money{}, err
	}
	return markup.CashBalance(doc)
}

// ListPortfolio reads the full holdings table. The table paginates server
// side: each further page is a partial-AJAX step with an incremented
// first-row offset, and the server signals the end either with zero rows
// or with a whitespace-only fragment.
func (c *Client) ListPortfolio(ctx context.Context) ([]models.OwnedBond, error) {
	doc, err := c.navigate(ctx, accountPath, accountFormID)
	if err != nil {
		return nil, err
	}
	tableID, err := markup.PortfolioTableID(doc)
	if err != nil {
		return nil, err
	}
	bonds, err := markup.OwnedBonds(doc)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(bonds))
	for _, bond := range bonds {
		if seen[bond.IssueCode] {
			return nil, &ConsistencyError{Detail: fmt.Sprintf(
				"issue %s repeated in the holdings table", bond.IssueCode)}
		}
		seen[bond.IssueCode] = true
	}

	for first := pageSize; ; first += pageSize {
		result, err := c.step(ctx, protocol.StepRequest{
			Source: tableID,
			Render: tableID,
			Fields: url.Values{
				tableID + "_pagination":    {"true"},
				tableID + "_first":         {strconv.Itoa(first)},
				tableID + "_rows":          {strconv.Itoa(pageSize)},
				tableID + "_encodeFeature": {"true"},
			},
		})
		if err != nil {
			return nil, err
		}
		fragment := result.Updates[tableID]
		// A single-whitespace fragment is the server's "no more rows"
		// sentinel.
		if strings.TrimSpace(fragment) == "" {
			break
		}
		page, err := markup.OwnedBondsFromFragment(fragment)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		// A repeated issue across pages means the pagination replayed
		// rows; the snapshot cannot be trusted.
		for _, bond := range page {
			if seen[bond.IssueCode] {
				return nil, &ConsistencyError{Detail: fmt.Sprintf(
					"issue %s repeated across portfolio pages", bond.IssueCode)}
			}
			seen[bond.IssueCode] = true
		}
		bonds = append(bonds, page...)
	}
	return bonds, nil
}

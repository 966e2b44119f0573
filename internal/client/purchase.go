package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// quantityField is the order form's unit count input.
const quantityField = "daneDyspozycji:liczbaZamiawianychObligacji"

// Purchase places an order for the given issue. The workflow is strictly
// sequential, one server conversation, no retries: select the issue on
// its own catalog page, validate the server's disposition snapshot
// against the guardrails, confirm the quantity, finalize. Business-rule
// failures abort before anything is submitted; an HTTP failure mid-flight
// aborts the command and leaves any half-submitted order to the operator.
//
// force skips the insufficient-funds check only; the quota and
// suitability checks always apply.
func (c *Client) Purchase(ctx context.Context, code string, units int, force bool) (*models.PurchaseReceipt, error) {
	bond, err := c.findBond(ctx, code)
	if err != nil {
		return nil, err
	}
	c.logger.Info("purchasing", "issue", bond.IssueCode, "units", units)

	// Step 1: select. The select descriptor is only valid on the catalog
	// page it came from, and only when that page was navigated last; the
	// wrong order yields a stale action.
	if _, err := c.navigate(ctx, bond.CatalogPath, catalogFormID); err != nil {
		return nil, err
	}
	selected, err := c.step(ctx, protocol.StepRequest{
		Source:     bond.Select.Source,
		Render:     bond.Select.Render,
		NextFormID: dispositionFormID,
	})
	if err != nil {
		return nil, err
	}
	if selected.Doc == nil {
		return nil, &protocol.MalformedResponseError{Reason: "select step did not redirect to the disposition page"}
	}
	disposition, err := markup.Disposition(selected.Doc)
	if err != nil {
		return nil, err
	}

	// Step 2: validate before any further traffic.
	if err := validatePurchase(disposition, code, units, force); err != nil {
		return nil, err
	}

	// Step 3: confirm the quantity, which advances to the approval form.
	if _, err := c.step(ctx, protocol.StepRequest{
		Source:     dispositionFormID + ":ok",
		Render:     dispositionFormID,
		Fields:     url.Values{quantityField: {strconv.Itoa(units)}},
		NextFormID: confirmFormID,
	}); err != nil {
		return nil, err
	}

	// Step 4: finalize and read back the acceptance timestamp.
	final, err := c.step(ctx, protocol.StepRequest{
		Source: confirmFormID + ":ok",
		Render: confirmFormID,
	})
	if err != nil {
		return nil, err
	}
	if final.Doc == nil {
		return nil, &protocol.MalformedResponseError{Reason: "finalize step did not redirect to the confirmation page"}
	}
	if title, err := markup.PageTitle(final.Doc); err == nil {
		c.logger.Info("purchase accepted", "title", title)
	}
	acceptedAt, err := markup.AcceptanceTime(final.Doc)
	if err != nil {
		return nil, err
	}
	return &models.PurchaseReceipt{
		IssueCode:  disposition.IssueCode,
		Units:      units,
		AcceptedAt: acceptedAt,
	}, nil
}

// validatePurchase enforces the pre-submission guardrails in a fixed
// order: issue identity, funds, quota, suitability. The order is part of
// the contract; when several conditions hold the earlier error wins.
func validatePurchase(d *models.PurchaseDisposition, code string, units int, force bool) error {
	if units <= 0 {
		return fmt.Errorf("unit count must be positive, got %d", units)
	}
	if !strings.HasPrefix(d.IssueCode, code) {
		return &IssueMismatchError{Requested: code, Received: d.IssueCode}
	}

	total := models.NewMoney(d.UnitValue.Amount.Mul(decimal.NewFromInt(int64(units))))
	if !force && total.Amount.GreaterThan(d.Balance.Amount) {
		return &InsufficientFundsError{Required: total, Available: d.Balance}
	}

	if max := d.EffectiveMaxUnits(); units > max {
		return &QuotaExceededError{Requested: units, Max: max}
	}

	if !d.Suitable {
		return &SuitabilityError{IssueCode: d.IssueCode}
	}
	return nil
}

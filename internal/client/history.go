package client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// History fields of the date-range form.
const (
	historySearch   = "historia:szukaj"
	historyFromDate = "historia:dataOd_input"
	historyToDate   = "historia:dataDo_input"
)

// History fetches all disposition rows in the given date range with a
// single partial-AJAX exchange against the history form.
func (c *Client) History(ctx context.Context, from, to time.Time) ([]models.HistoryEntry, error) {
	if _, err := c.navigate(ctx, historyPath, historyFormID); err != nil {
		return nil, err
	}
	result, err := c.step(ctx, protocol.StepRequest{
		Source: historySearch,
		Render: historyFormID,
		Fields: url.Values{
			historyFromDate: {from.Format(time.DateOnly)},
			historyToDate:   {to.Format(time.DateOnly)},
		},
		NextFormID: historyFormID,
	})
	if err != nil {
		return nil, err
	}

	// The server answers either with a redirect to a full results page or
	// with an in-place update of the history form.
	doc := result.Doc
	if doc == nil {
		doc, err = goquery.NewDocumentFromReader(strings.NewReader(result.Updates[historyFormID]))
		if err != nil {
			return nil, err
		}
	}
	return markup.History(doc)
}

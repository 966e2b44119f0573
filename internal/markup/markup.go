// Package markup turns parsed HTML documents from the brokerage into typed
// domain values. Extractors are pure functions over a goquery document (or
// fragment) and fail with *MalformedPageError naming the structure they
// expected and what they found instead. A failure here means the site
// layout changed and must never be swallowed.
package markup

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
	"github.com/mpapierski/obligacjeskarbowe/pkg/utils"
)

// Structural selectors and labels of the transaction service pages.
const (
	viewStateSelector = `input[name="javax.faces.ViewState"]`
	labelSelector     = `span.formlabel-230.formlabel-base`
	fieldSelector     = `span.formfield-base`
	contentTitleSel   = `div#content h3`
	balanceLabel      = "Saldo środków pieniężnych"
	acceptedAtLabel   = "Data i czas przyjęcia zlecenia:"
	acceptedAtLayout  = "2006-01-02 15:04:05"
	defaultIssuer     = "Skarb Państwa"
)

// MalformedPageError reports a page that does not have the structure an
// extractor relies on.
type MalformedPageError struct {
	Expected string
	Found    string
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("malformed page: expected %s, found %s", e.Expected, e.Found)
}

func pageErr(expected, found string) *MalformedPageError {
	return &MalformedPageError{Expected: expected, Found: found}
}

// FormAction returns the action URL of the form with the given id.
func FormAction(doc *goquery.Document, formID string) (string, error) {
	sel := doc.Find(fmt.Sprintf(`form[id=%q]`, formID))
	if sel.Length() != 1 {
		return "", pageErr(fmt.Sprintf("exactly one form %q", formID), fmt.Sprintf("%d matches", sel.Length()))
	}
	action, ok := sel.Attr("action")
	if !ok {
		return "", pageErr(fmt.Sprintf("form %q with action attribute", formID), "no action")
	}
	return action, nil
}

// ViewState returns the JSF ViewState token embedded in the page.
func ViewState(doc *goquery.Document) (string, error) {
	sel := doc.Find(viewStateSelector)
	if sel.Length() == 0 {
		return "", pageErr("javax.faces.ViewState input", "none")
	}
	value, ok := sel.First().Attr("value")
	if !ok || value == "" {
		return "", pageErr("ViewState input with value", "empty value")
	}
	return value, nil
}

// LabelValues walks the page's two-column label/value panel pairwise into
// a mapping. The panel renders each label span followed by a sibling value
// span. Duplicate labels are fatal since callers do exact label lookup.
func LabelValues(doc *goquery.Document) (map[string]string, error) {
	values := make(map[string]string)
	var dup error
	doc.Find(labelSelector).EachWithBreak(func(_ int, label *goquery.Selection) bool {
		key := strings.TrimSpace(label.Text())
		value := label.NextFiltered("span")
		if _, exists := values[key]; exists {
			dup = pageErr(fmt.Sprintf("unique label %q", key), "duplicate")
			return false
		}
		values[key] = collapseLines(value.Text())
		return true
	})
	if dup != nil {
		return nil, dup
	}
	return values, nil
}

// collapseLines joins a multi-line cell into one space-separated string.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

// CashBalance extracts the cash balance from any page carrying the
// "Saldo środków pieniężnych" panel row.
func CashBalance(doc *goquery.Document) (models.Money, error) {
	values, err := LabelValues(doc)
	if err != nil {
		return models.Money{}, err
	}
	text, ok := values[balanceLabel]
	if !ok {
		return models.Money{}, pageErr(fmt.Sprintf("label %q", balanceLabel), "missing")
	}
	money, err := utils.ParseMoney(text)
	if err != nil {
		return models.Money{}, pageErr("cash balance amount", err.Error())
	}
	return money, nil
}

// PageTitle returns the content heading, e.g. the purchase step title.
func PageTitle(doc *goquery.Document) (string, error) {
	sel := doc.Find(contentTitleSel)
	if sel.Length() == 0 {
		return "", pageErr("content heading", "none")
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// AcceptanceTime extracts the server-assigned order acceptance timestamp
// from the final purchase confirmation page.
func AcceptanceTime(doc *goquery.Document) (time.Time, error) {
	values, err := LabelValues(doc)
	if err != nil {
		return time.Time{}, err
	}
	text, ok := values[acceptedAtLabel]
	if !ok {
		return time.Time{}, pageErr(fmt.Sprintf("label %q", acceptedAtLabel), "missing")
	}
	ts, err := time.Parse(acceptedAtLayout, text)
	if err != nil {
		return time.Time{}, pageErr("acceptance timestamp", fmt.Sprintf("%q", text))
	}
	return ts, nil
}

package markup

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
	"github.com/mpapierski/obligacjeskarbowe/pkg/utils"
)

const portfolioTableSelector = `tbody[id^="stanRachunku:j_idt"]`

var (
	// Tooltip registrations are inline scripts binding a JSON string
	// literal of schedule text to the owning row's element id.
	tooltipRe = regexp.MustCompile(`forTarget:\s*"(stanRachunku:j_idt\d+:\d+:nazwaSkrocona)",\s*content:\s*\{\s*text:\s*("(?:[^"\\]|\\.)*")\s*\}`)
	periodRe  = regexp.MustCompile(`^okres (\d+) oprocentowanie (\d+(?:\.\d+)?)%$`)
	brTagRe   = regexp.MustCompile(`(?i)<\s*/?\s*br\s*/?\s*>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
)

// ParseSchedule parses tooltip text of the form "okres N oprocentowanie R%"
// per line into the bond's interest schedule. Periods must start at 1 and
// form a contiguous ascending run; contiguity is validated with the
// arithmetic-series checksum count*(first+last) == 2*sum.
func ParseSchedule(text string) ([]models.InterestPeriod, error) {
	var periods []models.InterestPeriod
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := periodRe.FindStringSubmatch(line)
		if m == nil {
			return nil, pageErr("interest period line", fmt.Sprintf("%q", line))
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(m[2])
		if err != nil {
			return nil, pageErr("interest rate", fmt.Sprintf("%q", m[2]))
		}
		periods = append(periods, models.InterestPeriod{Period: index, Rate: rate})
	}
	if len(periods) == 0 {
		return nil, pageErr("at least one interest period", fmt.Sprintf("%q", text))
	}
	if periods[0].Period != 1 {
		return nil, pageErr("first interest period marked as 1", strconv.Itoa(periods[0].Period))
	}
	sum := 0
	last := 0
	for _, p := range periods {
		if p.Period < last {
			return nil, pageErr("ascending period indices", fmt.Sprintf("%d after %d", p.Period, last))
		}
		last = p.Period
		sum += p.Period
	}
	if len(periods)*(periods[0].Period+last) != 2*sum {
		return nil, pageErr("contiguous period indices", fmt.Sprintf("checksum mismatch over %d periods", len(periods)))
	}
	return periods, nil
}

// tooltipText converts the tooltip's HTML payload to plain text, one line
// per <br>-separated segment.
func tooltipText(raw string) string {
	text := brTagRe.ReplaceAllString(raw, "\n")
	return tagRe.ReplaceAllString(text, "")
}

// rowTooltips maps tooltip target element ids to their parsed schedules.
func rowTooltips(html string) (map[string][]models.InterestPeriod, error) {
	tooltips := make(map[string][]models.InterestPeriod)
	for _, m := range tooltipRe.FindAllStringSubmatch(html, -1) {
		target := m[1]
		var payload string
		if err := json.Unmarshal([]byte(m[2]), &payload); err != nil {
			return nil, pageErr("tooltip JSON string literal", m[2])
		}
		schedule, err := ParseSchedule(tooltipText(payload))
		if err != nil {
			return nil, err
		}
		tooltips[target] = schedule
	}
	return tooltips, nil
}

// OwnedBonds extracts the holdings table, pairing each row with the
// interest schedule delivered via its tooltip script.
func OwnedBonds(doc *goquery.Document) ([]models.OwnedBond, error) {
	tbody := doc.Find(portfolioTableSelector)
	if tbody.Length() == 0 {
		return nil, pageErr("holdings table body", "no stanRachunku tbody")
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}
	return ownedBondsFromRows(tbody.First().Find("tr"), html)
}

// OwnedBondsFromFragment extracts holdings rows delivered through a
// partial table update. The fragment is the tbody's inner HTML.
func OwnedBondsFromFragment(fragment string) ([]models.OwnedBond, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tbody>` + fragment + `</tbody></table>`))
	if err != nil {
		return nil, err
	}
	return ownedBondsFromRows(doc.Find("tbody tr"), fragment)
}

func ownedBondsFromRows(rows *goquery.Selection, html string) ([]models.OwnedBond, error) {
	tooltips, err := rowTooltips(html)
	if err != nil {
		return nil, err
	}

	var bonds []models.OwnedBond
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		tds := row.Find("td")
		// An empty table renders one placeholder row.
		if tds.HasClass("ui-datatable-empty-message") {
			return true
		}
		if tds.Length() < 6 {
			rowErr = pageErr("holdings row with 6 cells", fmt.Sprintf("row %d has %d", i, tds.Length()))
			return false
		}
		cell := func(n int) string { return strings.TrimSpace(tds.Eq(n).Text()) }

		nameSpan := tds.Eq(0).Find("span").First()
		target, ok := nameSpan.Attr("id")
		if !ok {
			rowErr = pageErr("issue cell span with id", fmt.Sprintf("row %d", i))
			return false
		}
		schedule, ok := tooltips[target]
		if !ok {
			rowErr = pageErr(fmt.Sprintf("tooltip for %q", target), "no matching tooltip script")
			return false
		}

		bond := models.OwnedBond{IssueCode: strings.TrimSpace(nameSpan.Text()), Schedule: schedule}
		if bond.Available, rowErr = strconv.Atoi(cell(1)); rowErr != nil {
			return false
		}
		if bond.Blocked, rowErr = strconv.Atoi(cell(2)); rowErr != nil {
			return false
		}
		if bond.Nominal, rowErr = utils.ParseMoney(cell(3)); rowErr != nil {
			return false
		}
		if bond.Current, rowErr = utils.ParseMoney(cell(4)); rowErr != nil {
			return false
		}
		if bond.Maturity, rowErr = time.Parse(time.DateOnly, cell(5)); rowErr != nil {
			return false
		}
		bonds = append(bonds, bond)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return bonds, nil
}

// PortfolioTableID returns the id of the holdings table body, without the
// "_data" suffix. Pagination steps use it as their source id.
func PortfolioTableID(doc *goquery.Document) (string, error) {
	id, ok := doc.Find(portfolioTableSelector).First().Attr("id")
	if !ok {
		return "", pageErr("holdings table body with id", "no stanRachunku tbody")
	}
	return strings.TrimSuffix(id, "_data"), nil
}

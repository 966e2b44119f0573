package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
	"github.com/mpapierski/obligacjeskarbowe/pkg/utils"
)

const catalogTableSelector = `tbody[id^="dostepneEmisje:j_idt"]`

var (
	// The "wybierz" link carries the step identifiers in a fixed
	// PrimeFaces.ab(...) call. Older revisions include an f: argument.
	selectOnclickRe = regexp.MustCompile(`^PrimeFaces\.ab\(\{s:"(dostepneEmisje:j_idt\d+:\d+:wybierz)"(?:,f:"[^"]*")?,u:"([^"]+)"\}\);return false;$`)
	familyNominalRe = regexp.MustCompile(`^Wartość nominalna dotychczas zakupionych obligacji za środki przyznane w ramach programów wsparcia rodziny wynosi: (\d+(?:[.,]\d{2})?)$`)
)

// ParseSelectOnclick extracts the source and render ids from a catalog
// row's inline click handler.
func ParseSelectOnclick(onclick string) (models.SelectAction, error) {
	m := selectOnclickRe.FindStringSubmatch(strings.TrimSpace(onclick))
	if m == nil {
		return models.SelectAction{}, pageErr("PrimeFaces.ab select handler", fmt.Sprintf("%q", onclick))
	}
	return models.SelectAction{Source: m[1], Render: m[2]}, nil
}

// AvailableBonds extracts the purchasable issues table from a catalog
// page. path records which catalog the rows came from; the select action
// descriptors are only valid after navigating back to that path.
func AvailableBonds(doc *goquery.Document, path string) ([]models.AvailableBond, error) {
	tbody := doc.Find(catalogTableSelector)
	if tbody.Length() == 0 {
		return nil, pageErr("catalog table body", "no dostepneEmisje tbody")
	}

	var bonds []models.AvailableBond
	var rowErr error
	tbody.First().Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		bond, err := availableBondFromRow(row, path)
		if err != nil {
			rowErr = fmt.Errorf("catalog row %d: %w", i, err)
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

func availableBondFromRow(row *goquery.Selection, path string) (models.AvailableBond, error) {
	tds := row.Find("td")
	// An explicit issuer cell is only present on some revisions of the
	// page; without it the issuer is implicitly the State Treasury.
	issuer := defaultIssuer
	offset := 0
	if first := strings.TrimSpace(tds.Eq(0).Find("span").First().Text()); first == defaultIssuer {
		offset = 1
	}
	if tds.Length() < offset+5 {
		return models.AvailableBond{}, pageErr("catalog row with 5 cells", fmt.Sprintf("%d cells", tds.Length()))
	}

	kind, code, err := utils.SplitKindCode(tds.Eq(offset).Find("span").First().Text())
	if err != nil {
		return models.AvailableBond{}, err
	}
	months, err := utils.ParseDurationMonths(kind)
	if err != nil {
		return models.AvailableBond{}, err
	}
	from, to, err := utils.ParseSaleWindow(strings.TrimSpace(tds.Eq(offset + 1).Text()))
	if err != nil {
		return models.AvailableBond{}, err
	}
	rate, err := utils.ParsePercent(strings.TrimSpace(tds.Eq(offset + 2).Text()))
	if err != nil {
		return models.AvailableBond{}, err
	}

	prospectus := tds.Eq(offset + 3).Find("a")
	if strings.TrimSpace(prospectus.Text()) != "pokaż" {
		return models.AvailableBond{}, pageErr(`prospectus link labelled "pokaż"`, fmt.Sprintf("%q", prospectus.Text()))
	}
	prospectusURL, ok := prospectus.Attr("href")
	if !ok {
		return models.AvailableBond{}, pageErr("prospectus link with href", "no href")
	}

	onclick, ok := tds.Eq(offset + 4).Find("a").Attr("onclick")
	if !ok {
		return models.AvailableBond{}, pageErr("select link with onclick", "no onclick")
	}
	selectAction, err := ParseSelectOnclick(onclick)
	if err != nil {
		return models.AvailableBond{}, err
	}

	return models.AvailableBond{
		Issuer:         issuer,
		Kind:           kind,
		IssueCode:      code,
		SaleFrom:       from,
		SaleTo:         to,
		Rate:           rate,
		ProspectusURL:  prospectusURL,
		Select:         selectAction,
		CatalogPath:    path,
		DurationMonths: months,
	}, nil
}

// FamilyNominal extracts the cumulative nominal value already purchased
// under the family-subsidy program. Only the family catalog page renders
// it; the amount is printed without a currency token.
func FamilyNominal(doc *goquery.Document) (models.Money, error) {
	var found string
	doc.Find(fieldSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := collapseLines(sel.Text())
		if familyNominalRe.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	if found == "" {
		return models.Money{}, pageErr("family program nominal value line", "no matching field")
	}
	m := familyNominalRe.FindStringSubmatch(found)
	money, err := utils.ParseMoney(strings.ReplaceAll(m[1], ".", ",") + " " + models.DefaultCurrency)
	if err != nil {
		return models.Money{}, err
	}
	return money, nil
}

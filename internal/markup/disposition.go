package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
	"github.com/mpapierski/obligacjeskarbowe/pkg/utils"
)

// Labels of the disposition snapshot panel.
const (
	issueCodeLabel   = "Kod emisji"
	fullNameLabel    = "Pełna nazwa emisji"
	rateLabel        = "Oprocentowanie"
	unitValueLabel   = "Wartość nominalna jednej obligacji"
	maxUnitsLabel    = "Maksymalnie"
	suitabilityLabel = "Czy transakcja jest zgodna z Grupą docelową?"
)

// Disposition extracts the server's pre-confirmation purchase snapshot
// from the "dane dyspozycji" page. The full issue name is rendered as two
// label/value rows, the second with an empty label. The maximum unit count
// is absent for uncapped issues.
func Disposition(doc *goquery.Document) (*models.PurchaseDisposition, error) {
	values, err := LabelValues(doc)
	if err != nil {
		return nil, err
	}
	lookup := func(label string) (string, error) {
		value, ok := values[label]
		if !ok {
			return "", pageErr(fmt.Sprintf("label %q", label), "missing")
		}
		return value, nil
	}

	disposition := &models.PurchaseDisposition{}
	if disposition.IssueCode, err = lookup(issueCodeLabel); err != nil {
		return nil, err
	}

	namePart1, err := lookup(fullNameLabel)
	if err != nil {
		return nil, err
	}
	// The continuation row has a blank label.
	disposition.FullName = strings.TrimSpace(namePart1 + " " + values[""])

	rateText, err := lookup(rateLabel)
	if err != nil {
		return nil, err
	}
	if disposition.Rate, err = utils.ParsePercent(rateText); err != nil {
		return nil, pageErr("disposition rate", err.Error())
	}

	unitText, err := lookup(unitValueLabel)
	if err != nil {
		return nil, err
	}
	if disposition.UnitValue, err = utils.ParseMoney(unitText); err != nil {
		return nil, pageErr("unit nominal value", err.Error())
	}

	if maxText, ok := values[maxUnitsLabel]; ok {
		units, err := utils.ParseUnits(maxText)
		if err != nil {
			return nil, pageErr("maximum unit count", err.Error())
		}
		disposition.MaxUnits = &units
	}

	balanceText, err := lookup(balanceLabel)
	if err != nil {
		return nil, err
	}
	if disposition.Balance, err = utils.ParseMoney(balanceText); err != nil {
		return nil, pageErr("disposition balance", err.Error())
	}

	suitableText, err := lookup(suitabilityLabel)
	if err != nil {
		return nil, err
	}
	if disposition.Suitable, err = utils.ParseYesNo(suitableText); err != nil {
		return nil, pageErr("suitability flag", err.Error())
	}
	return disposition, nil
}

// Package utils provides parsers for the locale-formatted values the
// brokerage renders: money with thousands separators and a trailing
// currency code, comma-decimal percentages, tenor labels, unit counts
// and TAK/NIE flags.
package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

var (
	percentRe  = regexp.MustCompile(`^(\d+(?:,\d+)?)%$`)
	unitsRe    = regexp.MustCompile(`^(\d+) szt\.?$`)
	durationRe = regexp.MustCompile(`^(\d+)-(miesięczne|letni[ea])$`)
	saleSpanRe = regexp.MustCompile(`od\s+(\d{4}-\d{2}-\d{2})\s*do\s+(\d{4}-\d{2}-\d{2})`)
	kindCodeRe = regexp.MustCompile(`:\s+`)
)

// ParseMoney parses a locale-formatted amount like "42 4242,42 PLN".
// Non-breaking spaces are treated as spaces. The currency token is
// mandatory: an amount without it is rejected rather than defaulted.
func ParseMoney(s string) (models.Money, error) {
	cleaned := strings.ReplaceAll(s, " ", " ")
	cleaned = strings.TrimSpace(cleaned)
	if !strings.Contains(cleaned, models.DefaultCurrency) {
		return models.Money{}, fmt.Errorf("expected %s currency token in %q", models.DefaultCurrency, s)
	}
	cleaned = strings.ReplaceAll(cleaned, models.DefaultCurrency, "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return models.Money{}, fmt.Errorf("malformed amount %q: %w", s, err)
	}
	return models.NewMoney(amount), nil
}

// ParsePercent parses a comma-decimal percentage like "7,50%".
func ParsePercent(s string) (decimal.Decimal, error) {
	m := percentRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Decimal{}, fmt.Errorf("expected percentage but found %q", s)
	}
	return decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
}

// ParseUnits parses a unit count like "123 szt".
func ParseUnits(s string) (int, error) {
	m := unitsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("expected unit count but found %q", s)
	}
	return strconv.Atoi(m[1])
}

// ParseYesNo parses the TAK/NIE suitability flag.
func ParseYesNo(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "TAK":
		return true, nil
	case "NIE":
		return false, nil
	}
	return false, fmt.Errorf("expected TAK or NIE but found %q", s)
}

// ParseDurationMonths converts a tenor label to months: "3-miesięczne" is
// 3, "2-letnie" is 24, "roczne" is 12. An unknown suffix is an error,
// never a silent default.
func ParseDurationMonths(label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "roczne" {
		return 12, nil
	}
	m := durationRe.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("unrecognized tenor label %q", label)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(m[2], "letni") {
		return n * 12, nil
	}
	return n, nil
}

// ParseSaleWindow parses "od 2023-05-01 do 2023-05-31" into its two dates.
func ParseSaleWindow(s string) (from, to time.Time, err error) {
	m := saleSpanRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("expected sale window but found %q", s)
	}
	if from, err = time.Parse(time.DateOnly, m[1]); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to, err = time.Parse(time.DateOnly, m[2]); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// SplitKindCode splits a catalog cell like "6-letnie: ROS0529" into the
// tenor label and the issue code.
func SplitKindCode(s string) (kind, code string, err error) {
	parts := kindCodeRe.Split(strings.TrimSpace(s), -1)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected two tokens in %q", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

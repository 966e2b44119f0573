// Package family computes the accumulated "Rodzina 800+" child benefit,
// used to size purchases of the family-only bond offer. The monthly rate
// was 500 PLN until the end of 2023 and 800 PLN from January 2024.
package family

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompChangeDate is when the benefit rose from 500 to 800 PLN.
var CompChangeDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	rateBefore = decimal.NewFromInt(500)
	rateAfter  = decimal.NewFromInt(800)
	unitPrice  = decimal.NewFromInt(100)
)

// Child is one benefit recipient.
type Child struct {
	Name      string
	BirthDate time.Time
}

// ChildBenefit breaks down one child's accumulated compensation.
type ChildBenefit struct {
	Name       string
	FirstMonth decimal.Decimal
	Months500  int
	Months800  int
	Total      decimal.Decimal
}

// Summary is the household total across all children.
type Summary struct {
	Children []ChildBenefit
	Total    decimal.Decimal
}

// DiffMonths returns the number of calendar months from b to a.
func DiffMonths(a, b time.Time) int {
	return (a.Year()-b.Year())*12 + int(a.Month()) - int(b.Month())
}

// nextMonth returns the first day of the month after d.
func nextMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// daysFrom counts the days from d to the start of the next month,
// inclusive of d itself.
func daysFrom(d time.Time) int {
	return int(nextMonth(d).Sub(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24)
}

// RoundUpTenth rounds up to one decimal place, the rounding the benefit
// office applies to the prorated first-month payment.
func RoundUpTenth(v decimal.Decimal) decimal.Decimal {
	return v.RoundCeil(1)
}

// Compensation computes the benefit accumulated for one child up to
// asOf: a prorated payment for the birth month plus full months at the
// rate in force.
func Compensation(child Child, asOf time.Time) ChildBenefit {
	birth := child.BirthDate
	monthStart := time.Date(birth.Year(), birth.Month(), 1, 0, 0, 0, 0, time.UTC)
	totalDays := decimal.NewFromInt(int64(daysFrom(monthStart)))
	fullDays := decimal.NewFromInt(int64(daysFrom(birth)))

	rate := rateBefore
	if birth.After(CompChangeDate) {
		rate = rateAfter
	}
	firstMonth := RoundUpTenth(fullDays.Div(totalDays).Mul(rate))

	firstFullMonth := nextMonth(birth)
	months500 := DiffMonths(CompChangeDate, firstFullMonth) + 1
	months800 := DiffMonths(asOf, CompChangeDate)

	total := decimal.NewFromInt(int64(months500)).Mul(rateBefore).
		Add(decimal.NewFromInt(int64(months800)).Mul(rateAfter)).
		Add(firstMonth)

	return ChildBenefit{
		Name:       child.Name,
		FirstMonth: firstMonth,
		Months500:  months500,
		Months800:  months800,
		Total:      total,
	}
}

// TotalCompensation sums the benefit for every child as of the given
// date.
func TotalCompensation(children []Child, asOf time.Time) Summary {
	summary := Summary{Total: decimal.Zero}
	for _, child := range children {
		benefit := Compensation(child, asOf)
		summary.Children = append(summary.Children, benefit)
		summary.Total = summary.Total.Add(benefit.Total)
	}
	return summary
}

// AvailableBonds returns how many 100 PLN family bonds the accumulated
// benefit still covers beyond what is already held at nominal value.
// Partial units round up; the brokerage accepts the order as long as the
// benefit covers it.
func AvailableBonds(totalCompensation, nominalHeld decimal.Decimal) int64 {
	return totalCompensation.Sub(nominalHeld).Div(unitPrice).RoundCeil(0).IntPart()
}

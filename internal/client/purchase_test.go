package client

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

func disposition(balance string, maxUnits *int, suitable bool) *models.PurchaseDisposition {
	return &models.PurchaseDisposition{
		IssueCode: "ROD0535",
		FullName:  "RODZINNYCH DWUNASTOLETNICH OSZCZĘDNOŚCIOWYCH OBLIGACJI SKARBOWYCH",
		Rate:      decimal.RequireFromString("7.50"),
		UnitValue: models.NewMoney(decimal.NewFromInt(100)),
		MaxUnits:  maxUnits,
		Balance:   models.NewMoney(decimal.RequireFromString(balance)),
		Suitable:  suitable,
	}
}

func TestValidatePurchase(t *testing.T) {
	three := 3

	tests := []struct {
		name    string
		d       *models.PurchaseDisposition
		code    string
		units   int
		force   bool
		wantErr any
	}{
		{
			name: "happy path", d: disposition("1000.00", nil, true),
			code: "ROD", units: 5,
		},
		{
			name: "zero units", d: disposition("1000.00", nil, true),
			code: "ROD", units: 0, wantErr: errors.New(""),
		},
		{
			name: "issue mismatch", d: disposition("1000.00", nil, true),
			code: "EDO", units: 1, wantErr: &IssueMismatchError{},
		},
		{
			name: "insufficient funds", d: disposition("500.00", nil, true),
			code: "ROD", units: 10, wantErr: &InsufficientFundsError{},
		},
		{
			name: "force skips funds check but derived quota still applies",
			d:    disposition("500.00", nil, true),
			code: "ROD", units: 10, force: true, wantErr: &QuotaExceededError{},
		},
		{
			name: "force within derived quota", d: disposition("500.00", nil, true),
			code: "ROD", units: 5, force: true,
		},
		{
			name: "server quota", d: disposition("100000.00", &three, true),
			code: "ROD", units: 5, wantErr: &QuotaExceededError{},
		},
		{
			name: "unsuitable", d: disposition("1000.00", nil, false),
			code: "ROD", units: 1, wantErr: &SuitabilityError{},
		},
		{
			name: "funds error wins over quota without force",
			d:    disposition("500.00", &three, true),
			code: "ROD", units: 10, wantErr: &InsufficientFundsError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePurchase(tt.d, tt.code, tt.units, tt.force)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %T, got nil", tt.wantErr)
			}
			switch tt.wantErr.(type) {
			case *IssueMismatchError:
				var e *IssueMismatchError
				if !errors.As(err, &e) {
					t.Errorf("expected IssueMismatchError, got %v", err)
				}
			case *InsufficientFundsError:
				var e *InsufficientFundsError
				if !errors.As(err, &e) {
					t.Errorf("expected InsufficientFundsError, got %v", err)
				}
			case *QuotaExceededError:
				var e *QuotaExceededError
				if !errors.As(err, &e) {
					t.Errorf("expected QuotaExceededError, got %v", err)
				}
			case *SuitabilityError:
				var e *SuitabilityError
				if !errors.As(err, &e) {
					t.Errorf("expected SuitabilityError, got %v", err)
				}
			}
		})
	}
}

func TestValidatePurchaseDerivedQuotaDetails(t *testing.T) {
	err := validatePurchase(disposition("500.00", nil, true), "ROD", 10, true)
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Requested != 10 || quota.Max != 5 {
		t.Errorf("quota = %+v, want requested 10, max 5", quota)
	}
}

func TestSortCatalog(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2023, 5, d, 0, 0, 0, 0, time.UTC) }
	bond := func(code string, months int, from time.Time, rate string) models.AvailableBond {
		return models.AvailableBond{
			IssueCode:      code,
			DurationMonths: months,
			SaleFrom:       from,
			Rate:           decimal.RequireFromString(rate),
		}
	}

	bonds := []models.AvailableBond{
		bond("ROD0535", 144, day(1), "7.50"),
		bond("ROS0529", 72, day(1), "7.20"),
		bond("EDO0533", 120, day(1), "7.00"),
		bond("TOS0526", 36, day(2), "6.85"),
		bond("OTS0823", 3, day(1), "3.00"),
		bond("COI0527", 36, day(1), "7.00"),
	}
	sortCatalog(bonds)

	want := []string{"OTS0823", "COI0527", "TOS0526", "ROS0529", "EDO0533", "ROD0535"}
	for i, code := range want {
		if bonds[i].IssueCode != code {
			t.Fatalf("position %d = %s, want %s (full order %v)", i, bonds[i].IssueCode, code, codes(bonds))
		}
	}
}

func codes(bonds []models.AvailableBond) []string {
	out := make([]string, len(bonds))
	for i, b := range bonds {
		out[i] = b.IssueCode
	}
	return out
}

package schedule

import (
	"testing"
	"time"

	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/shopspring/decimal"
)

func testContract() models.Contract {
	return models.Contract{
		ContractNumber:      "FFR-FIN-000123",
		CustomerName:        "John Smith",
		ProjectDescription:  "Shingle Roof Replacement",
		ContractDate:        time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
		TotalContractAmount: decimal.NewFromInt(10000),
		DownPayment:         decimal.Zero,
		AmountFinanced:      decimal.NewFromInt(10000),
		InterestRate:        decimal.NewFromInt(12),
		NumberOfPayments:    12,
		FirstPaymentDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMonthlyPayment(t *testing.T) {
	payment := MonthlyPayment(decimal.NewFromInt(10000), decimal.NewFromInt(12), 12)
	expected := decimal.NewFromFloat(888.49)
	if !payment.Equal(expected) {
		t.Errorf("Expected monthly payment %s, got %s", expected, payment)
	}
}

func TestMonthlyPayment_ZeroRate(t *testing.T) {
	payment := MonthlyPayment(decimal.NewFromInt(12000), decimal.Zero, 12)
	expected := decimal.NewFromInt(1000)
	if !payment.Equal(expected) {
		t.Errorf("Expected monthly payment %s for zero-rate financing, got %s", expected, payment)
	}
}

func TestMonthlyPayment_MalformedInput(t *testing.T) {
	if p := MonthlyPayment(decimal.NewFromInt(10000), decimal.NewFromInt(12), 0); !p.IsZero() {
		t.Errorf("Expected 0 for zero payments, got %s", p)
	}
	if p := MonthlyPayment(decimal.NewFromInt(-500), decimal.NewFromInt(12), 12); !p.IsZero() {
		t.Errorf("Expected 0 for negative principal, got %s", p)
	}
}

func TestBuild_AmortizesToZero(t *testing.T) {
	entries := Build(testContract())
	if len(entries) != 12 {
		t.Fatalf("Expected 12 entries, got %d", len(entries))
	}

	first := entries[0]
	if !first.InterestAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected first interest 100.00, got %s", first.InterestAmount)
	}
	if !first.PrincipalAmount.Equal(decimal.NewFromFloat(788.49)) {
		t.Errorf("Expected first principal 788.49, got %s", first.PrincipalAmount)
	}
	if !first.RemainingBalance.Equal(decimal.NewFromFloat(9211.51)) {
		t.Errorf("Expected remaining balance 9211.51 after first payment, got %s", first.RemainingBalance)
	}

	last := entries[len(entries)-1]
	if !last.RemainingBalance.IsZero() {
		t.Errorf("Expected final remaining balance 0.00, got %s", last.RemainingBalance)
	}

	principalSum := decimal.Zero
	for _, e := range entries {
		principalSum = principalSum.Add(e.PrincipalAmount)
		if e.Status != models.StatusPending {
			t.Errorf("Entry %d: expected status pending, got %s", e.PaymentNumber, e.Status)
		}
	}
	if !principalSum.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected principal portions to sum to 10000, got %s", principalSum)
	}
}

func TestBuild_DueDatesMonotonic(t *testing.T) {
	entries := Build(testContract())

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].DueDate, entries[i].DueDate
		if !prev.Before(cur) {
			t.Errorf("Due dates not increasing: %s then %s", prev, cur)
		}
		monthDelta := (cur.Year()-prev.Year())*12 + int(cur.Month()-prev.Month())
		if monthDelta != 1 {
			t.Errorf("Expected month to advance by 1, got %d (%s to %s)", monthDelta, prev, cur)
		}
	}

	if got := entries[0].DueDate; !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected first due date 2024-01-01, got %s", got)
	}
}

func TestBuild_EndOfMonthClamping(t *testing.T) {
	contract := testContract()
	contract.FirstPaymentDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	entries := Build(contract)
	second := entries[1].DueDate
	// 2024 is a leap year, so Jan 31 + 1 month clamps to Feb 29.
	if second.Month() != time.February || second.Day() != 29 {
		t.Errorf("Expected second due date 2024-02-29, got %s", second)
	}
	fourth := entries[3].DueDate
	if fourth.Month() != time.April || fourth.Day() != 30 {
		t.Errorf("Expected fourth due date 2024-04-30, got %s", fourth)
	}
}

func TestBuild_ZeroPayments(t *testing.T) {
	contract := testContract()
	contract.NumberOfPayments = 0
	if entries := Build(contract); len(entries) != 0 {
		t.Errorf("Expected empty schedule for 0 payments, got %d entries", len(entries))
	}
}

func TestSummarize(t *testing.T) {
	entries := Build(testContract())
	entries[0].Status = models.StatusPaid
	entries[1].Status = models.StatusPaid

	summary := Summarize(entries)
	if summary.TotalPayments != 12 || summary.PaidPayments != 2 || summary.RemainingPayments != 10 {
		t.Errorf("Unexpected payment counts: %+v", summary)
	}
	if !summary.TotalPrincipal.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected total principal 10000, got %s", summary.TotalPrincipal)
	}
	expectedPaid := entries[0].PrincipalAmount.Add(entries[1].PrincipalAmount)
	if !summary.PaidPrincipal.Equal(expectedPaid) {
		t.Errorf("Expected paid principal %s, got %s", expectedPaid, summary.PaidPrincipal)
	}
	if !summary.RemainingPrincipal.Equal(summary.TotalPrincipal.Sub(expectedPaid)) {
		t.Errorf("Remaining principal does not reconcile: %s", summary.RemainingPrincipal)
	}
}

// Package schedule computes fixed-payment amortization schedules for
// finance contracts.
package schedule

import (
	"math"
	"time"

	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/shopspring/decimal"
)

// Annual percentage rate to monthly periodic rate: divide by 100, then 12.
var monthlyRateDivisor = decimal.NewFromInt(1200)

// MonthlyPayment computes the fixed monthly payment for a loan using the
// standard annuity formula:
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// where r is the monthly periodic rate derived from the annual percentage
// rate. Zero-interest financing degrades to an even split of the principal.
// Malformed inputs (n <= 0, non-positive principal) return zero rather
// than NaN; validation belongs upstream.
func MonthlyPayment(amountFinanced decimal.Decimal, annualRatePercent decimal.Decimal, numberOfPayments int) decimal.Decimal {
	if numberOfPayments <= 0 || amountFinanced.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	monthlyRate := annualRatePercent.InexactFloat64() / 100 / 12
	if monthlyRate == 0 {
		return amountFinanced.Div(decimal.NewFromInt(int64(numberOfPayments))).Round(2)
	}

	// The power term needs float math; switch back to decimal afterwards.
	factor := math.Pow(1+monthlyRate, float64(numberOfPayments))
	payment := amountFinanced.InexactFloat64() * monthlyRate * factor / (factor - 1)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(payment).Round(2)
}

// Build produces the full payment schedule for a contract: one entry per
// period with the interest/principal split, due date, and running balance.
// Amounts are rounded to the cent at every step so the stored schedule
// matches what the books will post. The final period absorbs the rounding
// drift so the balance lands on exactly zero. A contract with
// NumberOfPayments <= 0 yields an empty schedule.
func Build(contract models.Contract) []models.PaymentScheduleEntry {
	n := contract.NumberOfPayments
	if n <= 0 {
		return nil
	}

	payment := MonthlyPayment(contract.AmountFinanced, contract.InterestRate, n)
	monthlyRate := contract.InterestRate.Div(monthlyRateDivisor)

	entries := make([]models.PaymentScheduleEntry, 0, n)
	remaining := contract.AmountFinanced

	for i := 1; i <= n; i++ {
		interest := remaining.Mul(monthlyRate).Round(2)
		principal := payment.Sub(interest)
		total := payment

		if i == n {
			// Final payment clears whatever balance is left.
			principal = remaining
			total = principal.Add(interest)
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		entries = append(entries, models.PaymentScheduleEntry{
			ContractID:       contract.ContractNumber,
			PaymentNumber:    i,
			DueDate:          addMonths(contract.FirstPaymentDate, i-1),
			PrincipalAmount:  principal.Round(2),
			InterestAmount:   interest,
			TotalPayment:     total.Round(2),
			RemainingBalance: remaining.Round(2),
			Status:           models.StatusPending,
		})
	}

	return entries
}

// addMonths advances a date by whole calendar months, clamping the day of
// month when the target month is shorter (Jan 31 + 1 month = Feb 28/29).
// time.AddDate normalizes overflow instead, which is not what a payment
// due date wants.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}

// Summarize aggregates a schedule into totals for reporting.
func Summarize(entries []models.PaymentScheduleEntry) models.ScheduleSummary {
	summary := models.ScheduleSummary{
		TotalPayments:      len(entries),
		TotalPrincipal:     decimal.Zero,
		TotalInterest:      decimal.Zero,
		TotalAmount:        decimal.Zero,
		PaidPrincipal:      decimal.Zero,
		RemainingPrincipal: decimal.Zero,
		RemainingInterest:  decimal.Zero,
	}

	for _, e := range entries {
		summary.TotalPrincipal = summary.TotalPrincipal.Add(e.PrincipalAmount)
		summary.TotalInterest = summary.TotalInterest.Add(e.InterestAmount)
		summary.TotalAmount = summary.TotalAmount.Add(e.TotalPayment)

		if e.Status == models.StatusPaid {
			summary.PaidPayments++
			summary.PaidPrincipal = summary.PaidPrincipal.Add(e.PrincipalAmount)
		} else {
			summary.RemainingPayments++
			summary.RemainingPrincipal = summary.RemainingPrincipal.Add(e.PrincipalAmount)
			summary.RemainingInterest = summary.RemainingInterest.Add(e.InterestAmount)
		}
	}

	return summary
}

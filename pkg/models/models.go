package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract holds the financing terms for an approved contract. The record
// itself is owned by the CRM; the ledger only reads it.
type Contract struct {
	ContractNumber      string          `json:"contract_number"` // Unique key, link to the CRM contract
	CustomerName        string          `json:"customer_name"`
	ProjectDescription  string          `json:"project_description"`
	ContractDate        time.Time       `json:"contract_date"`
	TotalContractAmount decimal.Decimal `json:"total_contract_amount"`
	DownPayment         decimal.Decimal `json:"down_payment"`
	AmountFinanced      decimal.Decimal `json:"amount_financed"`
	InterestRate        decimal.Decimal `json:"interest_rate"` // Annual rate in percent, e.g. 12.0
	NumberOfPayments    int             `json:"number_of_payments"`
	FirstPaymentDate    time.Time       `json:"first_payment_date"`
	LatePaymentFee      decimal.Decimal `json:"late_payment_fee"`
}

type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusOverdue PaymentStatus = "overdue"
)

// PaymentScheduleEntry is one period of a contract's amortization schedule.
type PaymentScheduleEntry struct {
	ContractID       string          `json:"contract_id"`
	PaymentNumber    int             `json:"payment_number"`
	DueDate          time.Time       `json:"due_date"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount"`
	InterestAmount   decimal.Decimal `json:"interest_amount"`
	TotalPayment     decimal.Decimal `json:"total_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           PaymentStatus   `json:"status"`
}

type EntryType string

const (
	EntryTypeOrigination     EntryType = "origination"
	EntryTypePayment         EntryType = "payment"
	EntryTypeLateFee         EntryType = "late-fee"
	EntryTypeInterestAccrual EntryType = "interest-accrual"
)

// JournalLine is a single debit or credit within a journal entry. By
// convention exactly one of Debit/Credit is non-zero per line.
type JournalLine struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// JournalEntry is an immutable double-entry bookkeeping record.
type JournalEntry struct {
	ID          uuid.UUID     `json:"id"`
	Date        time.Time     `json:"date"`
	Description string        `json:"description"`
	Reference   string        `json:"reference"`
	Type        EntryType     `json:"type"`
	ContractID  string        `json:"contract_id,omitempty"`
	Lines       []JournalLine `json:"lines"`
}

// TotalDebits sums the debit side of the entry.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums the credit side of the entry.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Balanced reports whether debits equal credits exactly.
func (e *JournalEntry) Balanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// AgingReport partitions overdue schedule entries by days past due.
type AgingReport struct {
	Current    []PaymentScheduleEntry `json:"current"`
	Days30     []PaymentScheduleEntry `json:"days30"`     // 1-30 days past due
	Days60     []PaymentScheduleEntry `json:"days60"`     // 31-60
	Days90     []PaymentScheduleEntry `json:"days90"`     // 61-90
	Days90Plus []PaymentScheduleEntry `json:"days90Plus"` // over 90
}

// ScheduleSummary aggregates a contract's schedule for reporting.
type ScheduleSummary struct {
	TotalPayments      int             `json:"total_payments"`
	TotalPrincipal     decimal.Decimal `json:"total_principal"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaidPayments       int             `json:"paid_payments"`
	PaidPrincipal      decimal.Decimal `json:"paid_principal"`
	RemainingPayments  int             `json:"remaining_payments"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	RemainingInterest  decimal.Decimal `json:"remaining_interest"`
}

// Package ledger keeps the books for finance contracts: it builds
// amortization schedules, posts balanced double-entry journal entries for
// origination, payments, late fees and interest accruals, and reports on
// overdue balances.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ffroofing/contractledger/pkg/accounts"
	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/ffroofing/contractledger/pkg/schedule"
	"github.com/ffroofing/contractledger/pkg/store"
)

var (
	// ErrNoPendingPayments is returned when a payment is recorded against a
	// contract whose schedule has no pending entries left.
	ErrNoPendingPayments = errors.New("no pending payments found for this contract")

	// ErrContractUnbalanced is returned when a contract's amount financed
	// plus down payment does not equal its total contract amount.
	ErrContractUnbalanced = errors.New("contract amounts do not balance")

	// ErrEntryUnbalanced indicates a composed journal entry whose debits do
	// not equal its credits. Seeing it means a bookkeeping bug, not bad
	// user input.
	ErrEntryUnbalanced = errors.New("journal entry debits do not equal credits")
)

// centTolerance allows contract amounts entered to the cent to differ by
// rounding when validated against each other.
var centTolerance = decimal.NewFromFloat(0.01)

// Ledger handles the business logic for finance contract bookkeeping.
// Construct one at startup and inject it into callers; it holds no global
// state.
type Ledger struct {
	storage store.Storage
	log     *logrus.Logger

	// Per-contract locks serialize the read-then-write on the oldest
	// pending schedule entry. This only guards callers within this
	// process; multi-process deployments need external coordination.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, log *logrus.Logger) *Ledger {
	return &Ledger{
		storage: s,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) contractLock(contractID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[contractID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[contractID] = lock
	}
	return lock
}

// CreateContractLedger sets up the books for a newly approved contract:
// it builds the amortization schedule and posts the origination entry,
// debiting Notes Receivable for the amount financed (plus Cash for any
// down payment) and crediting the revenue account resolved from the
// project description.
func (l *Ledger) CreateContractLedger(contract models.Contract) (*models.JournalEntry, error) {
	diff := contract.AmountFinanced.Add(contract.DownPayment).Sub(contract.TotalContractAmount)
	if diff.Abs().GreaterThan(centTolerance) {
		return nil, fmt.Errorf("%w: financed %s + down payment %s != total %s",
			ErrContractUnbalanced, contract.AmountFinanced, contract.DownPayment, contract.TotalContractAmount)
	}

	lock := l.contractLock(contract.ContractNumber)
	lock.Lock()
	defer lock.Unlock()

	lines := []models.JournalLine{
		{
			AccountCode: accounts.NotesReceivable.Code,
			AccountName: accounts.NotesReceivable.Name,
			Debit:       contract.AmountFinanced,
			Credit:      decimal.Zero,
		},
	}
	if contract.DownPayment.GreaterThan(decimal.Zero) {
		lines = append(lines, models.JournalLine{
			AccountCode: accounts.Cash.Code,
			AccountName: accounts.Cash.Name,
			Debit:       contract.DownPayment,
			Credit:      decimal.Zero,
		})
	}
	revenue := accounts.ResolveRevenue(contract.ProjectDescription)
	lines = append(lines, models.JournalLine{
		AccountCode: revenue.Code,
		AccountName: revenue.Name,
		Debit:       decimal.Zero,
		Credit:      contract.TotalContractAmount,
	})

	entry := &models.JournalEntry{
		ID:          uuid.New(),
		Date:        contract.ContractDate,
		Description: fmt.Sprintf("Finance Contract - %s", contract.CustomerName),
		Reference:   contract.ContractNumber,
		Type:        models.EntryTypeOrigination,
		ContractID:  contract.ContractNumber,
		Lines:       lines,
	}
	if !entry.Balanced() {
		return nil, fmt.Errorf("%w: origination for contract %s", ErrEntryUnbalanced, contract.ContractNumber)
	}

	entries := schedule.Build(contract)
	if err := l.storage.SaveSchedule(contract.ContractNumber, entries); err != nil {
		return nil, fmt.Errorf("failed to store payment schedule: %w", err)
	}
	if err := l.storage.SaveJournalEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store origination entry: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"contract_id": contract.ContractNumber,
		"payments":    len(entries),
		"financed":    contract.AmountFinanced,
	}).Info("contract ledger created")
	return entry, nil
}

// RecordPayment consumes the oldest pending schedule entry for a contract,
// flips it to paid, and posts the payment entry: debit Cash for the full
// amount, credit Notes Receivable for the principal portion and Interest
// Income for the interest portion.
func (l *Ledger) RecordPayment(contractID string, amount decimal.Decimal, date time.Time) (*models.JournalEntry, error) {
	lock := l.contractLock(contractID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := l.storage.Schedule(contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	var next *models.PaymentScheduleEntry
	for i := range entries {
		if entries[i].Status == models.StatusPending {
			next = &entries[i]
			break
		}
	}
	if next == nil {
		return nil, ErrNoPendingPayments
	}

	entry := &models.JournalEntry{
		ID:          uuid.New(),
		Date:        date,
		Description: fmt.Sprintf("Payment #%d - Contract %s", next.PaymentNumber, contractID),
		Reference:   fmt.Sprintf("%s-PMT-%d", contractID, next.PaymentNumber),
		Type:        models.EntryTypePayment,
		ContractID:  contractID,
		Lines: []models.JournalLine{
			{
				AccountCode: accounts.Cash.Code,
				AccountName: accounts.Cash.Name,
				Debit:       amount,
				Credit:      decimal.Zero,
			},
			{
				AccountCode: accounts.NotesReceivable.Code,
				AccountName: accounts.NotesReceivable.Name,
				Debit:       decimal.Zero,
				Credit:      next.PrincipalAmount,
			},
			{
				AccountCode: accounts.InterestIncome.Code,
				AccountName: accounts.InterestIncome.Name,
				Debit:       decimal.Zero,
				Credit:      next.InterestAmount,
			},
		},
	}
	if !entry.Balanced() {
		return nil, fmt.Errorf("%w: payment of %s against scheduled %s for contract %s",
			ErrEntryUnbalanced, amount, next.TotalPayment, contractID)
	}

	if err := l.storage.MarkPaymentPaid(contractID, next.PaymentNumber); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	if err := l.storage.SaveJournalEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store payment entry: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"contract_id":    contractID,
		"payment_number": next.PaymentNumber,
		"amount":         amount,
	}).Info("payment recorded")
	return entry, nil
}

// RecordLateFee posts a flat late fee against a contract: debit Notes
// Receivable, credit Late Payment Fees. The schedule is untouched; the fee
// is billed as a separate receivable increase.
func (l *Ledger) RecordLateFee(contractID string, fee decimal.Decimal, date time.Time) (*models.JournalEntry, error) {
	if fee.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("late fee must be positive, got %s", fee)
	}

	entry := &models.JournalEntry{
		ID:          uuid.New(),
		Date:        date,
		Description: fmt.Sprintf("Late Payment Fee - Contract %s", contractID),
		Reference:   fmt.Sprintf("%s-LATE-%s", contractID, date.Format("20060102")),
		Type:        models.EntryTypeLateFee,
		ContractID:  contractID,
		Lines: []models.JournalLine{
			{
				AccountCode: accounts.NotesReceivable.Code,
				AccountName: accounts.NotesReceivable.Name,
				Debit:       fee,
				Credit:      decimal.Zero,
			},
			{
				AccountCode: accounts.LateFeeIncome.Code,
				AccountName: accounts.LateFeeIncome.Name,
				Debit:       decimal.Zero,
				Credit:      fee,
			},
		},
	}
	if !entry.Balanced() {
		return nil, fmt.Errorf("%w: late fee for contract %s", ErrEntryUnbalanced, contractID)
	}

	if err := l.storage.SaveJournalEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store late fee entry: %w", err)
	}

	l.log.WithFields(logrus.Fields{"contract_id": contractID, "fee": fee}).Info("late fee recorded")
	return entry, nil
}

// AccrueInterest posts the month's interest accrual for a contract: the
// interest portions of schedule entries still pending with a due date in
// asOf's month, debited to Accrued Interest Receivable and credited to
// Interest Income. Returns (nil, nil) when no pending entry falls in that
// month; entries accrue once, in their originally scheduled month, and do
// not re-accrue after going overdue.
func (l *Ledger) AccrueInterest(contractID string, asOf time.Time) (*models.JournalEntry, error) {
	entries, err := l.storage.Schedule(contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	totalInterest := decimal.Zero
	matched := 0
	for _, e := range entries {
		if e.Status != models.StatusPending {
			continue
		}
		if e.DueDate.Year() == asOf.Year() && e.DueDate.Month() == asOf.Month() {
			totalInterest = totalInterest.Add(e.InterestAmount)
			matched++
		}
	}
	if matched == 0 {
		return nil, nil
	}

	entry := &models.JournalEntry{
		ID:          uuid.New(),
		Date:        asOf,
		Description: fmt.Sprintf("Interest Accrual - Contract %s", contractID),
		Reference:   fmt.Sprintf("%s-ACCRUE-%s", contractID, asOf.Format("2006-01")),
		Type:        models.EntryTypeInterestAccrual,
		ContractID:  contractID,
		Lines: []models.JournalLine{
			{
				AccountCode: accounts.AccruedInterestReceivable.Code,
				AccountName: accounts.AccruedInterestReceivable.Name,
				Debit:       totalInterest,
				Credit:      decimal.Zero,
			},
			{
				AccountCode: accounts.InterestIncome.Code,
				AccountName: accounts.InterestIncome.Name,
				Debit:       decimal.Zero,
				Credit:      totalInterest,
			},
		},
	}
	if !entry.Balanced() {
		return nil, fmt.Errorf("%w: interest accrual for contract %s", ErrEntryUnbalanced, contractID)
	}

	if err := l.storage.SaveJournalEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store accrual entry: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"month":       asOf.Format("2006-01"),
		"interest":    totalInterest,
	}).Info("interest accrued")
	return entry, nil
}

// Schedule returns a contract's payment schedule with overdue status
// derived at read time: a pending entry whose due date is strictly before
// asOf is reported as overdue. The stored status is not changed.
func (l *Ledger) Schedule(contractID string, asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	entries, err := l.storage.Schedule(contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	for i := range entries {
		if entries[i].Status == models.StatusPending && entries[i].DueDate.Before(asOf) {
			entries[i].Status = models.StatusOverdue
		}
	}
	return entries, nil
}

// ScheduleSummary returns aggregate figures for a contract's schedule.
func (l *Ledger) ScheduleSummary(contractID string, asOf time.Time) (models.ScheduleSummary, error) {
	entries, err := l.Schedule(contractID, asOf)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	return schedule.Summarize(entries), nil
}

// JournalEntries returns every journal entry on the books.
func (l *Ledger) JournalEntries() ([]*models.JournalEntry, error) {
	return l.storage.JournalEntries()
}

// ContractJournalEntries returns the journal entries for one contract.
func (l *Ledger) ContractJournalEntries(contractID string) ([]*models.JournalEntry, error) {
	return l.storage.JournalEntriesByContract(contractID)
}

// OverduePayments returns unpaid schedule entries across all contracts
// with a due date strictly before asOf, reported with overdue status.
func (l *Ledger) OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	entries, err := l.storage.OverduePayments(asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue payments: %w", err)
	}
	for i := range entries {
		if entries[i].Status == models.StatusPending {
			entries[i].Status = models.StatusOverdue
		}
	}
	return entries, nil
}

// AgingReport buckets overdue payments by days past due as of asOf.
func (l *Ledger) AgingReport(asOf time.Time) (*models.AgingReport, error) {
	overdue, err := l.OverduePayments(asOf)
	if err != nil {
		return nil, err
	}

	report := &models.AgingReport{
		Current:    []models.PaymentScheduleEntry{},
		Days30:     []models.PaymentScheduleEntry{},
		Days60:     []models.PaymentScheduleEntry{},
		Days90:     []models.PaymentScheduleEntry{},
		Days90Plus: []models.PaymentScheduleEntry{},
	}
	for _, e := range overdue {
		days := daysPastDue(e.DueDate, asOf)
		switch {
		case days <= 0:
			report.Current = append(report.Current, e)
		case days <= 30:
			report.Days30 = append(report.Days30, e)
		case days <= 60:
			report.Days60 = append(report.Days60, e)
		case days <= 90:
			report.Days90 = append(report.Days90, e)
		default:
			report.Days90Plus = append(report.Days90Plus, e)
		}
	}
	return report, nil
}

func daysPastDue(dueDate, asOf time.Time) int {
	return int(asOf.Sub(dueDate).Hours() / 24)
}

// RunMonthlyAccruals posts the interest accrual for every contract with a
// stored schedule. Contracts with nothing pending in asOf's month are
// skipped. Intended for the scheduled batch job.
func (l *Ledger) RunMonthlyAccruals(asOf time.Time) error {
	ids, err := l.storage.ContractIDs()
	if err != nil {
		return fmt.Errorf("failed to list contracts for accrual: %w", err)
	}

	for _, id := range ids {
		entry, err := l.AccrueInterest(id, asOf)
		if err != nil {
			l.log.WithError(err).WithField("contract_id", id).Error("interest accrual failed")
			continue
		}
		if entry == nil {
			l.log.WithField("contract_id", id).Debug("no pending interest to accrue this month")
		}
	}
	return nil
}

// OverdueSweep logs the overdue position across all contracts. It does not
// mutate any schedule; overdue status stays derived at read time.
func (l *Ledger) OverdueSweep(asOf time.Time) {
	overdue, err := l.OverduePayments(asOf)
	if err != nil {
		l.log.WithError(err).Error("overdue sweep failed")
		return
	}

	total := decimal.Zero
	for _, e := range overdue {
		total = total.Add(e.TotalPayment)
	}
	l.log.WithFields(logrus.Fields{
		"overdue_payments": len(overdue),
		"overdue_amount":   total,
	}).Info("overdue sweep complete")
}

package ledger

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ffroofing/contractledger/pkg/accounts"
	"github.com/ffroofing/contractledger/pkg/models"
)

// MockStore is a simple in-memory implementation of the Storage interface for testing.
type MockStore struct {
	schedules map[string][]models.PaymentScheduleEntry
	entries   []*models.JournalEntry
}

func NewMockStore() *MockStore {
	return &MockStore{
		schedules: make(map[string][]models.PaymentScheduleEntry),
		entries:   []*models.JournalEntry{},
	}
}

func (m *MockStore) SaveJournalEntry(entry *models.JournalEntry) error {
	for _, e := range m.entries {
		if e.ID == entry.ID {
			return nil
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockStore) JournalEntries() ([]*models.JournalEntry, error) {
	return m.entries, nil
}

func (m *MockStore) JournalEntriesByContract(contractID string) ([]*models.JournalEntry, error) {
	filtered := []*models.JournalEntry{}
	for _, e := range m.entries {
		if e.ContractID == contractID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (m *MockStore) SaveSchedule(contractID string, entries []models.PaymentScheduleEntry) error {
	m.schedules[contractID] = entries
	return nil
}

func (m *MockStore) Schedule(contractID string) ([]models.PaymentScheduleEntry, error) {
	return append([]models.PaymentScheduleEntry(nil), m.schedules[contractID]...), nil
}

func (m *MockStore) MarkPaymentPaid(contractID string, paymentNumber int) error {
	entries := m.schedules[contractID]
	for i := range entries {
		if entries[i].PaymentNumber == paymentNumber {
			entries[i].Status = models.StatusPaid
			return nil
		}
	}
	return fmt.Errorf("schedule entry not found")
}

func (m *MockStore) OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	overdue := []models.PaymentScheduleEntry{}
	for _, entries := range m.schedules {
		for _, e := range entries {
			if e.Status != models.StatusPaid && e.DueDate.Before(asOf) {
				overdue = append(overdue, e)
			}
		}
	}
	return overdue, nil
}

func (m *MockStore) ContractIDs() ([]string, error) {
	ids := []string{}
	for id := range m.schedules {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockStore) Close() error {
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testContract() models.Contract {
	return models.Contract{
		ContractNumber:      "FFR-FIN-000200",
		CustomerName:        "Jane Doe",
		ProjectDescription:  "Metal Roof Replacement",
		ContractDate:        time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
		TotalContractAmount: decimal.NewFromInt(12000),
		DownPayment:         decimal.NewFromInt(2000),
		AmountFinanced:      decimal.NewFromInt(10000),
		InterestRate:        decimal.NewFromInt(12),
		NumberOfPayments:    12,
		FirstPaymentDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LatePaymentFee:      decimal.NewFromInt(25),
	}
}

func TestCreateContractLedger(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	entry, err := l.CreateContractLedger(testContract())
	if err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	if entry.Type != models.EntryTypeOrigination {
		t.Errorf("Expected origination entry, got %s", entry.Type)
	}
	if !entry.Balanced() {
		t.Errorf("Origination entry not balanced: debits %s, credits %s", entry.TotalDebits(), entry.TotalCredits())
	}
	if len(entry.Lines) != 3 {
		t.Fatalf("Expected 3 lines (notes receivable, cash, revenue), got %d", len(entry.Lines))
	}
	if entry.Lines[0].AccountCode != accounts.NotesReceivable.Code || !entry.Lines[0].Debit.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Unexpected notes receivable line: %+v", entry.Lines[0])
	}
	if entry.Lines[1].AccountCode != accounts.Cash.Code || !entry.Lines[1].Debit.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Unexpected down payment line: %+v", entry.Lines[1])
	}
	if entry.Lines[2].AccountCode != accounts.RevenueMetal.Code || !entry.Lines[2].Credit.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("Expected metal roofing revenue credit of 12000, got %+v", entry.Lines[2])
	}

	sched := store.schedules["FFR-FIN-000200"]
	if len(sched) != 12 {
		t.Errorf("Expected 12 schedule entries persisted, got %d", len(sched))
	}
}

func TestCreateContractLedger_NoDownPayment(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	contract.DownPayment = decimal.Zero
	contract.TotalContractAmount = decimal.NewFromInt(10000)

	entry, err := l.CreateContractLedger(contract)
	if err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}
	if len(entry.Lines) != 2 {
		t.Errorf("Expected 2 lines without a down payment, got %d", len(entry.Lines))
	}
}

func TestCreateContractLedger_Unbalanced(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	contract.DownPayment = decimal.NewFromInt(500) // financed + down != total

	_, err := l.CreateContractLedger(contract)
	if !errors.Is(err, ErrContractUnbalanced) {
		t.Errorf("Expected ErrContractUnbalanced, got %v", err)
	}
	if len(store.entries) != 0 {
		t.Errorf("Expected no entries persisted, got %d", len(store.entries))
	}
}

func TestRecordPayment(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	first := store.schedules[contract.ContractNumber][0]
	entry, err := l.RecordPayment(contract.ContractNumber, first.TotalPayment, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to record payment: %v", err)
	}

	if entry.Type != models.EntryTypePayment {
		t.Errorf("Expected payment entry, got %s", entry.Type)
	}
	if !entry.Balanced() {
		t.Errorf("Payment entry not balanced: debits %s, credits %s", entry.TotalDebits(), entry.TotalCredits())
	}
	if entry.Reference != contract.ContractNumber+"-PMT-1" {
		t.Errorf("Unexpected reference %s", entry.Reference)
	}
	if !entry.Lines[1].Credit.Equal(first.PrincipalAmount) {
		t.Errorf("Expected principal credit %s, got %s", first.PrincipalAmount, entry.Lines[1].Credit)
	}
	if !entry.Lines[2].Credit.Equal(first.InterestAmount) {
		t.Errorf("Expected interest credit %s, got %s", first.InterestAmount, entry.Lines[2].Credit)
	}

	if store.schedules[contract.ContractNumber][0].Status != models.StatusPaid {
		t.Error("Expected first schedule entry to be marked paid")
	}
	if store.schedules[contract.ContractNumber][1].Status != models.StatusPending {
		t.Error("Expected second schedule entry to stay pending")
	}
}

func TestRecordPayment_ConsumesAllThenFails(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	for i := 0; i < contract.NumberOfPayments; i++ {
		next := store.schedules[contract.ContractNumber][i]
		if _, err := l.RecordPayment(contract.ContractNumber, next.TotalPayment, next.DueDate); err != nil {
			t.Fatalf("Payment %d failed: %v", i+1, err)
		}
	}

	for _, e := range store.schedules[contract.ContractNumber] {
		if e.Status != models.StatusPaid {
			t.Errorf("Entry %d not paid after full consumption", e.PaymentNumber)
		}
	}

	_, err := l.RecordPayment(contract.ContractNumber, decimal.NewFromInt(100), time.Now())
	if !errors.Is(err, ErrNoPendingPayments) {
		t.Errorf("Expected ErrNoPendingPayments, got %v", err)
	}
}

func TestRecordPayment_AmountMismatch(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	_, err := l.RecordPayment(contract.ContractNumber, decimal.NewFromInt(5), time.Now())
	if !errors.Is(err, ErrEntryUnbalanced) {
		t.Errorf("Expected ErrEntryUnbalanced for mismatched amount, got %v", err)
	}
	if store.schedules[contract.ContractNumber][0].Status != models.StatusPending {
		t.Error("Schedule entry should stay pending when the entry does not balance")
	}
}

func TestRecordLateFee(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	entry, err := l.RecordLateFee(contract.ContractNumber, decimal.NewFromInt(25), time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Failed to record late fee: %v", err)
	}

	if entry.Type != models.EntryTypeLateFee {
		t.Errorf("Expected late-fee entry, got %s", entry.Type)
	}
	if !entry.Balanced() {
		t.Error("Late fee entry not balanced")
	}
	if entry.Lines[1].AccountCode != accounts.LateFeeIncome.Code {
		t.Errorf("Expected late fee income credit, got %s", entry.Lines[1].AccountCode)
	}

	// Fees never touch the schedule.
	for _, e := range store.schedules[contract.ContractNumber] {
		if e.Status != models.StatusPending {
			t.Error("Late fee must not change schedule status")
		}
	}
}

func TestAccrueInterest(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	asOf := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	entry, err := l.AccrueInterest(contract.ContractNumber, asOf)
	if err != nil {
		t.Fatalf("Failed to accrue interest: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected an accrual entry for January")
	}

	if entry.Type != models.EntryTypeInterestAccrual {
		t.Errorf("Expected interest-accrual entry, got %s", entry.Type)
	}
	if !entry.Balanced() {
		t.Error("Accrual entry not balanced")
	}
	// Only payment #1 is due in January: interest 100.00.
	if !entry.Lines[0].Debit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected accrued interest 100.00, got %s", entry.Lines[0].Debit)
	}
	if entry.Reference != contract.ContractNumber+"-ACCRUE-2024-01" {
		t.Errorf("Unexpected reference %s", entry.Reference)
	}
}

func TestAccrueInterest_NoPendingInMonth(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	// No payment is due in 2023-06.
	entry, err := l.AccrueInterest(contract.ContractNumber, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if entry != nil {
		t.Errorf("Expected no accrual entry, got %+v", entry)
	}

	// Once January's payment is made, re-accruing January is a no-op too.
	first := store.schedules[contract.ContractNumber][0]
	if _, err := l.RecordPayment(contract.ContractNumber, first.TotalPayment, first.DueDate); err != nil {
		t.Fatalf("Failed to record payment: %v", err)
	}
	entry, err = l.AccrueInterest(contract.ContractNumber, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if entry != nil {
		t.Errorf("Expected no accrual for a paid month, got %+v", entry)
	}
}

func TestSchedule_DerivedOverdue(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	contract := testContract()
	if _, err := l.CreateContractLedger(contract); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	asOf := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	entries, err := l.Schedule(contract.ContractNumber, asOf)
	if err != nil {
		t.Fatalf("Failed to get schedule: %v", err)
	}

	if entries[0].Status != models.StatusOverdue {
		t.Errorf("Expected payment #1 (due 2024-01-01) overdue as of %s, got %s", asOf, entries[0].Status)
	}
	if entries[1].Status != models.StatusOverdue {
		t.Errorf("Expected payment #2 (due 2024-02-01) overdue, got %s", entries[1].Status)
	}
	if entries[2].Status != models.StatusPending {
		t.Errorf("Expected payment #3 still pending, got %s", entries[2].Status)
	}

	// Derivation must not persist.
	if store.schedules[contract.ContractNumber][0].Status != models.StatusPending {
		t.Error("Stored status should remain pending")
	}
}

func TestAgingReport(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	store.schedules["C-1"] = []models.PaymentScheduleEntry{
		{
			ContractID:    "C-1",
			PaymentNumber: 1,
			DueDate:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), // 45 days past due
			TotalPayment:  decimal.NewFromFloat(888.49),
			Status:        models.StatusPending,
		},
		{
			ContractID:    "C-1",
			PaymentNumber: 2,
			DueDate:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), // 5 days past due
			TotalPayment:  decimal.NewFromFloat(888.49),
			Status:        models.StatusPending,
		},
		{
			ContractID:    "C-1",
			PaymentNumber: 3,
			DueDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // far past due, but paid
			TotalPayment:  decimal.NewFromFloat(888.49),
			Status:        models.StatusPaid,
		},
	}

	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	report, err := l.AgingReport(asOf)
	if err != nil {
		t.Fatalf("Failed to build aging report: %v", err)
	}

	if len(report.Days60) != 1 || report.Days60[0].PaymentNumber != 1 {
		t.Errorf("Expected the 45-day entry in the 31-60 bucket, got %+v", report.Days60)
	}
	if len(report.Days30) != 1 || report.Days30[0].PaymentNumber != 2 {
		t.Errorf("Expected the 5-day entry in the 1-30 bucket, got %+v", report.Days30)
	}
	if len(report.Current) != 0 || len(report.Days90) != 0 || len(report.Days90Plus) != 0 {
		t.Errorf("Unexpected entries in other buckets: %+v", report)
	}
}

func TestRunMonthlyAccruals(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, testLogger())

	if _, err := l.CreateContractLedger(testContract()); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}
	other := testContract()
	other.ContractNumber = "FFR-FIN-000201"
	other.FirstPaymentDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := l.CreateContractLedger(other); err != nil {
		t.Fatalf("Failed to create contract ledger: %v", err)
	}

	if err := l.RunMonthlyAccruals(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Accrual batch failed: %v", err)
	}

	accruals := 0
	for _, e := range store.entries {
		if e.Type == models.EntryTypeInterestAccrual {
			accruals++
		}
	}
	// Only the first contract has a payment due in January.
	if accruals != 1 {
		t.Errorf("Expected 1 accrual entry, got %d", accruals)
	}
}

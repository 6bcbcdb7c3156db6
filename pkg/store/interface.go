package store

import (
	"time"

	"github.com/ffroofing/contractledger/pkg/models"
)

// Storage defines the persistence operations for journal entries and
// payment schedules. The ledger is append-only: journal entries are never
// updated or deleted, and schedule entries only change status.
type Storage interface {
	// SaveJournalEntry appends an entry. Saving an entry whose id already
	// exists is a no-op, so retried writes are safe.
	SaveJournalEntry(entry *models.JournalEntry) error
	JournalEntries() ([]*models.JournalEntry, error)
	JournalEntriesByContract(contractID string) ([]*models.JournalEntry, error)

	// SaveSchedule replaces the full schedule for a contract.
	SaveSchedule(contractID string, entries []models.PaymentScheduleEntry) error
	Schedule(contractID string) ([]models.PaymentScheduleEntry, error)
	MarkPaymentPaid(contractID string, paymentNumber int) error

	// OverduePayments returns schedule entries across all contracts that
	// are still unpaid with a due date strictly before asOf.
	OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error)
	ContractIDs() ([]string, error)

	Close() error
}

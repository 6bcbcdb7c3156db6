package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/patrickmn/go-cache"
)

const (
	journalIndexKey  = "journal:index"
	scheduleIndexKey = "schedule:index"
)

// MemoryStore is an in-memory Storage implementation backed by go-cache.
// It is the secondary tier behind FallbackStore: entries live for the
// process lifetime only and are never evicted.
type MemoryStore struct {
	c  *cache.Cache
	mu sync.Mutex // go-cache items are safe, but index updates need read-modify-write
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c: cache.New(cache.NoExpiration, 0),
	}
}

func journalKey(id string) string { return "journal:" + id }

func scheduleKey(cid string) string { return "schedule:" + cid }

func (m *MemoryStore) index(key string) []string {
	if v, ok := m.c.Get(key); ok {
		return v.([]string)
	}
	return nil
}

// SaveJournalEntry stores an entry, ignoring duplicates by id.
func (m *MemoryStore) SaveJournalEntry(entry *models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := journalKey(entry.ID.String())
	if _, ok := m.c.Get(key); ok {
		return nil
	}

	copied := *entry
	copied.Lines = append([]models.JournalLine(nil), entry.Lines...)
	m.c.Set(key, &copied, cache.NoExpiration)
	m.c.Set(journalIndexKey, append(m.index(journalIndexKey), entry.ID.String()), cache.NoExpiration)
	return nil
}

// JournalEntries returns all entries in insertion order.
func (m *MemoryStore) JournalEntries() ([]*models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*models.JournalEntry
	for _, id := range m.index(journalIndexKey) {
		if v, ok := m.c.Get(journalKey(id)); ok {
			entries = append(entries, v.(*models.JournalEntry))
		}
	}
	return entries, nil
}

// JournalEntriesByContract filters entries by contract id.
func (m *MemoryStore) JournalEntriesByContract(contractID string) ([]*models.JournalEntry, error) {
	all, err := m.JournalEntries()
	if err != nil {
		return nil, err
	}
	var entries []*models.JournalEntry
	for _, e := range all {
		if e.ContractID == contractID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// SaveSchedule replaces the schedule for a contract.
func (m *MemoryStore) SaveSchedule(contractID string, entries []models.PaymentScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheduleKey(contractID)
	if _, ok := m.c.Get(key); !ok {
		m.c.Set(scheduleIndexKey, append(m.index(scheduleIndexKey), contractID), cache.NoExpiration)
	}
	m.c.Set(key, append([]models.PaymentScheduleEntry(nil), entries...), cache.NoExpiration)
	return nil
}

// Schedule returns the schedule for a contract; missing contracts yield an
// empty schedule rather than an error, matching the SQLite store.
func (m *MemoryStore) Schedule(contractID string) ([]models.PaymentScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.c.Get(scheduleKey(contractID))
	if !ok {
		return nil, nil
	}
	return append([]models.PaymentScheduleEntry(nil), v.([]models.PaymentScheduleEntry)...), nil
}

// MarkPaymentPaid flips one schedule entry's status to paid.
func (m *MemoryStore) MarkPaymentPaid(contractID string, paymentNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.c.Get(scheduleKey(contractID))
	if !ok {
		return fmt.Errorf("schedule entry not found")
	}
	entries := append([]models.PaymentScheduleEntry(nil), v.([]models.PaymentScheduleEntry)...)
	for i := range entries {
		if entries[i].PaymentNumber == paymentNumber {
			entries[i].Status = models.StatusPaid
			m.c.Set(scheduleKey(contractID), entries, cache.NoExpiration)
			return nil
		}
	}
	return fmt.Errorf("schedule entry not found")
}

// OverduePayments returns unpaid entries due strictly before asOf.
func (m *MemoryStore) OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	m.mu.Lock()
	ids := m.index(scheduleIndexKey)
	m.mu.Unlock()

	var overdue []models.PaymentScheduleEntry
	for _, cid := range ids {
		entries, err := m.Schedule(cid)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Status != models.StatusPaid && e.DueDate.Before(asOf) {
				overdue = append(overdue, e)
			}
		}
	}
	return overdue, nil
}

// ContractIDs returns every contract id that has a stored schedule.
func (m *MemoryStore) ContractIDs() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.index(scheduleIndexKey)...), nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

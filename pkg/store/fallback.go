package store

import (
	"time"

	"github.com/ffroofing/contractledger/pkg/models"
	"github.com/sirupsen/logrus"
)

// FallbackStore wraps a primary Storage with a secondary local store.
// Writes go to the primary and are mirrored into the secondary; when the
// primary fails, the operation is served by the secondary instead and the
// failure is logged. Callers never see which tier answered.
//
// This trades consistency for availability: if the primary recovers after
// a partial outage the two tiers can diverge, and the secondary copy is
// the stale one. That limitation is accepted.
type FallbackStore struct {
	primary  Storage
	fallback Storage
	log      *logrus.Logger
}

// NewFallbackStore wires a primary store to a local fallback.
func NewFallbackStore(primary, fallback Storage, log *logrus.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback, log: log}
}

func (f *FallbackStore) SaveJournalEntry(entry *models.JournalEntry) error {
	// Mirror regardless of the primary outcome so fallback reads stay warm.
	defer f.fallback.SaveJournalEntry(entry)

	if err := f.primary.SaveJournalEntry(entry); err != nil {
		f.log.WithError(err).Warn("primary store write failed, journal entry kept in local fallback")
	}
	return nil
}

func (f *FallbackStore) JournalEntries() ([]*models.JournalEntry, error) {
	entries, err := f.primary.JournalEntries()
	if err != nil {
		f.log.WithError(err).Warn("primary store read failed, serving journal entries from local fallback")
		return f.fallback.JournalEntries()
	}
	return entries, nil
}

func (f *FallbackStore) JournalEntriesByContract(contractID string) ([]*models.JournalEntry, error) {
	entries, err := f.primary.JournalEntriesByContract(contractID)
	if err != nil {
		f.log.WithError(err).WithField("contract_id", contractID).
			Warn("primary store read failed, serving contract journal entries from local fallback")
		return f.fallback.JournalEntriesByContract(contractID)
	}
	return entries, nil
}

func (f *FallbackStore) SaveSchedule(contractID string, entries []models.PaymentScheduleEntry) error {
	defer f.fallback.SaveSchedule(contractID, entries)

	if err := f.primary.SaveSchedule(contractID, entries); err != nil {
		f.log.WithError(err).WithField("contract_id", contractID).
			Warn("primary store write failed, schedule kept in local fallback")
	}
	return nil
}

func (f *FallbackStore) Schedule(contractID string) ([]models.PaymentScheduleEntry, error) {
	entries, err := f.primary.Schedule(contractID)
	if err != nil {
		f.log.WithError(err).WithField("contract_id", contractID).
			Warn("primary store read failed, serving schedule from local fallback")
		return f.fallback.Schedule(contractID)
	}
	return entries, nil
}

func (f *FallbackStore) MarkPaymentPaid(contractID string, paymentNumber int) error {
	defer f.fallback.MarkPaymentPaid(contractID, paymentNumber)

	if err := f.primary.MarkPaymentPaid(contractID, paymentNumber); err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"contract_id":    contractID,
			"payment_number": paymentNumber,
		}).Warn("primary store update failed, payment status kept in local fallback")
	}
	return nil
}

func (f *FallbackStore) OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	entries, err := f.primary.OverduePayments(asOf)
	if err != nil {
		f.log.WithError(err).Warn("primary store read failed, serving overdue payments from local fallback")
		return f.fallback.OverduePayments(asOf)
	}
	return entries, nil
}

func (f *FallbackStore) ContractIDs() ([]string, error) {
	ids, err := f.primary.ContractIDs()
	if err != nil {
		f.log.WithError(err).Warn("primary store read failed, serving contract ids from local fallback")
		return f.fallback.ContractIDs()
	}
	return ids, nil
}

func (f *FallbackStore) Close() error {
	f.fallback.Close()
	return f.primary.Close()
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ffroofing/contractledger/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		date DATETIME NOT NULL,
		description TEXT NOT NULL,
		reference TEXT NOT NULL,
		type TEXT NOT NULL,
		contract_id TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS journal_lines (
		entry_id TEXT NOT NULL,
		line_no INTEGER NOT NULL,
		account_code TEXT NOT NULL,
		account_name TEXT NOT NULL,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		PRIMARY KEY (entry_id, line_no),
		FOREIGN KEY(entry_id) REFERENCES journal_entries(id)
	);
	CREATE TABLE IF NOT EXISTS payment_schedules (
		contract_id TEXT NOT NULL,
		payment_number INTEGER NOT NULL,
		due_date DATETIME NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		total TEXT NOT NULL,
		remaining_balance TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (contract_id, payment_number)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveJournalEntry inserts an entry and its lines. Entries are keyed by id;
// re-saving an existing id is a no-op so the append is idempotent.
func (s *SQLiteStore) SaveJournalEntry(entry *models.JournalEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT OR IGNORE INTO journal_entries (id, date, description, reference, type, contract_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.Date, entry.Description, entry.Reference, string(entry.Type), entry.ContractID,
	)
	if err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Entry already present; leave it untouched.
		return tx.Commit()
	}

	for i, line := range entry.Lines {
		_, err := tx.Exec(
			`INSERT INTO journal_lines (entry_id, line_no, account_code, account_name, debit, credit)
			VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID.String(), i, line.AccountCode, line.AccountName, line.Debit, line.Credit,
		)
		if err != nil {
			return fmt.Errorf("failed to save journal line: %w", err)
		}
	}

	return tx.Commit()
}

// JournalEntries retrieves all journal entries in date order.
func (s *SQLiteStore) JournalEntries() ([]*models.JournalEntry, error) {
	rows, err := s.db.Query(`SELECT id, date, description, reference, type, contract_id FROM journal_entries ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

// JournalEntriesByContract retrieves the journal entries for one contract.
func (s *SQLiteStore) JournalEntriesByContract(contractID string) ([]*models.JournalEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, date, description, reference, type, contract_id FROM journal_entries WHERE contract_id = ? ORDER BY date ASC, id ASC`,
		contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries for contract %s: %w", contractID, err)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

func (s *SQLiteStore) scanEntries(rows *sql.Rows) ([]*models.JournalEntry, error) {
	var entries []*models.JournalEntry
	for rows.Next() {
		var entry models.JournalEntry
		var idStr, entryType string
		var date time.Time
		if err := rows.Scan(&idStr, &date, &entry.Description, &entry.Reference, &entryType, &entry.ContractID); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry row: %w", err)
		}
		entry.ID = uuid.MustParse(idStr)
		entry.Date = date
		entry.Type = models.EntryType(entryType)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	for _, entry := range entries {
		lines, err := s.linesFor(entry.ID)
		if err != nil {
			return nil, err
		}
		entry.Lines = lines
	}
	return entries, nil
}

func (s *SQLiteStore) linesFor(entryID uuid.UUID) ([]models.JournalLine, error) {
	rows, err := s.db.Query(
		`SELECT account_code, account_name, debit, credit FROM journal_lines WHERE entry_id = ? ORDER BY line_no ASC`,
		entryID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines for entry %s: %w", entryID, err)
	}
	defer rows.Close()

	var lines []models.JournalLine
	for rows.Next() {
		var line models.JournalLine
		if err := rows.Scan(&line.AccountCode, &line.AccountName, &line.Debit, &line.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan journal line row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during line rows iteration: %w", err)
	}
	return lines, nil
}

// SaveSchedule replaces the payment schedule for a contract.
func (s *SQLiteStore) SaveSchedule(contractID string, entries []models.PaymentScheduleEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payment_schedules WHERE contract_id = ?`, contractID); err != nil {
		return fmt.Errorf("failed to clear schedule for contract %s: %w", contractID, err)
	}

	for _, e := range entries {
		_, err := tx.Exec(
			`INSERT INTO payment_schedules (contract_id, payment_number, due_date, principal, interest, total, remaining_balance, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			contractID, e.PaymentNumber, e.DueDate, e.PrincipalAmount, e.InterestAmount, e.TotalPayment, e.RemainingBalance, string(e.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to save schedule entry %d: %w", e.PaymentNumber, err)
		}
	}

	return tx.Commit()
}

// Schedule retrieves the payment schedule for a contract ordered by
// payment number.
func (s *SQLiteStore) Schedule(contractID string) ([]models.PaymentScheduleEntry, error) {
	rows, err := s.db.Query(
		`SELECT contract_id, payment_number, due_date, principal, interest, total, remaining_balance, status
		FROM payment_schedules WHERE contract_id = ? ORDER BY payment_number ASC`,
		contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule for contract %s: %w", contractID, err)
	}
	defer rows.Close()

	return s.scanSchedule(rows)
}

// MarkPaymentPaid flips one schedule entry's status to paid.
func (s *SQLiteStore) MarkPaymentPaid(contractID string, paymentNumber int) error {
	result, err := s.db.Exec(
		`UPDATE payment_schedules SET status = ? WHERE contract_id = ? AND payment_number = ?`,
		string(models.StatusPaid), contractID, paymentNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("schedule entry not found")
	}
	return nil
}

// OverduePayments returns unpaid schedule entries due strictly before asOf,
// oldest first.
func (s *SQLiteStore) OverduePayments(asOf time.Time) ([]models.PaymentScheduleEntry, error) {
	rows, err := s.db.Query(
		`SELECT contract_id, payment_number, due_date, principal, interest, total, remaining_balance, status
		FROM payment_schedules WHERE status IN (?, ?) AND due_date < ? ORDER BY due_date ASC, contract_id ASC`,
		string(models.StatusPending), string(models.StatusOverdue), asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue payments: %w", err)
	}
	defer rows.Close()

	return s.scanSchedule(rows)
}

func (s *SQLiteStore) scanSchedule(rows *sql.Rows) ([]models.PaymentScheduleEntry, error) {
	var entries []models.PaymentScheduleEntry
	for rows.Next() {
		var e models.PaymentScheduleEntry
		var status string
		var dueDate time.Time
		if err := rows.Scan(&e.ContractID, &e.PaymentNumber, &dueDate, &e.PrincipalAmount, &e.InterestAmount, &e.TotalPayment, &e.RemainingBalance, &status); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		e.DueDate = dueDate
		e.Status = models.PaymentStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return entries, nil
}

// ContractIDs returns every contract id that has a stored schedule.
func (s *SQLiteStore) ContractIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT contract_id FROM payment_schedules ORDER BY contract_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return ids, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

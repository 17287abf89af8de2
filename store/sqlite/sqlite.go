/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the full overtime.Store surface using SQLite. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  overtime.Store:   Shifts, entries, batches, allocations
  overtime.TxStore: Atomic multi-table units of work

BALANCE ENFORCEMENT:
  The one statement allowed to spend balance is DebitEntry, and it is a
  conditional UPDATE: the WHERE clause requires remaining_minutes >= the
  requested amount, so the database itself rejects overdrafts. Zero rows
  affected means nothing was spent, and the caller gets a typed error.

KEY TABLES:
  work_shifts:                Scheduling records driving accrual
  extra_hour_entries:         Balance-bearing segments (soft-deleted)
  reconciliation_batches:     Approval units
  reconciliation_allocations: Per-entry debits inside a batch

INDEXES:
  - idx_entries_employee_date:   Range queries and summaries (hot path)
  - idx_entries_shift:           Recomputation lookups
  - idx_entries_expiry:          The expiry sweep
  - idx_allocations_batch/entry: Batch detail and entry history

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/overtime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := overtime.NewService(store, overtime.DefaultConfig())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - overtime/store.go: Interface definitions
  - overtime/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/overtime-engine/overtime"
)

// Store implements overtime.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper works
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Scheduling records (owned upstream, mirrored here)
	CREATE TABLE IF NOT EXISTS work_shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		business_unit_id TEXT,
		date_start TEXT NOT NULL,
		date_finish TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_employee_start
		ON work_shifts(employee_id, date_start);

	-- Balance-bearing extra-hour entries
	CREATE TABLE IF NOT EXISTS extra_hour_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		shift_id TEXT,
		segment_number INTEGER NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		total_minutes INTEGER NOT NULL,
		remaining_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		is_fully_reconciled INTEGER NOT NULL DEFAULT 0,
		business_unit_id TEXT,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		CHECK (remaining_minutes >= 0),
		CHECK (remaining_minutes <= total_minutes)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_employee_date
		ON extra_hour_entries(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_shift
		ON extra_hour_entries(shift_id) WHERE shift_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_entries_expiry
		ON extra_hour_entries(expiry_date)
		WHERE deleted_at IS NULL AND status IN ('available', 'partially_reconciled');

	-- Batch approval units
	CREATE TABLE IF NOT EXISTS reconciliation_batches (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		reconcile_date TEXT NOT NULL,
		date_start TEXT NOT NULL,
		date_finish TEXT NOT NULL,
		total_minutes INTEGER NOT NULL,
		total_hours INTEGER NOT NULL,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_batches_employee
		ON reconciliation_batches(employee_id, created_at);

	-- Per-entry debits inside a batch
	CREATE TABLE IF NOT EXISTS reconciliation_allocations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		reconciliation_date TEXT NOT NULL,
		minutes_reconciled INTEGER NOT NULL,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		notes TEXT,
		business_unit_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		CHECK (minutes_reconciled > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_batch
		ON reconciliation_allocations(batch_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_entry
		ON reconciliation_allocations(entry_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TIME ENCODING
// =============================================================================

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func decodeTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func encodeNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := decodeTime(s.String)
	return &t
}

// =============================================================================
// SHIFTS
// =============================================================================

func (s *Store) GetShift(ctx context.Context, id overtime.ShiftID) (overtime.WorkShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getShift(ctx, s.db, id)
}

func (s *Store) getShift(ctx context.Context, db dbtx, id overtime.ShiftID) (overtime.WorkShift, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, employee_id, business_unit_id, date_start, date_finish, status
		FROM work_shifts WHERE id = ?`, id)

	var shift overtime.WorkShift
	var unitID sql.NullString
	var start, finish string
	err := row.Scan(&shift.ID, &shift.EmployeeID, &unitID, &start, &finish, &shift.Status)
	if err == sql.ErrNoRows {
		return overtime.WorkShift{}, overtime.ErrShiftNotFound
	}
	if err != nil {
		return overtime.WorkShift{}, fmt.Errorf("failed to scan shift: %w", err)
	}
	shift.BusinessUnitID = overtime.BusinessUnitID(unitID.String)
	shift.DateStart = decodeTime(start)
	shift.DateFinish = decodeTime(finish)
	return shift, nil
}

func (s *Store) SaveShift(ctx context.Context, shift overtime.WorkShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveShift(ctx, s.db, shift)
}

func (s *Store) saveShift(ctx context.Context, db dbtx, shift overtime.WorkShift) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_shifts (id, employee_id, business_unit_id, date_start, date_finish, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			business_unit_id = excluded.business_unit_id,
			date_start = excluded.date_start,
			date_finish = excluded.date_finish,
			status = excluded.status`,
		shift.ID, shift.EmployeeID, string(shift.BusinessUnitID),
		encodeTime(shift.DateStart), encodeTime(shift.DateFinish), shift.Status)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

func (s *Store) CompletedShifts(ctx context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedShifts(ctx, s.db, employeeID, from, to)
}

func (s *Store) completedShifts(ctx context.Context, db dbtx, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, business_unit_id, date_start, date_finish, status
		FROM work_shifts
		WHERE employee_id = ? AND status = 'completed' AND date_start >= ? AND date_start <= ?
		ORDER BY date_start`,
		employeeID, encodeTime(from), encodeTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []overtime.WorkShift
	for rows.Next() {
		var shift overtime.WorkShift
		var unitID sql.NullString
		var start, finish string
		if err := rows.Scan(&shift.ID, &shift.EmployeeID, &unitID, &start, &finish, &shift.Status); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shift.BusinessUnitID = overtime.BusinessUnitID(unitID.String)
		shift.DateStart = decodeTime(start)
		shift.DateFinish = decodeTime(finish)
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, employee_id, shift_id, segment_number, date, start_time, end_time,
	total_minutes, remaining_minutes, status, expiry_date, is_fully_reconciled,
	business_unit_id, description, created_at, updated_at, deleted_at`

func (s *Store) SaveEntries(ctx context.Context, entries []overtime.ExtraHourEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEntries(ctx, s.db, entries)
}

func (s *Store) saveEntries(ctx context.Context, db dbtx, entries []overtime.ExtraHourEntry) error {
	for _, e := range entries {
		_, err := db.ExecContext(ctx, `
			INSERT INTO extra_hour_entries (`+entryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.EmployeeID, string(e.ShiftID), e.SegmentNumber,
			encodeTime(e.Date), encodeTime(e.StartTime), encodeTime(e.EndTime),
			e.TotalMinutes, e.RemainingMinutes, e.Status, encodeTime(e.ExpiryDate),
			boolToInt(e.IsFullyReconciled), string(e.BusinessUnitID), e.Description,
			encodeTime(e.CreatedAt), encodeTime(e.UpdatedAt), encodeNullTime(e.DeletedAt))
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEntry(ctx, s.db, id)
}

func (s *Store) getEntry(ctx context.Context, db dbtx, id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	entries, err := s.queryEntries(ctx, db, `
		SELECT `+entryColumns+` FROM extra_hour_entries
		WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return overtime.ExtraHourEntry{}, err
	}
	if len(entries) == 0 {
		return overtime.ExtraHourEntry{}, overtime.ErrEntryNotFound
	}
	return entries[0], nil
}

func (s *Store) EntriesByShift(ctx context.Context, shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesByShift(ctx, s.db, shiftID)
}

func (s *Store) entriesByShift(ctx context.Context, db dbtx, shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	return s.queryEntries(ctx, db, `
		SELECT `+entryColumns+` FROM extra_hour_entries
		WHERE shift_id = ? AND deleted_at IS NULL
		ORDER BY segment_number`, string(shiftID))
}

func (s *Store) AvailableEntries(ctx context.Context, employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.availableEntries(ctx, s.db, employeeID, today)
}

func (s *Store) availableEntries(ctx context.Context, db dbtx, employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	return s.queryEntries(ctx, db, `
		SELECT `+entryColumns+` FROM extra_hour_entries
		WHERE employee_id = ? AND deleted_at IS NULL
			AND status IN ('available', 'partially_reconciled')
			AND remaining_minutes > 0
			AND expiry_date >= ?
		ORDER BY date, shift_id, segment_number`,
		employeeID, encodeTime(overtime.DayStart(today)))
}

func (s *Store) EntriesInRange(ctx context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesInRange(ctx, s.db, employeeID, from, to)
}

func (s *Store) entriesInRange(ctx context.Context, db dbtx, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	return s.queryEntries(ctx, db, `
		SELECT `+entryColumns+` FROM extra_hour_entries
		WHERE employee_id = ? AND deleted_at IS NULL AND date >= ? AND date <= ?
		ORDER BY date, shift_id, segment_number`,
		employeeID, encodeTime(from), encodeTime(to))
}

// DebitEntry spends balance with a conditional UPDATE: the WHERE clause is
// the overdraft guard. Zero rows affected means nothing moved.
func (s *Store) DebitEntry(ctx context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitEntry(ctx, s.db, id, minutes, now)
}

func (s *Store) debitEntry(ctx context.Context, db dbtx, id overtime.EntryID, minutes int, now time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE extra_hour_entries SET
			remaining_minutes = remaining_minutes - ?,
			status = CASE WHEN remaining_minutes - ? <= 0 THEN 'reconciled' ELSE 'partially_reconciled' END,
			is_fully_reconciled = CASE WHEN remaining_minutes - ? <= 0 THEN 1 ELSE 0 END,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
			AND status IN ('available', 'partially_reconciled')
			AND remaining_minutes >= ?`,
		minutes, minutes, minutes, encodeTime(now), id, minutes)
	if err != nil {
		return fmt.Errorf("failed to debit entry %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to debit entry %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing moved. Work out which guard fired for a precise error.
	entry, err := s.getEntry(ctx, db, id)
	if err != nil {
		return err
	}
	if entry.Status == overtime.EntryExpired || entry.IsFullyReconciled {
		return &overtime.OverAllocationError{EntryID: id, Remaining: 0, Requested: minutes}
	}
	return &overtime.OverAllocationError{EntryID: id, Remaining: entry.RemainingMinutes, Requested: minutes}
}

func (s *Store) CreditEntry(ctx context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditEntry(ctx, s.db, id, minutes, now)
}

func (s *Store) creditEntry(ctx context.Context, db dbtx, id overtime.EntryID, minutes int, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE extra_hour_entries SET
			remaining_minutes = MIN(total_minutes, remaining_minutes + ?),
			status = CASE WHEN remaining_minutes + ? >= total_minutes THEN 'available' ELSE 'partially_reconciled' END,
			is_fully_reconciled = 0,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND status != 'expired'`,
		minutes, minutes, encodeTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to credit entry %s: %w", id, err)
	}
	// Expired entries keep their frozen balance; a no-op credit is fine.
	// A missing entry is not.
	if _, err := s.getEntry(ctx, db, id); err != nil {
		return err
	}
	return nil
}

func (s *Store) DeleteEntriesByShift(ctx context.Context, shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEntriesByShift(ctx, s.db, shiftID, now)
}

func (s *Store) deleteEntriesByShift(ctx context.Context, db dbtx, shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	collect := func(query string) ([]overtime.EntryID, error) {
		rows, err := db.QueryContext(ctx, query, string(shiftID))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var ids []overtime.EntryID
		for rows.Next() {
			var id overtime.EntryID
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}

	// Entries with any spent balance are untouchable; everything else goes.
	skipped, err := collect(`
		SELECT id FROM extra_hour_entries
		WHERE shift_id = ? AND deleted_at IS NULL AND remaining_minutes < total_minutes
		ORDER BY segment_number`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list spent entries: %w", err)
	}
	deleted, err := collect(`
		SELECT id FROM extra_hour_entries
		WHERE shift_id = ? AND deleted_at IS NULL AND remaining_minutes = total_minutes
		ORDER BY segment_number`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list deletable entries: %w", err)
	}

	if len(deleted) > 0 {
		_, err = db.ExecContext(ctx, `
			UPDATE extra_hour_entries SET deleted_at = ?, updated_at = ?
			WHERE shift_id = ? AND deleted_at IS NULL AND remaining_minutes = total_minutes`,
			encodeTime(now), encodeTime(now), string(shiftID))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to delete entries for shift %s: %w", shiftID, err)
		}
	}
	return deleted, skipped, nil
}

// ExpireEntries is a single bulk statement over the partial expiry index.
func (s *Store) ExpireEntries(ctx context.Context, cutoff, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireEntries(ctx, s.db, cutoff, now)
}

func (s *Store) expireEntries(ctx context.Context, db dbtx, cutoff, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE extra_hour_entries SET
			status = 'expired',
			is_fully_reconciled = 1,
			updated_at = ?
		WHERE deleted_at IS NULL
			AND status IN ('available', 'partially_reconciled')
			AND expiry_date < ?`,
		encodeTime(now), encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to expire entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]overtime.ExtraHourEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []overtime.ExtraHourEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (overtime.ExtraHourEntry, error) {
	var (
		e          overtime.ExtraHourEntry
		shiftID    sql.NullString
		date       string
		start, end string
		expiry     string
		fullyRec   int
		unitID     sql.NullString
		desc       sql.NullString
		createdAt  string
		updatedAt  string
		deletedAt  sql.NullString
	)

	err := rows.Scan(
		&e.ID, &e.EmployeeID, &shiftID, &e.SegmentNumber, &date, &start, &end,
		&e.TotalMinutes, &e.RemainingMinutes, &e.Status, &expiry, &fullyRec,
		&unitID, &desc, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.ShiftID = overtime.ShiftID(shiftID.String)
	e.Date = decodeTime(date)
	e.StartTime = decodeTime(start)
	e.EndTime = decodeTime(end)
	e.ExpiryDate = decodeTime(expiry)
	e.IsFullyReconciled = fullyRec == 1
	e.BusinessUnitID = overtime.BusinessUnitID(unitID.String)
	e.Description = desc.String
	e.CreatedAt = decodeTime(createdAt)
	e.UpdatedAt = decodeTime(updatedAt)
	e.DeletedAt = decodeNullTime(deletedAt)
	return e, nil
}

// =============================================================================
// BATCHES
// =============================================================================

const batchColumns = `id, employee_id, reconcile_date, date_start, date_finish,
	total_minutes, total_hours, status, approved_by, approved_at, notes,
	created_at, updated_at, deleted_at`

func (s *Store) SaveBatch(ctx context.Context, batch overtime.ReconciliationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveBatch(ctx, s.db, batch)
}

func (s *Store) saveBatch(ctx context.Context, db dbtx, batch overtime.ReconciliationBatch) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reconciliation_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_minutes = excluded.total_minutes,
			total_hours = excluded.total_hours,
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		batch.ID, batch.EmployeeID, encodeTime(batch.ReconcileDate),
		encodeTime(batch.DateStart), encodeTime(batch.DateFinish),
		batch.TotalMinutes, batch.TotalHours, batch.Status,
		batch.ApprovedBy, encodeNullTime(batch.ApprovedAt), batch.Notes,
		encodeTime(batch.CreatedAt), encodeTime(batch.UpdatedAt), encodeNullTime(batch.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", batch.ID, err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBatch(ctx, s.db, id)
}

func (s *Store) getBatch(ctx context.Context, db dbtx, id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	batches, err := s.queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM reconciliation_batches
		WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return overtime.ReconciliationBatch{}, err
	}
	if len(batches) == 0 {
		return overtime.ReconciliationBatch{}, overtime.ErrBatchNotFound
	}
	return batches[0], nil
}

func (s *Store) BatchesByEmployee(ctx context.Context, employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchesByEmployee(ctx, s.db, employeeID)
}

func (s *Store) batchesByEmployee(ctx context.Context, db dbtx, employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	return s.queryBatches(ctx, db, `
		SELECT `+batchColumns+` FROM reconciliation_batches
		WHERE employee_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`, employeeID)
}

func (s *Store) queryBatches(ctx context.Context, db dbtx, query string, args ...any) ([]overtime.ReconciliationBatch, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []overtime.ReconciliationBatch
	for rows.Next() {
		var (
			b          overtime.ReconciliationBatch
			reconcile  string
			start, fin string
			approvedBy sql.NullString
			approvedAt sql.NullString
			notes      sql.NullString
			createdAt  string
			updatedAt  string
			deletedAt  sql.NullString
		)
		err := rows.Scan(&b.ID, &b.EmployeeID, &reconcile, &start, &fin,
			&b.TotalMinutes, &b.TotalHours, &b.Status, &approvedBy, &approvedAt,
			&notes, &createdAt, &updatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.ReconcileDate = decodeTime(reconcile)
		b.DateStart = decodeTime(start)
		b.DateFinish = decodeTime(fin)
		b.ApprovedBy = approvedBy.String
		b.ApprovedAt = decodeNullTime(approvedAt)
		b.Notes = notes.String
		b.CreatedAt = decodeTime(createdAt)
		b.UpdatedAt = decodeTime(updatedAt)
		b.DeletedAt = decodeNullTime(deletedAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

const allocColumns = `id, employee_id, entry_id, batch_id, reconciliation_date,
	minutes_reconciled, status, approved_by, approved_at, notes, business_unit_id,
	created_at, updated_at, deleted_at`

func (s *Store) SaveAllocation(ctx context.Context, alloc overtime.ReconciliationAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAllocation(ctx, s.db, alloc)
}

func (s *Store) saveAllocation(ctx context.Context, db dbtx, alloc overtime.ReconciliationAllocation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reconciliation_allocations (`+allocColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		alloc.ID, alloc.EmployeeID, alloc.EntryID, alloc.BatchID,
		encodeTime(alloc.ReconciliationDate), alloc.MinutesReconciled, alloc.Status,
		alloc.ApprovedBy, encodeNullTime(alloc.ApprovedAt), alloc.Notes,
		string(alloc.BusinessUnitID),
		encodeTime(alloc.CreatedAt), encodeTime(alloc.UpdatedAt), encodeNullTime(alloc.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to save allocation %s: %w", alloc.ID, err)
	}
	return nil
}

func (s *Store) GetAllocation(ctx context.Context, id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAllocation(ctx, s.db, id)
}

func (s *Store) getAllocation(ctx context.Context, db dbtx, id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	allocs, err := s.queryAllocations(ctx, db, `
		SELECT `+allocColumns+` FROM reconciliation_allocations
		WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return overtime.ReconciliationAllocation{}, err
	}
	if len(allocs) == 0 {
		return overtime.ReconciliationAllocation{}, overtime.ErrAllocationNotFound
	}
	return allocs[0], nil
}

func (s *Store) AllocationsByBatch(ctx context.Context, batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocationsByBatch(ctx, s.db, batchID)
}

func (s *Store) allocationsByBatch(ctx context.Context, db dbtx, batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	return s.queryAllocations(ctx, db, `
		SELECT `+allocColumns+` FROM reconciliation_allocations
		WHERE batch_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`, batchID)
}

func (s *Store) AllocationsByEntry(ctx context.Context, entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocationsByEntry(ctx, s.db, entryID)
}

func (s *Store) allocationsByEntry(ctx context.Context, db dbtx, entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	return s.queryAllocations(ctx, db, `
		SELECT `+allocColumns+` FROM reconciliation_allocations
		WHERE entry_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`, entryID)
}

func (s *Store) SoftDeleteAllocation(ctx context.Context, id overtime.AllocationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softDeleteAllocation(ctx, s.db, id, now)
}

func (s *Store) softDeleteAllocation(ctx context.Context, db dbtx, id overtime.AllocationID, now time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reconciliation_allocations SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		encodeTime(now), encodeTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to delete allocation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return overtime.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) queryAllocations(ctx context.Context, db dbtx, query string, args ...any) ([]overtime.ReconciliationAllocation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []overtime.ReconciliationAllocation
	for rows.Next() {
		var (
			a          overtime.ReconciliationAllocation
			reconcile  string
			approvedBy sql.NullString
			approvedAt sql.NullString
			notes      sql.NullString
			unitID     sql.NullString
			createdAt  string
			updatedAt  string
			deletedAt  sql.NullString
		)
		err := rows.Scan(&a.ID, &a.EmployeeID, &a.EntryID, &a.BatchID, &reconcile,
			&a.MinutesReconciled, &a.Status, &approvedBy, &approvedAt, &notes,
			&unitID, &createdAt, &updatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.ReconciliationDate = decodeTime(reconcile)
		a.ApprovedBy = approvedBy.String
		a.ApprovedAt = decodeNullTime(approvedAt)
		a.Notes = notes.String
		a.BusinessUnitID = overtime.BusinessUnitID(unitID.String)
		a.CreatedAt = decodeTime(createdAt)
		a.UpdatedAt = decodeTime(updatedAt)
		a.DeletedAt = decodeNullTime(deletedAt)
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (overtime.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store overtime.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through the open transaction.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetShift(ctx context.Context, id overtime.ShiftID) (overtime.WorkShift, error) {
	return ts.parent.getShift(ctx, ts.tx, id)
}

func (ts *txStore) SaveShift(ctx context.Context, shift overtime.WorkShift) error {
	return ts.parent.saveShift(ctx, ts.tx, shift)
}

func (ts *txStore) CompletedShifts(ctx context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	return ts.parent.completedShifts(ctx, ts.tx, employeeID, from, to)
}

func (ts *txStore) SaveEntries(ctx context.Context, entries []overtime.ExtraHourEntry) error {
	return ts.parent.saveEntries(ctx, ts.tx, entries)
}

func (ts *txStore) GetEntry(ctx context.Context, id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	return ts.parent.getEntry(ctx, ts.tx, id)
}

func (ts *txStore) EntriesByShift(ctx context.Context, shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	return ts.parent.entriesByShift(ctx, ts.tx, shiftID)
}

func (ts *txStore) AvailableEntries(ctx context.Context, employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	return ts.parent.availableEntries(ctx, ts.tx, employeeID, today)
}

func (ts *txStore) EntriesInRange(ctx context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	return ts.parent.entriesInRange(ctx, ts.tx, employeeID, from, to)
}

func (ts *txStore) DebitEntry(ctx context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	return ts.parent.debitEntry(ctx, ts.tx, id, minutes, now)
}

func (ts *txStore) CreditEntry(ctx context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	return ts.parent.creditEntry(ctx, ts.tx, id, minutes, now)
}

func (ts *txStore) DeleteEntriesByShift(ctx context.Context, shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	return ts.parent.deleteEntriesByShift(ctx, ts.tx, shiftID, now)
}

func (ts *txStore) ExpireEntries(ctx context.Context, cutoff, now time.Time) (int64, error) {
	return ts.parent.expireEntries(ctx, ts.tx, cutoff, now)
}

func (ts *txStore) SaveBatch(ctx context.Context, batch overtime.ReconciliationBatch) error {
	return ts.parent.saveBatch(ctx, ts.tx, batch)
}

func (ts *txStore) GetBatch(ctx context.Context, id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	return ts.parent.getBatch(ctx, ts.tx, id)
}

func (ts *txStore) BatchesByEmployee(ctx context.Context, employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	return ts.parent.batchesByEmployee(ctx, ts.tx, employeeID)
}

func (ts *txStore) SaveAllocation(ctx context.Context, alloc overtime.ReconciliationAllocation) error {
	return ts.parent.saveAllocation(ctx, ts.tx, alloc)
}

func (ts *txStore) GetAllocation(ctx context.Context, id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	return ts.parent.getAllocation(ctx, ts.tx, id)
}

func (ts *txStore) AllocationsByBatch(ctx context.Context, batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	return ts.parent.allocationsByBatch(ctx, ts.tx, batchID)
}

func (ts *txStore) AllocationsByEntry(ctx context.Context, entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	return ts.parent.allocationsByEntry(ctx, ts.tx, entryID)
}

func (ts *txStore) SoftDeleteAllocation(ctx context.Context, id overtime.AllocationID, now time.Time) error {
	return ts.parent.softDeleteAllocation(ctx, ts.tx, id, now)
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Reset clears all data. Test helper.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM reconciliation_allocations;
		DELETE FROM reconciliation_batches;
		DELETE FROM extra_hour_entries;
		DELETE FROM work_shifts;`)
	return err
}

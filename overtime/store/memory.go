// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	shifts      map[overtime.ShiftID]overtime.WorkShift
	entries     map[overtime.EntryID]overtime.ExtraHourEntry
	batches     map[overtime.BatchID]overtime.ReconciliationBatch
	allocations map[overtime.AllocationID]overtime.ReconciliationAllocation
	allocOrder  []overtime.AllocationID // insertion order for stable listings
}

func NewMemory() *Memory {
	return &Memory{
		shifts:      make(map[overtime.ShiftID]overtime.WorkShift),
		entries:     make(map[overtime.EntryID]overtime.ExtraHourEntry),
		batches:     make(map[overtime.BatchID]overtime.ReconciliationBatch),
		allocations: make(map[overtime.AllocationID]overtime.ReconciliationAllocation),
	}
}

// Reset drops all stored data. Used by demos and tests.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts = make(map[overtime.ShiftID]overtime.WorkShift)
	m.entries = make(map[overtime.EntryID]overtime.ExtraHourEntry)
	m.batches = make(map[overtime.BatchID]overtime.ReconciliationBatch)
	m.allocations = make(map[overtime.AllocationID]overtime.ReconciliationAllocation)
	m.allocOrder = nil
	return nil
}

// -----------------------------------------------------------------------------
// Shifts
// -----------------------------------------------------------------------------

func (m *Memory) GetShift(_ context.Context, id overtime.ShiftID) (overtime.WorkShift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getShiftLocked(id)
}

func (m *Memory) getShiftLocked(id overtime.ShiftID) (overtime.WorkShift, error) {
	shift, ok := m.shifts[id]
	if !ok {
		return overtime.WorkShift{}, overtime.ErrShiftNotFound
	}
	return shift, nil
}

func (m *Memory) SaveShift(_ context.Context, shift overtime.WorkShift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[shift.ID] = shift
	return nil
}

func (m *Memory) CompletedShifts(_ context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completedShiftsLocked(employeeID, from, to)
}

func (m *Memory) completedShiftsLocked(employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	var result []overtime.WorkShift
	for _, shift := range m.shifts {
		if shift.EmployeeID != employeeID || !shift.IsCompleted() {
			continue
		}
		if shift.DateStart.Before(from) || shift.DateStart.After(to) {
			continue
		}
		result = append(result, shift)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DateStart.Before(result[j].DateStart)
	})
	return result, nil
}

// -----------------------------------------------------------------------------
// Entries
// -----------------------------------------------------------------------------

func (m *Memory) SaveEntries(_ context.Context, entries []overtime.ExtraHourEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEntriesLocked(entries)
}

func (m *Memory) saveEntriesLocked(entries []overtime.ExtraHourEntry) error {
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntryLocked(id)
}

func (m *Memory) getEntryLocked(id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	entry, ok := m.entries[id]
	if !ok || entry.DeletedAt != nil {
		return overtime.ExtraHourEntry{}, overtime.ErrEntryNotFound
	}
	return entry, nil
}

func (m *Memory) EntriesByShift(_ context.Context, shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesByShiftLocked(shiftID)
}

func (m *Memory) entriesByShiftLocked(shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	var result []overtime.ExtraHourEntry
	for _, e := range m.entries {
		if e.ShiftID == shiftID && e.DeletedAt == nil {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *Memory) AvailableEntries(_ context.Context, employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.availableEntriesLocked(employeeID, today)
}

func (m *Memory) availableEntriesLocked(employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	var result []overtime.ExtraHourEntry
	for _, e := range m.entries {
		if e.EmployeeID != employeeID || e.DeletedAt != nil {
			continue
		}
		if e.Status == overtime.EntryExpired || e.IsFullyReconciled || e.RemainingMinutes <= 0 {
			continue
		}
		if e.IsExpiredAt(today) {
			continue
		}
		result = append(result, e)
	}
	sortEntries(result)
	return result, nil
}

func (m *Memory) EntriesInRange(_ context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesInRangeLocked(employeeID, from, to)
}

func (m *Memory) entriesInRangeLocked(employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	var result []overtime.ExtraHourEntry
	for _, e := range m.entries {
		if e.EmployeeID != employeeID || e.DeletedAt != nil {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		result = append(result, e)
	}
	sortEntries(result)
	return result, nil
}

func (m *Memory) DebitEntry(_ context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debitEntryLocked(id, minutes, now)
}

func (m *Memory) debitEntryLocked(id overtime.EntryID, minutes int, now time.Time) error {
	entry, err := m.getEntryLocked(id)
	if err != nil {
		return err
	}
	if err := entry.ApplyDebit(minutes, now); err != nil {
		return err
	}
	m.entries[id] = entry
	return nil
}

func (m *Memory) CreditEntry(_ context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditEntryLocked(id, minutes, now)
}

func (m *Memory) creditEntryLocked(id overtime.EntryID, minutes int, now time.Time) error {
	entry, err := m.getEntryLocked(id)
	if err != nil {
		return err
	}
	entry.ApplyCredit(minutes, now)
	m.entries[id] = entry
	return nil
}

func (m *Memory) DeleteEntriesByShift(_ context.Context, shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEntriesByShiftLocked(shiftID, now)
}

func (m *Memory) deleteEntriesByShiftLocked(shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	var deleted, skipped []overtime.EntryID
	for id, e := range m.entries {
		if e.ShiftID != shiftID || e.DeletedAt != nil {
			continue
		}
		if e.ReconciledMinutes() > 0 {
			skipped = append(skipped, id)
			continue
		}
		e.DeletedAt = &now
		e.UpdatedAt = now
		m.entries[id] = e
		deleted = append(deleted, id)
	}
	return deleted, skipped, nil
}

func (m *Memory) ExpireEntries(_ context.Context, cutoff, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireEntriesLocked(cutoff, now)
}

func (m *Memory) expireEntriesLocked(cutoff, now time.Time) (int64, error) {
	var swept int64
	for id, e := range m.entries {
		if e.DeletedAt != nil {
			continue
		}
		if e.Status != overtime.EntryAvailable && e.Status != overtime.EntryPartiallyReconciled {
			continue
		}
		if !e.ExpiryDate.Before(cutoff) {
			continue
		}
		e.Expire(now)
		m.entries[id] = e
		swept++
	}
	return swept, nil
}

func sortEntries(entries []overtime.ExtraHourEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		if entries[i].ShiftID != entries[j].ShiftID {
			return entries[i].ShiftID < entries[j].ShiftID
		}
		return entries[i].SegmentNumber < entries[j].SegmentNumber
	})
}

// -----------------------------------------------------------------------------
// Batches and allocations
// -----------------------------------------------------------------------------

func (m *Memory) SaveBatch(_ context.Context, batch overtime.ReconciliationBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBatchLocked(batch)
}

func (m *Memory) saveBatchLocked(batch overtime.ReconciliationBatch) error {
	m.batches[batch.ID] = batch
	return nil
}

func (m *Memory) GetBatch(_ context.Context, id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBatchLocked(id)
}

func (m *Memory) getBatchLocked(id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	batch, ok := m.batches[id]
	if !ok || batch.DeletedAt != nil {
		return overtime.ReconciliationBatch{}, overtime.ErrBatchNotFound
	}
	return batch, nil
}

func (m *Memory) BatchesByEmployee(_ context.Context, employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchesByEmployeeLocked(employeeID)
}

func (m *Memory) batchesByEmployeeLocked(employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	var result []overtime.ReconciliationBatch
	for _, b := range m.batches {
		if b.EmployeeID == employeeID && b.DeletedAt == nil {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *Memory) SaveAllocation(_ context.Context, alloc overtime.ReconciliationAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAllocationLocked(alloc)
}

func (m *Memory) saveAllocationLocked(alloc overtime.ReconciliationAllocation) error {
	if _, ok := m.allocations[alloc.ID]; !ok {
		m.allocOrder = append(m.allocOrder, alloc.ID)
	}
	m.allocations[alloc.ID] = alloc
	return nil
}

func (m *Memory) GetAllocation(_ context.Context, id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAllocationLocked(id)
}

func (m *Memory) getAllocationLocked(id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	alloc, ok := m.allocations[id]
	if !ok || alloc.DeletedAt != nil {
		return overtime.ReconciliationAllocation{}, overtime.ErrAllocationNotFound
	}
	return alloc, nil
}

func (m *Memory) AllocationsByBatch(_ context.Context, batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocationsByBatchLocked(batchID)
}

func (m *Memory) allocationsByBatchLocked(batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	var result []overtime.ReconciliationAllocation
	for _, id := range m.allocOrder {
		alloc, ok := m.allocations[id]
		if ok && alloc.BatchID == batchID && alloc.DeletedAt == nil {
			result = append(result, alloc)
		}
	}
	return result, nil
}

func (m *Memory) AllocationsByEntry(_ context.Context, entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocationsByEntryLocked(entryID)
}

func (m *Memory) allocationsByEntryLocked(entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	var result []overtime.ReconciliationAllocation
	for _, id := range m.allocOrder {
		alloc, ok := m.allocations[id]
		if ok && alloc.EntryID == entryID && alloc.DeletedAt == nil {
			result = append(result, alloc)
		}
	}
	return result, nil
}

func (m *Memory) SoftDeleteAllocation(_ context.Context, id overtime.AllocationID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.softDeleteAllocationLocked(id, now)
}

func (m *Memory) softDeleteAllocationLocked(id overtime.AllocationID, now time.Time) error {
	alloc, err := m.getAllocationLocked(id)
	if err != nil {
		return err
	}
	alloc.DeletedAt = &now
	alloc.UpdatedAt = now
	m.allocations[id] = alloc
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(overtime.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	shifts      map[overtime.ShiftID]overtime.WorkShift
	entries     map[overtime.EntryID]overtime.ExtraHourEntry
	batches     map[overtime.BatchID]overtime.ReconciliationBatch
	allocations map[overtime.AllocationID]overtime.ReconciliationAllocation
	allocOrder  []overtime.AllocationID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		shifts:      make(map[overtime.ShiftID]overtime.WorkShift, len(tm.shifts)),
		entries:     make(map[overtime.EntryID]overtime.ExtraHourEntry, len(tm.entries)),
		batches:     make(map[overtime.BatchID]overtime.ReconciliationBatch, len(tm.batches)),
		allocations: make(map[overtime.AllocationID]overtime.ReconciliationAllocation, len(tm.allocations)),
		allocOrder:  append([]overtime.AllocationID{}, tm.allocOrder...),
	}
	for k, v := range tm.shifts {
		s.shifts[k] = v
	}
	for k, v := range tm.entries {
		s.entries[k] = v
	}
	for k, v := range tm.batches {
		s.batches[k] = v
	}
	for k, v := range tm.allocations {
		s.allocations[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.shifts = s.shifts
	tm.entries = s.entries
	tm.batches = s.batches
	tm.allocations = s.allocations
	tm.allocOrder = s.allocOrder
}

// txMemoryView routes Store calls to the parent's locked implementations.
// The parent's mutex is held for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetShift(_ context.Context, id overtime.ShiftID) (overtime.WorkShift, error) {
	return tv.parent.getShiftLocked(id)
}

func (tv *txMemoryView) SaveShift(_ context.Context, shift overtime.WorkShift) error {
	tv.parent.shifts[shift.ID] = shift
	return nil
}

func (tv *txMemoryView) CompletedShifts(_ context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.WorkShift, error) {
	return tv.parent.completedShiftsLocked(employeeID, from, to)
}

func (tv *txMemoryView) SaveEntries(_ context.Context, entries []overtime.ExtraHourEntry) error {
	return tv.parent.saveEntriesLocked(entries)
}

func (tv *txMemoryView) GetEntry(_ context.Context, id overtime.EntryID) (overtime.ExtraHourEntry, error) {
	return tv.parent.getEntryLocked(id)
}

func (tv *txMemoryView) EntriesByShift(_ context.Context, shiftID overtime.ShiftID) ([]overtime.ExtraHourEntry, error) {
	return tv.parent.entriesByShiftLocked(shiftID)
}

func (tv *txMemoryView) AvailableEntries(_ context.Context, employeeID overtime.EmployeeID, today time.Time) ([]overtime.ExtraHourEntry, error) {
	return tv.parent.availableEntriesLocked(employeeID, today)
}

func (tv *txMemoryView) EntriesInRange(_ context.Context, employeeID overtime.EmployeeID, from, to time.Time) ([]overtime.ExtraHourEntry, error) {
	return tv.parent.entriesInRangeLocked(employeeID, from, to)
}

func (tv *txMemoryView) DebitEntry(_ context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	return tv.parent.debitEntryLocked(id, minutes, now)
}

func (tv *txMemoryView) CreditEntry(_ context.Context, id overtime.EntryID, minutes int, now time.Time) error {
	return tv.parent.creditEntryLocked(id, minutes, now)
}

func (tv *txMemoryView) DeleteEntriesByShift(_ context.Context, shiftID overtime.ShiftID, now time.Time) ([]overtime.EntryID, []overtime.EntryID, error) {
	return tv.parent.deleteEntriesByShiftLocked(shiftID, now)
}

func (tv *txMemoryView) ExpireEntries(_ context.Context, cutoff, now time.Time) (int64, error) {
	return tv.parent.expireEntriesLocked(cutoff, now)
}

func (tv *txMemoryView) SaveBatch(_ context.Context, batch overtime.ReconciliationBatch) error {
	return tv.parent.saveBatchLocked(batch)
}

func (tv *txMemoryView) GetBatch(_ context.Context, id overtime.BatchID) (overtime.ReconciliationBatch, error) {
	return tv.parent.getBatchLocked(id)
}

func (tv *txMemoryView) BatchesByEmployee(_ context.Context, employeeID overtime.EmployeeID) ([]overtime.ReconciliationBatch, error) {
	return tv.parent.batchesByEmployeeLocked(employeeID)
}

func (tv *txMemoryView) SaveAllocation(_ context.Context, alloc overtime.ReconciliationAllocation) error {
	return tv.parent.saveAllocationLocked(alloc)
}

func (tv *txMemoryView) GetAllocation(_ context.Context, id overtime.AllocationID) (overtime.ReconciliationAllocation, error) {
	return tv.parent.getAllocationLocked(id)
}

func (tv *txMemoryView) AllocationsByBatch(_ context.Context, batchID overtime.BatchID) ([]overtime.ReconciliationAllocation, error) {
	return tv.parent.allocationsByBatchLocked(batchID)
}

func (tv *txMemoryView) AllocationsByEntry(_ context.Context, entryID overtime.EntryID) ([]overtime.ReconciliationAllocation, error) {
	return tv.parent.allocationsByEntryLocked(entryID)
}

func (tv *txMemoryView) SoftDeleteAllocation(_ context.Context, id overtime.AllocationID, now time.Time) error {
	return tv.parent.softDeleteAllocationLocked(id, now)
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Shifts:
    ShiftDTO, SaveShiftRequest

  Entries:
    EntryDTO, ReconciledEntryDTO, ManualEntryRequest

  Reconciliation:
    BatchDTO, AllocationDTO, CreateReconciliationRequest, DecisionRequest

  Summary:
    SummaryDTO, FigureDTO

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run them
  through Handler.validate before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - overtime/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ShiftDTO represents a work shift in API responses.
type ShiftDTO struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	BusinessUnitID string `json:"business_unit_id,omitempty"`
	DateStart      string `json:"date_start"`
	DateFinish     string `json:"date_finish"`
	Status         string `json:"status"`
}

// SaveShiftRequest mirrors the upstream scheduling record.
type SaveShiftRequest struct {
	ID             string `json:"id" validate:"required"`
	EmployeeID     string `json:"employee_id" validate:"required"`
	BusinessUnitID string `json:"business_unit_id"`
	DateStart      string `json:"date_start" validate:"required"`
	DateFinish     string `json:"date_finish" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=planned completed cancelled"`
}

// EntryDTO represents an extra-hour entry in API responses.
type EntryDTO struct {
	ID                 string `json:"id"`
	EmployeeID         string `json:"employee_id"`
	ShiftID            string `json:"shift_id,omitempty"`
	SegmentNumber      int    `json:"segment_number"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	TotalMinutes       int    `json:"total_minutes"`
	TotalFormatted     string `json:"total_formatted"`
	RemainingMinutes   int    `json:"remaining_minutes"`
	RemainingFormatted string `json:"remaining_formatted"`
	Status             string `json:"status"`
	ExpiryDate         string `json:"expiry_date"`
	IsFullyReconciled  bool   `json:"is_fully_reconciled"`
	BusinessUnitID     string `json:"business_unit_id,omitempty"`
	Description        string `json:"description,omitempty"`
}

// EntryGroupDTO folds the entries of one source shift (or one day, for
// manual entries) into a single list item.
type EntryGroupDTO struct {
	ShiftID            string     `json:"shift_id,omitempty"`
	Date               string     `json:"date"`
	RemainingMinutes   int        `json:"remaining_minutes"`
	RemainingFormatted string     `json:"remaining_formatted"`
	Entries            []EntryDTO `json:"entries"`
}

// ReconciledEntryDTO is the read model for entries with consumed minutes.
type ReconciledEntryDTO struct {
	EntryID            string `json:"entry_id"`
	ShiftID            string `json:"shift_id,omitempty"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	TotalMinutes       int    `json:"total_minutes"`
	ReconciledMinutes  int    `json:"reconciled_minutes"`
	IsFullyReconciled  bool   `json:"is_fully_reconciled"`
	Description        string `json:"description,omitempty"`
	LastReconciledDate string `json:"last_reconciled_date,omitempty"`
}

// ManualEntryRequest records extra time without a backing shift.
// Times are clock times, "HH:MM". An end at or before the start means the
// interval crosses midnight.
type ManualEntryRequest struct {
	EmployeeID     string `json:"employee_id" validate:"required"`
	BusinessUnitID string `json:"business_unit_id"`
	Date           string `json:"date" validate:"required"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	Description    string `json:"description"`
}

// RecalculateRequest recomputes entries for completed shifts in a range.
type RecalculateRequest struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Force bool   `json:"force"`
}

// RecalculateResponse reports what the recomputation did.
type RecalculateResponse struct {
	ShiftsSeen     int      `json:"shifts_seen"`
	EntriesCreated int      `json:"entries_created"`
	ShiftsSkipped  []string `json:"shifts_skipped,omitempty"`
}

// CreateReconciliationRequest opens a batch. The two slices are parallel.
type CreateReconciliationRequest struct {
	EmployeeID    string   `json:"employee_id" validate:"required"`
	ReconcileDate string   `json:"reconcile_date"`
	EntryIDs      []string `json:"entry_ids" validate:"required,min=1,dive,required"`
	Minutes       []int    `json:"minutes" validate:"required,min=1"`
	Notes         string   `json:"notes"`
}

// DecisionRequest approves or rejects a pending batch.
type DecisionRequest struct {
	DecidedBy string `json:"decided_by" validate:"required"`
	Notes     string `json:"notes"`
}

// AllocationDTO represents one per-entry debit inside a batch.
type AllocationDTO struct {
	ID                 string `json:"id"`
	EntryID            string `json:"entry_id"`
	BatchID            string `json:"batch_id"`
	ReconciliationDate string `json:"reconciliation_date"`
	MinutesReconciled  int    `json:"minutes_reconciled"`
	MinutesFormatted   string `json:"minutes_formatted"`
	Status             string `json:"status"`
	ApprovedBy         string `json:"approved_by,omitempty"`
	ApprovedAt         string `json:"approved_at,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

// BatchDTO represents a reconciliation batch with its allocations.
type BatchDTO struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employee_id"`
	ReconcileDate  string          `json:"reconcile_date"`
	DateStart      string          `json:"date_start"`
	DateFinish     string          `json:"date_finish"`
	TotalMinutes   int             `json:"total_minutes"`
	TotalFormatted string          `json:"total_formatted"`
	TotalHours     int             `json:"total_hours"`
	Status         string          `json:"status"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     string          `json:"approved_at,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      string          `json:"created_at"`
	Allocations    []AllocationDTO `json:"allocations,omitempty"`
}

// FigureDTO is one summary amount in its three renderings.
type FigureDTO struct {
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
	Hours     string `json:"hours"`
}

// SummaryDTO is an employee's position over a range.
type SummaryDTO struct {
	EmployeeID string    `json:"employee_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Earned     FigureDTO `json:"earned"`
	Reconciled FigureDTO `json:"reconciled"`
	Expired    FigureDTO `json:"expired"`
	Available  FigureDTO `json:"available"`
	EntryCount int       `json:"entry_count"`
}

// ExpireResponse reports a sweep result.
type ExpireResponse struct {
	Expired int64 `json:"expired"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func toShiftDTO(s overtime.WorkShift) ShiftDTO {
	return ShiftDTO{
		ID:             string(s.ID),
		EmployeeID:     string(s.EmployeeID),
		BusinessUnitID: string(s.BusinessUnitID),
		DateStart:      formatTime(s.DateStart),
		DateFinish:     formatTime(s.DateFinish),
		Status:         string(s.Status),
	}
}

func toEntryDTO(e overtime.ExtraHourEntry) EntryDTO {
	return EntryDTO{
		ID:                 string(e.ID),
		EmployeeID:         string(e.EmployeeID),
		ShiftID:            string(e.ShiftID),
		SegmentNumber:      e.SegmentNumber,
		Date:               e.Date.Format("2006-01-02"),
		StartTime:          formatTime(e.StartTime),
		EndTime:            formatTime(e.EndTime),
		TotalMinutes:       e.TotalMinutes,
		TotalFormatted:     e.FormattedTotal(),
		RemainingMinutes:   e.RemainingMinutes,
		RemainingFormatted: e.FormattedRemaining(),
		Status:             string(e.Status),
		ExpiryDate:         e.ExpiryDate.Format("2006-01-02"),
		IsFullyReconciled:  e.IsFullyReconciled,
		BusinessUnitID:     string(e.BusinessUnitID),
		Description:        e.Description,
	}
}

func toEntryDTOs(entries []overtime.ExtraHourEntry) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	return dtos
}

// toEntryGroupDTOs groups consecutive entries sharing a shift and date.
// Works because stores list entries ordered by date, shift and segment.
func toEntryGroupDTOs(entries []overtime.ExtraHourEntry) []EntryGroupDTO {
	groups := make([]EntryGroupDTO, 0)
	for _, e := range entries {
		date := e.Date.Format("2006-01-02")
		n := len(groups)
		if n == 0 || groups[n-1].ShiftID != string(e.ShiftID) || groups[n-1].Date != date {
			groups = append(groups, EntryGroupDTO{ShiftID: string(e.ShiftID), Date: date})
			n++
		}
		groups[n-1].Entries = append(groups[n-1].Entries, toEntryDTO(e))
		groups[n-1].RemainingMinutes += e.RemainingMinutes
		groups[n-1].RemainingFormatted = overtime.FormatMinutes(groups[n-1].RemainingMinutes)
	}
	return groups
}

func toReconciledEntryDTO(s overtime.EntrySummary) ReconciledEntryDTO {
	dto := ReconciledEntryDTO{
		EntryID:           string(s.EntryID),
		ShiftID:           string(s.ShiftID),
		Date:              s.Date.Format("2006-01-02"),
		StartTime:         formatTime(s.StartTime),
		EndTime:           formatTime(s.EndTime),
		TotalMinutes:      s.TotalMinutes,
		ReconciledMinutes: s.ReconciledMinutes,
		IsFullyReconciled: s.IsFullyReconciled,
		Description:       s.Description,
	}
	if s.LastReconciledDate != nil {
		dto.LastReconciledDate = s.LastReconciledDate.Format("2006-01-02")
	}
	return dto
}

func toAllocationDTO(a overtime.ReconciliationAllocation) AllocationDTO {
	return AllocationDTO{
		ID:                 string(a.ID),
		EntryID:            string(a.EntryID),
		BatchID:            string(a.BatchID),
		ReconciliationDate: a.ReconciliationDate.Format("2006-01-02"),
		MinutesReconciled:  a.MinutesReconciled,
		MinutesFormatted:   overtime.FormatMinutes(a.MinutesReconciled),
		Status:             string(a.Status),
		ApprovedBy:         a.ApprovedBy,
		ApprovedAt:         formatTimePtr(a.ApprovedAt),
		Notes:              a.Notes,
	}
}

func toBatchDTO(detail overtime.BatchDetail) BatchDTO {
	b := detail.Batch
	dto := BatchDTO{
		ID:             string(b.ID),
		EmployeeID:     string(b.EmployeeID),
		ReconcileDate:  b.ReconcileDate.Format("2006-01-02"),
		DateStart:      formatTime(b.DateStart),
		DateFinish:     formatTime(b.DateFinish),
		TotalMinutes:   b.TotalMinutes,
		TotalFormatted: overtime.FormatMinutes(b.TotalMinutes),
		TotalHours:     b.TotalHours,
		Status:         string(b.Status),
		ApprovedBy:     b.ApprovedBy,
		ApprovedAt:     formatTimePtr(b.ApprovedAt),
		Notes:          b.Notes,
		CreatedAt:      formatTime(b.CreatedAt),
	}
	for _, a := range detail.Allocations {
		dto.Allocations = append(dto.Allocations, toAllocationDTO(a))
	}
	return dto
}

func toFigureDTO(f overtime.Figure) FigureDTO {
	return FigureDTO{
		Minutes:   f.Minutes,
		Formatted: f.Formatted,
		Hours:     f.Hours.String(),
	}
}

func toSummaryDTO(s overtime.Summary) SummaryDTO {
	return SummaryDTO{
		EmployeeID: string(s.EmployeeID),
		From:       s.From.Format("2006-01-02"),
		To:         s.To.Format("2006-01-02"),
		Earned:     toFigureDTO(s.Earned),
		Reconciled: toFigureDTO(s.Reconciled),
		Expired:    toFigureDTO(s.Expired),
		Available:  toFigureDTO(s.Available),
		EntryCount: s.EntryCount,
	}
}

/*
handlers.go - HTTP API handlers for the extra-hours system

PURPOSE:
  Exposes the overtime engine via REST API. Handles HTTP request/response,
  JSON serialization, input validation, and delegates to domain logic.

ENDPOINTS:
  Shifts:
    POST   /api/shifts                    Upsert a scheduling record
    POST   /api/shifts/{id}/compute       Compute extra hours for a shift

  Employees:
    POST   /api/employees/{id}/recalculate           Recompute a date range
    GET    /api/employees/{id}/extra-hours            Available entries
    GET    /api/employees/{id}/extra-hours/reconciled Consumed entries
    GET    /api/employees/{id}/summary                Range summary
    GET    /api/employees/{id}/reconciliations        Batch history

  Reconciliation:
    POST   /api/reconciliations               Open a batch (debits entries)
    GET    /api/reconciliations/{id}          Batch detail
    POST   /api/reconciliations/{id}/approve  Finalize
    POST   /api/reconciliations/{id}/reject   Void and credit back
    DELETE /api/allocations/{id}              Remove one pending allocation

  Admin:
    POST   /api/admin/extra-hours   Record a manual entry
    POST   /api/admin/expire        Run the expiry sweep now

  Scenarios (demo):
    GET    /api/scenarios           List available scenarios
    GET    /api/scenarios/current   Currently loaded scenario
    POST   /api/scenarios/load      Reset the store and load a scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Service / Reconciler: Domain logic
  - validate: go-playground/validator for request bodies

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, validation errors
  - 404: Resource not found
  - 422: Business rule violations (over-allocation, decided batch, ...)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      overtime.TxStore
	Service    *overtime.Service
	Reconciler *overtime.Reconciler

	validate        *validator.Validate
	currentScenario string
}

// NewHandler wires the domain services over the given store.
func NewHandler(store overtime.TxStore, cfg overtime.Config) *Handler {
	return &Handler{
		Store:      store,
		Service:    overtime.NewService(store, cfg),
		Reconciler: overtime.NewReconciler(store),
		validate:   validator.New(),
	}
}

// =============================================================================
// SHIFT ENDPOINTS
// =============================================================================

// SaveShift upserts a scheduling record.
// POST /api/shifts
func (h *Handler) SaveShift(w http.ResponseWriter, r *http.Request) {
	var req SaveShiftRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := parseTimestamp(req.DateStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_start", err)
		return
	}
	finish, err := parseTimestamp(req.DateFinish)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_finish", err)
		return
	}
	if !finish.After(start) {
		writeError(w, http.StatusBadRequest, "Invalid interval", overtime.ErrInvalidInterval)
		return
	}

	shift := overtime.WorkShift{
		ID:             overtime.ShiftID(req.ID),
		EmployeeID:     overtime.EmployeeID(req.EmployeeID),
		BusinessUnitID: overtime.BusinessUnitID(req.BusinessUnitID),
		DateStart:      start,
		DateFinish:     finish,
		Status:         overtime.ShiftStatus(req.Status),
	}
	if err := h.Store.SaveShift(r.Context(), shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(shift))
}

// ComputeShift segments a completed shift into extra-hour entries.
// POST /api/shifts/{id}/compute?force=true
func (h *Handler) ComputeShift(w http.ResponseWriter, r *http.Request) {
	shiftID := overtime.ShiftID(chi.URLParam(r, "id"))
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	entries, err := h.Service.ComputeExtraHours(r.Context(), shiftID, force)
	if err != nil {
		h.writeDomainError(w, "Failed to compute extra hours", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// Recalculate recomputes entries for an employee's completed shifts.
// POST /api/employees/{id}/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	employeeID := overtime.EmployeeID(chi.URLParam(r, "id"))

	var req RecalculateRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, err := parseTimestamp(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := parseTimestamp(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to", err)
		return
	}
	// A bare date means the whole day.
	if isBareDate(req.To) {
		to = overtime.DayEnd(to)
	}

	result, err := h.Service.RecalculateRange(r.Context(), employeeID, from, to, req.Force)
	if err != nil {
		h.writeDomainError(w, "Failed to recalculate", err)
		return
	}

	resp := RecalculateResponse{
		ShiftsSeen:     result.ShiftsSeen,
		EntriesCreated: result.EntriesCreated,
	}
	for _, id := range result.ShiftsSkipped {
		resp.ShiftsSkipped = append(resp.ShiftsSkipped, string(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAvailableEntries returns what an employee can still reconcile.
// With ?group=shift the entries come back grouped per source shift.
// GET /api/employees/{id}/extra-hours[?group=shift]
func (h *Handler) ListAvailableEntries(w http.ResponseWriter, r *http.Request) {
	employeeID := overtime.EmployeeID(chi.URLParam(r, "id"))

	entries, err := h.Service.AvailableEntries(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	if r.URL.Query().Get("group") == "shift" {
		writeJSON(w, http.StatusOK, toEntryGroupDTOs(entries))
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// ListReconciledEntries returns entries with consumed minutes in a range.
// GET /api/employees/{id}/extra-hours/reconciled?from=...&to=...
func (h *Handler) ListReconciledEntries(w http.ResponseWriter, r *http.Request) {
	employeeID := overtime.EmployeeID(chi.URLParam(r, "id"))

	from, to, err := rangeFromQuery(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	summaries, err := h.Service.ReconciledEntries(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reconciled entries", err)
		return
	}

	dtos := make([]ReconciledEntryDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, toReconciledEntryDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSummary returns the four-figure position for a range.
// GET /api/employees/{id}/summary?from=...&to=...
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	employeeID := overtime.EmployeeID(chi.URLParam(r, "id"))

	var from, to time.Time
	var err error
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		from, to, err = rangeFromQuery(r, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid range", err)
			return
		}
	}

	summary, err := h.Service.Summarize(r.Context(), employeeID, from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ListBatches returns an employee's reconciliation history.
// GET /api/employees/{id}/reconciliations
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	employeeID := overtime.EmployeeID(chi.URLParam(r, "id"))

	details, err := h.Reconciler.ListBatches(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reconciliations", err)
		return
	}
	dtos := make([]BatchDTO, 0, len(details))
	for _, d := range details {
		dtos = append(dtos, toBatchDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECONCILIATION ENDPOINTS
// =============================================================================

// CreateReconciliation opens a pending batch, debiting the named entries.
// POST /api/reconciliations
func (h *Handler) CreateReconciliation(w http.ResponseWriter, r *http.Request) {
	var req CreateReconciliationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.EntryIDs) != len(req.Minutes) {
		writeError(w, http.StatusBadRequest, "entry_ids and minutes must have the same length", nil)
		return
	}

	var reconcileDate time.Time
	if req.ReconcileDate != "" {
		var err error
		reconcileDate, err = parseTimestamp(req.ReconcileDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reconcile_date", err)
			return
		}
	}

	createReq := overtime.CreateRequest{
		EmployeeID:    overtime.EmployeeID(req.EmployeeID),
		ReconcileDate: reconcileDate,
		Minutes:       req.Minutes,
		Notes:         req.Notes,
	}
	for _, id := range req.EntryIDs {
		createReq.EntryIDs = append(createReq.EntryIDs, overtime.EntryID(id))
	}

	detail, err := h.Reconciler.Create(r.Context(), createReq)
	if err != nil {
		h.writeDomainError(w, "Failed to create reconciliation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(detail))
}

// GetReconciliation returns a batch with its allocations.
// GET /api/reconciliations/{id}
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	batchID := overtime.BatchID(chi.URLParam(r, "id"))

	detail, err := h.Reconciler.GetBatch(r.Context(), batchID)
	if err != nil {
		h.writeDomainError(w, "Failed to get reconciliation", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(detail))
}

// ApproveReconciliation finalizes a pending batch.
// POST /api/reconciliations/{id}/approve
func (h *Handler) ApproveReconciliation(w http.ResponseWriter, r *http.Request) {
	h.decideReconciliation(w, r, h.Reconciler.Approve)
}

// RejectReconciliation voids a pending batch, crediting balances back.
// POST /api/reconciliations/{id}/reject
func (h *Handler) RejectReconciliation(w http.ResponseWriter, r *http.Request) {
	h.decideReconciliation(w, r, h.Reconciler.Reject)
}

func (h *Handler) decideReconciliation(w http.ResponseWriter, r *http.Request,
	decide func(ctx context.Context, id overtime.BatchID, by, notes string) (overtime.ReconciliationBatch, error)) {
	batchID := overtime.BatchID(chi.URLParam(r, "id"))

	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := decide(r.Context(), batchID, req.DecidedBy, req.Notes); err != nil {
		h.writeDomainError(w, "Failed to decide reconciliation", err)
		return
	}

	detail, err := h.Reconciler.GetBatch(r.Context(), batchID)
	if err != nil {
		h.writeDomainError(w, "Failed to load reconciliation", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(detail))
}

// DeleteAllocation removes one allocation from a pending batch.
// DELETE /api/allocations/{id}
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	allocationID := overtime.AllocationID(chi.URLParam(r, "id"))

	if err := h.Reconciler.DeleteAllocation(r.Context(), allocationID); err != nil {
		h.writeDomainError(w, "Failed to delete allocation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// CreateManualEntry records extra time without a backing shift.
// POST /api/admin/extra-hours
func (h *Handler) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := parseTimestamp(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	start, err := parseClockTime(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time", err)
		return
	}
	end, err := parseClockTime(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time", err)
		return
	}

	entry, err := h.Service.CreateManualEntry(r.Context(),
		overtime.EmployeeID(req.EmployeeID), overtime.BusinessUnitID(req.BusinessUnitID),
		date, start, end, req.Description)
	if err != nil {
		h.writeDomainError(w, "Failed to create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// TriggerExpiry runs the expiry sweep immediately.
// POST /api/admin/expire
func (h *Handler) TriggerExpiry(w http.ResponseWriter, r *http.Request) {
	swept, err := h.Service.ExpireOverdue(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to expire entries", err)
		return
	}
	writeJSON(w, http.StatusOK, ExpireResponse{Expired: swept})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case overtime.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case overtime.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decode parses and validates a JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// parseTimestamp accepts RFC3339 or a bare date.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func isBareDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// parseClockTime parses "HH:MM".
func parseClockTime(s string) (overtime.ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("unrecognized clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("unrecognized clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("unrecognized clock time %q", s)
	}
	return overtime.NewClockTime(hour, minute), nil
}

// rangeFromQuery reads from/to query parameters, defaulting to the current
// calendar month.
func rangeFromQuery(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := overtime.DayEnd(from.AddDate(0, 1, -1))

	if fromParam != "" {
		parsed, err := parseTimestamp(fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toParam != "" {
		parsed, err := parseTimestamp(toParam)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if isBareDate(toParam) {
			parsed = overtime.DayEnd(parsed)
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, overtime.ErrInvalidInterval
	}
	return from, to, nil
}

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates shifts, computes their
	extra-hour entries and, where the scenario calls for it, walks balances
	through the reconciliation lifecycle.

AVAILABLE SCENARIOS:

	weekday-overtime:   Early start and late finish around regular hours
	night-shift:        Overnight shift touching every weekday band
	weekend-marathon:   Multi-day weekend shift split at midnight
	reconciliation:     Balances spent across approved, rejected and pending batches
	expiring-balances:  Old entries frozen by the expiry sweep

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Save completed shifts
 3. Compute extra-hour entries per shift
 4. Optionally create and decide reconciliation batches
 5. Optionally run the expiry sweep

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "reconciliation"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: route handlers sharing this Handler
  - server.go: scenario route wiring
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "weekday-overtime",
		Name:        "Weekday Overtime",
		Description: "Early start and late finish around regular hours",
		Category:    "segmentation",
	},
	{
		ID:          "night-shift",
		Name:        "Night Shift",
		Description: "Overnight shift touching every weekday band",
		Category:    "segmentation",
	},
	{
		ID:          "weekend-marathon",
		Name:        "Weekend Marathon",
		Description: "Multi-day weekend shift split at midnight",
		Category:    "segmentation",
	},
	{
		ID:          "reconciliation",
		Name:        "Reconciliation Flow",
		Description: "Balances spent across approved, rejected and pending batches",
		Category:    "reconciliation",
	},
	{
		ID:          "expiring-balances",
		Name:        "Expiring Balances",
		Description: "Old entries frozen by the expiry sweep",
		Category:    "expiry",
	},
}

// resettable is implemented by stores that can wipe themselves for demos.
type resettable interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	resetter, ok := h.Store.(resettable)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support scenarios", nil)
		return
	}
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = "" // Clear current scenario on reset

	var err error
	switch req.ScenarioID {
	case "weekday-overtime":
		err = h.loadWeekdayOvertimeScenario(ctx)
	case "night-shift":
		err = h.loadNightShiftScenario(ctx)
	case "weekend-marathon":
		err = h.loadWeekendMarathonScenario(ctx)
	case "reconciliation":
		err = h.loadReconciliationScenario(ctx)
	case "expiring-balances":
		err = h.loadExpiringBalancesScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// demoDay anchors scenario data on the most recent Monday so loaded demos
// always fall inside the current summary month window.
func demoDay(weekday time.Weekday) time.Time {
	now := time.Now().UTC()
	day := overtime.DayStart(now)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func (h *Handler) saveCompletedShift(ctx context.Context, id overtime.ShiftID, employee overtime.EmployeeID, start, end time.Time) error {
	return h.Store.SaveShift(ctx, overtime.WorkShift{
		ID:             id,
		EmployeeID:     employee,
		BusinessUnitID: "unit-demo",
		DateStart:      start,
		DateFinish:     end,
		Status:         overtime.ShiftCompleted,
	})
}

func (h *Handler) loadWeekdayOvertimeScenario(ctx context.Context) error {
	monday := demoDay(time.Monday)
	if err := h.saveCompletedShift(ctx, "shift-demo-1", "emp-001",
		monday.Add(6*time.Hour), monday.Add(18*time.Hour)); err != nil {
		return err
	}
	_, err := h.Service.ComputeExtraHours(ctx, "shift-demo-1", false)
	return err
}

func (h *Handler) loadNightShiftScenario(ctx context.Context) error {
	monday := demoDay(time.Monday)
	if err := h.saveCompletedShift(ctx, "shift-demo-night", "emp-001",
		monday.Add(18*time.Hour), monday.AddDate(0, 0, 1).Add(8*time.Hour)); err != nil {
		return err
	}
	_, err := h.Service.ComputeExtraHours(ctx, "shift-demo-night", false)
	return err
}

func (h *Handler) loadWeekendMarathonScenario(ctx context.Context) error {
	saturday := demoDay(time.Saturday)
	if err := h.saveCompletedShift(ctx, "shift-demo-weekend", "emp-001",
		saturday.Add(20*time.Hour), saturday.AddDate(0, 0, 2).Add(2*time.Hour)); err != nil {
		return err
	}
	_, err := h.Service.ComputeExtraHours(ctx, "shift-demo-weekend", false)
	return err
}

func (h *Handler) loadReconciliationScenario(ctx context.Context) error {
	monday := demoDay(time.Monday)
	if err := h.saveCompletedShift(ctx, "shift-demo-1", "emp-001",
		monday.Add(6*time.Hour), monday.Add(18*time.Hour)); err != nil {
		return err
	}
	entries, err := h.Service.ComputeExtraHours(ctx, "shift-demo-1", false)
	if err != nil {
		return err
	}
	if len(entries) < 2 {
		return fmt.Errorf("expected at least 2 demo entries, got %d", len(entries))
	}

	// Approved batch over the first entry.
	approved, err := h.Reconciler.Create(ctx, overtime.CreateRequest{
		EmployeeID: "emp-001",
		EntryIDs:   []overtime.EntryID{entries[0].ID},
		Minutes:    []int{60},
		Notes:      "Demo: approved reconciliation",
	})
	if err != nil {
		return err
	}
	if _, err := h.Reconciler.Approve(ctx, approved.Batch.ID, "manager-demo", "Looks right"); err != nil {
		return err
	}

	// Rejected batch: its minutes return to the entry.
	rejected, err := h.Reconciler.Create(ctx, overtime.CreateRequest{
		EmployeeID: "emp-001",
		EntryIDs:   []overtime.EntryID{entries[0].ID},
		Minutes:    []int{30},
		Notes:      "Demo: rejected reconciliation",
	})
	if err != nil {
		return err
	}
	if _, err := h.Reconciler.Reject(ctx, rejected.Batch.ID, "manager-demo", "Wrong week"); err != nil {
		return err
	}

	// Pending batch awaiting a decision.
	_, err = h.Reconciler.Create(ctx, overtime.CreateRequest{
		EmployeeID: "emp-001",
		EntryIDs:   []overtime.EntryID{entries[1].ID},
		Minutes:    []int{45},
		Notes:      "Demo: pending reconciliation",
	})
	return err
}

func (h *Handler) loadExpiringBalancesScenario(ctx context.Context) error {
	today := overtime.DayStart(time.Now().UTC())
	old := today.AddDate(0, 0, -120)
	for old.Weekday() == time.Saturday || old.Weekday() == time.Sunday {
		old = old.AddDate(0, 0, -1)
	}

	if err := h.saveCompletedShift(ctx, "shift-demo-old", "emp-001",
		old.Add(6*time.Hour), old.Add(18*time.Hour)); err != nil {
		return err
	}
	if _, err := h.Service.ComputeExtraHours(ctx, "shift-demo-old", false); err != nil {
		return err
	}

	monday := demoDay(time.Monday)
	if err := h.saveCompletedShift(ctx, "shift-demo-1", "emp-001",
		monday.Add(16*time.Hour), monday.Add(19*time.Hour)); err != nil {
		return err
	}
	if _, err := h.Service.ComputeExtraHours(ctx, "shift-demo-1", false); err != nil {
		return err
	}

	_, err := h.Service.ExpireOverdue(ctx, today)
	return err
}

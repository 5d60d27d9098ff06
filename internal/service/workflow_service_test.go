package service

import (
	"context"
	"strings"
	"testing"

	"procurement-backend/internal/model"
	"procurement-backend/pkg/apperror"
)

func TestCreateRequestStartsPendingAtLogistics(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)

	resp := f.createRequest(t, hod)

	if resp.Status != model.RequestStatusPending {
		t.Errorf("status = %q, want %q", resp.Status, model.RequestStatusPending)
	}
	if resp.CurrentStage != model.StageLogistics {
		t.Errorf("current stage = %q, want %q", resp.CurrentStage, model.StageLogistics)
	}
	if resp.RequestStage != model.StageLogistics {
		t.Errorf("request_stage label = %q, want %q", resp.RequestStage, model.StageLogistics)
	}

	// The creating HOD's own approval is recorded up front.
	hodGroup := resp.Stages[model.StageHOD]
	if hodGroup.Approved == nil || !*hodGroup.Approved {
		t.Error("HOD stage must be self-approved on creation")
	}
	if hodGroup.UserID == nil || *hodGroup.UserID != hod.ID.String() {
		t.Error("HOD stage must record the creating department head")
	}
	if group := resp.Stages[model.StageLogistics]; group.Approved != nil {
		t.Error("logistics stage must be untouched on creation")
	}

	if got := f.countAuditLogs(t, model.ActionCreateRequest); got != 1 {
		t.Errorf("audit log count = %d, want 1", got)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.CreateRequest(context.Background(), CreateRequestDTO{
		Title:           "Chairs",
		RequestedUserID: "not-a-uuid",
	})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("expected validation error for bad requester id, got %v", err)
	}
}

func TestAdvanceFullChainCompletes(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	resp := f.approveThrough(t, created.ID, model.StageProcurement)

	if resp.Status != model.RequestStatusCompleted {
		t.Fatalf("status = %q, want %q", resp.Status, model.RequestStatusCompleted)
	}
	if !resp.IsApproved {
		t.Error("completed request must report is_approved = true")
	}
	if resp.RequestStage != "Completed" {
		t.Errorf("request_stage label = %q, want Completed", resp.RequestStage)
	}
	if resp.CurrentStage != "" {
		t.Errorf("completed request still owned by stage %q", resp.CurrentStage)
	}
	for _, stage := range model.Stages() {
		group := resp.Stages[stage]
		if group.Approved == nil || !*group.Approved {
			t.Errorf("stage %q missing its approval record", stage)
		}
		if group.UserID == nil || group.ActedAt == nil {
			t.Errorf("stage %q missing approver identity or timestamp", stage)
		}
	}
}

func TestRejectTerminatesWithReason(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)
	f.approveThrough(t, created.ID, model.StageLogistics)

	warehouse := f.seedUser(t, "Warehouse", model.StageWarehouse)
	resp, err := f.workflow.Advance(context.Background(), created.ID, model.StageWarehouse, warehouse.ID.String(), false, "stock sufficient")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if resp.Status != model.RequestStatusRejected {
		t.Errorf("status = %q, want %q", resp.Status, model.RequestStatusRejected)
	}
	if resp.RejectedStage != model.StageWarehouse {
		t.Errorf("rejected_stage = %q, want %q", resp.RejectedStage, model.StageWarehouse)
	}
	if resp.RequestStage != "Rejected Warehouse Officer" {
		t.Errorf("request_stage label = %q, want %q", resp.RequestStage, "Rejected Warehouse Officer")
	}
	if resp.Note != "stock sufficient" {
		t.Errorf("note = %q, want rejection reason", resp.Note)
	}
	if group := resp.Stages[model.StageWarehouse]; group.Approved == nil || *group.Approved {
		t.Error("warehouse stage must record the rejection")
	}

	// Terminal: no further stage may act.
	rector := f.seedUser(t, "Rector", model.StageRector)
	_, err = f.workflow.Advance(context.Background(), created.ID, model.StageRector, rector.ID.String(), true, "")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("advance on rejected request: got %v, want conflict", err)
	}
	if err != nil && !strings.Contains(err.Error(), "Rejected Warehouse Officer") {
		t.Errorf("conflict message %q should name the terminal state", err.Error())
	}
}

func TestRejectDefaultReason(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	logistics := f.seedUser(t, "Logistics", model.StageLogistics)
	resp, err := f.workflow.Advance(context.Background(), created.ID, model.StageLogistics, logistics.ID.String(), false, "")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if resp.Note != "Rejected by Logistics Officer" {
		t.Errorf("note = %q, want default rejection reason", resp.Note)
	}
}

func TestAdvanceStaleStageConflicts(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	first := f.seedUser(t, "Logistics A", model.StageLogistics)
	second := f.seedUser(t, "Logistics B", model.StageLogistics)

	if _, err := f.workflow.Advance(context.Background(), created.ID, model.StageLogistics, first.ID.String(), true, ""); err != nil {
		t.Fatalf("first advance failed: %v", err)
	}

	// A second approval for the same transition must lose: the request has
	// already moved on to the warehouse stage.
	_, err := f.workflow.Advance(context.Background(), created.ID, model.StageLogistics, second.ID.String(), true, "")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("stale advance: got %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), model.StageWarehouse) {
		t.Errorf("conflict message %q should name the actual pending stage", err.Error())
	}

	// Exactly one approval was recorded.
	if got := f.countAuditLogs(t, model.ActionApproveStage); got != 1 {
		t.Errorf("audit log count = %d, want 1", got)
	}
}

func TestAdvanceWrongStageConflicts(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	rector := f.seedUser(t, "Rector", model.StageRector)
	_, err := f.workflow.Advance(context.Background(), created.ID, model.StageRector, rector.ID.String(), true, "")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("out-of-order advance: got %v, want conflict", err)
	}
}

func TestAdvanceUnknownRequestAndStage(t *testing.T) {
	f := newFixture(t)
	approver := f.seedUser(t, "Logistics", model.StageLogistics)

	_, err := f.workflow.Advance(context.Background(), "9f0ec00e-0000-4000-8000-000000000000", model.StageLogistics, approver.ID.String(), true, "")
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("missing request: got %v, want not found", err)
	}

	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)
	_, err = f.workflow.Advance(context.Background(), created.ID, "Supplier", approver.ID.String(), true, "")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("bogus stage: got %v, want validation error", err)
	}
}

func TestSetStageOverride(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	resp, err := f.workflow.SetStage(context.Background(), created.ID, model.StageRector)
	if err != nil {
		t.Fatalf("SetStage failed: %v", err)
	}
	if resp.CurrentStage != model.StageRector {
		t.Errorf("current stage = %q, want %q", resp.CurrentStage, model.StageRector)
	}

	if _, err := f.workflow.SetStage(context.Background(), created.ID, "Completed"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("non-stage label: got %v, want validation error", err)
	}

	// Terminal requests cannot be moved.
	f.approveThrough(t, created.ID, model.StageProcurement)
	if _, err := f.workflow.SetStage(context.Background(), created.ID, model.StageLogistics); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("set stage on terminal request: got %v, want conflict", err)
	}
}

func TestRoleViewsTrackTheChain(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)
	ctx := context.Background()

	pending, err := f.views.PendingFor(ctx, model.StageLogistics)
	if err != nil {
		t.Fatalf("PendingFor failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("logistics pending view should hold the new request, got %d entries", len(pending))
	}

	logistics := f.seedUser(t, "Logistics", model.StageLogistics)
	if _, err := f.workflow.Advance(ctx, created.ID, model.StageLogistics, logistics.ID.String(), true, ""); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	// Gone from logistics pending, present in their approved history, and
	// waiting at the warehouse.
	if pending, _ = f.views.PendingFor(ctx, model.StageLogistics); len(pending) != 0 {
		t.Errorf("logistics pending view should be empty, got %d entries", len(pending))
	}
	approved, err := f.views.ApprovedBy(ctx, model.StageLogistics, logistics.ID.String())
	if err != nil {
		t.Fatalf("ApprovedBy failed: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != created.ID {
		t.Errorf("logistics approved view should hold the request, got %d entries", len(approved))
	}
	if pending, _ = f.views.PendingFor(ctx, model.StageWarehouse); len(pending) != 1 {
		t.Errorf("warehouse pending view should hold the request, got %d entries", len(pending))
	}

	warehouse := f.seedUser(t, "Warehouse", model.StageWarehouse)
	if _, err := f.workflow.Advance(ctx, created.ID, model.StageWarehouse, warehouse.ID.String(), false, "stock sufficient"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	rejected, err := f.views.RejectedBy(ctx, model.StageWarehouse, warehouse.ID.String())
	if err != nil {
		t.Fatalf("RejectedBy failed: %v", err)
	}
	if len(rejected) != 1 || rejected[0].ID != created.ID {
		t.Errorf("warehouse rejected view should hold the request, got %d entries", len(rejected))
	}
	if pending, _ = f.views.PendingFor(ctx, model.StageRector); len(pending) != 0 {
		t.Errorf("rector pending view should stay empty after rejection, got %d entries", len(pending))
	}

	// Requester view always shows the request regardless of outcome.
	mine, err := f.views.ListByRequester(ctx, hod.ID.String())
	if err != nil {
		t.Fatalf("ListByRequester failed: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("requester view should hold 1 request, got %d", len(mine))
	}
}

func TestViewsRejectUnknownRole(t *testing.T) {
	f := newFixture(t)
	if _, err := f.views.PendingFor(context.Background(), "Janitor"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("unknown role: got %v, want validation error", err)
	}
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	hod := f.seedUser(t, "Dept Head", model.StageHOD)
	created := f.createRequest(t, hod)

	if err := f.workflow.DeleteRequest(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteRequest failed: %v", err)
	}
	if _, err := f.views.GetByID(context.Background(), created.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("deleted request still readable: %v", err)
	}
	if err := f.workflow.DeleteRequest(context.Background(), created.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("double delete: got %v, want not found", err)
	}
}

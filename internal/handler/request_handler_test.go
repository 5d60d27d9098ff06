package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"procurement-backend/internal/model"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "handler-test-secret"

type workflowStub struct {
	createFn  func(ctx context.Context, req service.CreateRequestDTO) (service.RequestResponse, error)
	advanceFn func(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (service.RequestResponse, error)
}

func (s *workflowStub) CreateRequest(ctx context.Context, req service.CreateRequestDTO) (service.RequestResponse, error) {
	return s.createFn(ctx, req)
}

func (s *workflowStub) Advance(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (service.RequestResponse, error) {
	return s.advanceFn(ctx, requestID, fromStage, approverID, approved, reason)
}

func (s *workflowStub) SetStage(ctx context.Context, requestID, stage string) (service.RequestResponse, error) {
	return service.RequestResponse{ID: requestID, CurrentStage: stage}, nil
}

func (s *workflowStub) DeleteRequest(ctx context.Context, requestID string) error {
	return nil
}

type viewsStub struct {
	pendingFn func(ctx context.Context, role string) ([]service.RequestResponse, error)
}

func (s *viewsStub) GetByID(ctx context.Context, id string) (service.RequestResponse, error) {
	return service.RequestResponse{ID: id}, nil
}

func (s *viewsStub) ListAll(ctx context.Context) ([]service.RequestResponse, error) {
	return []service.RequestResponse{}, nil
}

func (s *viewsStub) ListByRequester(ctx context.Context, userID string) ([]service.RequestResponse, error) {
	return []service.RequestResponse{}, nil
}

func (s *viewsStub) PendingFor(ctx context.Context, role string) ([]service.RequestResponse, error) {
	return s.pendingFn(ctx, role)
}

func (s *viewsStub) ApprovedBy(ctx context.Context, role, userID string) ([]service.RequestResponse, error) {
	return []service.RequestResponse{}, nil
}

func (s *viewsStub) RejectedBy(ctx context.Context, role, userID string) ([]service.RequestResponse, error) {
	return []service.RequestResponse{}, nil
}

func newTestRouter(t *testing.T, workflow service.WorkflowService, views service.RequestViewService) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewRequestHandler(workflow, views).RegisterRoutes(router.Group(""))
	return router
}

func bearerToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func doRequest(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return envelope
}

const createBody = `{
	"category": "Furniture",
	"sub_category": "Seating",
	"title": "Chairs",
	"reason": "stock insufficient",
	"color_pickup": "Black",
	"current_item_count": 10,
	"damaged_item_count": 4,
	"new_item_request_count": 20,
	"requested_user_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
}`

func TestCreateRequestRequiresHODRole(t *testing.T) {
	workflow := &workflowStub{
		createFn: func(ctx context.Context, req service.CreateRequestDTO) (service.RequestResponse, error) {
			return service.RequestResponse{ID: "r1", Title: req.Title, CurrentStage: model.StageLogistics}, nil
		},
	}
	router := newTestRouter(t, workflow, &viewsStub{})

	rec := doRequest(router, http.MethodPost, "/api/requests", bearerToken(t, "u1", model.StageHOD), createBody)
	if rec.Code != http.StatusCreated {
		t.Errorf("HOD create: status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/api/requests", bearerToken(t, "u2", model.RoleSupplier), createBody)
	if rec.Code != http.StatusForbidden {
		t.Errorf("supplier create: status = %d, want 403", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/api/requests", "", createBody)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create: status = %d, want 401", rec.Code)
	}
}

func TestCreateRequestRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, &workflowStub{}, &viewsStub{})

	rec := doRequest(router, http.MethodPost, "/api/requests", bearerToken(t, "u1", model.StageHOD), `{"title": "Chairs"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if success, _ := envelope["success"].(bool); success {
		t.Error("error envelope must report success = false")
	}
}

func TestApproveUsesCallerRoleAsStage(t *testing.T) {
	var gotStage, gotApprover string
	var gotApproved bool
	workflow := &workflowStub{
		advanceFn: func(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (service.RequestResponse, error) {
			gotStage, gotApprover, gotApproved = fromStage, approverID, approved
			return service.RequestResponse{ID: requestID}, nil
		},
	}
	router := newTestRouter(t, workflow, &viewsStub{})

	rec := doRequest(router, http.MethodPatch, "/api/requests/r1/approve",
		bearerToken(t, "approver-1", model.StageWarehouse), `{"approver_id": "approver-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if gotStage != model.StageWarehouse {
		t.Errorf("stage = %q, want caller's role %q", gotStage, model.StageWarehouse)
	}
	if gotApprover != "approver-1" || !gotApproved {
		t.Errorf("approver = %q approved = %v, want approver-1/true", gotApprover, gotApproved)
	}

	// HODs create requests, they do not act on later stages.
	rec = doRequest(router, http.MethodPatch, "/api/requests/r1/approve",
		bearerToken(t, "hod-1", model.StageHOD), `{"approver_id": "hod-1"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("HOD approve: status = %d, want 403", rec.Code)
	}
}

func TestRejectPassesReason(t *testing.T) {
	var gotApproved bool
	var gotReason string
	workflow := &workflowStub{
		advanceFn: func(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (service.RequestResponse, error) {
			gotApproved, gotReason = approved, reason
			return service.RequestResponse{ID: requestID}, nil
		},
	}
	router := newTestRouter(t, workflow, &viewsStub{})

	rec := doRequest(router, http.MethodPatch, "/api/requests/r1/reject",
		bearerToken(t, "approver-1", model.StageRector), `{"approver_id": "approver-1", "reason": "budget exhausted"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: status = %d, want 200", rec.Code)
	}
	if gotApproved {
		t.Error("reject route must pass approved = false")
	}
	if gotReason != "budget exhausted" {
		t.Errorf("reason = %q, want budget exhausted", gotReason)
	}
}

func TestAdvanceConflictMapsTo409(t *testing.T) {
	workflow := &workflowStub{
		advanceFn: func(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (service.RequestResponse, error) {
			return service.RequestResponse{}, apperror.Conflict("request is pending at %q, not %q", model.StageRector, fromStage)
		},
	}
	router := newTestRouter(t, workflow, &viewsStub{})

	rec := doRequest(router, http.MethodPatch, "/api/requests/r1/approve",
		bearerToken(t, "approver-1", model.StageLogistics), `{"approver_id": "approver-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale approve: status = %d, want 409", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if msg, _ := envelope["message"].(string); !strings.Contains(msg, model.StageRector) {
		t.Errorf("conflict message %q should name the pending stage", msg)
	}
}

func TestPendingViewDecodesRoleParam(t *testing.T) {
	var gotRole string
	views := &viewsStub{
		pendingFn: func(ctx context.Context, role string) ([]service.RequestResponse, error) {
			gotRole = role
			return []service.RequestResponse{{ID: "r1"}, {ID: "r2"}}, nil
		},
	}
	router := newTestRouter(t, &workflowStub{}, views)

	rec := doRequest(router, http.MethodGet, "/api/requests/role/Logistics%20Officer/pending",
		bearerToken(t, "u1", model.StageLogistics), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pending view: status = %d, want 200", rec.Code)
	}
	if gotRole != model.StageLogistics {
		t.Errorf("role param = %q, want %q", gotRole, model.StageLogistics)
	}
	envelope := decodeEnvelope(t, rec)
	if count, _ := envelope["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", envelope["count"])
	}
}

func TestDeleteRestrictedToSuperAdmin(t *testing.T) {
	router := newTestRouter(t, &workflowStub{}, &viewsStub{})

	rec := doRequest(router, http.MethodDelete, "/api/requests/r1", bearerToken(t, "u1", model.StageProcurement), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("procurement delete: status = %d, want 403", rec.Code)
	}

	rec = doRequest(router, http.MethodDelete, "/api/requests/r1", bearerToken(t, "admin", model.RoleSuperAdmin), "")
	if rec.Code != http.StatusOK {
		t.Errorf("admin delete: status = %d, want 200", rec.Code)
	}
}

package service

import (
	"context"
	"fmt"
	"testing"

	"procurement-backend/internal/database"
	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// serviceFixture wires the full repository/service stack against an isolated
// in-memory database, one per test.
type serviceFixture struct {
	db       *gorm.DB
	requests repository.RequestRepository
	tenders  repository.TenderRepository
	orders   repository.OrderRepository
	audits   repository.AuditRepository

	workflow WorkflowService
	views    RequestViewService
	tender   TenderService
	order    OrderService
	user     UserService
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return &serviceFixture{
		db:       db,
		requests: requestRepo,
		tenders:  tenderRepo,
		orders:   orderRepo,
		audits:   auditRepo,
		workflow: NewWorkflowService(requestRepo, auditRepo, txm, nil),
		views:    NewRequestViewService(requestRepo),
		tender:   NewTenderService(tenderRepo, requestRepo, auditRepo, txm),
		order:    NewOrderService(orderRepo, tenderRepo, auditRepo, txm),
		user:     NewUserService(userRepo, auditRepo, txm),
	}
}

func (f *serviceFixture) seedUser(t *testing.T, name, role string) *model.User {
	t.Helper()
	user := &model.User{
		FullName: name,
		Email:    fmt.Sprintf("%s@example.test", uuid.NewString()),
		Password: "not-a-real-hash",
		Role:     role,
		IsActive: true,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return user
}

func intPtr(v int) *int { return &v }

// createRequest opens a request through the workflow service on behalf of the
// given department head.
func (f *serviceFixture) createRequest(t *testing.T, requester *model.User) RequestResponse {
	t.Helper()
	resp, err := f.workflow.CreateRequest(context.Background(), CreateRequestDTO{
		Category:            "Furniture",
		SubCategory:         "Seating",
		Title:               "Chairs",
		Reason:              "stock insufficient for lecture halls",
		ColorPickup:         "Black",
		CurrentItemCount:    intPtr(10),
		DamagedItemCount:    intPtr(4),
		NewItemRequestCount: intPtr(20),
		RequestedUserID:     requester.ID.String(),
		RequestedUserRole:   requester.Role,
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	return resp
}

// approveThrough advances the request through every stage up to and including
// the given stage, using a fresh approver per stage.
func (f *serviceFixture) approveThrough(t *testing.T, requestID, lastStage string) RequestResponse {
	t.Helper()
	var resp RequestResponse
	for _, stage := range []string{model.StageLogistics, model.StageWarehouse, model.StageRector, model.StageProcurement} {
		approver := f.seedUser(t, "approver "+stage, stage)
		var err error
		resp, err = f.workflow.Advance(context.Background(), requestID, stage, approver.ID.String(), true, "")
		if err != nil {
			t.Fatalf("Advance at %s failed: %v", stage, err)
		}
		if stage == lastStage {
			break
		}
	}
	return resp
}

func (f *serviceFixture) countAuditLogs(t *testing.T, action string) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&model.AuditLog{}).Where("action = ?", action).Count(&count).Error; err != nil {
		t.Fatalf("failed to count audit logs: %v", err)
	}
	return count
}

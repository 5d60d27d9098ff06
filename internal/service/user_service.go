package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"
	"procurement-backend/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type RegisterUserRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Role        string `json:"role" binding:"required"`
	Department  string `json:"department"`
	CompanyName string `json:"company_name"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ApproveUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type TokenResponse struct {
	Token string               `json:"token"`
	User  UserDetailedResponse `json:"user"`
}

type UserDetailedResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Department  string `json:"department,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserDetailedResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserDetailedResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserDetailedResponse, int64, error)
	ListPendingUsers(ctx context.Context) ([]UserDetailedResponse, error)
	ApproveUser(ctx context.Context, approverID string, req ApproveUserRequest) (*UserDetailedResponse, error)
}

type userService struct {
	repo   repository.UserRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
}

func NewUserService(repo repository.UserRepository, audits repository.AuditRepository, txm repository.TransactionManager) UserService {
	return &userService{repo: repo, audits: audits, txm: txm}
}

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) *UserDetailedResponse {
	return &UserDetailedResponse{
		ID:          user.ID.String(),
		FullName:    user.FullName,
		Email:       user.Email,
		Role:        user.Role,
		Department:  user.Department,
		CompanyName: user.CompanyName,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates an inactive account. A Super Admin must approve it before
// the first login succeeds.
func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserDetailedResponse, error) {
	if !model.IsValidRole(req.Role) {
		return nil, apperror.Validation("invalid role %q", req.Role)
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Role:        req.Role,
		Department:  req.Department,
		CompanyName: req.CompanyName,
		IsActive:    false,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, err
	}

	return mapToUserResponse(user), nil
}

// Login authenticates by email/password and issues a JWT. Inactive accounts
// are turned away until a Super Admin approves them.
func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	if !user.IsActive {
		return nil, apperror.Conflict("account is awaiting approval")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{Token: tokenString, User: *mapToUserResponse(user)}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserDetailedResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserDetailedResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserDetailedResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) ListPendingUsers(ctx context.Context) ([]UserDetailedResponse, error) {
	users, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]UserDetailedResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}
	return responses, nil
}

// ApproveUser activates a pending account.
func (s *userService) ApproveUser(ctx context.Context, approverID string, req ApproveUserRequest) (*UserDetailedResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, apperror.Validation("invalid user_id")
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(approverID); parseErr == nil {
		actor = &parsed
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, actErr := s.repo.Activate(txCtx, userID)
		if actErr != nil {
			return actErr
		}
		if rows == 0 {
			if _, findErr := s.repo.GetByID(txCtx, userID); errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("user %s not found", req.UserID)
			}
			return apperror.Conflict("user is already active")
		}

		details, _ := json.Marshal(map[string]interface{}{"user_id": userID.String()})
		return s.audits.Create(txCtx, &model.AuditLog{
			UserID:   actor,
			Action:   model.ActionApproveUser,
			EntityID: userID.String(),
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

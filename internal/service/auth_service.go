package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type authStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	FindByStaffID(ctx context.Context, staffID string) (*models.Staff, error)
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)
	Create(ctx context.Context, staff *models.Staff) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type authStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiry     time.Duration
	Issuer     string
	BcryptCost int
}

// AuthService issues and verifies bearer tokens and resolves identities.
type AuthService struct {
	staff      authStaffRepository
	students   authStudentRepository
	audit      auditWriter
	authorizer *rbac.Authorizer
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(staff authStaffRepository, students authStudentRepository, audit auditWriter, authorizer *rbac.Authorizer, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.Expiry <= 0 {
		config.Expiry = 30 * 24 * time.Hour
	}
	return &AuthService{
		staff:      staff,
		students:   students,
		audit:      audit,
		authorizer: authorizer,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates a staff member or a student and issues a token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	var identity *models.Identity
	var err error
	switch req.UserType {
	case models.KindStaff:
		identity, err = s.loginStaff(ctx, req)
	case models.KindStudent:
		identity, err = s.loginStudent(ctx, req)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "userType must be staff or student")
	}
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	token, err := s.generateToken(identity, issuedAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	if identity.IsStaff() {
		if err := s.staff.UpdateLastLogin(ctx, identity.ID(), issuedAt); err != nil {
			s.logger.Warn("failed to update last login", zap.Error(err))
		}
	}

	entry := models.NewAuditLog(identity, models.AuditActionLogin, "auth", identity.ID())
	entry.IPAddress = req.IP
	entry.UserAgent = req.UserAgent
	s.writeAudit(ctx, entry, nil, map[string]string{"status": "success", "kind": string(identity.Kind)})

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		IssuedAt:  issuedAt,
		User:      models.NewUserInfo(identity, s.authorizer.EffectivePermissions(identity)),
	}, nil
}

func (s *AuthService) loginStaff(ctx context.Context, req dto.LoginRequest) (*models.Identity, error) {
	var staff *models.Staff
	var err error
	if strings.Contains(req.Identifier, "@") {
		staff, err = s.staff.FindByEmail(ctx, req.Identifier)
	} else {
		staff, err = s.staff.FindByStaffID(ctx, req.Identifier)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, appErrors.Internal(err, "failed to fetch staff")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalidCredentials()
	}
	if !staff.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	return models.NewStaffIdentity(staff), nil
}

func (s *AuthService) loginStudent(ctx context.Context, req dto.LoginRequest) (*models.Identity, error) {
	student, err := s.students.FindByStudentID(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, appErrors.Internal(err, "failed to fetch student")
	}

	// A student's credential is their own student ID.
	if req.Password != student.StudentID {
		return nil, invalidCredentials()
	}
	if !student.Enrolled() {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student is not currently enrolled")
	}
	return models.NewStudentIdentity(student), nil
}

// Register creates a staff account. Students cannot self-register.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.UserInfo, error) {
	if req.UserType != models.KindStaff {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only staff accounts can be registered")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	role := req.Role
	if role == "" {
		role = models.RoleTeacher
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	staff := &models.Staff{
		StaffID:      strings.TrimSpace(req.StaffID),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Department:   req.Department,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "staff ID or email already registered")
		}
		return nil, appErrors.Internal(err, "failed to create staff")
	}

	identity := models.NewStaffIdentity(staff)
	entry := models.NewAuditLog(identity, models.AuditActionStaffRegister, "staff", staff.ID)
	s.writeAudit(ctx, entry, nil, map[string]string{"staff_id": staff.StaffID, "role": string(staff.Role)})

	info := models.NewUserInfo(identity, s.authorizer.EffectivePermissions(identity))
	return &info, nil
}

// Me describes the authenticated identity.
func (s *AuthService) Me(identity *models.Identity) (*models.UserInfo, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	info := models.NewUserInfo(identity, s.authorizer.EffectivePermissions(identity))
	return &info, nil
}

// ChangePassword replaces a staff member's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, identity *models.Identity, req dto.ChangePasswordRequest) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}
	if !identity.IsStaff() {
		return appErrors.Clone(appErrors.ErrInvalidInput, "students cannot change their password")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	staff, err := s.staff.FindByID(ctx, identity.ID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return appErrors.Internal(err, "failed to load staff")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidInput, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.staff.UpdatePassword(ctx, staff.ID, string(hash), s.now()); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}

	s.writeAudit(ctx, models.NewAuditLog(identity, models.AuditActionPasswordChange, "staff", staff.ID), nil, nil)
	return nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// ResolveIdentity loads the account named by a token. A missing record, an
// unknown kind or a deactivated staff account is Unauthenticated.
func (s *AuthService) ResolveIdentity(ctx context.Context, kind models.IdentityKind, id string) (*models.Identity, error) {
	switch kind {
	case models.KindStaff:
		staff, err := s.staff.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "account no longer exists")
			}
			return nil, appErrors.Internal(err, "failed to resolve identity")
		}
		if !staff.Active {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "account is inactive")
		}
		return models.NewStaffIdentity(staff), nil
	case models.KindStudent:
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "account no longer exists")
			}
			return nil, appErrors.Internal(err, "failed to resolve identity")
		}
		return models.NewStudentIdentity(student), nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "unknown account type")
}

// Authenticate validates a token and resolves its identity in one step.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.ResolveIdentity(ctx, claims.Kind, claims.UserID)
}

func (s *AuthService) generateToken(identity *models.Identity, issuedAt time.Time) (string, error) {
	claims := &models.Claims{
		UserID: identity.ID(),
		Kind:   identity.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   identity.ID(),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

func (s *AuthService) writeAudit(ctx context.Context, entry *models.AuditLog, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	if err := entry.SetValues(oldValues, newValues); err != nil {
		s.logger.Warn("failed to encode audit values", zap.String("action", entry.Action), zap.Error(err))
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func invalidCredentials() error {
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
}

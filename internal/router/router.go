package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth       *handler.AuthHandler
	Permission *handler.PermissionHandler
	Assignment *handler.AssignmentHandler
	Submission *handler.SubmissionHandler
	Grade      *handler.GradeHandler
	Student    *handler.StudentHandler
	Class      *handler.ClassHandler
	Websocket  *handler.WebsocketHandler
	Metrics    *handler.MetricsHandler
}

// Deps carries the cross-cutting collaborators of the middleware chain.
// RateLimiter and Audit may be nil.
type Deps struct {
	Config        *config.Config
	Logger        *zap.Logger
	Authenticator middleware.Authenticator
	Authorizer    *rbac.Authorizer
	Metrics       *service.MetricsService
	RateLimiter   *service.RateLimitService
	Audit         middleware.AuditWriter
}

// New builds the gin engine with every route of the API.
func New(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/ws", h.Websocket.Connect)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}

	authz := deps.Authorizer
	authn := middleware.Authenticate(deps.Authenticator)
	staff := middleware.RequireRoles(models.StaffRoles()...)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleDirector)
	audit := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource, idParam)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.GET("/me", authn, h.Auth.Me)
		auth.PUT("/password", authn, h.Auth.ChangePassword)
	}

	permissions := api.Group("/permissions", authn)
	{
		catalogue := middleware.RequireAnyPermission(authz, rbac.PermSystemAdmin, rbac.PermUserManageRoles)
		permissions.GET("", catalogue, h.Permission.Catalogue)
		permissions.GET("/roles", catalogue, h.Permission.Roles)
		permissions.GET("/me", h.Permission.Me)
		permissions.POST("/check", h.Permission.Check)
		permissions.PUT("/users/:id/role", middleware.RequirePermission(authz, rbac.PermUserManageRoles), h.Permission.UpdateRole)
		permissions.GET("/users/:id/role-history", h.Permission.RoleHistory)
	}

	learning := api.Group("/learning", authn)
	{
		learning.GET("/assignments", h.Assignment.List)
		learning.GET("/assignments/:id", h.Assignment.Get)
		learning.POST("/assignments", staff, audit(models.AuditActionCreate, "assignment", ""), h.Assignment.Create)
		learning.PUT("/assignments/:id", staff, audit(models.AuditActionUpdate, "assignment", "id"), h.Assignment.Update)
		learning.DELETE("/assignments/:id", staff, audit(models.AuditActionDelete, "assignment", "id"), h.Assignment.Delete)
		learning.POST("/assignments/:id/publish", staff, audit(models.AuditActionUpdate, "assignment", "id"), h.Assignment.Publish)
		learning.GET("/assignments/:id/submissions", staff, h.Assignment.ListSubmissions)
		learning.POST("/assignments/:id/submit", middleware.RequireRoles(models.RoleStudent), h.Submission.Submit)
		learning.GET("/submissions/:submissionId", h.Submission.Get)
	}

	assignments := api.Group("/assignments", authn, staff)
	{
		assignments.PUT("/submissions/:submissionId/grade", middleware.RequirePermission(authz, rbac.PermAssignmentsGrade), h.Submission.Grade)
	}

	grades := api.Group("/grades", authn)
	{
		own := middleware.RequireOwnResource(models.KindStudent, "id")
		grades.GET("/students/:id", own, h.Grade.ListByStudent)
		grades.GET("/students/:id/export", own, h.Grade.Export)
	}

	students := api.Group("/students", authn)
	{
		manage := middleware.RequirePermission(authz, rbac.PermStudentsManage)
		students.POST("", managers, manage, h.Student.Create)
		students.GET("/:id", middleware.RequireOwnResource(models.KindStudent, "id"), h.Student.Get)
		students.PUT("/:id/status", manage, h.Student.UpdateStatus)
		students.DELETE("/:id", manage, h.Student.Delete)
	}

	classes := api.Group("/classes", authn)
	{
		classes.POST("", managers, middleware.RequirePermission(authz, rbac.PermScheduleManage), h.Class.Create)
		classes.GET("/:id", h.Class.Get)
	}

	return r
}

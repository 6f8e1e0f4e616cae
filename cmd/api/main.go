package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sgacad/sgacad-api/api/swagger"
	"github.com/sgacad/sgacad-api/internal/handler"
	"github.com/sgacad/sgacad-api/internal/middleware"
	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/repository"
	"github.com/sgacad/sgacad-api/internal/service"
	"github.com/sgacad/sgacad-api/pkg/cache"
	"github.com/sgacad/sgacad-api/pkg/config"
	"github.com/sgacad/sgacad-api/pkg/database"
	"github.com/sgacad/sgacad-api/pkg/logger"
	corsmiddleware "github.com/sgacad/sgacad-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sgacad/sgacad-api/pkg/middleware/requestid"
)

// @title SGACAD API
// @version 1.0.0
// @description Academic records API: disciplines, sections and enrollments
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)
		}
	}
	if cacheSvc == nil {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Catalog.CacheTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	authSvc := service.NewAuthService(userRepo, professorRepo, studentRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	professorSvc := service.NewProfessorService(professorRepo, nil, logr)
	disciplineSvc := service.NewDisciplineService(disciplineRepo, cacheSvc, nil, logr)
	sectionSvc := service.NewSectionService(sectionRepo, disciplineRepo, professorRepo, cacheSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, userRepo, cacheSvc, metricsSvc, logr)
	catalogSvc := service.NewCatalogService(sectionSvc, disciplineSvc, cacheSvc, logr)
	exportSvc := service.NewExportService(sectionSvc, service.ExportConfig{
		Enabled:  cfg.Exports.Enabled,
		MaxRows:  cfg.Exports.MaxRows,
		Timezone: cfg.Exports.Timezone,
	}, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	professorHandler := handler.NewProfessorHandler(professorSvc, sectionSvc)
	disciplineHandler := handler.NewDisciplineHandler(disciplineSvc, catalogSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc, catalogSvc, exportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/validate", authHandler.Validate)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
	}

	students := api.Group("/students", middleware.JWT(authSvc))
	{
		students.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor), studentHandler.List)
		students.GET("/:id", middleware.RBAC("ADMIN", "PROFESSOR", "SELF"), studentHandler.Get)
		students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Update)
		students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Delete)
		students.GET("/:id/enrollments", middleware.RBAC("ADMIN", "SELF"), studentHandler.Enrollments)
		students.GET("/:id/available-sections", middleware.RBAC("ADMIN", "SELF"), studentHandler.AvailableSections)
	}

	professors := api.Group("/professors", middleware.JWT(authSvc))
	{
		professors.GET("", professorHandler.List)
		professors.GET("/:id", professorHandler.Get)
		professors.PUT("/:id", middleware.RBAC("ADMIN", "SELF"), professorHandler.Update)
		professors.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), professorHandler.Delete)
		professors.GET("/:id/sections", professorHandler.Sections)
	}

	disciplines := api.Group("/disciplines", middleware.JWT(authSvc))
	{
		disciplines.GET("", disciplineHandler.List)
		disciplines.GET("/:id", disciplineHandler.Get)
		disciplines.GET("/:id/sections", disciplineHandler.Sections)
		disciplines.POST("", middleware.RequireRoles(models.RoleAdmin), disciplineHandler.Create)
		disciplines.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), disciplineHandler.Update)
		disciplines.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), disciplineHandler.Delete)
	}

	sections := api.Group("/sections", middleware.JWT(authSvc))
	{
		sections.GET("", sectionHandler.List)
		sections.GET("/:id", sectionHandler.Get)
		sections.POST("", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionSectionCreate, "sections"), sectionHandler.Create)
		sections.PUT("/:id", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionSectionUpdate, "sections"), sectionHandler.Update)
		sections.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionSectionDelete, "sections"), sectionHandler.Delete)
		sections.GET("/:id/students", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor), sectionHandler.Roster)
		sections.GET("/:id/roster/export", middleware.RequireRoles(models.RoleAdmin, models.RoleProfessor), sectionHandler.ExportRoster)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	{
		enrollments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), enrollmentHandler.Create)
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/available", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Available)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), enrollmentHandler.Cancel)
	}

	metrics := api.Group("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		metrics.GET("/snapshot", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

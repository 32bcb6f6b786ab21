package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"kpi-service/internal/cache"
	"kpi-service/internal/config"
	"kpi-service/internal/events"
	"kpi-service/internal/handlers"
	"kpi-service/internal/jobs"
	"kpi-service/internal/middleware"
	"kpi-service/internal/models"
	"kpi-service/internal/repository"
	"kpi-service/internal/seeders"
	"kpi-service/internal/services"
)

// @title KPI Service API
// @version 1.0
// @description Performance KPI management with a two-level approval workflow
// @BasePath /api/v1
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.OrgUnit{},
		&models.Cycle{},
		&models.KpiTemplate{},
		&models.KpiDefinition{},
		&models.KpiActual{},
		&models.Approval{},
		&models.Notification{},
		&models.ChangeRequest{},
		&models.ProxyAction{},
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	if err := seeders.SeedTemplates(db, logger); err != nil {
		logger.WithError(err).Error("Failed to seed KPI templates")
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, "kpi-service", logger)
		if err != nil {
			logger.WithError(err).Warn("NATS unavailable, workflow events disabled")
		} else {
			err = publisher.EnsureStream([]string{"kpi.>", "actual.>", "approval.>", "cycle.>", "change.>", "entity.>"})
			if err != nil {
				logger.WithError(err).Warn("Failed to ensure workflow stream")
			}
			defer publisher.Close()
		}
	}

	cycleCache := cache.NewCycleCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CycleCacheTTL)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	kpiRepo := repository.NewKpiRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	// Services
	notificationService := services.NewNotificationService(notificationRepo, logger)
	kpiService := services.NewKpiService(kpiRepo, cycleRepo, userRepo, templateRepo, logger)
	workflowService := services.NewWorkflowService(kpiRepo, approvalRepo, userRepo, cycleRepo, notificationService, publisher, logger)
	cycleService := services.NewCycleService(cycleRepo, userRepo, kpiService, cycleCache, notificationService, publisher, logger)
	adminService := services.NewAdminService(workflowService, changeRequestRepo, userRepo, notificationService, publisher, logger)
	userService := services.NewUserService(userRepo, logger)
	templateService := services.NewTemplateService(templateRepo, logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	kpiHandler := handlers.NewKpiHandler(kpiService, workflowService)
	approvalHandler := handlers.NewApprovalHandler(workflowService)
	cycleHandler := handlers.NewCycleHandler(cycleService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	userHandler := handlers.NewUserHandler(userService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	adminHandler := handlers.NewAdminHandler(adminService)

	escalationJob := jobs.NewEscalationJob(
		approvalRepo, userRepo, notificationService, publisher, logger,
		cfg.EscalationInterval, cfg.RemindAfter, cfg.EscalateAfter,
	)
	escalationJob.Start()
	defer escalationJob.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		kpis := api.Group("/kpis")
		{
			kpis.POST("", kpiHandler.CreateKpi)
			kpis.GET("", kpiHandler.ListKpis)
			kpis.POST("/from-template", kpiHandler.CreateFromTemplate)
			kpis.GET("/:id", kpiHandler.GetKpi)
			kpis.PUT("/:id", kpiHandler.UpdateKpi)
			kpis.DELETE("/:id", kpiHandler.DeleteKpi)
			kpis.POST("/:id/submit", kpiHandler.SubmitKpi)
			kpis.POST("/:id/shelve", kpiHandler.ShelveKpi)
			kpis.POST("/:id/unshelve", kpiHandler.UnshelveKpi)
		}

		actuals := api.Group("/actuals")
		{
			actuals.POST("", kpiHandler.CreateActual)
			actuals.GET("/:id", kpiHandler.GetActual)
			actuals.PUT("/:id", kpiHandler.UpdateActual)
			actuals.POST("/:id/submit", kpiHandler.SubmitActual)
		}

		api.GET("/scorecard", kpiHandler.GetScorecard)

		approvals := api.Group("/approvals")
		{
			approvals.GET("/pending", approvalHandler.ListPending)
			approvals.POST("/:id/decide", approvalHandler.Decide)
			approvals.POST("/:id/delegate", approvalHandler.Delegate)
			approvals.GET("/:entity_type/:entity_id", approvalHandler.ListForEntity)
		}

		cycles := api.Group("/cycles")
		{
			cycles.GET("", cycleHandler.ListCycles)
			cycles.GET("/active", cycleHandler.GetActiveCycle)
			cycles.GET("/:id", cycleHandler.GetCycle)

			cyclesAdmin := cycles.Group("")
			cyclesAdmin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				cyclesAdmin.POST("", cycleHandler.CreateCycle)
				cyclesAdmin.PUT("/:id", cycleHandler.UpdateCycle)
				cyclesAdmin.POST("/:id/activate", cycleHandler.ActivateCycle)
				cyclesAdmin.POST("/:id/launch", cycleHandler.LaunchCycle)
				cyclesAdmin.POST("/:id/close", cycleHandler.CloseCycle)
				cyclesAdmin.POST("/:id/archive", cycleHandler.ArchiveCycle)
			}
		}

		users := api.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/team", userHandler.GetTeam)
			users.GET("/:id", userHandler.GetUser)

			usersAdmin := users.Group("")
			usersAdmin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				usersAdmin.POST("", userHandler.CreateUser)
				usersAdmin.PUT("/:id", userHandler.UpdateUser)
				usersAdmin.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		orgUnits := api.Group("/org-units")
		{
			orgUnits.GET("", userHandler.ListOrgUnits)
			orgUnits.GET("/:id", userHandler.GetOrgUnit)

			orgUnitsAdmin := orgUnits.Group("")
			orgUnitsAdmin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				orgUnitsAdmin.POST("", userHandler.CreateOrgUnit)
				orgUnitsAdmin.PUT("/:id", userHandler.UpdateOrgUnit)
				orgUnitsAdmin.DELETE("/:id", userHandler.DeleteOrgUnit)
			}
		}

		templates := api.Group("/templates")
		{
			templates.GET("", templateHandler.ListTemplates)
			templates.GET("/:id", templateHandler.GetTemplate)

			templatesAdmin := templates.Group("")
			templatesAdmin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				templatesAdmin.POST("", templateHandler.CreateTemplate)
				templatesAdmin.PUT("/:id", templateHandler.UpdateTemplate)
				templatesAdmin.DELETE("/:id", templateHandler.DeleteTemplate)
			}
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.CountUnread)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		changeRequests := api.Group("/change-requests")
		{
			changeRequests.GET("", adminHandler.ListMyChangeRequests)
			changeRequests.POST("/:id/resolve", adminHandler.ResolveChangeRequest)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/return-to-staff", adminHandler.ReturnToStaff)
			admin.POST("/approvals/:id/decide", adminHandler.DecideAsApprover)
			admin.POST("/approvals/:id/reassign", adminHandler.ReassignApprover)
			admin.POST("/change-requests", adminHandler.IssueChangeRequest)
			admin.GET("/proxy-actions", adminHandler.ListProxyActions)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting KPI service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server exited")
}

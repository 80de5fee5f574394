package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/IvanYuichiC/etab-flow-sign/internal/api"
	"github.com/IvanYuichiC/etab-flow-sign/internal/config"
	"github.com/IvanYuichiC/etab-flow-sign/internal/db"
	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/IvanYuichiC/etab-flow-sign/internal/utils"
	"github.com/IvanYuichiC/etab-flow-sign/internal/workflow"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/logger"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.InitializeDefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	if err := seedDatabase(database, zapLogger); err != nil {
		zapLogger.Fatal("Failed to seed database", zap.Error(err))
	}

	sessions := services.NewSessionStore(cfg.Security.SessionTimeout, zapLogger, metricsCollector)
	defer sessions.Close()

	docService := services.NewDocumentService(database, zapLogger, metricsCollector, cfg.Workflow.DocumentCodePrefix)
	store := workflow.NewGormStore(database)
	engine := workflow.NewEngine(store, zapLogger, metricsCollector, cfg.Workflow.MaxSignRetries)

	router := api.NewRouter(zapLogger, metricsCollector, sessions, docService, engine, database)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}

func seedDatabase(database *gorm.DB, logger *zap.Logger) error {
	var count int64
	database.Model(&models.User{}).Count(&count)
	if count > 0 {
		logger.Info("Database already seeded, skipping")
		return nil
	}
	logger.Info("Seeding database with initial data")

	// Default password for all seeded accounts; change on first login.
	seedHash, err := utils.EncryptPassword("changeme123")
	if err != nil {
		return err
	}

	users := []models.User{
		{Username: "admin", Email: "admin@tubigon.gov.ph", PasswordHash: seedHash, Role: models.RoleAdmin, FullName: "System Administrator", Position: "Administrator", Department: "MIS", ActiveStatus: true},
		{Username: "mayor", Email: "mayor@tubigon.gov.ph", PasswordHash: seedHash, Role: models.RoleStaff, FullName: "Office of the Mayor", Position: "Municipal Mayor", Department: "Executive", ActiveStatus: true},
		{Username: "treasurer", Email: "treasurer@tubigon.gov.ph", PasswordHash: seedHash, Role: models.RoleStaff, FullName: "Municipal Treasurer", Position: "Treasurer", Department: "Treasury", ActiveStatus: true},
		{Username: "accountant", Email: "accountant@tubigon.gov.ph", PasswordHash: seedHash, Role: models.RoleStaff, FullName: "Municipal Accountant", Position: "Accountant", Department: "Accounting", ActiveStatus: true},
		{Username: "hr", Email: "hr@tubigon.gov.ph", PasswordHash: seedHash, Role: models.RoleStaff, FullName: "Human Resources", Position: "HR Officer", Department: "HR", ActiveStatus: true},
	}

	if err := database.Create(&users).Error; err != nil {
		return err
	}
	logger.Info("Created initial users", zap.Int("count", len(users)))

	return nil
}

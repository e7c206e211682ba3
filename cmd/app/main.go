package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/config"
	"github.com/Iqrapath/IqraQuest-sub002/internal/db"
	"github.com/Iqrapath/IqraQuest-sub002/internal/earnings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/escrow"
	"github.com/Iqrapath/IqraQuest-sub002/internal/logger"
	"github.com/Iqrapath/IqraQuest-sub002/internal/notification"
	"github.com/Iqrapath/IqraQuest-sub002/internal/server"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/subject"
	"github.com/Iqrapath/IqraQuest-sub002/internal/user"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"
)

// @title IqraQuest API
// @version 1.0
// @description API for the IqraQuest tutoring marketplace: wallets, bookings and escrow.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting IqraQuest application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	userRepo := user.NewRepository(database)
	subjectRepo := subject.NewRepository(database)
	settingsRepo := settings.NewRepository(database, settings.DefaultWithPolicy(
		cfg.DisputeWindowHours,
		cfg.MinCompletionPercent,
		cfg.NoShowTeacherPercent,
		cfg.NoShowWaitMinutes,
	))
	earningsRepo := earnings.NewRepository(database)
	walletRepo := wallet.NewRepository(database, cfg.DefaultCurrency)
	bookingRepo := booking.NewRepository(database)
	escrowRepo := escrow.NewRepository(database)

	notifications := notification.New(
		userRepo,
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.RedisAddr,
	)
	defer notifications.Close()
	logger.Info("Notification service initialized")

	walletSvc := wallet.NewService(walletRepo, settingsRepo)
	escrowSvc := escrow.NewService(
		escrowRepo,
		bookingRepo,
		settingsRepo,
		notifications,
		time.Duration(cfg.ReleaseSweepTimeoutSeconds)*time.Second,
	)
	bookingSvc := booking.NewService(
		bookingRepo,
		userRepo,
		subjectRepo,
		settingsRepo,
		escrowSvc,
		notifications,
		cfg.DefaultCurrency,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifications.Start(ctx)

	// Scheduled release of held funds once their dispute window passes.
	go func() {
		interval := time.Duration(cfg.ReleaseSweepIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := escrowSvc.ProcessEligibleReleases(ctx); err != nil {
					logger.Errorf("Release sweep error: %v", err)
				}
			}
		}
	}()

	srv := server.New(server.Deps{
		DB:            database,
		Config:        cfg,
		Notifications: notifications,
		Users:         userRepo,
		Settings:      settingsRepo,
		Wallets:       walletSvc,
		Bookings:      bookingSvc,
		Escrow:        escrowSvc,
		Earnings:      earningsRepo,
		Subjects:      subjectRepo,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

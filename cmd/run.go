package cmd

import (
	"context"
	"fmt"
	"time"

	"sweetbank/config"
	"sweetbank/database"
	"sweetbank/events"
	"sweetbank/realtime"
	"sweetbank/repository"
	"sweetbank/service"
	"sweetbank/workers"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting sweetbank...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize realtime publisher when NATS is configured
	var natsClient *realtime.NATSClient
	if cfg.NATSURL != "" {
		log.Info("Connecting to NATS...")
		natsClient = realtime.NewNATSClient(cfg.NATSURL)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if err := natsClient.EnsureEconomyStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		realtime.NewPublisher(natsClient).Attach(eventBus)
	} else {
		log.Warn("NATS_URL not set, realtime events disabled")
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// This binary runs the scheduled jobs; the transaction-facing
	// services are constructed by the application embedding this
	// module on the same factory.
	log.Info("Initializing services...")
	treasuryService := service.NewTreasuryService(uowFactory, cfg.TreasuryLowThreshold)
	reconciliationService := service.NewReconciliationService(uowFactory)
	log.Info("Services initialized successfully")

	// Start background workers
	stopTreasuryReset := workers.NewTreasuryResetWorker(treasuryService).
		Start(ctx, cfg.TreasuryResetHour)
	defer stopTreasuryReset()

	stopReconciliation := workers.NewReconciliationWorker(reconciliationService, cfg.ReconcileCorrective).
		Start(ctx, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute)
	defer stopReconciliation()

	// Wait for context cancellation
	log.Infof("sweetbank is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}

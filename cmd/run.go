package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"bety/config"
	"bety/database"
	"bety/events"
	"bety/realtime"
	"bety/repository"
	"bety/service"
	"bety/storage"
)

// Services bundles the application's service layer for an embedding client
type Services struct {
	Auth      service.AuthService
	Profiles  service.ProfileService
	Bets      service.BetService
	Favorites service.FavoriteService
	Wallets   service.WalletService
	Chats     service.ChatService
}

// BuildServices wires the full service layer on top of a database connection
func BuildServices(db *database.DB, eventBus *events.Bus, cfg *config.Config) (*Services, error) {
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	blobs, err := storage.NewLocalStore(cfg.AvatarDir, cfg.AvatarBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize avatar storage: %w", err)
	}

	return &Services{
		Auth:      service.NewAuthService(uowFactory, eventBus, cfg),
		Profiles:  service.NewProfileService(uowFactory, blobs, cfg),
		Bets:      service.NewBetService(uowFactory, cfg),
		Favorites: service.NewFavoriteService(uowFactory, cfg),
		Wallets:   service.NewWalletService(uowFactory),
		Chats:     service.NewChatService(uowFactory, eventBus, cfg),
	}, nil
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting bety...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus and services
	eventBus := events.NewBus()
	services, err := BuildServices(db, eventBus, cfg)
	if err != nil {
		return err
	}
	log.Println("Services initialized successfully")

	// Settle anything a crash left half-closed before taking traffic
	repaired, err := services.Bets.RepairSettlements(ctx)
	if err != nil {
		return fmt.Errorf("failed to repair settlements: %w", err)
	}
	if repaired > 0 {
		log.Printf("Repaired %d interrupted settlements", repaired)
	}

	// Connect the cross-node relay when NATS is configured; a single node
	// runs fine on the local bus alone
	var relay *realtime.Relay
	var natsClient *realtime.Client
	if cfg.NATSURL != "" {
		natsClient, err = realtime.Connect(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		relay = realtime.NewRelay(eventBus, natsClient)
		if err := relay.Start(); err != nil {
			natsClient.Close()
			return fmt.Errorf("failed to start realtime relay: %w", err)
		}
	}

	// Periodic repair catches settlements interrupted while running
	repairTicker := time.NewTicker(time.Minute)
	defer repairTicker.Stop()
	go func() {
		for {
			select {
			case <-repairTicker.C:
				if _, err := services.Bets.RepairSettlements(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Settlement repair failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for context cancellation
	log.Printf("bety is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")

	if relay != nil {
		relay.Stop()
	}
	if natsClient != nil {
		natsClient.Close()
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

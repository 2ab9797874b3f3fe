package main

import (
	"github.com/xaenox/support-bot/internal/bot"
	"github.com/xaenox/support-bot/internal/storage"
	"github.com/xaenox/support-bot/internal/support"
	"github.com/xaenox/support-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var persister storage.Persister
	if cfg.Database.Backend == "postgres" {
		logger.Info("Using PostgreSQL snapshot storage")
		persister, err = storage.NewPostgresPersister(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	} else {
		logger.Info("Using file snapshot storage", zap.String("file", cfg.Database.File))
		persister = storage.NewFilePersister(cfg.Database.File)
	}

	store, err := storage.New(persister, logger)
	if err != nil {
		logger.Fatal("Failed to load state", zap.Error(err))
	}
	defer store.Close()

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, support.Config{
		StaffChatID: cfg.Telegram.SupportChatID,
		OwnerID:     cfg.Telegram.OwnerID,
		LogThreadID: cfg.Telegram.LogThreadID,
	}, store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/bot"
	"github.com/ShneWtf/cafe-delivery-bot/internal/db"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/server"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

func main() {
	// Initialize logger
	l := logger.New()
	l.Info("Starting Cafe Delivery Bot...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		l.Fatal("Invalid configuration", err)
	}

	// Initialize database connection with retry
	var database *db.PostgresDB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg)
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer database.Close()

	// Create schema and seed the director row
	if err := database.InitSchema(context.Background(), cfg.Telegram.DirectorID); err != nil {
		l.Fatal("Failed to initialize database schema", err)
	}

	svc := domain.New(database, cfg, l)

	// Create and start bot
	telegramBot, err := bot.NewTelegramBot(cfg, svc, l)
	if err != nil {
		l.Fatal("Failed to create Telegram bot", err)
	}

	l.Info("Starting Telegram bot...")
	if err := telegramBot.Start(context.Background()); err != nil {
		l.Fatal("Failed to start Telegram bot", err)
	}
	l.Info("Telegram bot started successfully")

	// Start mini-app API server
	httpServer := server.NewServer(cfg.Server.Port, svc, telegramBot, l)
	go func() {
		l.Info("Starting HTTP server...")
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Stop HTTP server first
	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}

	// Then stop bot
	if err := telegramBot.Stop(ctx); err != nil {
		l.Error("Error during bot shutdown", err)
	}

	l.Info("Bot stopped successfully")
}

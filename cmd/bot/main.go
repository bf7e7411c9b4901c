package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet_care_bot/internal/app"
	"pet_care_bot/internal/infra/config"
	idb "pet_care_bot/internal/infra/database"
	"pet_care_bot/internal/infra/logger"
	"pet_care_bot/internal/infra/telegram"
	"pet_care_bot/internal/notify"
	"pet_care_bot/internal/registry"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.Environment)
	appLogger.WithField("environment", cfg.Environment).Info("PetCareBot starting")

	location, err := cfg.Location()
	if err != nil {
		appLogger.WithError(err).Fatal("Could not resolve configured timezone")
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		appLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	appLogger.Info("Database connection established successfully")

	// Initialize Repositories
	ownerRepo := idb.NewPostgresOwnerRepository(db)
	petRepo := idb.NewPostgresPetRepository(db)
	feedingRepo := idb.NewPostgresFeedingRepository(db)
	appLogger.Info("Repositories initialized")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := appLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		appLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize Dispatcher and Job Registry
	dispatcher := notify.NewDispatcher(
		telegram.NewTelebotAdapter(bot),
		appLogger.WithField("component", "dispatcher"),
	)
	jobRegistry := registry.New(
		dispatcher,
		appLogger.WithField("component", "registry"),
		cfg.GraceWindow,
		nil,
	)

	// Initialize Services
	reminderService := app.NewReminderService(
		ownerRepo, petRepo, feedingRepo,
		jobRegistry,
		appLogger.WithField("component", "reminder_service"),
		location,
		cfg.VaccinationNotifyHour,
		nil,
	)
	petService := app.NewPetService(
		ownerRepo, petRepo, feedingRepo,
		reminderService,
		appLogger.WithField("component", "pet_service"),
		nil,
	)
	appLogger.Info("Services initialized")

	// Register Handlers
	ctx := context.Background()
	telegram.RegisterBotHandlers(ctx, bot, petService, appLogger.WithField("component", "handlers"))
	appLogger.Info("Chat handlers registered")

	// Start the timer loop and rebuild jobs from the store. The store is the
	// sole source of truth; this is also the only recovery path after a restart.
	jobRegistry.Start()
	report, err := reminderService.RebuildAll(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Initial reminder rebuild failed")
	}
	appLogger.WithFields(logrus.Fields{
		"scheduled": report.Scheduled,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Initial reminder rebuild complete")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()
	appLogger.Info("Application setup complete. Bot and scheduler are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down application...")
	bot.Stop()
	jobRegistry.Stop()
	appLogger.Info("Application shut down gracefully")
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemini-assistant/internal/bot"
	"gemini-assistant/internal/config"
	"gemini-assistant/internal/gemini"
	"gemini-assistant/internal/pdftext"
	"gemini-assistant/internal/repository"
	"gemini-assistant/internal/search"
	"gemini-assistant/internal/service"
)

const cleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	fileRepo := repository.NewFileRepository(db)

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiVisionModel)
	if err != nil {
		log.Fatalf("gemini: %v", err)
	}
	defer geminiClient.Close()

	searchClient := search.NewClient(cfg.SearchURL, cfg.HTTPTimeout)

	assistant := service.NewAssistant(userRepo, chatRepo, fileRepo, geminiClient, searchClient, pdftext.Extractor{})

	telegramBot, err := bot.New(cfg.TelegramToken, assistant, cfg.DownloadDir, cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	cleanup := service.NewCleanupService(cfg.DownloadDir, cfg.DownloadRetention)
	if _, err := cleanup.ScheduleEvery(cleanupInterval); err != nil {
		log.Fatalf("schedule cleanup: %v", err)
	}
	cleanup.Start()
	defer cleanup.Stop()

	log.Println("Gemini assistant bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

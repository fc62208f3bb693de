package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/bot"
	"refurbtracker/internal/config"
	"refurbtracker/internal/notify"
	"refurbtracker/internal/scraper"
	"refurbtracker/internal/server"
	"refurbtracker/internal/storage"
	"refurbtracker/internal/tracker"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.WithFields(logrus.Fields{
		"badgerdb_path": cfg.BadgerDBPath,
		"http_addr":     cfg.HTTPAddr,
		"categories":    len(cfg.CategoryURLs),
	}).Info("Configuration loaded")

	// Database.
	repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	// Browser session, shared across all passes.
	scraperService, err := scraper.NewRodScraper(log)
	if err != nil {
		log.Fatalf("Failed to initialize scraper: %v", err)
	}
	defer func() {
		if err := scraperService.Close(); err != nil {
			log.WithError(err).Error("Error closing scraper")
		}
	}()

	// One bot instance serves both intake polling and outbound pushes.
	tg, err := tgbot.New(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	registry := notify.NewRegistry(log)
	registry.Register(notify.NewTelegramProvider(tg, log))
	if cfg.SMTPHost != "" {
		registry.Register(notify.NewEmailProvider(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Password: cfg.SMTPPassword,
		}, log))
	}

	shortener := notify.NewShortener(log)

	trk := tracker.New(scraperService, repo, registry, cfg.CategoryURLs, log,
		tracker.WithInterval(time.Duration(cfg.TrackIntervalMinutes)*time.Minute),
		tracker.WithShortener(shortener.Shorten),
	)
	defer trk.Close()

	botHandler := bot.NewHandler(tg, repo, trk, log)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(trk, repo, log).Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick tracking back up if it was running before a restart.
	if err := trk.Resume(ctx); err != nil {
		log.WithError(err).Error("Failed to resume tracking state")
	}

	go botHandler.Start(ctx)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	log.Info("Refurb tracker is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Shut down gracefully")
}

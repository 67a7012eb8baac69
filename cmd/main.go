package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/config"
	"github.com/markjakearzadon/homigo-gobackend/internal/db"
	"github.com/markjakearzadon/homigo-gobackend/internal/handlers"
	"github.com/markjakearzadon/homigo-gobackend/internal/middleware"
	"github.com/markjakearzadon/homigo-gobackend/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load .env
	if err := godotenv.Load(".env"); err != nil {
		logger.WithError(err).Warn("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
	}
	if cfg.Gateway.SecretKey == "" {
		logger.Warn("PAYMONGO_SECRET_KEY not set, payment links will fail with a configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.WithError(err).Error("Error disconnecting from MongoDB")
		}
	}()
	logger.Info("Successfully connected to MongoDB")

	database := client.Database(cfg.MongoDB)

	// Initialize services and handlers
	bookingService := services.NewBookingService(database, logger)
	if err := bookingService.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure booking indexes")
	}
	paymongo := services.NewPayMongoClient(cfg.Gateway, logger)
	reservationService := services.NewReservationService(
		bookingService,
		paymongo,
		services.Pricing{NightlyRate: cfg.NightlyRate, Currency: cfg.Gateway.Currency},
		cfg.PublicBaseURL,
		logger,
	)

	gate := middleware.NewOriginGate(cfg.AllowedOrigins)
	auth := middleware.NewAuthenticator(cfg.JWTSecret, logger)
	paymentHandler := handlers.NewPaymentHandler(paymongo, gate, cfg.PublicBaseURL, logger)
	bookingHandler := handlers.NewBookingHandler(reservationService, logger)

	health := func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context(), client); err != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
	handler := newRouter(logger, routes{
		gate:     gate,
		auth:     auth,
		payments: paymentHandler,
		bookings: bookingHandler,
		health:   health,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a reservation can wait out the full gateway timeout
		WriteTimeout: cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Server running")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server stopped")
	}
}

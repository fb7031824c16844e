package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"daan-backend/internal/auth"
	"daan-backend/internal/cache"
	"daan-backend/internal/config"
	"daan-backend/internal/database"
	"daan-backend/internal/db"
	"daan-backend/internal/handlers"
	"daan-backend/internal/health"
	h "daan-backend/internal/http"
	"daan-backend/internal/middleware"
	"daan-backend/internal/notify"
	"daan-backend/internal/receipt"
	"daan-backend/internal/repositories"
	"daan-backend/internal/services"
	"daan-backend/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool)
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis is optional; reads fall through to Postgres when it is down.
	if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password); err != nil {
		log.Printf("[Redis] Cache unavailable, continuing without it: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	entryRepo := repositories.NewEntryRepository(pool)
	advanceRepo := repositories.NewAdvanceRepository(pool)
	txnRepo := repositories.NewTransactionRepository(pool)
	orderRepo := repositories.NewOnlineOrderRepository(pool)
	receiptScanRepo := repositories.NewReceiptScanRepository(pool)

	// Receipt numbers are allocated by rescanning every issued number
	// for the year, so the allocator itself holds no state.
	allocator := receipt.NewAllocator(cfg.Receipt.Prefix, receiptScanRepo)

	jwtManager := auth.NewJWTManager(cfg)

	var notifier notify.Notifier
	if cfg.SMS.APIKey != "" {
		notifier = notify.NewFast2SMSNotifier(cfg.SMS.APIKey)
		log.Println("[Notify] Fast2SMS notifications enabled")
	} else {
		notifier = notify.NewLogNotifier()
		log.Println("[Notify] FAST2SMS_API_KEY not set, logging notifications only")
	}

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	entryService := services.NewEntryService(entryRepo, userRepo, txnRepo, notifier)
	paymentService := services.NewPaymentService(entryRepo, advanceRepo, txnRepo, allocator)
	paymentService.SetNotifier(userRepo, notifier)
	advanceService := services.NewAdvanceService(advanceRepo, userRepo, txnRepo, allocator)
	reportService := services.NewReportService(userRepo, entryRepo)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.WebhookSecret,
		orderRepo,
		entryRepo,
		paymentService,
	)

	proofStore := storage.New(ctx, storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})

	healthChecker := health.NewHealthChecker(pool)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	entryHandler := handlers.NewEntryHandler(entryService, paymentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	advanceHandler := handlers.NewAdvanceHandler(advanceService)
	transactionHandler := handlers.NewTransactionHandler(txnRepo)
	uploadHandler := handlers.NewUploadHandler(proofStore)
	reportHandler := handlers.NewReportHandler(reportService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(
		authHandler,
		userHandler,
		entryHandler,
		paymentHandler,
		advanceHandler,
		transactionHandler,
		uploadHandler,
		reportHandler,
		razorpayHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s (receipt prefix %s)", addr, cfg.Receipt.Prefix)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

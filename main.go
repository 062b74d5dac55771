package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flai/config"
	"flai/cron"
	"flai/database"
	"flai/database/repository"
	"flai/handlers"
	"flai/middleware"
	"flai/routes"
	"flai/services/booking"
	"flai/services/chain"
	"flai/services/circle"
	"flai/services/currency"
	"flai/services/flights"
	ai "flai/services/intelligence"
	"flai/services/messaging"
	"flai/services/payments"
	"flai/services/pdf"
	"flai/services/session"
	"flai/services/settlement"
	"flai/services/storage"
	"flai/services/tasks"
	"flai/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitSettlementCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// collaborator services.
	geminiClient, err := ai.NewGeminiClient(config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize gemini client: %v", err)
	}
	aiSvc := ai.NewDefaultAIService(geminiClient, logger)

	flightGateway := flights.NewGateway(flights.NewAmadeusService(logger), logger)

	chainSvc, err := chain.NewCircleLayerService(logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize circle layer service: %v", err)
	}

	storageSvc, err := storage.NewCloudinaryStorageService()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}
	messenger := messaging.NewDefaultMessenger(storageSvc, logger)

	taskClient := tasks.NewClient()
	defer taskClient.Close()

	bookingRepo := repository.NewMongoBookingRepo()

	// the booking orchestrator.
	bookingSvc := &booking.DefaultBookingService{
		Sessions:    session.NewDefaultStore(),
		Settlements: settlement.NewDefaultTracker(),
		AI:          aiSvc,
		Flights:     flightGateway,
		Chain:       chainSvc,
		Circle:      circle.NewAPIService(logger),
		Checkout:    payments.NewStripeCheckoutService(logger),
		Currency:    currency.NewFrankfurterService(logger),
		PDF:         pdf.NewFPDFRenderer(),
		Messenger:   messenger,
		Tasks:       taskClient,
		Bookings:    bookingRepo,
		Logger:      logger,
	}

	cron.InitBookingWorker(bookingSvc)

	webhookHandler := handlers.NewWebhookHandler(bookingSvc, messenger, logger)
	bookingLookup := handlers.NewBookingLookupHandler(bookingRepo, logger)
	handlerBundle := &handlers.HandlerBundle{
		TelegramWebhookHandler: webhookHandler.TelegramWebhookHandler,
		TwilioWebhookHandler:   webhookHandler.TwilioWebhookHandler,
		StripeWebhookHandler:   webhookHandler.StripeWebhookHandler,
		HealthHandler:          handlers.HealthHandler,
		BookingListHandler:     bookingLookup.ListForUser,
		BookingLookupHandler:   bookingLookup.GetByReference,
	}

	routes.RegisterWebhookRoutes(router, handlerBundle)
	routes.RegisterOpsRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

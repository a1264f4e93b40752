package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/config"
	"github.com/knasante/hostelpay-gobackend/internal/handlers"
	"github.com/knasante/hostelpay-gobackend/internal/logger"
	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/services"
	"github.com/knasante/hostelpay-gobackend/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogPath, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	client, err := store.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		zlog.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			zlog.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	zlog.Info("Connected to MongoDB")

	db := client.Database(cfg.DatabaseName)

	bookings := store.NewBookingStore(db, zlog)
	rooms := store.NewRoomStore(db, zlog)
	hostels := store.NewHostelStore(db)
	users := store.NewUserStore(db)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := bookings.EnsureIndexes(ctx); err != nil {
			zlog.Fatal("Failed to create booking indexes", zap.Error(err))
		}
		cancel()
	}

	gateway := paystack.NewClient(cfg.PaystackSecretKey, "")

	bookingService := services.NewBookingService(
		bookings, rooms, hostels, users, gateway,
		cfg.FrontendURL, cfg.Currency, zlog,
	)
	reconciler := services.NewWebhookReconciler(bookingService, zlog)

	bookingHandler := handlers.NewBookingHandler(bookingService, zlog)
	paymentHandler := handlers.NewPaymentHandler(bookingService, reconciler, zlog)
	auth := handlers.NewAuthMiddleware(cfg.JWTSecret, zlog)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/bookings/initialize-payment", auth.Optional(bookingHandler.InitializePayment)).Methods("POST")
	router.HandleFunc("/api/bookings/mobile-payment", auth.Optional(bookingHandler.MobilePayment)).Methods("POST")
	router.HandleFunc("/api/bookings/complete-checkout-session", auth.Require(bookingHandler.CompleteCheckout)).Methods("POST")
	router.HandleFunc("/api/bookings/complete-mobile-payment", auth.Require(bookingHandler.CompleteMobile)).Methods("POST")
	router.HandleFunc("/api/bookings/{id}/status", auth.Require(bookingHandler.UpdateStatus)).Methods("PUT")
	router.HandleFunc("/api/bookings/{id}", auth.Require(bookingHandler.GetBooking)).Methods("GET")
	router.HandleFunc("/api/students/me/bookings", auth.Require(bookingHandler.ListMyBookings)).Methods("GET")
	router.HandleFunc("/api/hostels/{hostelID}/bookings", auth.Require(bookingHandler.ListHostelBookings)).Methods("GET")

	router.HandleFunc("/api/payments/verify/{reference}", paymentHandler.Verify).Methods("GET")
	router.HandleFunc("/api/payments/completion/verify/{reference}", auth.Require(paymentHandler.VerifyCompletion)).Methods("GET")
	router.HandleFunc("/api/payments/webhook", paymentHandler.Webhook).Methods("POST")

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	zlog.Info("Server running", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

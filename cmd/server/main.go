package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ffarena/backend/docs"
	"github.com/ffarena/backend/internal/database"
	"github.com/ffarena/backend/internal/events"
	"github.com/ffarena/backend/internal/handlers"
	mW "github.com/ffarena/backend/internal/middleware"
	"github.com/ffarena/backend/internal/services"
	"github.com/ffarena/backend/internal/stats"
)

// @title FF Arena Backend API
// @version 1.0
// @description API for tournament wallets, match scoring and prize distribution
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.topic", "KAFKA_TOPIC")

	viper.BindEnv("stats.mirrors", "STATS_MIRRORS")
	viper.BindEnv("stats.timeout", "STATS_TIMEOUT")
	viper.BindEnv("stats.mock", "STATS_MOCK")

	viper.BindEnv("settlement.currency", "SETTLEMENT_CURRENCY")
	viper.BindEnv("settlement.bic", "SETTLEMENT_BIC")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.secret_key", "change-me-in-production")
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "FF Arena Backend API"
	docs.SwaggerInfo.Description = "API for tournament wallets, match scoring and prize distribution"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher()
	if publisher != nil {
		defer publisher.Close()
	}

	statsClient := stats.NewClient(redisClient)

	walletService := services.NewWalletService(db, redisClient, publisher)
	referralService := services.NewReferralService(db, walletService)
	authService := services.NewAuthService(db, redisClient, referralService)
	tournamentService := services.NewTournamentService(db, walletService)
	snapshotService := services.NewSnapshotService(db, statsClient)
	prizeService := services.NewPrizeService(db, walletService)
	settlementService := services.NewSettlementService()
	withdrawalService := services.NewWithdrawalService(db, walletService, settlementService)
	depositService := services.NewDepositService(db, redisClient, walletService)
	payoutChannelService := services.NewPayoutChannelService()

	matchHandler := handlers.NewMatchHandler(tournamentService, snapshotService, prizeService)
	depositHandler := handlers.NewDepositHandler(depositService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for payout channel logos
	r.Handle("/static/channel-logos/*", http.StripPrefix("/static/channel-logos/",
		mW.StaticFileServer("./static/channel-logos")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/tournaments", tournamentService.ListTournaments)
		r.Get("/payout-channels", payoutChannelService.GetPayoutChannels)
		r.Post("/wallet/deposit-qr/confirm", depositHandler.ConfirmDeposit)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)

			// Wallet endpoints
			r.Get("/wallet", walletService.GetWallet)
			r.Post("/wallet/deposit", walletService.Deposit)
			r.Post("/wallet/watch-ad", walletService.WatchAd)
			r.Post("/wallet/deposit-qr", depositHandler.GenerateDepositQR)

			// Tournament endpoints
			r.Get("/tournaments/{id}", tournamentService.GetTournament)
			r.Post("/tournaments/{id}/join", tournamentService.JoinTournament)
			r.Get("/tournaments/{id}/results", tournamentService.ListMatchResults)
			r.Post("/tournaments/{id}/results", tournamentService.SubmitMatchResult)

			// Withdrawal endpoints
			r.Get("/withdrawals", withdrawalService.ListWithdrawals)
			r.Post("/withdrawals", withdrawalService.RequestWithdrawal)

			// Referral endpoints
			r.Get("/referrals", referralService.GetReferralCode)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/admin/tournaments", tournamentService.CreateTournament)
				r.Put("/admin/tournaments/{id}", tournamentService.UpdateTournament)
				r.Delete("/admin/tournaments/{id}", tournamentService.DeleteTournament)
				r.Put("/admin/tournaments/{id}/room", tournamentService.SetRoomDetails)
				r.Get("/admin/tournaments/{id}/registrations", tournamentService.ListRegistrations)

				// Match lifecycle endpoints
				r.Post("/admin/tournaments/{id}/start", matchHandler.StartMatch)
				r.Post("/admin/tournaments/{id}/finalize", matchHandler.FinalizeMatch)
				r.Post("/admin/tournaments/{id}/distribute", matchHandler.DistributePrizes)

				r.Put("/admin/results/{id}", tournamentService.VerifyMatchResult)

				r.Get("/admin/withdrawals", withdrawalService.ListAllWithdrawals)
				r.Put("/admin/withdrawals/{id}/approve", withdrawalService.ApproveWithdrawal)
				r.Put("/admin/withdrawals/{id}/reject", withdrawalService.RejectWithdrawal)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

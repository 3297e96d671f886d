package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymClashAPI/handlers"
	"gymClashAPI/internal/notification"
	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/workers"
	"gymClashAPI/middleware"
	"gymClashAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	store               *storage.PostgresStore
	profileService      *services.ProfileService
	challengeService    *services.ChallengeService
	checkinService      *services.CheckinService
	rescueService       *services.RescueService
	evaluationService   *services.EvaluationService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	store = storage.NewPostgresStore(dbPool)
	if err := store.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	locks := services.NewChallengeLocker()

	notificationService = services.NewNotificationService(store)
	profileService = services.NewProfileService(store)
	challengeService = services.NewChallengeService(store)
	checkinService = services.NewCheckinService(store)
	rescueService = services.NewRescueService(store, locks)
	evaluationService = services.NewEvaluationService(store, locks, notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	workers.StartEvaluationWorker(workerCtx, evaluationService)
	workers.StartReminderWorker(workerCtx, evaluationService)

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(profileService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	checkinHandler := handlers.NewCheckinHandler(checkinService)
	rescueHandler := handlers.NewRescueHandler(rescueService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "gymClash-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/challenges", challengeHandler.Setup).Methods("POST")
	protected.HandleFunc("/challenges", challengeHandler.UserChallenges).Methods("GET")
	protected.HandleFunc("/challenges/players", challengeHandler.AddPlayer).Methods("POST")
	protected.HandleFunc("/challenges/players", challengeHandler.RemovePlayer).Methods("DELETE")
	protected.HandleFunc("/challenges/checkin-channel", challengeHandler.SetCheckinChannel).Methods("PUT")
	protected.HandleFunc("/challenges/freeze-all", challengeHandler.FreezeAll).Methods("POST")
	protected.HandleFunc("/challenges/unfreeze-all", challengeHandler.UnfreezeAll).Methods("POST")
	protected.HandleFunc("/challenges/{guildId}", challengeHandler.Cancel).Methods("DELETE")
	protected.HandleFunc("/challenges/{guildId}/stats", challengeHandler.Stats).Methods("GET")
	protected.HandleFunc("/challenges/{guildId}/freeze", challengeHandler.Freeze).Methods("POST")
	protected.HandleFunc("/challenges/{guildId}/unfreeze", challengeHandler.Unfreeze).Methods("POST")

	protected.HandleFunc("/checkins", checkinHandler.CreateCheckin).Methods("POST")
	protected.HandleFunc("/checkins/late", checkinHandler.LateCheckin).Methods("POST")
	protected.HandleFunc("/checkins/proxy", checkinHandler.ProxyCheckin).Methods("POST")
	protected.HandleFunc("/checkins/week", checkinHandler.WeekCheckins).Methods("GET")
	protected.HandleFunc("/checkins/calendar", checkinHandler.Calendar).Methods("GET")
	protected.HandleFunc("/checkins/{id}", checkinHandler.DeleteCheckin).Methods("DELETE")

	protected.HandleFunc("/rescue", rescueHandler.Rescue).Methods("POST")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

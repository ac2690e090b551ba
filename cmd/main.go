package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sbilibin2017/gw-transaction-feed/docs"
	"github.com/sbilibin2017/gw-transaction-feed/internal/handlers"
	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/middlewares"
	"github.com/sbilibin2017/gw-transaction-feed/internal/repositories"
	"github.com/sbilibin2017/gw-transaction-feed/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title gw-transaction-feed API
// @version 1.0.0
// @description Read-only feed of the latest blockchain transactions stored in MongoDB
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	appHost, appPort, logLevel,
		mongoURI, mongoDB, mongoCollection,
		mongoMaxPoolSize, mongoTimeoutSecond,
		redisHost, redisPort, redisDB, redisPassword, redisExpSecond,
		corsOrigin,
		err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(),
		appHost, appPort, logLevel,
		mongoURI, mongoDB, mongoCollection,
		mongoMaxPoolSize, mongoTimeoutSecond,
		redisHost, redisPort, redisDB, redisPassword, redisExpSecond,
		corsOrigin,
	); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service Version: %s, Commit: %s, Build: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns
// the application, MongoDB, Redis and CORS configuration.
func parseConfig(path string) (
	appHost, appPort, logLevel string,
	mongoURI, mongoDB, mongoCollection string,
	mongoMaxPoolSize, mongoTimeoutSecond int,
	redisHost string, redisPort, redisDB int, redisPassword string, redisExpSecond int,
	corsOrigin string,
	err error,
) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	// Application config
	appHost = getEnv("APP_HOST", "localhost")
	appPort = getEnv("APP_PORT", "8080")
	logLevel = getEnv("APP_LOG_LEVEL", "info")

	// MongoDB config
	mongoURI = getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDB = getEnv("MONGODB_DATABASE", "test")
	mongoCollection = getEnv("MONGODB_COLLECTION", "transactions")
	if mongoMaxPoolSize, err = strconv.Atoi(getEnv("MONGODB_MAX_POOL_SIZE", "16")); err != nil {
		return
	}
	if mongoTimeoutSecond, err = strconv.Atoi(getEnv("MONGODB_TIMEOUT_SECOND", "10")); err != nil {
		return
	}

	// Redis config, an empty host disables the cache
	redisHost = getEnv("REDIS_HOST", "")
	if redisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return
	}
	if redisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return
	}
	redisPassword = getEnv("REDIS_PASSWORD", "")
	if redisExpSecond, err = strconv.Atoi(getEnv("REDIS_EXP_SECOND", "5")); err != nil {
		return
	}

	// CORS config
	corsOrigin = getEnv("CORS_ALLOWED_ORIGIN", "*")

	return
}

// run initializes the logger, MongoDB client, optional Redis cache and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context,
	appHost, appPort, logLevel string,
	mongoURI, mongoDB, mongoCollection string,
	mongoMaxPoolSize, mongoTimeoutSecond int,
	redisHost string, redisPort, redisDB int, redisPassword string, redisExpSecond int,
	corsOrigin string,
) error {
	// Initialize logger
	if err := logger.Initialize(logLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	log := logger.Log
	log.Infof("Logger initialized with level %s", logLevel)

	mongoTimeout := time.Duration(mongoTimeoutSecond) * time.Second

	// Connect to MongoDB. The client owns a connection pool shared by all requests.
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoURI).
		SetMaxPoolSize(uint64(mongoMaxPoolSize)).
		SetServerSelectionTimeout(mongoTimeout))
	if err != nil {
		return fmt.Errorf("MongoDB client error: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Errorw("MongoDB disconnect error", "error", err)
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(ctx, mongoTimeout)
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		// Not fatal: the pool keeps reconnecting and requests fail individually until then.
		log.Warnw("MongoDB is not reachable yet", "error", err)
	} else {
		log.Infow("Connected to MongoDB", "database", mongoDB, "collection", mongoCollection)
	}
	cancelPing()

	// Connect to Redis when configured
	var cache services.TransactionCache
	if redisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", redisHost, redisPort),
			Password: redisPassword,
			DB:       redisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warnw("Redis is not reachable, cache reads will fall through to MongoDB", "error", err)
		}
		cache = repositories.NewTransactionCacheRepository(rdb, mongoDB, mongoCollection, time.Duration(redisExpSecond)*time.Second)
		log.Infow("Transaction cache enabled", "ttl_second", redisExpSecond)
	}

	// Initialize repositories
	transactionRepo := repositories.NewTransactionReadRepository(
		client.Database(mongoDB).Collection(mongoCollection),
		mongoTimeout,
	)

	// Initialize services
	transactionService := services.NewTransactionService(transactionRepo, cache)

	// Initialize handlers
	listTransactionsHandler := handlers.NewListTransactionsHandler(transactionService)
	healthHandler := handlers.NewHealthHandler(client, mongoTimeout)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{corsOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/healthz", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares.SessionMiddleware(client))
		handlers.RegisterListTransactionsHandler(r, listTransactionsHandler)
	})

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%s", appHost, appPort)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", appHost, appPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		log.Infof("HTTP server listening on %s:%s", appHost, appPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	}

	log.Info("HTTP server stopped gracefully")
	return nil
}

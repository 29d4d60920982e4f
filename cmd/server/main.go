package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/handlers"
	"github.com/otpgate/otpgate/internal/middleware"
	"github.com/otpgate/otpgate/internal/repository"
	"github.com/otpgate/otpgate/internal/service"
	"github.com/otpgate/otpgate/internal/store"
	"github.com/otpgate/otpgate/internal/whatsapp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	otpStore, rateLimiter := initStores(cfg, logger)

	gateway := whatsapp.NewClient(&cfg.WhatsApp, logger)
	otpService := service.NewOTPService(otpStore, rateLimiter, gateway, userRepo, &cfg.OTP, logger)
	otpHandlers := handlers.NewOTPHandlers(otpService, logger)

	router := setupRouter(otpHandlers, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{cfg.CORS.Origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaper := store.NewReaper(otpStore, rateLimiter, logger)
	go reaper.Run(reaperCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

// initStores picks the OTP store and rate limiter backends. In-memory is the
// default; Redis backs both when REDIS_ENDPOINT is set.
func initStores(cfg *config.Config, logger *logrus.Logger) (store.OTPStore, store.RateLimiter) {
	if cfg.Redis.Endpoint == "" {
		logger.Info("Using in-memory OTP store and rate limiter")
		return store.NewMemoryOTPStore(), store.NewMemoryRateLimiter()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Using Redis OTP store and rate limiter")
	return store.NewRedisOTPStore(client, logger), store.NewRedisRateLimiter(client, logger)
}

func setupRouter(otpHandlers *handlers.OTPHandlers, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/issue-otp", otpHandlers.IssueOTP).Methods("POST", "OPTIONS")

	return router
}

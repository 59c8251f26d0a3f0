package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/bakehouse/storefront-api/internal/config"
	"github.com/bakehouse/storefront-api/internal/geo"
	"github.com/bakehouse/storefront-api/internal/handler"
	"github.com/bakehouse/storefront-api/internal/middleware"
	"github.com/bakehouse/storefront-api/internal/repository"
	"github.com/bakehouse/storefront-api/internal/service"
	"github.com/bakehouse/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	addressRepo := repository.NewAddressRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// External clients
	geocoder := geo.NewClient(cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout, log)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	addressSvc := service.NewAddressService(addressRepo)
	productSvc := service.NewProductService(productRepo, redisClient)
	orderSvc := service.NewOrderService(orderRepo, productRepo, amqpCh)
	statsSvc := service.NewStatsService(productRepo, orderRepo, redisClient)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	addressH := handler.NewAddressHandler(addressSvc)
	productH := handler.NewProductHandler(productSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	geoH := handler.NewGeoHandler(geocoder)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	statsWorker := worker.NewStatsWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	authLimiter := middleware.NewRateLimiter(5, 5)

	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth", authLimiter.Limit())
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		addresses := v1.Group("/addresses", middleware.AuthMiddleware(cfg.JWT.Secret))
		addresses.GET("", addressH.List)
		addresses.POST("", addressH.Add)
		addresses.PUT("/:id", addressH.Update)
		addresses.DELETE("/:id", addressH.Delete)

		orders := v1.Group("/orders", middleware.AuthMiddleware(cfg.JWT.Secret))
		orders.GET("", orderH.History)
		orders.POST("/:id/confirm", orderH.ConfirmDelivery)

		geoGroup := v1.Group("/geo", middleware.AuthMiddleware(cfg.JWT.Secret))
		geoGroup.GET("/reverse", geoH.Reverse)

		agent := v1.Group("/agent", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AgentOnly())
		agent.GET("/dashboard", statsH.Dashboard)
		agent.GET("/products", productH.ListMine)
		agent.POST("/products", productH.Create)
		agent.PUT("/products/:id", productH.Update)
		agent.DELETE("/products/:id", productH.Delete)
		agent.GET("/orders", orderH.ListAgentOrders)
		agent.PUT("/orders/:id/status", orderH.UpdateStatus)
	}

	if err := statsWorker.Start(ctx); err != nil {
		log.Error("start stats worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	statsWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}

// Package main runs the coworking platform HTTP server with WebSocket
// notifications and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atrium-workspace/backend/config"
	"github.com/atrium-workspace/backend/internal/admin"
	"github.com/atrium-workspace/backend/internal/auth"
	"github.com/atrium-workspace/backend/internal/bookings"
	"github.com/atrium-workspace/backend/internal/cafe"
	"github.com/atrium-workspace/backend/internal/invoices"
	"github.com/atrium-workspace/backend/internal/middleware"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/organizations"
	"github.com/atrium-workspace/backend/internal/realtime"
	"github.com/atrium-workspace/backend/internal/rooms"
	"github.com/atrium-workspace/backend/internal/timeutil"
	"github.com/atrium-workspace/backend/pkg/database"
	"github.com/atrium-workspace/backend/pkg/queue"
	"github.com/atrium-workspace/backend/pkg/redis"
	"github.com/atrium-workspace/backend/pkg/response"
	"github.com/atrium-workspace/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	loc, err := timeutil.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		logger.Fatal("billing timezone", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MenuImagesBucket:     cfg.AWS.MenuImagesBucket,
			StatementsBucket:     cfg.AWS.StatementsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and users
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, authRepo, logger)

	// Meeting rooms and bookings
	roomRepo := rooms.NewRepository(pool)
	roomHandler := rooms.NewHandler(roomRepo)
	bookingRepo := bookings.NewRepository(pool)
	bookingSvc := bookings.NewService(bookingRepo, roomRepo, authRepo, cfg.Billing, loc, logger)
	bookingHandler := bookings.NewHandler(bookingSvc, authRepo)

	// Café
	menuRepo := cafe.NewMenuRepository(pool)
	menuHandler := cafe.NewMenuHandler(menuRepo, s3Client, logger)
	orderRepo := cafe.NewOrderRepository(pool)
	cafeSvc := cafe.NewService(orderRepo, menuRepo, authRepo, hub, jobQueue, logger)
	orderHandler := cafe.NewOrderHandler(cafeSvc, orderRepo, authRepo)

	// Monthly statements
	invoiceRepo := invoices.NewRepository(pool)
	aggregator := invoices.NewAggregator(invoiceRepo, loc)
	invoiceHandler := invoices.NewHandler(aggregator, orgRepo, authRepo, s3Client, logger)

	// Admin dashboard
	adminHandler := admin.NewHandler(pool, loc)

	jwtValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/me", authHandler.Me)
		api.GET("/me/credits", authHandler.MyCredits)
		api.GET("/users", middleware.RequireCapability(models.CapViewAdmin), authHandler.List)

		// Organizations
		api.POST("/organizations", orgHandler.Create)
		api.GET("/organizations", middleware.RequireCapability(models.CapViewAdmin), orgHandler.List)
		api.GET("/organizations/:id", orgHandler.Get)
		api.PATCH("/organizations/:id", orgHandler.UpdateBilling)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)
		api.POST("/organizations/:id/members", orgHandler.AddMember)
		api.PATCH("/organizations/:id/members/:userID/delegation", orgHandler.SetDelegation)
		api.GET("/organizations/:id/statement", invoiceHandler.Statement)

		// Meeting rooms
		api.GET("/rooms", roomHandler.List)
		api.POST("/rooms", middleware.RequireCapability(models.CapManageRooms), roomHandler.Create)
		api.PATCH("/rooms/:id", middleware.RequireCapability(models.CapManageRooms), roomHandler.Update)
		api.GET("/rooms/:id/slots", bookingHandler.Slots)
		api.GET("/rooms/:id/bookings", bookingHandler.ListForRoom)

		// Bookings
		api.POST("/bookings", middleware.RequireCapability(models.CapBookRooms), bookingHandler.Create)
		api.GET("/bookings/mine", bookingHandler.ListMine)
		api.POST("/bookings/:id/cancel", bookingHandler.Cancel)

		// Café menu
		api.GET("/cafe/menu", menuHandler.List)
		api.POST("/cafe/menu", middleware.RequireCapability(models.CapManageMenu), menuHandler.Create)
		api.PATCH("/cafe/menu/:id", middleware.RequireCapability(models.CapManageMenu), menuHandler.Update)
		api.POST("/cafe/menu/:id/image", middleware.RequireCapability(models.CapManageMenu), menuHandler.UploadImage)

		// Café orders
		api.POST("/cafe/orders", orderHandler.Create)
		api.GET("/cafe/orders/mine", orderHandler.ListMine)
		api.GET("/cafe/orders/active", middleware.RequireCapability(models.CapAdvanceOrders), orderHandler.ListActive)
		api.GET("/cafe/orders/:id", orderHandler.Get)
		api.PATCH("/cafe/orders/:id/status", orderHandler.UpdateStatus)

		// Admin dashboard
		api.GET("/admin/dashboard", middleware.RequireCapability(models.CapViewAdmin), adminHandler.Dashboard)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

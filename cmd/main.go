package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matchday-app/chat-service/internal/access"
	"github.com/matchday-app/chat-service/internal/broadcast"
	"github.com/matchday-app/chat-service/internal/config"
	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/handler"
	"github.com/matchday-app/chat-service/internal/hub"
	"github.com/matchday-app/chat-service/internal/keys"
	"github.com/matchday-app/chat-service/internal/notify"
	"github.com/matchday-app/chat-service/internal/presence"
	"github.com/matchday-app/chat-service/internal/repository"
	"github.com/matchday-app/chat-service/internal/service"

	"github.com/matchday-app/chat-service/internal/auth"
	"github.com/matchday-app/chat-service/pkg/database"
	"github.com/matchday-app/chat-service/pkg/log"
	"github.com/matchday-app/chat-service/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Log.Level, ServiceName: "chat-service"})
	logger := log.L()
	logger.Info().Int("port", cfg.Server.Port).Msg("starting chat service")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret must be configured")
	}

	// Database
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.RoomModel{}, &domain.MessageModel{}, &repository.MembershipModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	// Repositories
	roomRepo := repository.NewGormRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	membershipRepo := repository.NewGormMembershipRepository(db)

	// Presence registry
	var reg presence.Registry
	if cfg.Redis.Enabled {
		redisReg, err := presence.NewRedisRegistry(presence.RedisConfig{
			Address:    cfg.Redis.Address,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Prefix:     cfg.Redis.PresencePrefix,
			SessionTTL: cfg.Redis.SessionTTL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisReg.Close()
		reg = redisReg
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis presence registry ready")
	} else {
		reg = presence.NewMemoryRegistry()
		logger.Info().Msg("using in-memory presence registry")
	}

	// Offline notification fallback
	var notifier notify.Notifier
	if cfg.Kafka.Enabled {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to kafka")
		}
		notifier = kafkaNotifier
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka notifier ready")
	} else {
		notifier = notify.NewLogNotifier()
		logger.Info().Msg("using log-only notifier")
	}
	defer notifier.Close()

	// Hub and broadcaster
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()
	broadcaster := broadcast.NewHubBroadcaster(wsHub)

	// Core service
	keyManager := keys.NewManager(roomRepo)
	guard := access.NewGuard(membershipRepo)
	chatSvc := service.NewChatService(
		roomRepo, messageRepo, keyManager, guard, reg, notifier, broadcaster, cfg.Chat.EditWindow,
	)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, verifier, reg, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(chatSvc, verifier)

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(log.L()))

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	router.GET("/chat/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api/v1")
	httpHandler.RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("chat service stopped")
}

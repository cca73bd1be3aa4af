package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Krimson/dig-music/internal/api"
	"github.com/Krimson/dig-music/internal/config"
	"github.com/Krimson/dig-music/internal/logger"
	"github.com/Krimson/dig-music/internal/nowplaying"
	"github.com/Krimson/dig-music/internal/sensor"
	"github.com/Krimson/dig-music/internal/session"
	"github.com/Krimson/dig-music/internal/storage"
	"github.com/Krimson/dig-music/internal/ws"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, "digmusic")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting digmusic service",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("sensor_transport", cfg.SensorTransport),
		zap.String("classifier_strategy", cfg.ClassifierStrategy),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	store, err := storage.NewPostgresStoreFromDSN(cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		zlog.Fatal("failed to init postgres schema", zap.Error(err))
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	live := storage.NewLiveStore(redisClient)

	// WebSocket hub
	hub := ws.NewHub(zlog)
	go hub.Run(ctx)

	// Источник RR-сэмплов
	var source sensor.Source
	switch cfg.SensorTransport {
	case "mqtt":
		source = sensor.NewMQTTSource(cfg.MQTTBrokerURL, cfg.MQTTTopic, cfg.MQTTClientID, zlog)
	default:
		source = sensor.NewTCPSource(cfg.SensorTCPAddr, cfg.SensorReadTimeout, cfg.SensorReconnectMin, cfg.SensorReconnectMax, zlog)
	}

	provider := nowplaying.NewHTTPProvider(cfg.NowPlayingURL, cfg.NowPlayingTimeout, zlog)

	sink := session.MultiSink{hub, live}
	manager := session.NewManager(cfg, source, provider, store, sink, zlog)

	// HTTP server
	router := mux.NewRouter()
	handler := api.NewHTTPHandler(manager, store, live, hub, zlog)
	handler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		zlog.Error("server error", zap.Error(err))

	case sig := <-shutdownChan:
		zlog.Info("received signal, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	if err := manager.Stop(); err != nil && err != session.ErrNoActiveSession {
		zlog.Warn("failed to stop session", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown failed", zap.Error(err))
	}

	cancel()
	zlog.Info("service stopped")
}

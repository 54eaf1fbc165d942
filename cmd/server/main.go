package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zaidmukaddam/scira/pkg/app"
	"github.com/zaidmukaddam/scira/pkg/config"
	"github.com/zaidmukaddam/scira/pkg/database"
	"github.com/zaidmukaddam/scira/pkg/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	metrics := server.NewMetrics()

	engine, err := app.NewResearchEngine(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to init research engine: %v", err)
	}
	engine.OnToolCall = metrics.ObserveToolCall

	// Database Connection
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	lib, err := app.NewLibrary(ctx, cfg, db, logger)
	if err != nil {
		log.Fatalf("Failed to init source library: %v", err)
	}

	wrappedCache, err := app.NewCache(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to init cache: %v", err)
	}
	defer wrappedCache.Close()

	builder, err := app.NewWrappedBuilder(cfg, wrappedCache, logger)
	if err != nil {
		log.Fatalf("Failed to init x-wrapped: %v", err)
	}
	builder.OnCacheLookup = metrics.ObserveCacheLookup

	svc := server.NewService(db, engine, lib)
	svc.Metrics = metrics
	svc.Logger = logger

	handler := server.NewHandler(svc, engine, builder, lib)
	handler.Metrics = metrics
	handler.MCP = server.MCPHandler(server.NewMCPServer(engine, lib))
	handler.Logger = logger

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	svc.Wait()
}

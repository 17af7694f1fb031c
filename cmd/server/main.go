package main // Entry point package

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/arsipwarga/arsipwarga/internal/config"
	"github.com/arsipwarga/arsipwarga/internal/database"
	"github.com/arsipwarga/arsipwarga/internal/handler"
	"github.com/arsipwarga/arsipwarga/internal/logger"
	"github.com/arsipwarga/arsipwarga/internal/middleware"
	"github.com/arsipwarga/arsipwarga/internal/migrate"
	"github.com/arsipwarga/arsipwarga/internal/queue"
	"github.com/arsipwarga/arsipwarga/internal/repository"
	"github.com/arsipwarga/arsipwarga/internal/router"
	"github.com/arsipwarga/arsipwarga/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.L.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrate {
		if err := migrate.Up(context.Background(), db); err != nil {
			logger.L.Fatal("migrations failed", zap.Error(err))
		}
	}

	store, err := storage.New(cfg.StoragePath, cfg.FileSignSecret, cfg.PublicBaseURL)
	if err != nil {
		logger.L.Fatal("storage init failed", zap.Error(err))
	}

	clock := &database.DBClock{DB: db}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	docs := repository.NewDocumentRepo(db)
	requests := repository.NewRequestRepo(db)
	shares := repository.NewShareRepo(db)
	requestShares := repository.NewRequestShareRepo(db)
	locations := repository.NewLocationRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens, locations)
	docH := handler.NewDocumentHandler(docs, users, store)
	reqH := handler.NewRequestHandler(requests, locations, clock)
	shareH := handler.NewShareHandler(shares, requestShares, docs, requests, users, clock, store)
	verifH := handler.NewVerificationHandler(docs, users, clock)
	apprH := handler.NewApprovalHandler(requests, users, clock)
	locH := handler.NewLocationHandler(locations)
	fileH := handler.NewFileHandler(store, clock)

	// Redis only backs the rate limiter on the public share endpoints; a
	// missing Redis degrades to no limiting rather than blocking startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.L.Warn("redis unavailable, share rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	go queue.StartActivityConsumer()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterLocations(e, locH)
	router.RegisterFiles(e, fileH)
	router.RegisterDocuments(e, docH, cfg.JWTSecret)
	router.RegisterRequests(e, reqH, cfg.JWTSecret)
	router.RegisterShares(e, shareH, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, verifH, cfg.JWTSecret)
	router.RegisterRTAdmin(e, apprH, cfg.JWTSecret)
	router.RegisterKelurahanAdmin(e, apprH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.L.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.L.Fatal("server stopped", zap.Error(err))
	}
}

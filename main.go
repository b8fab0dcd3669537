// backend/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/database"
	"github.com/gewnthar/lottometeo/backend/events"
	"github.com/gewnthar/lottometeo/backend/handlers"
	applog "github.com/gewnthar/lottometeo/backend/logger"
	"github.com/gewnthar/lottometeo/backend/observability"
	"github.com/gewnthar/lottometeo/backend/scheduler"
	"github.com/gewnthar/lottometeo/backend/scraper"
	"github.com/gewnthar/lottometeo/backend/services"
	"github.com/gewnthar/lottometeo/backend/stats"
	"github.com/gewnthar/lottometeo/backend/weather"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	logger.Info("starting lottometeo backend",
		zap.String("port", cfg.Server.Port),
		zap.String("db", cfg.Database.DBName),
		zap.String("lottery_url", cfg.Lottery.URL),
		zap.String("city", cfg.Weather.City),
		zap.String("timezone", cfg.Schedule.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	store := database.NewStore(db, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	publisher := events.NewPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	loc := cfg.Location()
	now := time.Now()
	predictor := stats.NewPredictor(rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(os.Getpid()))), loc)

	drawScraper := scraper.NewDrawScraper(cfg.Lottery, logger, metrics)
	svc := services.NewLottoService(
		store,
		drawScraper,
		weather.NewClient(cfg.Weather, logger),
		publisher,
		predictor,
		cfg.Weather.LinkRecentDraws,
		metrics,
		logger,
	).WithArchive(drawScraper, cfg.Lottery.ArchiveCSVURL)

	var wg sync.WaitGroup
	if cfg.Schedule.Enabled {
		schedule, err := scheduler.BuildSchedule(cfg.Schedule)
		if err != nil {
			logger.Fatal("invalid schedule", zap.Error(err))
		}
		sched := scheduler.New(svc, schedule, cfg.Schedule.Tick, loc, logger, metrics,
			scheduler.WithWeatherOnStart(cfg.Schedule.RunWeatherOnStart))
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	} else {
		logger.Info("scheduler disabled")
	}

	if cfg.Admin.JWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin routes are unauthenticated")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Debug("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	handlers.New(svc, []byte(cfg.Admin.JWTSecret), logger).Register(e)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()
	logger.Info("http server listening", zap.String("addr", ":"+cfg.Server.Port))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
}

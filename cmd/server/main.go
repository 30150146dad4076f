package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/clock"
	"github.com/iliyamo/reservita/internal/config"
	"github.com/iliyamo/reservita/internal/database"
	"github.com/iliyamo/reservita/internal/handler"
	"github.com/iliyamo/reservita/internal/logging"
	"github.com/iliyamo/reservita/internal/middleware"
	"github.com/iliyamo/reservita/internal/qrtoken"
	"github.com/iliyamo/reservita/internal/queue"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/router"
	"github.com/iliyamo/reservita/internal/service"
	"github.com/iliyamo/reservita/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := database.Open(startCtx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		cancel()
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(startCtx, db); err != nil {
			cancel()
			log.WithError(err).Fatal("migrations failed")
		}
	}
	rdb := config.NewRedisClient(startCtx, config.LoadRedisConfig())
	cancel()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	clk := clock.NewSystem()
	issuer := utils.NewTokenIssuer(cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour, clk)
	codec, err := qrtoken.NewCodec(cfg.QRSecret, clk)
	if err != nil {
		log.WithError(err).Fatal("qr codec")
	}

	tx := repository.NewTransactor(db)
	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	tickets := repository.NewTicketRepo(db)
	reviews := repository.NewReviewRepo(db)
	favorites := repository.NewFavoriteRepo(db)

	booking := service.BookingDeps{
		Tx:      tx,
		Events:  events,
		Seats:   seats,
		Tickets: tickets,
		Codec:   codec,
		Clock:   clk,
		Policy:  cfg.Booking,
		QR:      qrtoken.RenderOptions{ModuleSize: cfg.QRBoxSize, Border: cfg.QRBorder},
		Log:     log,
	}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		booking.Publisher = pub
		if cfg.ConsumerEnabled {
			go queue.StartTicketConsumer(ctx, cfg.AMQPURL, cfg.ConsumerLogDir, log)
		}
	} else {
		log.Warn("RABBITMQ_URL not set; ticket events are not published")
	}

	rl := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	h := router.Handlers{
		Auth: handler.NewAuthHandler(service.NewAuthService(service.AuthDeps{
			Tx:     tx,
			Users:  repository.NewUserRepo(db),
			Tokens: repository.NewTokenRepo(db),
			Issuer: issuer,
			Hasher: utils.NewPasswordHasher(cfg.BcryptCost),
			Log:    log,
		}), log),
		Events: handler.NewEventHandler(service.NewEventService(service.EventDeps{
			Tx:        tx,
			Events:    events,
			Seats:     seats,
			Tickets:   tickets,
			Favorites: favorites,
			Clock:     clk,
			Policy:    cfg.Booking,
			Log:       log,
		}), cache, log),
		Tickets: handler.NewTicketHandler(service.NewBookingService(booking), log),
		Reviews: handler.NewReviewHandler(service.NewReviewService(service.ReviewDeps{
			Tx:      tx,
			Reviews: reviews,
			Tickets: tickets,
			Events:  events,
			Clock:   clk,
			Log:     log,
		}), cache, log),
		Favorites: handler.NewFavoriteHandler(service.NewFavoriteService(events, favorites), cache, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(middleware.RequestLogger(log)))

	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.RegisterRoutes(e, h, router.Middlewares{Tokens: issuer, RateLimit: rl, Cache: cache})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("bye")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/catalog"
	"github.com/iliyamo/vehicle-rental/internal/config"
	"github.com/iliyamo/vehicle-rental/internal/database"
	"github.com/iliyamo/vehicle-rental/internal/handler"
	"github.com/iliyamo/vehicle-rental/internal/jobs"
	"github.com/iliyamo/vehicle-rental/internal/middleware"
	"github.com/iliyamo/vehicle-rental/internal/promotion"
	"github.com/iliyamo/vehicle-rental/internal/queue"
	"github.com/iliyamo/vehicle-rental/internal/repository"
	"github.com/iliyamo/vehicle-rental/internal/repository/mongostore"
	"github.com/iliyamo/vehicle-rental/internal/router"
	"github.com/iliyamo/vehicle-rental/internal/service"
	"github.com/iliyamo/vehicle-rental/internal/support"
)

func newLogger(cfg config.Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if cfg.IsProd() {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// identity always lives in MySQL, whatever STORE_BACKEND says
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.WithError(err).Fatal("mysql connect failed")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
	}

	var (
		bookingStore booking.Store
		vehicleStore catalog.Store
		ticketStore  support.Store
	)
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := database.OpenMongo(cfg.MongoURI)
		if err != nil {
			logger.WithError(err).Fatal("mongo connect failed")
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		ms := mongostore.New(client, cfg.MongoDB)
		ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = ms.EnsureIndexes(ictx)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("mongo indexes failed")
		}
		bookingStore, vehicleStore, ticketStore = ms, ms, ms
	default:
		bookingStore = repository.NewReservationRepo(db)
		vehicleStore = repository.NewVehicleRepo(db)
		ticketStore = repository.NewSupportRepo(db)
	}
	logger.WithField("backend", cfg.StoreBackend).Info("storage ready")

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}

	qcfg := config.LoadQueueConfig()
	var pub booking.Publisher
	if cfg.EventsEnabled && qcfg.URL != "" {
		p := service.NewPublisher(qcfg, logger)
		defer p.Close()
		pub = p

		sink, err := queue.OpenEventLog(qcfg.LogFile)
		if err != nil {
			logger.WithError(err).Fatal("open event log failed")
		}
		defer sink.Close()
		consumer := queue.NewConsumer(qcfg.URL, qcfg.Queue, sink, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("event consumer stopped")
			}
		}()
	} else {
		logger.Info("reservation events disabled")
	}

	promos := promotion.NewCatalog(promotion.Defaults()...)
	bookings := booking.NewService(bookingStore, promos, pub, logger, cfg.Currency)
	vehicles := catalog.NewService(vehicleStore)
	tickets := support.NewService(ticketStore, bookings, logger)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddInvoiceBackfill(config.LoadJobsConfig(), bookings); err != nil {
		logger.WithError(err).Fatal("invalid invoice backfill schedule")
	}
	scheduler.Start()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	cacheCfg := config.LoadCacheConfig()
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	admin := handler.NewAdminHandler(bookings, vehicles, repository.NewUserRepo(db))
	if rdb != nil && cacheCfg.Enabled {
		admin.PurgeCatalog = func(ctx context.Context) error {
			return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
		}
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, router.Public{
		Vehicles:   handler.NewVehicleHandler(vehicles, bookings),
		Promotions: handler.NewPromotionHandler(promos),
		Support:    handler.NewSupportHandler(tickets),
	}, cfg.JWTSecret, limit, cache)
	router.RegisterClient(e, handler.NewReservationHandler(bookings), cfg.JWTSecret, limit)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	scheduler.Stop(sctx)
}

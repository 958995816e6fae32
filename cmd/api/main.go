package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"baburchi-admin/internal/cache"
	"baburchi-admin/internal/config"
	"baburchi-admin/internal/courier"
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/handler"
	"baburchi-admin/internal/invoice"
	"baburchi-admin/internal/logger"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/service"
	"baburchi-admin/internal/snapshot"
	"baburchi-admin/internal/storage"
	"baburchi-admin/internal/ws"
	"baburchi-admin/pkg/database"
	"baburchi-admin/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const brandName = "Baburchi"

func main() {
	// 1. Load Env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("invalid configuration: " + err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer log.Sync()
	if envErr != nil {
		log.Debug(".env file not found, relying on system env")
	}

	jwt.Configure(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer)

	// 2. Setup Database
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Live events: websocket hub, optionally mirrored to kafka
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	sinks := []event.Sink{event.NewHubSink(wsHub)}
	var kafkaProducer *event.KafkaProducer
	if cfg.Kafka.Enabled {
		kafkaProducer = event.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize, log)
		kafkaProducer.Start()
		sinks = append(sinks, kafkaProducer)
	}
	bus := event.NewBus(cfg.App.Name, log, sinks...)

	store, err := cache.New(cfg.Redis, log)
	if err != nil {
		log.Fatal("cache setup failed", zap.Error(err))
	}

	var logos storage.LogoStore = storage.InlineStore{}
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Store(cfg.Storage, log)
		if err != nil {
			log.Fatal("object storage setup failed", zap.Error(err))
		}
		logos = s3Store
	}

	var pdf invoice.PDFRenderer
	var chrome *invoice.ChromedpRenderer
	if cfg.Invoice.PDFEnabled {
		chrome = invoice.NewChromedpRenderer(cfg.Invoice.ChromeURL, log)
		pdf = chrome
	}
	renderer, err := invoice.NewRenderer(pdf)
	if err != nil {
		log.Fatal("invoice template failed", zap.Error(err))
	}
	if cfg.Invoice.Timeout > 0 {
		renderer.Timeout = cfg.Invoice.Timeout
	}

	// 4. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	leadRepo := repository.NewLeadRepo(db)
	userRepo := repository.NewUserRepo(db)
	settingRepo := repository.NewSettingRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)

	settingsService := service.NewSettingsService(settingRepo, logos, bus, log)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		DB:        db,
		Orders:    orderRepo,
		Products:  productRepo,
		Movements: movementRepo,
		Courier: courier.NewSteadfastClient(courier.Options{
			Timeout:         cfg.Courier.Timeout,
			MaxRetries:      cfg.Courier.MaxRetries,
			InitialInterval: cfg.Courier.InitialInterval,
		}, log),
		Settings: settingsService,
		Cache:    store,
		Events:   bus,
		Logger:   log,
	}, service.OrderOptions{
		RestockOnCancel: cfg.Orders.RestockOnCancel,
		SyncStaleAfter:  cfg.Courier.SyncStaleAfter,
	})
	authService := service.NewAuthService(userRepo, bus, cfg.JWT.IdleTimeout, log)
	userService := service.NewUserService(userRepo, bus, cfg.Seed.DefaultPassword, log)
	catalogService := service.NewCatalogService(db, productRepo, movementRepo, bus, log)
	leadService := service.NewLeadService(db, leadRepo, userRepo, store, bus, log)
	dashService := service.NewDashboardService(orderRepo, leadRepo, movementRepo, store, cfg.Orders.DashboardCacheTTL, log)
	snapshotService := snapshot.NewService(db, snapshot.Repositories{
		Products: productRepo,
		Orders:   orderRepo,
		Leads:    leadRepo,
		Users:    userRepo,
		Settings: settingRepo,
	}, cfg.Seed.DefaultPassword, func(ctx context.Context, moderatorIDs []string) {
		service.InvalidateDashboard(ctx, store, log, moderatorIDs...)
	}, log)

	// 5. Seed the catalogue, team and admin account on an empty database
	if cfg.Seed.Enabled {
		if seeded, err := snapshotService.Seed(ctx); err != nil {
			log.Warn("failed to seed database", zap.Error(err))
		} else if seeded {
			log.Info("admin user created", zap.String("email", snapshot.AdminEmail))
		}
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 8 * 1024 * 1024, // logos and snapshots travel as JSON
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	handler.Register(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Orders:    handler.NewOrderHandler(orderService, renderer, settingsService, brandName, log),
		Webhook:   handler.NewWebhookHandler(orderService, log),
		Products:  handler.NewProductHandler(catalogService, log),
		Leads:     handler.NewLeadHandler(leadService, log),
		Users:     handler.NewUserHandler(userService, log),
		Settings:  handler.NewSettingsHandler(settingsService, log),
		Dashboard: handler.NewDashboardHandler(dashService, log),
		Snapshots: handler.NewSnapshotHandler(snapshotService, userRepo, log),
	}, authService, wsHub)

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Panic("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	if kafkaProducer != nil {
		kafkaProducer.Close()
	}
	if chrome != nil {
		chrome.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server exited")
}

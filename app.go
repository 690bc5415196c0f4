package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/config"
	"github.com/fasttech-foods/backoffice-api/controllers"
	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"gorm.io/gorm"
)

// application holds everything the router needs, plus the resources to
// release on shutdown
type application struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *slog.Logger

	sessions  *services.SessionService
	validator *validator.Validator

	auth        *controllers.AuthController
	orders      *controllers.OrderController
	kitchen     *controllers.KitchenController
	catalog     *controllers.CatalogController
	uploads     *controllers.UploadController
	dashboard   *controllers.DashboardController
	chat        *controllers.ChatController
	users       *controllers.UserController
	diagnostics *controllers.DiagnosticsController

	closers []func()
}

// newApplication wires clients, stores and services from the configuration.
// Redis, RabbitMQ and S3 are used only when configured.
func newApplication(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, db: db, logger: logger}
	clock := services.RealClock()

	identity := clients.NewIdentityClient(cfg.IdentityAPIURL, cfg.HTTPClientTimeout)
	catalogAPI := clients.NewCatalogClient(cfg.CatalogAPIURL, cfg.HTTPClientTimeout)
	kitchenAPI := clients.NewKitchenClient(cfg.KitchenAPIURL, cfg.HTTPClientTimeout)

	probes := []services.Probe{
		{Name: "identity", Check: identity.Health},
		{Name: "kitchen", Check: kitchenAPI.Health},
		services.CatalogProbe(catalogAPI),
	}

	var store services.SessionStore = services.NewMemorySessionStore()
	if cfg.RedisURL != "" {
		redisStore, err := services.NewRedisSessionStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = redisStore.Close() })
		store = redisStore
		probes = append(probes, services.PingProbe("redis", redisStore.Ping))
		logger.Info("session store ready", "backend", "redis")
	}
	app.sessions = services.NewSessionService(store, identity, clock, logger)

	v, err := middleware.NewTokenValidator(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.validator = v

	table := models.NewTransitionTable(cfg.CancellationPolicy)
	book := services.NewOrderBook(services.NewGormOrderStore(db), table, clock, logger)
	events := services.NewBroadcaster()
	book.AddPublisher(events)
	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, publisher.Close)
		book.AddPublisher(publisher)
		probes = append(probes, services.PingProbe("rabbitmq", func(context.Context) error { return publisher.Ping() }))
		logger.Info("status changes published", "broker", "rabbitmq")
	}

	var simulator *services.Simulator
	if cfg.OrderSimulationEnabled {
		simulator = services.NewSimulator(book, clock, logger)
		app.closers = append(app.closers, simulator.Stop)
	}

	var images services.ImageService
	if cfg.S3Enabled() {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize S3 service: %w", err)
		}
		images = services.NewS3ImageService(s3Service)
	} else {
		local := services.NewLocalImageService(cfg.UploadDir)
		images = local
		app.uploads = controllers.NewUploadController(local.Dir())
	}

	catalog := services.NewCatalogService(catalogAPI, images, logger)
	chat := services.NewChatService(book, clock, logger)
	app.closers = append(app.closers, chat.Stop)

	app.sessions.Subscribe(catalog.HandleSessionEvent)
	app.sessions.Subscribe(chat.HandleSessionEvent)
	app.sessions.Subscribe(func(event services.SessionEvent) {
		switch event.Type {
		case services.SessionLogout:
			book.DropCart(event.SessionID)
		case services.SessionLogin:
			if event.PreviousSessionID == "" || event.PreviousSessionID == event.SessionID {
				return
			}
			if err := book.TransferSession(context.Background(), event.PreviousSessionID, event.SessionID); err != nil {
				logger.Error("failed to carry orders over to the signed-in session", "session_id", event.SessionID, "error", err)
			}
			simulator.Reassign(event.PreviousSessionID, event.SessionID)
		}
	})

	kitchen := services.NewKitchenService(kitchenAPI, table, cfg.DeliveryCodeRequired, logger)
	dashboard := services.NewDashboardService(kitchenAPI, clock)
	employees := services.NewEmployeeService(db, identity, logger)
	diagnostics := services.NewDiagnosticsService(identity, clock, logger, probes...)

	app.auth = controllers.NewAuthController(app.sessions, logger)
	app.orders = controllers.NewOrderController(book, simulator, events, clock, logger)
	app.kitchen = controllers.NewKitchenController(kitchen, logger)
	app.catalog = controllers.NewCatalogController(catalog, logger)
	app.dashboard = controllers.NewDashboardController(dashboard, logger)
	app.chat = controllers.NewChatController(chat, logger)
	app.users = controllers.NewUserController(employees, logger)
	app.diagnostics = controllers.NewDiagnosticsController(diagnostics, logger)
	return app, nil
}

// Close releases resources in reverse order of acquisition
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

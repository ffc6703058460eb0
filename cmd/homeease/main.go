package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"homeease/internal/app/commands"
	bookingapp "homeease/internal/app/handlers/booking"
	paymentapp "homeease/internal/app/handlers/payment"
	providerapp "homeease/internal/app/handlers/provider"
	"homeease/internal/app/middleware"
	appoutbox "homeease/internal/app/outbox"
	"homeease/internal/app/queries"
	authsvc "homeease/internal/app/services/auth"
	"homeease/internal/app/uow"
	domaincatalog "homeease/internal/domain/catalog"
	domainprovider "homeease/internal/domain/provider"
	"homeease/internal/domain/promo"
	"homeease/internal/domain/shared/money"
	"homeease/internal/infra/broker/kafka"
	"homeease/internal/infra/config"
	mongoinfra "homeease/internal/infra/db/mongo"
	ginserver "homeease/internal/infra/http/gin"
	"homeease/internal/infra/inbox"
	"homeease/internal/infra/obs"
	outboxinfra "homeease/internal/infra/outbox"
	"homeease/internal/infra/security"
	"homeease/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if err := app.loadCatalogFixtures(ctx, cfg, logger); err != nil {
		logger.Warn("catalog fixtures load failed", "error", err)
	}

	app.startWorkers(ctx, cfg, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	uowFactory uow.UoWFactory
	commands   commands.Bus
	ready      func() error

	mongoClient *mongoinfra.Client
	outboxStore *outboxinfra.Store
	producer    *kafka.Producer
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory uow.UoWFactory
		box        appoutbox.Outbox
		idStore    middleware.IdempotencyStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongoinfra.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.mongoClient = client
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		uowFactory = mongoinfra.Factory{
			DB:           client.DB,
			BookingRepo:  mongoinfra.NewBookingRepository(client.DB),
			ProviderRepo: mongoinfra.NewProviderRepository(client.DB),
			CatalogRepo:  mongoinfra.NewCatalogRepository(client.DB),
		}
		app.outboxStore = outboxinfra.NewStore(client.DB)
		box = app.outboxStore
		idStore = mongoinfra.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
	default:
		uowFactory = memory.Factory{
			BookingRepo:  memory.NewBookingRepository(),
			ProviderRepo: memory.NewProviderRepository(),
			CatalogRepo:  memory.NewCatalogRepository(),
		}
		box = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}
	app.uowFactory = uowFactory

	promos, err := loadPromoTable(cfg.PromoCodesPath, logger)
	if err != nil {
		return nil, err
	}

	usersRepo := memory.NewUserRepository()
	sessionStore := memory.NewSessionStore()
	authService := &authsvc.Service{
		Users:      usersRepo,
		Sessions:   sessionStore,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: uowFactory,
		Promos:     promos,
		Outbox:     box,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.SetBookingStatusCommand{}.Key(), &bookingapp.SetBookingStatusHandler{
		Outbox: box,
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.SetServiceStatusCommand{}.Key(), &bookingapp.SetServiceStatusHandler{
		Outbox: box,
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.RateBookingCommand{}.Key(), &bookingapp.RateBookingHandler{
		Outbox: box,
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, providerapp.RecomputeLedgerCommand{}.Key(), &providerapp.RecomputeLedgerHandler{
		Logger: logger,
	})
	commands.RegisterHandler(commandBus, paymentapp.RecordPaymentCommand{}.Key(), &paymentapp.RecordPaymentHandler{
		Outbox: box,
		Logger: logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListCustomerBookingsQuery{}.Key(), &bookingapp.ListCustomerBookingsHandler{UoWFactory: uowFactory, Logger: logger})
	queries.RegisterHandler(queryBus, bookingapp.ListProviderBookingsQuery{}.Key(), &bookingapp.ListProviderBookingsHandler{UoWFactory: uowFactory, Logger: logger})
	queries.RegisterHandler(queryBus, providerapp.GetLedgerQuery{}.Key(), &providerapp.GetLedgerHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	app.commands = commandBusWithMiddleware
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	authMW := ginserver.AuthMiddleware{Service: authService, Logger: logger}
	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Provider: ginserver.ProviderHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		AuthMiddleware: authMW.Handle,
	}
	return app, nil
}

func (a *application) startWorkers(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if !cfg.EventsEnabled() {
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer unavailable, events disabled", "error", err)
		return
	}
	a.producer = producer

	if a.outboxStore != nil {
		worker := &outboxinfra.Worker{
			Store:       a.outboxStore,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	paymentHandler := &kafka.PaymentStatusHandler{
		Bus:    a.commands,
		Logger: logger,
	}
	if a.mongoClient != nil {
		paymentHandler.Dedup = inbox.NewStore(a.mongoClient.DB, "homeease-payments")
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "homeease-payments", nil, paymentHandler)
	if err != nil {
		logger.Error("kafka consumer unavailable, payment updates disabled", "error", err)
		return
	}
	go func() {
		topic := cfg.KafkaTopicPrefix + cfg.PaymentTopic
		if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("payment consumer stopped", "error", err)
		}
	}()
}

type catalogFixture struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Provider    string   `json:"provider_id"`
	Price       int64    `json:"unit_price"`
	Active      *bool    `json:"active"`
	ProviderDoc *struct {
		Name   string   `json:"name"`
		Phone  string   `json:"phone"`
		Skills []string `json:"skills"`
	} `json:"provider"`
}

func (a *application) loadCatalogFixtures(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	path := cfg.CatalogFixturesPath
	if path == "" {
		path = defaultCatalogFixturesPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("catalog fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []catalogFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return nil
	}

	unit, err := a.uowFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	now := time.Now()
	for _, fx := range fixtures {
		active := true
		if fx.Active != nil {
			active = *fx.Active
		}
		service, err := domaincatalog.NewService(domaincatalog.CreateParams{
			ID:          domaincatalog.ServiceID(fx.ID),
			Name:        fx.Name,
			Description: fx.Description,
			Category:    fx.Category,
			ProviderID:  fx.Provider,
			UnitPrice:   money.INR(fx.Price),
			Active:      active,
			CreatedAt:   now,
		})
		if err != nil {
			logger.Error("fixture invalid", "service_id", fx.ID, "error", err)
			continue
		}
		if err := unit.Catalog().Save(ctx, service); err != nil {
			logger.Error("cannot store fixture service", "service_id", fx.ID, "error", err)
			continue
		}
		if fx.ProviderDoc != nil {
			if _, err := unit.Providers().ByID(ctx, fx.Provider); errors.Is(err, domainprovider.ErrNotFound) {
				p, err := domainprovider.NewProvider(domainprovider.CreateParams{
					ID:        fx.Provider,
					Name:      fx.ProviderDoc.Name,
					Phone:     fx.ProviderDoc.Phone,
					Skills:    fx.ProviderDoc.Skills,
					CreatedAt: now,
				})
				if err != nil {
					logger.Error("fixture provider invalid", "provider_id", fx.Provider, "error", err)
					continue
				}
				if err := unit.Providers().Save(ctx, p); err != nil {
					logger.Error("cannot store fixture provider", "provider_id", fx.Provider, "error", err)
					continue
				}
			}
		}
		logger.Info("catalog fixture imported", "service_id", service.ID)
	}
	return unit.Commit(ctx)
}

func loadPromoTable(path string, logger *slog.Logger) (promo.Table, error) {
	if strings.TrimSpace(path) == "" {
		return promo.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read promo codes: %w", err)
	}
	var codes map[string]float64
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("decode promo codes: %w", err)
	}
	logger.Info("promo table loaded", "path", path, "codes", len(codes))
	return promo.NewTable(codes), nil
}

func defaultCatalogFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "catalog.json"),
		filepath.Join("deploy", "data", "catalog.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gabarito/internal/config"
	"gabarito/internal/handlers"
	"gabarito/internal/locking"
	"gabarito/internal/middleware"
	"gabarito/internal/models"
	"gabarito/internal/repositories"
	"gabarito/internal/services"
	"gabarito/pkg/itemstore"
	"gabarito/pkg/kafka"
	"gabarito/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const kafkaGroupID = "gabarito-audit"

// backend bundles the repositories of one STORE_BACKEND.
type backend struct {
	products repositories.ProductRepository
	stock    repositories.StockRepository
	audit    repositories.AuditRepository
	assets   repositories.AssetRepository
}

// server owns the Fiber app and everything that must be released on shutdown.
type server struct {
	app       *fiber.App
	templates *services.TemplateService
	closers   []func() error
}

func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, tracer trace.Tracer) (*server, error) {
	s := &server{}

	store, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	locker, err := newLocker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if lockIsProcessLocal(cfg) {
		logger.Warn("Stock decrements are only serialized within this process; set STOCK_LOCK=redis when running more than one replica",
			zap.String("store", cfg.StoreBackend), zap.String("stock_lock", cfg.StockLock))
	}
	if c, ok := locker.(interface{ Close() error }); ok {
		s.closers = append(s.closers, c.Close)
	}

	audit, err := s.newAuditPublisher(ctx, cfg, store.audit, logger)
	if err != nil {
		s.close(logger)
		return nil, err
	}

	composer := services.NewComposerService(models.BlankFill(cfg.BlankFill), logger, tracer)
	inventory := services.NewInventoryService(store.stock, locker, cfg.StoreTimeout, logger, tracer)
	s.templates = services.NewTemplateService(composer, inventory, store.assets, audit, cfg.SideEffectTimeout, logger, tracer)
	catalog := services.NewCatalogService(store.products, audit, logger)
	auth := services.NewAuthService(cfg.JWTSecret, cfg.JWTUserClaim)

	s.app = newApp(cfg, auth, handlers.NewProductHandler(catalog, logger), handlers.NewTemplateHandler(s.templates, logger), logger)
	return s, nil
}

func newApp(cfg *config.Config, auth *services.AuthService, products *handlers.ProductHandler, templates *handlers.TemplateHandler, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             handlers.MaxArtworkBytes + 1<<20,
		DisableStartupMessage: true,
	})

	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"store":  cfg.StoreBackend,
			"audit":  cfg.AuditTransport,
		})
	})

	apiV1 := app.Group("/api/v1", middleware.Identity(auth, logger))
	products.RegisterRoutes(apiV1)
	templates.RegisterRoutes(apiV1)
	return app
}

// shutdown waits for pending uploads and audit writes, then releases brokers and clients.
func (s *server) shutdown(logger *zap.Logger) {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			logger.Error("Error during Fiber shutdown", zap.Error(err))
		}
	}
	if s.templates != nil {
		s.templates.Wait()
	}
	s.close(logger)
}

func (s *server) close(logger *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	s.closers = nil
}

func newBackend(cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case "remote":
		client, err := itemstore.NewClient(itemstore.Conf{
			BaseURL: cfg.StoreURL,
			Token:   cfg.StoreToken,
			Timeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create item store client: %w", err)
		}
		cols := repositories.Collections{
			Products:    cfg.CollectionProducts,
			StockParent: cfg.CollectionStockParent,
			StockLot:    cfg.CollectionStockLot,
			History:     cfg.CollectionHistory,
			Users:       cfg.CollectionUsers,
			LotSort:     []string{cfg.LotSortField},
		}
		return &backend{
			products: repositories.NewRemoteProductRepository(client, cols),
			stock:    repositories.NewRemoteStockRepository(client, cols),
			audit:    repositories.NewRemoteAuditRepository(client, cols),
			assets:   repositories.NewRemoteAssetRepository(client),
		}, nil
	case "sql":
		db, err := openDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := repositories.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &backend{
			products: repositories.NewGORMProductRepository(db),
			stock:    repositories.NewGORMStockRepository(db),
			audit:    repositories.NewGORMAuditRepository(db),
			assets:   repositories.NewGORMAssetRepository(db),
		}, nil
	case "memory":
		products := repositories.NewMockProductRepository()
		stock := repositories.NewMockStockRepository()
		audit := repositories.NewMockAuditRepository()
		seed(products, stock, logger)
		return &backend{products: products, stock: stock, audit: audit, assets: audit}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

type redisLocker struct {
	*locking.RedisLocker
	client *redis.Client
}

func (l redisLocker) Close() error { return l.client.Close() }

// lockIsProcessLocal reports whether a store shared between replicas is
// guarded by a lock that only exists in this process. Neither the remote
// item store nor the SQL backend has a conditional update, so concurrent
// replicas can then both consume the same lot quantity.
func lockIsProcessLocal(cfg *config.Config) bool {
	return cfg.StoreBackend != "memory" && cfg.StockLock != "redis"
}

// newLocker builds the stock lock. "memory" (the default) serializes
// decrements within one process only; multi-replica deployments need "redis".
func newLocker(ctx context.Context, cfg *config.Config) (locking.Locker, error) {
	switch cfg.StockLock {
	case "none":
		return locking.NoopLocker{}, nil
	case "memory":
		return locking.NewMemoryLocker(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return redisLocker{RedisLocker: locking.NewRedisLocker(client, cfg.StockLockTTL), client: client}, nil
	}
	return nil, fmt.Errorf("unknown stock lock %q", cfg.StockLock)
}

// newAuditPublisher picks the audit transport. Broker transports also start
// the consumer that appends entries to the history collection.
func (s *server) newAuditPublisher(ctx context.Context, cfg *config.Config, repo repositories.AuditRepository, logger *zap.Logger) (services.AuditPublisher, error) {
	switch cfg.AuditTransport {
	case "direct":
		return services.NewDirectAuditPublisher(repo, cfg.SideEffectTimeout, logger), nil
	case "rabbitmq":
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		s.closers = append(s.closers, mq.Close)

		consumer := services.NewAuditConsumer(repo, cfg.StoreTimeout)
		if err := mq.Consume(func(msg amqp.Delivery) error {
			return consumer.Handle(context.Background(), msg.Body)
		}); err != nil {
			return nil, fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
		}
		return services.NewBrokerAuditPublisher(services.MessagePublisherFunc(mq.Publish), cfg.SideEffectTimeout, logger), nil
	case "kafka":
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		s.closers = append(s.closers, publisher.Close)

		reader := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaGroupID, logger)
		consumer := services.NewAuditConsumer(repo, cfg.StoreTimeout)
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := reader.Run(runCtx, func(ctx context.Context, msg kafkago.Message) error {
				return consumer.Handle(ctx, msg.Value)
			}); err != nil {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
		s.closers = append(s.closers, func() error {
			cancel()
			<-done
			return reader.Close()
		})

		return services.NewBrokerAuditPublisher(services.MessagePublisherFunc(func(ctx context.Context, body []byte) error {
			return publisher.Publish(ctx, nil, body)
		}), cfg.SideEffectTimeout, logger), nil
	}
	return nil, errors.New("unknown audit transport " + cfg.AuditTransport)
}

// seed fills the in-memory backend with a few products, each with one stock
// record and two lots.
func seed(products *repositories.MockProductRepository, stock *repositories.MockStockRepository, logger *zap.Logger) {
	catalog := []models.Product{
		{Name: "Caneca 325ml", SKU: "CAN-325", Width: 20, Height: 9.5},
		{Name: "Chaveiro acrilico", SKU: "CHV-01", Width: 4, Height: 3},
		{Name: "Mousepad", SKU: "MP-22", Width: 22, Height: 18},
	}
	now := time.Now()
	for i := range catalog {
		p := &catalog[i]
		p.Status = models.ProductStatusPublished
		p.TemplateKind = models.TemplateKindRectangle
		if err := products.Create(context.Background(), p); err != nil {
			logger.Warn("Error seeding product", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		parentID := "stock-" + p.SKU
		stock.PutParent(models.StockParent{ID: parentID, Product: p.ID, Available: 15, CreatedAt: now})
		stock.PutLot(models.StockLot{ID: parentID + "-1", Parent: parentID, Sequence: 1, Quantity: 5, CreatedAt: now.Add(-time.Hour)})
		stock.PutLot(models.StockLot{ID: parentID + "-2", Parent: parentID, Sequence: 2, Quantity: 10, CreatedAt: now})
		logger.Info("Seeded product", zap.String("name", p.Name), zap.String("id", p.ID))
	}
}

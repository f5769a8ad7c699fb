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

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/config"
	"github.com/senyabanana/licitaciones-service/internal/db"
	"github.com/senyabanana/licitaciones-service/internal/handlers"
	"github.com/senyabanana/licitaciones-service/internal/logger"
	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/notify"
	"github.com/senyabanana/licitaciones-service/internal/repository"
	"github.com/senyabanana/licitaciones-service/internal/router"
	"github.com/senyabanana/licitaciones-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

const serviceName = "licitaciones-service"

type storage struct {
	tenders repository.TenderRepository
	bids    repository.BidRepository
	refs    repository.ReferenceRepository
	close   func()
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatal("cannot init logger:", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("error initializing storage", zap.Error(err))
	}
	defer store.close()

	notifier, closeNotifier, err := openNotifier(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("error initializing notifier", zap.Error(err))
	}
	defer closeNotifier()

	guard := admission.NewGuard(admission.Policy{AllowDuringEvaluation: cfg.AllowBidsInEvaluation})
	tenderService := services.NewTenderService(store.tenders, store.refs, notifier, zapLogger)
	bidService := services.NewBidService(store.bids, store.tenders, store.refs, guard, notifier, zapLogger)

	tenderHandler := handlers.NewTenderHandler(tenderService, zapLogger, cfg.RequestTimeout)
	bidHandler := handlers.NewBidHandler(bidService, zapLogger, cfg.RequestTimeout)
	criteriaHandler := handlers.NewCriteriaHandler(zapLogger)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.InitRoutes(tenderHandler, bidHandler, criteriaHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("server is listening", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

func openStorage(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.MemoryStorage {
		mem := repository.NewMemoryStore()
		seedDemoReferences(mem, zapLogger)
		return &storage{tenders: mem, bids: mem, refs: mem, close: func() {}}, nil
	}

	if err := runDBMigration(cfg.MigrationURL, cfg.PostgresConn); err != nil {
		return nil, err
	}
	zapLogger.Info("db migrated successfully")

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &storage{
		tenders: repository.NewPostgresTenderRepository(dbPool),
		bids:    repository.NewPostgresBidRepository(dbPool),
		refs:    repository.NewPostgresReferenceRepository(dbPool),
		close:   dbPool.Close,
	}, nil
}

func openNotifier(cfg config.Config, zapLogger *zap.Logger) (notify.Notifier, func(), error) {
	switch cfg.Notifier {
	case config.NATSNotifier:
		pub, conn, err := notify.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, nil, err
		}
		zapLogger.Info("connected to NATS", zap.String("url", cfg.NATSURL))
		return notify.NewEventNotifier(pub), func() { _ = conn.Drain() }, nil
	case config.RedisNotifier:
		client, err := notify.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		zapLogger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		pub := notify.NewRedisPublisher(client, cfg.RedisChannelPrefix)
		return notify.NewEventNotifier(pub), func() { _ = client.Close() }, nil
	default:
		return notify.NewEventNotifier(notify.NewLogPublisher(zapLogger)), func() {}, nil
	}
}

func runDBMigration(migrationURL string, dbSource string) error {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		return err
	}
	defer migration.Close()

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// seedDemoReferences заполняет справочники для локального запуска без базы.
func seedDemoReferences(mem *repository.MemoryStore, zapLogger *zap.Logger) {
	const (
		companyID  = "0b6f2d7e-3c1a-4f55-9a51-6f0d3a7c1e01"
		projectID  = "4a1e9c2b-7d3f-4e8a-b2c6-1f5e8d9a0b02"
		categoryID = "7c3d5e1f-9a2b-4c6d-8e0f-2a4b6c8d0e03"
		currencyID = "9e5f7a3b-1c4d-4e6f-a0b2-3c5d7e9f1a04"
		supplierA  = "b2d4f6a8-0c1e-4a3b-9d5f-7e9a1c3b5d05"
		supplierB  = "d4f6a8b0-2e3a-4c5d-8f7b-9a1c3e5d7f06"
	)
	mem.AddCompany(models.Company{ID: companyID, Name: "Minera Demo"})
	mem.AddProject(projectID, companyID)
	mem.AddCategory(categoryID)
	mem.AddCurrency(currencyID)
	mem.AddSupplier(models.Supplier{ID: supplierA, Name: "Proveedor Demo A"})
	mem.AddSupplier(models.Supplier{ID: supplierB, Name: "Proveedor Demo B"})

	zapLogger.Info("memory storage seeded",
		zap.String("company_id", companyID),
		zap.String("project_id", projectID),
		zap.String("category_id", categoryID),
		zap.String("currency_id", currencyID),
		zap.Strings("supplier_ids", []string{supplierA, supplierB}))
}

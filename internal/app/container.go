package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Clinica-api/internal/application/analytics"
	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain/repository"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/events"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Clinica-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Clinica-api/pkg/config"
	"github.com/jhoicas/Clinica-api/pkg/logger"
)

// Container agrupa stores, publicador y casos de uso compartidos por api, worker y pharmacyctl.
type Container struct {
	Config   *config.Config
	Log      *logger.Logger
	Location *time.Location

	Pool   *pgxpool.Pool // nil con STORE_DRIVER=memory
	Memory *memory.Store // nil con STORE_DRIVER=postgres
	Redis  *redis.Client // nil sin REDIS_ADDR

	Medicines  repository.MedicineRepository
	Batches    repository.BatchRepository
	Orders     repository.SaleOrderRepository
	Users      repository.UserRepository
	TxRunner   pharmacy.TxRunner
	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber // nil sin Redis

	Auth     *auth.AuthUseCase
	Catalog  *pharmacy.CatalogUseCase
	BatchUC  *pharmacy.BatchUseCase
	Checkout *pharmacy.CheckoutUseCase
	Sales    *pharmacy.SalesUseCase
	Alerts   *pharmacy.AlertUseCase
	Revenue  *analytics.RevenueUseCase
}

// New abre el store configurado y construye los casos de uso.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log, Location: cfg.Clinic.Location()}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		c.Memory = memory.NewStore()
		c.Medicines = c.Memory.Medicines()
		c.Batches = c.Memory.Batches()
		c.Orders = c.Memory.Orders()
		c.Users = c.Memory.Users()
		c.TxRunner = c.Memory
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.Pool = pool
		c.Medicines = postgres.NewMedicineRepository(pool)
		c.Batches = postgres.NewBatchRepository(pool)
		c.Orders = postgres.NewSaleOrderRepository(pool)
		c.Users = postgres.NewUserRepository(pool)
		c.TxRunner = postgres.NewTxRunner(pool)
	}

	c.Publisher = ports.NopPublisher{}
	if cfg.Redis.Addr != "" {
		client, err := events.NewClient(ctx, cfg.Redis)
		if err != nil {
			// Sin eventos la farmacia sigue operando
			log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, eventos deshabilitados")
		} else {
			c.Redis = client
			pub := events.NewRedisPublisher(client, cfg.Redis.EventsPrefix, log.Component("events"))
			c.Publisher = pub
			c.Subscriber = pub
		}
	}

	retry := pharmacy.RetryConfig{MaxAttempts: cfg.Pharmacy.MaxTxAttempts, Backoff: cfg.Pharmacy.RetryBackoff}
	alertCfg := pharmacy.AlertConfig{WarningDays: cfg.Pharmacy.ExpiryWarningDays, CriticalDays: cfg.Pharmacy.ExpiryCriticalDays}

	c.Auth = auth.NewAuthUseCase(c.Users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	c.Catalog = pharmacy.NewCatalogUseCase(c.Medicines, log.Component("catalog"))
	c.BatchUC = pharmacy.NewBatchUseCase(c.TxRunner, c.Medicines, c.Batches, c.Publisher, retry, c.Location, log.Component("batches"))
	c.Checkout = pharmacy.NewCheckoutUseCase(c.TxRunner, c.Medicines, c.Publisher, retry, log.Component("checkout"))
	c.Sales = pharmacy.NewSalesUseCase(c.Orders, c.Medicines, c.Batches, c.Users,
		infrapdf.NewMarotoReceiptGenerator(), cfg.Clinic.Name, c.Location)
	c.Alerts = pharmacy.NewAlertUseCase(c.Medicines, c.Batches, c.Publisher, alertCfg, c.Location, log.Component("alerts"))
	c.Revenue = analytics.NewRevenueUseCase(c.Orders, c.Medicines, c.Location)
	return c, nil
}

// Migrate aplica las migraciones embebidas. Solo disponible con Postgres.
func (c *Container) Migrate(ctx context.Context) ([]string, error) {
	if c.Pool == nil {
		return nil, fmt.Errorf("migrate: requiere STORE_DRIVER=%s", config.StoreDriverPostgres)
	}
	return postgres.Migrate(ctx, c.Pool, c.Log.Component("migrate"))
}

// Close libera las conexiones abiertas.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warn().Err(err).Msg("cerrar redis")
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

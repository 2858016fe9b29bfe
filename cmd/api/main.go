package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	appstock "github.com/tu-usuario/compras-api/internal/application/stock"
	"github.com/tu-usuario/compras-api/internal/infrastructure/cache"
	"github.com/tu-usuario/compras-api/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/compras-api/internal/interfaces/http"
	"github.com/tu-usuario/compras-api/pkg/config"
	"github.com/tu-usuario/compras-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	movementRepo := postgres.NewMovementRepository(pool)
	divergenceRepo := postgres.NewDivergenceRepository(pool)
	balanceRepo := postgres.NewBalanceRepository(pool)
	orderRepo := postgres.NewPurchaseOrderRepository(pool)
	branchRepo := postgres.NewBranchRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Caché de saldos opcional: solo si REDIS_ADDR está configurado.
	var balanceCache appstock.BalanceCache
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis no disponible, continuando sin caché")
		} else {
			balanceCache = cache.NewStockCache(rdb, cfg.Redis.TTL, log.Component("cache"))
			defer rdb.Close()
			log.Info().Str("addr", cfg.Redis.Addr).Msg("caché de saldos habilitado")
		}
	}

	recorderUC := appstock.NewRecordMovementUseCase(txRunner, orderRepo, branchRepo, itemRepo, balanceCache)
	resolverUC := appstock.NewResolveDivergenceUseCase(txRunner, balanceCache)
	queryUC := appstock.NewQueryUseCase(movementRepo, divergenceRepo, balanceRepo, branchRepo, balanceCache)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Compras API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Recorder:  recorderUC,
		Resolver:  resolverUC,
		Query:     queryUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

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

	"github.com/jhoicas/Clinica-api/internal/app"
	httpRouter "github.com/jhoicas/Clinica-api/internal/interfaces/http"
	"github.com/jhoicas/Clinica-api/pkg/config"
	"github.com/jhoicas/Clinica-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})
	fiberApp.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.HTTP.SwaggerFile != "" {
		if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
			fiberApp.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.HTTP.SwaggerFile,
				Path:     "docs",
				Title:    "Clínica API - Farmacia",
			}))
		} else {
			log.Warn().Str("file", cfg.HTTP.SwaggerFile).Msg("swagger no encontrado, /docs deshabilitado")
		}
	}

	fiberApp.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(fiberApp, httpRouter.RouterDeps{
		AuthUC:     c.Auth,
		CatalogUC:  c.Catalog,
		BatchUC:    c.BatchUC,
		CheckoutUC: c.Checkout,
		SalesUC:    c.Sales,
		AlertUC:    c.Alerts,
		RevenueUC:  c.Revenue,
		Events:     c.Subscriber,
		Location:   c.Location,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := fiberApp.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

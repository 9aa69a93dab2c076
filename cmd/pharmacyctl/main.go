package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/Clinica-api/internal/app"
	"github.com/jhoicas/Clinica-api/internal/cli"
	"github.com/jhoicas/Clinica-api/internal/jobs"
	"github.com/jhoicas/Clinica-api/pkg/config"
	"github.com/jhoicas/Clinica-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	// Logs a stderr para no mezclarlos con la salida de los comandos
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "pharmacyctl", Output: os.Stderr})

	open := func(ctx context.Context) (*cli.Backend, error) {
		c, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b := &cli.Backend{
			Auth:    c.Auth,
			Catalog: c.Catalog,
			Alerts:  c.Alerts,
			Close:   c.Close,
		}
		if c.Pool != nil {
			b.Migrate = c.Migrate
		}
		if cfg.Redis.Addr != "" {
			b.EnqueueAlerts = func(ctx context.Context) (string, error) {
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				info, err := client.EnqueueStockAlerts(ctx, jobs.StockAlertsPayload{Trigger: "pharmacyctl"})
				if err != nil {
					return "", err
				}
				return info.ID, nil
			}
		}
		return b, nil
	}

	if err := cli.NewRootCommand(open, nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

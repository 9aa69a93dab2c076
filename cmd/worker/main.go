package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/Clinica-api/internal/app"
	"github.com/jhoicas/Clinica-api/internal/jobs"
	"github.com/jhoicas/Clinica-api/pkg/config"
	"github.com/jhoicas/Clinica-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "worker"})

	if cfg.Redis.Addr == "" {
		log.Fatal().Msg("el worker requiere REDIS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer c.Close()

	alertsJob := jobs.NewStockAlertsJob(c.Alerts, log.Component("jobs"), nil)
	alertsTask, err := jobs.NewStockAlertsTask(jobs.StockAlertsPayload{Trigger: "cron"})
	if err != nil {
		log.Fatal().Err(err).Msg("construir tarea de alertas")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Concurrency: cfg.Worker.Concurrency,
		Location:    c.Location,
		Logger:      log.Component("asynq"),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockAlerts, Handler: alertsJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.Worker.AlertsCron, Task: alertsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar worker")
	}

	log.Info().Str("cron", cfg.Worker.AlertsCron).Msg("worker iniciado")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker finalizado con error")
	}
	log.Info().Msg("worker detenido")
}

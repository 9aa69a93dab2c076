// Package events publica y consume notificaciones de cambio sobre listas lógicas usando Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/pkg/config"
)

var (
	_ ports.EventPublisher  = (*RedisPublisher)(nil)
	_ ports.EventSubscriber = (*RedisPublisher)(nil)
)

// NewClient crea el cliente Redis y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events: ping redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publica cada ChangeEvent como JSON en el canal <prefix>:<list>.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisPublisher construye el publicador. prefix vacío publica en el nombre de la lista tal cual.
func NewRedisPublisher(client *redis.Client, prefix string, logger zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// Channel nombre del canal Redis para una lista lógica.
func (p *RedisPublisher) Channel(list string) string {
	if p.prefix == "" {
		return list
	}
	return p.prefix + ":" + list
}

// Publish serializa y publica el evento.
func (p *RedisPublisher) Publish(ctx context.Context, evt ports.ChangeEvent) error {
	if evt.List == "" {
		return fmt.Errorf("events: evento sin lista")
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.Channel(evt.List), payload).Result()
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.List, err)
	}
	p.logger.Debug().Str("list", evt.List).Str("type", evt.Type).Int64("receivers", receivers).Msg("evento publicado")
	return nil
}

// Subscribe se suscribe a las listas dadas y devuelve los eventos decodificados.
// La suscripción queda confirmada al retornar; el canal se cierra cuando ctx termina.
// Mensajes que no son JSON válido se descartan con un warning.
func (p *RedisPublisher) Subscribe(ctx context.Context, lists ...string) (<-chan ports.ChangeEvent, error) {
	if len(lists) == 0 {
		return nil, fmt.Errorf("events: subscribe sin listas")
	}
	channels := make([]string, len(lists))
	for i, l := range lists {
		channels[i] = p.Channel(l)
	}

	sub := p.client.Subscribe(ctx, channels...)
	for range channels {
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			return nil, fmt.Errorf("events: subscribe: %w", err)
		}
	}

	out := make(chan ports.ChangeEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt ports.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					p.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("evento ilegible descartado")
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

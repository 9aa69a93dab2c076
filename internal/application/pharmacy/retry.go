package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Clinica-api/internal/domain"
)

// RetryConfig límite de reintentos ante conflictos optimistas.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryConfig tres intentos con espera lineal corta.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Backoff: 25 * time.Millisecond}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	return c
}

// withConflictRetry repite fn (lectura-cálculo-escritura completa) mientras falle con domain.ErrConflict.
// Cualquier otro error se devuelve sin reintentar. Agotados los intentos devuelve ErrTransientStorageConflict.
func withConflictRetry(ctx context.Context, cfg RetryConfig, log zerolog.Logger, op string, fn func(attempt int) error) error {
	cfg = cfg.normalized()
	var last error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		last = err
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Int("max_attempts", cfg.MaxAttempts).Msg("conflicto de concurrencia, reintentando")
		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.Backoff > 0 {
			timer := time.NewTimer(cfg.Backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return fmt.Errorf("%w: %s tras %d intentos: %v", domain.ErrTransientStorageConflict, op, cfg.MaxAttempts, last)
}

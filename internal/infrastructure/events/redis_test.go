package events_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/infrastructure/events"
)

func newPublisher(t *testing.T) (*events.RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return events.NewRedisPublisher(client, "clinica", zerolog.Nop()), mr
}

func TestPublishSubscribe(t *testing.T) {
	pub, _ := newPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pub.Subscribe(ctx, ports.ListSales, ports.ListBatches)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, ports.ChangeEvent{
		List:     ports.ListSales,
		Type:     ports.EventSaleCreated,
		EntityID: "S1",
		Data:     map[string]any{"total": "26500"},
	}))

	select {
	case evt := <-ch:
		assert.Equal(t, ports.ListSales, evt.List)
		assert.Equal(t, ports.EventSaleCreated, evt.Type)
		assert.Equal(t, "S1", evt.EntityID)
		assert.Equal(t, "26500", evt.Data["total"])
		assert.False(t, evt.OccurredAt.IsZero())
	case <-ctx.Done():
		t.Fatal("no llegó el evento")
	}
}

func TestSubscribe_CierraConContexto(t *testing.T) {
	pub, _ := newPublisher(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := pub.Subscribe(ctx, ports.ListAlerts)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("el canal no se cerró")
	}
}

func TestPublish_Errores(t *testing.T) {
	pub, _ := newPublisher(t)
	ctx := context.Background()

	assert.Error(t, pub.Publish(ctx, ports.ChangeEvent{Type: "x"}))

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: time.Second})
	t.Cleanup(func() { _ = down.Close() })
	offline := events.NewRedisPublisher(down, "clinica", zerolog.Nop())
	assert.Error(t, offline.Publish(ctx, ports.ChangeEvent{List: ports.ListSales, Type: ports.EventSaleCreated}))
}

func TestChannel(t *testing.T) {
	pub, _ := newPublisher(t)
	assert.Equal(t, "clinica:pharmacy.alerts", pub.Channel(ports.ListAlerts))
	assert.Equal(t, "pharmacy.alerts", events.NewRedisPublisher(nil, "", zerolog.Nop()).Channel(ports.ListAlerts))
}

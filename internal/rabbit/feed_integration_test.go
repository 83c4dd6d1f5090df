//go:build integration

package rabbit

import (
	"context"
	"sync"
	"testing"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRabbit "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func TestFeed_FanoutToEverySubscriber(t *testing.T) {
	ctx := context.Background()
	c, err := tcRabbit.Run(ctx, "rabbitmq:3.13-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	url, err := c.AmqpURL(ctx)
	require.NoError(t, err)
	conn, err := amqp091.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, Setup(ch))

	feed := NewFeed(conn)
	var mu sync.Mutex
	got := map[string][]string{}
	subscribe := func(name string) func() error {
		sub, err := feed.Subscribe(ctx, func(r model.PurchaseRecord) {
			mu.Lock()
			got[name] = append(got[name], r.ID)
			mu.Unlock()
		})
		require.NoError(t, err)
		return sub.Unsubscribe
	}
	unsubA := subscribe("a")
	unsubB := subscribe("b")

	pub := NewPublisher(ch)
	require.NoError(t, pub.PublishInserted(ctx, model.PurchaseRecord{ID: "1", CodigoReferido: "ABC", CreatedAt: time.Now()}))

	count := func(name string) int {
		mu.Lock()
		defer mu.Unlock()
		return len(got[name])
	}
	require.Eventually(t, func() bool { return count("a") == 1 && count("b") == 1 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, unsubA())
	require.NoError(t, unsubA())
	require.NoError(t, pub.PublishInserted(ctx, model.PurchaseRecord{ID: "2", CodigoReferido: "XYZ", CreatedAt: time.Now()}))
	require.Eventually(t, func() bool { return count("b") == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, count("a"))
	require.NoError(t, unsubB())
}

package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBroker(t *testing.T) {
	mb, err := NewMessageBroker(TestRabbitMQ(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mb.Close() })

	require.NoError(t, DeclareTopology(mb))
	require.NoError(t, DeclareTopology(mb), "declaring twice is harmless")

	msgs, err := mb.Consume(UserCreatedKey, UserExchange, UserCreatedQueue)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mb.Publish(ctx, []byte(`{"Email":"a@b.com"}`), UserCreatedKey, UserExchange))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"Email":"a@b.com"}`, string(msg.Body))
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, "blogsphere", msg.AppId)
		assert.Equal(t, string(UserCreatedKey), msg.Type)
		assert.NotEmpty(t, msg.MessageId)
		require.NoError(t, msg.Ack(false))
	case <-ctx.Done():
		t.Fatal("no delivery on user_created_queue")
	}

	_, err = mb.Consume(UserCreatedKey, UserExchange, UserCreatedQueue)
	assert.Error(t, err, "consumer tags are unique per queue")
}

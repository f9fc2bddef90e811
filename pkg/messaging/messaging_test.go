package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoChannelPublishJSON(t *testing.T) {
	ps := NewGoChannel(logr.Discard())
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := ps.Subscriber.Subscribe(ctx, TopicSaleRecorded)
	require.NoError(t, err)

	require.NoError(t, PublishJSON(ps.Publisher, TopicSaleRecorded, map[string]int{"quantity": 3}))

	select {
	case msg := <-messages:
		var got map[string]int
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, 3, got["quantity"])
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

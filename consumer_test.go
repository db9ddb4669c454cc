package raid_test

import (
	"context"
	"strings"
	"testing"

	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientName(t *testing.T) {
	t.Parallel()

	name, err := raid.ClientName("raids", false)
	require.NoError(t, err)
	assert.Equal(t, "raids", name)

	first, err := raid.ClientName("raids", true)
	require.NoError(t, err)

	second, err := raid.ClientName("raids", true)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "raids-"))
	assert.Len(t, first, len("raids-")+8)
	assert.NotEqual(t, first, second)
}

func TestMemoryProducer(t *testing.T) {
	t.Parallel()

	producer := raid.NewMemoryProducer()

	payload, err := raid.NewProducedPayload(raid.RaidEventPing, raid.Ping{SessionID: 1}, raid.ProducedMetadata{Identifier: "raids"}, nil)
	require.NoError(t, err)
	assert.Contains(t, payload.Trace, "publish")

	require.NoError(t, producer.Publish(context.Background(), payload))

	payloads := producer.Drain()
	require.Len(t, payloads, 1)
	assert.Equal(t, raid.RaidEventPing, payloads[0].Type)
	assert.Empty(t, producer.Drain())
}

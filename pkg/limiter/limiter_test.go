package limiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/WelcomerTeam/Raid-Daemon/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyLimiter(t *testing.T) {
	t.Parallel()

	l := limiter.NewConcurrencyLimiter("test", 2)
	assert.Equal(t, 2, l.Limit())
	assert.Equal(t, "test", l.Name())

	first, err := l.Wait(context.Background())
	require.NoError(t, err)

	second, err := l.Wait(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), l.InProgress())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l.FreeTicket(first)
	assert.Equal(t, int32(1), l.InProgress())

	ticket, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, ticket)
}

func TestConcurrencyLimiterMinimum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, limiter.NewConcurrencyLimiter("zero", 0).Limit())
}

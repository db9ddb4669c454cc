package raid_test

import (
	"testing"

	"github.com/WelcomerTeam/Discord/discord"
	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
)

func TestInviteQueueFIFO(t *testing.T) {
	t.Parallel()

	queue := raid.NewInviteQueue(3)

	assert.True(t, queue.Enqueue(3))
	assert.True(t, queue.Enqueue(1))
	assert.False(t, queue.Enqueue(3), "duplicates are rejected")
	assert.True(t, queue.Enqueue(2))
	assert.False(t, queue.Enqueue(4), "full queue rejects")
	assert.True(t, queue.Full())

	assert.Equal(t, []discord.Snowflake{3, 1, 2}, queue.Players())

	assert.True(t, queue.Remove(1))
	assert.False(t, queue.Remove(1))
	assert.Equal(t, []discord.Snowflake{3, 2}, queue.Players())
	assert.False(t, queue.Contains(1))
	assert.True(t, queue.Contains(2))
	assert.Equal(t, 2, queue.Len())
	assert.Equal(t, 3, queue.Limit())
}

func TestInviteQueuePage(t *testing.T) {
	t.Parallel()

	queue := raid.NewInviteQueue(10)
	for player := discord.Snowflake(1); player <= 7; player++ {
		queue.Enqueue(player)
	}

	assert.Equal(t, []discord.Snowflake{1, 2, 3}, queue.Page(0, 3))
	assert.Equal(t, []discord.Snowflake{7}, queue.Page(6, 3))
	assert.Empty(t, queue.Page(7, 3))
	assert.Empty(t, queue.Page(-1, 3))
	assert.Empty(t, queue.Page(0, 0))
}

func TestInviteQueuePageIsCopy(t *testing.T) {
	t.Parallel()

	queue := raid.NewInviteQueue(2)
	queue.Enqueue(1)

	page := queue.Page(0, 1)
	page[0] = 99

	assert.Equal(t, []discord.Snowflake{1}, queue.Players())
}

func TestInviteQueueRequeue(t *testing.T) {
	t.Parallel()

	queue := raid.NewInviteQueue(1)

	assert.True(t, queue.Enqueue(1))
	assert.False(t, queue.Enqueue(2))

	assert.True(t, queue.Requeue(2), "requeue ignores the limit")
	assert.False(t, queue.Requeue(1), "requeue still dedupes")
	assert.Equal(t, []discord.Snowflake{1, 2}, queue.Players())
	assert.True(t, queue.Full())
}

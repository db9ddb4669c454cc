package raid_test

import (
	"context"
	"testing"
	"time"

	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryDedupeProvider(t *testing.T) {
	t.Parallel()

	now := testEpoch
	provider := raid.NewInMemoryDedupeProvider().WithClock(func() time.Time { return now })

	ctx := context.Background()

	assert.True(t, provider.Deduplicate(ctx, "a", time.Second))
	assert.False(t, provider.Deduplicate(ctx, "a", time.Second))
	assert.True(t, provider.Deduplicate(ctx, "b", 10*time.Second))

	now = now.Add(time.Second)

	assert.True(t, provider.Deduplicate(ctx, "a", time.Second), "expired keys are let through")

	provider.Release(ctx, "b")
	assert.True(t, provider.Deduplicate(ctx, "b", time.Second))
}

func TestInMemoryDedupeProviderCleanup(t *testing.T) {
	t.Parallel()

	now := testEpoch
	provider := raid.NewInMemoryDedupeProvider().WithClock(func() time.Time { return now })

	ctx := context.Background()

	provider.Deduplicate(ctx, "short", time.Second)
	provider.Deduplicate(ctx, "long", time.Minute)
	assert.Equal(t, 2, provider.Len())

	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, provider.Cleanup())
	assert.Equal(t, 1, provider.Len())
	assert.False(t, provider.Deduplicate(ctx, "long", time.Minute))
}

func TestNoopDedupeProvider(t *testing.T) {
	t.Parallel()

	provider := raid.NewNoopDedupeProvider()

	assert.True(t, provider.Deduplicate(context.Background(), "a", time.Minute))
	assert.True(t, provider.Deduplicate(context.Background(), "a", time.Minute))
}

func TestReactionDedupeKey(t *testing.T) {
	t.Parallel()

	added := react(100, 1, emojiReady)
	removed := unreact(100, 1, emojiReady)
	custom := raid.ReactionEvent{MessageID: 100, UserID: 1, Emoji: raid.Emoji{ID: 555, Name: "ready"}}

	assert.Equal(t, "reaction:add:100:1:"+emojiReady, raid.ReactionDedupeKey(added))
	assert.NotEqual(t, raid.ReactionDedupeKey(added), raid.ReactionDedupeKey(removed))
	assert.Equal(t, "reaction:add:100:1:555", raid.ReactionDedupeKey(custom))
}

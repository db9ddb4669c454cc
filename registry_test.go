package raid_test

import (
	"sync"
	"testing"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	registry := raid.NewRegistry()

	require.NoError(t, registry.Register(1, newActiveRaid()))
	assert.ErrorIs(t, registry.Register(1, newActiveRaid()), raid.ErrSessionExists)
	require.NoError(t, registry.Register(2, newActiveMule()))

	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, []discord.Snowflake{1, 2}, registry.IDs())
	assert.Equal(t, map[raid.Kind]int{raid.KindRaid: 1, raid.KindMule: 1}, registry.CountByKind())
}

func TestRegistrySubMessages(t *testing.T) {
	t.Parallel()

	registry := raid.NewRegistry()
	require.NoError(t, registry.Register(1, newActiveRaid()))

	assert.ErrorIs(t, registry.RegisterSubMessage(10, raid.SubMessage{Kind: raid.SubMessageInviteDialog, Parent: 2}), raid.ErrSessionNotFound)

	require.NoError(t, registry.RegisterSubMessage(11, raid.SubMessage{Kind: raid.SubMessageInviteDialog, Parent: 1, Owner: 5}))
	require.NoError(t, registry.RegisterSubMessage(10, raid.SubMessage{Kind: raid.SubMessageInviteDialog, Parent: 1}))
	require.NoError(t, registry.RegisterSubMessage(12, raid.SubMessage{Kind: raid.SubMessageBossSelection, Parent: 1}))
	assert.ErrorIs(t, registry.RegisterSubMessage(12, raid.SubMessage{Kind: raid.SubMessageBossSelection, Parent: 1}), raid.ErrSessionExists)

	assert.Equal(t, []discord.Snowflake{10, 11}, registry.SubMessages(1, raid.SubMessageInviteDialog))
	assert.Equal(t, 3, registry.SubMessageCount())

	resolution, ok := registry.Resolve(11)
	require.True(t, ok)
	assert.Equal(t, discord.Snowflake(1), resolution.SessionID)
	require.NotNil(t, resolution.SubMessage)
	assert.Equal(t, discord.Snowflake(5), resolution.SubMessage.Owner)

	resolution, ok = registry.Resolve(1)
	require.True(t, ok)
	assert.Nil(t, resolution.SubMessage)

	_, ok = registry.Resolve(99)
	assert.False(t, ok)

	assert.True(t, registry.UnregisterSubMessage(12))
	assert.False(t, registry.UnregisterSubMessage(12))

	assert.True(t, registry.Unregister(1))
	assert.False(t, registry.Unregister(1))
	assert.Equal(t, 0, registry.SubMessageCount())

	_, ok = registry.Resolve(11)
	assert.False(t, ok)
}

func TestRegistryWithSession(t *testing.T) {
	t.Parallel()

	registry := raid.NewRegistry()
	require.NoError(t, registry.Register(1, newActiveRaid()))
	require.NoError(t, registry.RegisterSubMessage(2, raid.SubMessage{Kind: raid.SubMessageInviteDialog, Parent: 1}))

	err := registry.WithSession(2, func(sessionID discord.Snowflake, session raid.Session, sub *raid.SubMessage) error {
		assert.Equal(t, discord.Snowflake(1), sessionID)
		assert.Equal(t, raid.KindRaid, session.Kind())
		require.NotNil(t, sub)
		assert.Equal(t, raid.SubMessageInviteDialog, sub.Kind)

		return nil
	})
	require.NoError(t, err)

	err = registry.WithSession(3, func(discord.Snowflake, raid.Session, *raid.SubMessage) error {
		t.Fatal("unexpected call")

		return nil
	})
	assert.ErrorIs(t, err, raid.ErrSessionNotFound)
}

func TestRegistryWithSessionSerialises(t *testing.T) {
	t.Parallel()

	registry := raid.NewRegistry()
	session := newActiveRaid()
	require.NoError(t, registry.Register(1, session))

	var wg sync.WaitGroup

	for player := discord.Snowflake(1); player <= raid.GroupCapacity; player++ {
		wg.Add(1)

		go func(player discord.Snowflake) {
			defer wg.Done()

			_ = registry.WithSession(1, func(_ discord.Snowflake, s raid.Session, _ *raid.SubMessage) error {
				_, err := s.AddPlayer(raid.NotInSession, player, raid.Attendance{InPerson: 1}, raid.NoPlayer)

				return err
			})
		}(player)
	}

	wg.Wait()

	assert.Equal(t, raid.GroupCapacity, session.Groups()[0].Total)
}

func TestRegistrySweep(t *testing.T) {
	t.Parallel()

	registry := raid.NewRegistry()

	old := raid.NewRaid(raid.Options{Boss: testBoss(), CreatedAt: testEpoch})
	fresh := raid.NewRaid(raid.Options{Boss: testBoss(), CreatedAt: testEpoch.Add(12 * time.Hour)})

	require.NoError(t, registry.Register(1, old))
	require.NoError(t, registry.Register(2, fresh))
	require.NoError(t, registry.RegisterSubMessage(3, raid.SubMessage{Kind: raid.SubMessageInviteDialog, Parent: 1}))

	var swept []discord.Snowflake
	registry.OnSweep = func(removed []discord.Snowflake) {
		swept = removed
	}

	removed := registry.Sweep(testEpoch.Add(raid.SessionLifetime))

	assert.Equal(t, []discord.Snowflake{1}, removed)
	assert.Equal(t, removed, swept)
	assert.Equal(t, []discord.Snowflake{2}, registry.IDs())
	assert.Equal(t, 0, registry.SubMessageCount())
}

func TestSubMessageKindText(t *testing.T) {
	t.Parallel()

	var kind raid.SubMessageKind

	require.NoError(t, kind.UnmarshalText([]byte("mule_group")))
	assert.Equal(t, raid.SubMessageMuleGroup, kind)
	assert.Error(t, kind.UnmarshalText([]byte("poll")))
}

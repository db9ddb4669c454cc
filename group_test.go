package raid_test

import (
	"testing"

	"github.com/WelcomerTeam/Discord/discord"
	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAddPlayerReplaces(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 2}, raid.NoPlayer))
	assert.Equal(t, 2, group.TotalPlayers())

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	assert.Equal(t, 1, group.TotalPlayers())
}

func TestGroupCapacity(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(5)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 3}, raid.NoPlayer))
	require.NoError(t, group.AddPlayer(2, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(3, 1))

	assert.ErrorIs(t, group.AddPlayer(4, raid.Attendance{InPerson: 1}, raid.NoPlayer), raid.ErrCapacityExceeded)
	assert.ErrorIs(t, group.AddInvite(5, 1), raid.ErrCapacityExceeded)
	assert.ErrorIs(t, group.AddPlayer(6, raid.Attendance{}, 1), raid.ErrCapacityExceeded)

	// Shrinking frees room for a replacement that would not fit additively.
	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 2}, raid.NoPlayer))
	require.NoError(t, group.AddPlayer(4, raid.Attendance{InPerson: 1}, raid.NoPlayer))

	assert.LessOrEqual(t, group.TotalPlayers(), group.Capacity())
	assert.Equal(t, 5, group.TotalPlayers())
}

func TestGroupCapacityNeverExceeded(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	for player := discord.Snowflake(1); player <= 30; player++ {
		if player%3 == 0 {
			_ = group.AddInvite(player+100, player-1)
		} else {
			_ = group.AddPlayer(player, raid.Attendance{InPerson: int(player % 4)}, raid.NoPlayer)
		}

		assert.LessOrEqual(t, group.TotalPlayers(), raid.GroupCapacity)
	}
}

func TestGroupRemoteRegistration(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddPlayer(2, raid.Attendance{InPerson: 1}, 1))

	assert.Equal(t, map[discord.Snowflake]discord.Snowflake{2: 1}, group.InvitedAttending())
	assert.NotContains(t, group.Attending(), discord.Snowflake(2))
	assert.Equal(t, 2, group.TotalPlayers())
	assert.Equal(t, 1, group.InvitesBy(1))

	assert.ErrorIs(t, group.AddPlayer(1, raid.Attendance{}, 2), raid.ErrAlreadyMember)
}

func TestGroupMarkReadyEdge(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	for player := discord.Snowflake(1); player <= 3; player++ {
		require.NoError(t, group.AddPlayer(player, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	}

	assert.False(t, group.MarkReady(1))
	assert.False(t, group.MarkReady(2))
	assert.True(t, group.MarkReady(3))
	assert.False(t, group.MarkReady(3), "already ready")
	assert.False(t, group.MarkReady(9), "not attending")

	assert.Equal(t, 3, group.ReadyCount())
	assert.Len(t, group.Here(), 3)
}

func TestGroupMarkReadyInvitee(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1, Remote: 2}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(2, 1))

	assert.False(t, group.MarkReady(2))
	assert.Empty(t, group.InvitedAttending())
	assert.Equal(t, map[discord.Snowflake]discord.Snowflake{2: 1}, group.InvitedReady())
	assert.True(t, group.IsReady(2))

	assert.True(t, group.MarkReady(1))
	assert.Equal(t, 3, group.RemoteReadyCount())
	assert.Equal(t, 2, group.RemoteCount())
	assert.Equal(t, 1, group.InviteCount())
}

func TestGroupRemovePlayerCascades(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(3, 1))
	require.NoError(t, group.AddInvite(2, 1))
	group.MarkReady(2)
	group.MarkReady(1)

	removal := group.RemovePlayer(1)

	assert.True(t, removal.Removed)
	assert.True(t, removal.WasReady)
	assert.Equal(t, []discord.Snowflake{2, 3}, removal.Uninvited)
	assert.True(t, group.Empty())

	removal = group.RemovePlayer(1)
	assert.False(t, removal.Removed)
	assert.Empty(t, removal.Uninvited)
}

func TestGroupClearEmptyPlayer(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(2, 1))

	assert.Empty(t, group.ClearEmptyPlayer(1), "still attends in person")

	require.NoError(t, group.AddPlayer(1, raid.Attendance{Remote: 1}, raid.NoPlayer))

	cleared := group.ClearEmptyPlayer(1)
	assert.Equal(t, map[discord.Snowflake][]discord.Snowflake{1: {2}}, cleared)
	assert.True(t, group.Contains(1, false))
	assert.False(t, group.Contains(2, true))
}

func TestGroupResetReady(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(2, 1))
	group.MarkReady(1)
	group.MarkReady(2)
	assert.True(t, group.MarkGroupReady())
	assert.False(t, group.MarkGroupReady())

	group.ResetReady()

	assert.Empty(t, group.Here())
	assert.Empty(t, group.InvitedReady())
	assert.Equal(t, map[discord.Snowflake]discord.Snowflake{2: 1}, group.InvitedAttending())
	assert.False(t, group.GroupReady())
}

func TestGroupSnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)
	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))

	attending := group.Attending()
	delete(attending, 1)

	assert.True(t, group.Contains(1, false))
}

func TestGroupViewOrder(t *testing.T) {
	t.Parallel()

	group := raid.NewGroup(raid.GroupCapacity)

	require.NoError(t, group.AddPlayer(3, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddPlayer(1, raid.Attendance{InPerson: 1}, raid.NoPlayer))
	require.NoError(t, group.AddPlayer(2, raid.Attendance{InPerson: 1, Remote: 1}, raid.NoPlayer))
	require.NoError(t, group.AddInvite(5, 2))

	view := group.View(0)

	require.Len(t, view.Attending, 3)
	assert.Equal(t, discord.Snowflake(2), view.Attending[0].Player)
	assert.Equal(t, discord.Snowflake(1), view.Attending[1].Player)
	assert.Equal(t, discord.Snowflake(3), view.Attending[2].Player)

	require.Len(t, view.Invited, 1)
	assert.Equal(t, raid.InviteeView{Player: 5, InvitedBy: 2}, view.Invited[0])
	assert.Equal(t, 4, view.Total)
	assert.Equal(t, 1, view.Invites)
}

package raid_test

import (
	"testing"

	"github.com/WelcomerTeam/Discord/discord"
	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveMule() *raid.Mule {
	return raid.NewMule(raid.Options{
		Tier:      5,
		Boss:      testBoss(),
		CreatedAt: testEpoch,
	})
}

func muleInvite(t *testing.T, mule *raid.Mule, invitee, by discord.Snowflake) {
	t.Helper()

	require.NoError(t, mule.RequestInvite(invitee))
	require.NoError(t, mule.InvitePlayer(invitee, by))
}

func TestMuleJoinsMuleGroup(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	result := join(t, mule, 1, 1, 0)
	assert.Equal(t, 0, result.GroupIndex)
	assert.True(t, mule.IsMule(1))

	_, err := mule.AddPlayer(1, 2, raid.Attendance{InPerson: 1}, raid.NoPlayer)
	assert.ErrorIs(t, err, raid.ErrInvalidGroup)

	assert.Equal(t, raid.KindMule, mule.Kind())
}

func TestMuleBrokersIntoParties(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	join(t, mule, 1, 1, 0)
	join(t, mule, 2, 1, 0)

	for invitee := discord.Snowflake(10); invitee < 10+raid.MuleInviteLimit; invitee++ {
		muleInvite(t, mule, invitee, 1)
	}

	assert.Equal(t, 2, mule.GroupCount())
	assert.Equal(t, raid.MuleInviteLimit, mule.MuleInvites(1))

	// Party 1 has one seat left, then a new party opens.
	muleInvite(t, mule, 20, 2)
	muleInvite(t, mule, 21, 2)

	assert.Equal(t, 1, mule.IsInRaid(20, true))
	assert.Equal(t, 2, mule.IsInRaid(21, true))
	assert.Equal(t, raid.MuleGroupLimit, mule.Groups()[1].Total)
}

func TestMuleInviteLimit(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	join(t, mule, 1, 1, 0)

	for invitee := discord.Snowflake(10); invitee < 10+raid.MuleInviteLimit; invitee++ {
		muleInvite(t, mule, invitee, 1)
	}

	require.NoError(t, mule.RequestInvite(99))
	assert.ErrorIs(t, mule.InvitePlayer(99, 1), raid.ErrCapacityExceeded)
	assert.Equal(t, []discord.Snowflake{99}, mule.QueuedPlayers())
	assert.LessOrEqual(t, mule.MuleInvites(1), raid.MuleInviteLimit)
}

func TestMuleRequiresMule(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	require.NoError(t, mule.RequestInvite(10))
	assert.ErrorIs(t, mule.InvitePlayer(10, 1), raid.ErrNotMule)

	_, err := mule.AddPlayer(raid.NotInSession, 10, raid.Attendance{}, 1)
	assert.ErrorIs(t, err, raid.ErrNotMule)
}

func TestMuleRegisterOnBehalf(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	join(t, mule, 1, 1, 0)
	require.NoError(t, mule.RequestInvite(10))

	result, err := mule.AddPlayer(raid.NotInSession, 10, raid.Attendance{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.GroupIndex)
	assert.Empty(t, mule.QueuedPlayers())

	_, err = mule.AddPlayer(raid.NotInSession, 10, raid.Attendance{}, 1)
	assert.ErrorIs(t, err, raid.ErrAlreadyMember)
}

func TestMulePartyReadyEdge(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	join(t, mule, 1, 1, 0)
	muleInvite(t, mule, 10, 1)
	muleInvite(t, mule, 11, 1)

	assert.Equal(t, raid.NotInSession, mule.PlayerReady(10))
	assert.Equal(t, 1, mule.PlayerReady(11))
	assert.Equal(t, raid.NotInSession, mule.PlayerReady(11))

	assert.Equal(t, 0, mule.PlayerReady(1))
}

func TestMuleReady(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	join(t, mule, 1, 1, 0)
	muleInvite(t, mule, 11, 1)
	muleInvite(t, mule, 10, 1)

	_, err := mule.Ready(9, 1)
	assert.ErrorIs(t, err, raid.ErrNotMule)

	_, err = mule.Ready(1, 0)
	assert.ErrorIs(t, err, raid.ErrInvalidGroup)

	_, err = mule.Ready(1, 5)
	assert.ErrorIs(t, err, raid.ErrInvalidGroup)

	called, err := mule.Ready(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []discord.Snowflake{10, 11}, called)

	called, err = mule.Ready(1, 1)
	require.NoError(t, err)
	assert.Empty(t, called)

	assert.True(t, mule.Groups()[1].Called)

	// A called party takes no more invitees.
	muleInvite(t, mule, 12, 1)
	assert.Equal(t, 2, mule.IsInRaid(12, true))
}

func TestMulePartyLimit(t *testing.T) {
	t.Parallel()

	mule := newActiveMule()

	for m := discord.Snowflake(1); m <= 4; m++ {
		join(t, mule, m, 1, 0)
	}

	invitee := discord.Snowflake(100)

	for m := discord.Snowflake(1); m <= 4; m++ {
		for i := 0; i < raid.MuleInviteLimit; i++ {
			if m == 4 && invitee >= 100+raid.MuleGroupLimit*raid.MuleRemoteGroupLimit {
				break
			}

			muleInvite(t, mule, invitee, m)
			invitee++
		}
	}

	assert.Equal(t, 1+raid.MuleRemoteGroupLimit, mule.GroupCount())

	require.NoError(t, mule.RequestInvite(999))
	assert.ErrorIs(t, mule.InvitePlayer(999, 4), raid.ErrCapacityExceeded)
}

package raid_test

import (
	"testing"

	"github.com/WelcomerTeam/Discord/discord"
	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveTrain(conductor discord.Snowflake) *raid.Train {
	return raid.NewTrain(conductor, raid.Options{
		Tier:      5,
		Boss:      testBoss(),
		Time:      "13:00",
		Location:  "Fountain",
		CreatedAt: testEpoch,
	})
}

func TestTrainConductorJoins(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)

	assert.Equal(t, discord.Snowflake(1), train.Conductor())
	assert.Equal(t, 0, train.IsInRaid(1, false))
	assert.Equal(t, []raid.Stop{{Time: "13:00", Location: "Fountain"}}, train.Stops())
	assert.Equal(t, raid.KindTrain, train.Kind())
}

func TestTrainOnlyConductorEditsRoute(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)
	join(t, train, 2, 1, 0)

	assert.ErrorIs(t, train.AddStop(2, "14:00", "Gym"), raid.ErrNotConductor)
	assert.ErrorIs(t, train.AddStop(raid.NoPlayer, "14:00", "Gym"), raid.ErrNotConductor)

	_, err := train.AdvanceStop(2)
	assert.ErrorIs(t, err, raid.ErrNotConductor)

	assert.ErrorIs(t, train.ReassignConductor(2, 2), raid.ErrNotConductor)
	assert.Len(t, train.Stops(), 1)
}

func TestTrainAdvanceStop(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)
	join(t, train, 2, 1, 0)

	require.NoError(t, train.AddStop(1, "14:00", "Gym"))

	assert.Equal(t, raid.NotInSession, train.PlayerReady(1))
	assert.Equal(t, 0, train.PlayerReady(2))

	stop, err := train.AdvanceStop(1)
	require.NoError(t, err)
	assert.Equal(t, raid.Stop{Time: "14:00", Location: "Gym"}, stop)
	assert.Equal(t, "Gym", train.Location())
	assert.Equal(t, "14:00", train.Time())

	current, index := train.CurrentStop()
	assert.Equal(t, stop, current)
	assert.Equal(t, 1, index)

	assert.Equal(t, 0, train.Groups()[0].Ready, "readiness resets at every stop")

	_, err = train.AdvanceStop(1)
	assert.ErrorIs(t, err, raid.ErrNoNextStop)

	// The group can become ready again at the new stop.
	assert.Equal(t, raid.NotInSession, train.PlayerReady(1))
	assert.Equal(t, 0, train.PlayerReady(2))
}

func TestTrainReassignConductor(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)
	join(t, train, 2, 1, 0)

	assert.ErrorIs(t, train.ReassignConductor(1, 9), raid.ErrNotAMember)
	require.NoError(t, train.ReassignConductor(1, 2))
	assert.Equal(t, discord.Snowflake(2), train.Conductor())

	assert.ErrorIs(t, train.AddStop(1, "14:00", "Gym"), raid.ErrNotConductor)
	assert.NoError(t, train.AddStop(2, "14:00", "Gym"))
}

func TestTrainReassignConductorToInvitee(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)
	join(t, train, 2, 1, 0)

	require.NoError(t, train.RequestInvite(7))
	require.NoError(t, train.InvitePlayer(7, 2))
	require.Equal(t, raid.NotInSession, train.IsInRaid(7, false))

	require.NoError(t, train.ReassignConductor(1, 7))
	assert.Equal(t, discord.Snowflake(7), train.Conductor())
	assert.NoError(t, train.AddStop(7, "14:00", "Gym"))

	result := train.RemovePlayer(2)
	assert.Equal(t, []discord.Snowflake{7}, result.Revoked)
	assert.Equal(t, discord.Snowflake(1), train.Conductor(), "revoked conductor hands the role on")
}

func TestTrainConductorHandOff(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(5)
	join(t, train, 4, 1, 0)
	join(t, train, 3, 1, 0)

	train.RemovePlayer(5)
	assert.Equal(t, discord.Snowflake(3), train.Conductor())

	train.RemovePlayer(4)
	assert.Equal(t, discord.Snowflake(3), train.Conductor(), "non conductor leaving changes nothing")

	train.RemovePlayer(3)
	assert.Equal(t, raid.NoPlayer, train.Conductor())

	join(t, train, 8, 1, 0)
	assert.Equal(t, discord.Snowflake(8), train.Conductor())
}

func TestTrainView(t *testing.T) {
	t.Parallel()

	train := newActiveTrain(1)
	require.NoError(t, train.AddStop(1, "14:00", "Gym"))

	view := raid.ViewOf(7, train, testEpoch)

	assert.Equal(t, "train", view.Kind)
	assert.Equal(t, discord.Snowflake(1), view.Conductor)
	assert.Len(t, view.Stops, 2)
	assert.Equal(t, 0, view.CurrentStop)
	assert.Equal(t, "Fountain", view.Location)
}

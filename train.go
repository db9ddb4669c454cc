package raid

import (
	"slices"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/samber/lo"
)

// Stop is one raid on a train's route.
type Stop struct {
	Time     string `json:"time"`
	Location string `json:"location"`
}

// Train is a raid that moves through a list of stops with one roster. Only the
// conductor may change the route.
type Train struct {
	Raid

	stops     []Stop
	current   int
	conductor discord.Snowflake
}

// NewTrain creates a train whose first stop comes from opts. The conductor
// joins the first group with one in-person account.
func NewTrain(conductor discord.Snowflake, opts Options) *Train {
	t := &Train{
		Raid: Raid{
			session: newSession(KindTrain, opts, GroupCapacity, GroupCapacity, RaidGroupLimit, InviteLimit),
		},
		stops:     []Stop{{Time: opts.Time, Location: opts.Location}},
		conductor: conductor,
	}

	if conductor != NoPlayer {
		_ = t.groups[0].AddPlayer(conductor, Attendance{InPerson: 1}, NoPlayer)
	}

	return t
}

func (t *Train) Conductor() discord.Snowflake {
	return t.conductor
}

func (t *Train) Stops() []Stop {
	return slices.Clone(t.stops)
}

// CurrentStop returns the stop the train is at and its index.
func (t *Train) CurrentStop() (Stop, int) {
	return t.stops[t.current], t.current
}

func (t *Train) Time() string {
	return t.stops[t.current].Time
}

func (t *Train) Location() string {
	return t.stops[t.current].Location
}

func (t *Train) AddStop(actor discord.Snowflake, time, location string) error {
	if actor == NoPlayer || actor != t.conductor {
		return ErrNotConductor
	}

	t.stops = append(t.stops, Stop{Time: time, Location: location})

	return nil
}

// AdvanceStop moves the train on and clears everyone's readiness.
func (t *Train) AdvanceStop(actor discord.Snowflake) (Stop, error) {
	if actor == NoPlayer || actor != t.conductor {
		return Stop{}, ErrNotConductor
	}

	if t.current+1 >= len(t.stops) {
		return Stop{}, ErrNoNextStop
	}

	t.current++

	for _, group := range t.groups {
		group.ResetReady()
	}

	return t.stops[t.current], nil
}

func (t *Train) ReassignConductor(actor, conductor discord.Snowflake) error {
	if actor == NoPlayer || actor != t.conductor {
		return ErrNotConductor
	}

	if t.IsInRaid(conductor, true) == NotInSession {
		return ErrNotAMember
	}

	t.conductor = conductor

	return nil
}

// AddPlayer joins like a raid. A train left without a conductor hands the role
// to the next player joining in their own name.
func (t *Train) AddPlayer(groupIndex int, player discord.Snowflake, attendance Attendance, onBehalfOf discord.Snowflake) (JoinResult, error) {
	result, err := t.Raid.AddPlayer(groupIndex, player, attendance, onBehalfOf)
	if err != nil {
		return result, err
	}

	if slices.Contains(result.Revoked, t.conductor) {
		t.conductor = t.successor()
	}

	if t.conductor == NoPlayer && (onBehalfOf == NoPlayer || onBehalfOf == player) {
		t.conductor = player
	}

	return result, nil
}

// RemovePlayer leaves like a raid. A departing conductor, or an invited one
// whose inviter left, hands the role to the first remaining member.
func (t *Train) RemovePlayer(player discord.Snowflake) RemoveResult {
	result := t.Raid.RemovePlayer(player)

	if (result.GroupIndex != NotInSession && player == t.conductor) || slices.Contains(result.Revoked, t.conductor) {
		t.conductor = t.successor()
	}

	return result
}

func (t *Train) successor() discord.Snowflake {
	for _, group := range t.groups {
		if members := lo.Keys(group.Attending()); len(members) > 0 {
			return slices.Min(members)
		}
	}

	return NoPlayer
}

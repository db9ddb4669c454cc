package raid

import (
	"github.com/WelcomerTeam/Discord/discord"
)

const (
	// MuleInviteLimit is how many remote invitees one mule may broker.
	MuleInviteLimit = 5
	// MuleGroupLimit is the size of one remote party.
	MuleGroupLimit = 6
	// MuleRemoteGroupLimit is how many remote parties a mule session can hold.
	MuleRemoteGroupLimit = 3

	muleGroup = 0
)

// Mule is a session where group 0 holds mules, players who bring remote
// invitees in. Every other group is a remote party called in as a whole.
type Mule struct {
	session
}

func NewMule(opts Options) *Mule {
	return &Mule{
		session: newSession(KindMule, opts, GroupCapacity, MuleGroupLimit, 1+MuleRemoteGroupLimit, InviteLimit),
	}
}

// IsMule reports whether the player sits in the mule group.
func (m *Mule) IsMule(player discord.Snowflake) bool {
	return m.groups[muleGroup].Contains(player, false)
}

// MuleInvites counts the invitees a mule has across all remote parties.
func (m *Mule) MuleInvites(mule discord.Snowflake) int {
	count := 0

	for _, party := range m.groups[muleGroup+1:] {
		count += party.InvitesBy(mule)
	}

	return count
}

// InvitePlayer moves a queued player into a remote party brokered by mule.
func (m *Mule) InvitePlayer(invitee, mule discord.Snowflake) error {
	if !m.active() {
		return ErrInvalidState
	}

	if !m.queue.Contains(invitee) {
		return ErrNotQueued
	}

	if _, err := m.broker(invitee, mule); err != nil {
		return err
	}

	m.queue.Remove(invitee)
	m.invitingPlayer = NoPlayer

	return nil
}

// broker places invitee in the first remote party with room, opening a new
// party when every existing one is full or already called in.
func (m *Mule) broker(invitee, mule discord.Snowflake) (int, error) {
	if !m.IsMule(mule) {
		return NotInSession, ErrNotMule
	}

	if m.IsInRaid(invitee, true) != NotInSession {
		return NotInSession, ErrAlreadyMember
	}

	if m.MuleInvites(mule) >= MuleInviteLimit {
		return NotInSession, ErrCapacityExceeded
	}

	for index := muleGroup + 1; index < len(m.groups); index++ {
		party := m.groups[index]

		if party.GroupReady() || party.TotalPlayers() >= party.Capacity() {
			continue
		}

		if err := party.AddInvite(invitee, mule); err != nil {
			return NotInSession, err
		}

		return index, nil
	}

	index, err := m.NewGroup()
	if err != nil {
		return NotInSession, ErrCapacityExceeded
	}

	if err := m.groups[index].AddInvite(invitee, mule); err != nil {
		return NotInSession, err
	}

	return index, nil
}

// AddPlayer joins the mule group. A player registered on behalf of a mule is
// brokered into a remote party instead.
func (m *Mule) AddPlayer(groupIndex int, player discord.Snowflake, attendance Attendance, onBehalfOf discord.Snowflake) (JoinResult, error) {
	if onBehalfOf == NoPlayer || onBehalfOf == player {
		if groupIndex != NotInSession && groupIndex != muleGroup {
			return JoinResult{GroupIndex: NotInSession}, ErrInvalidGroup
		}

		return m.session.AddPlayer(muleGroup, player, attendance, NoPlayer)
	}

	if !m.active() {
		return JoinResult{GroupIndex: NotInSession}, ErrInvalidState
	}

	index, err := m.broker(player, onBehalfOf)
	if err != nil {
		return JoinResult{GroupIndex: NotInSession}, err
	}

	m.queue.Remove(player)

	return JoinResult{GroupIndex: index, Revoked: make([]discord.Snowflake, 0)}, nil
}

// PlayerReady marks the player here. For the mule group the edge is every mule
// being ready; for a remote party it is every invitee of the party being ready.
func (m *Mule) PlayerReady(player discord.Snowflake) int {
	if !m.active() {
		return NotInSession
	}

	groupIndex := m.IsInRaid(player, true)

	switch groupIndex {
	case NotInSession:
		return NotInSession
	case muleGroup:
		return m.session.PlayerReady(player)
	}

	party := m.groups[groupIndex]
	before := party.AllInviteesReady()

	party.MarkReady(player)

	if !before && party.AllInviteesReady() {
		return groupIndex
	}

	return NotInSession
}

// Ready calls a remote party in and returns its invitees to notify. Calling an
// already called party returns no one.
func (m *Mule) Ready(actor discord.Snowflake, groupIndex int) ([]discord.Snowflake, error) {
	if !m.active() {
		return nil, ErrInvalidState
	}

	if !m.IsMule(actor) {
		return nil, ErrNotMule
	}

	if groupIndex <= muleGroup || groupIndex >= len(m.groups) {
		return nil, ErrInvalidGroup
	}

	party := m.groups[groupIndex]

	if !party.MarkGroupReady() {
		return []discord.Snowflake{}, nil
	}

	return party.Invitees(), nil
}

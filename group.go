package raid

import (
	"maps"
	"slices"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/samber/lo"
)

// Group is a capacity bounded roster inside a session.
//
// attending holds committed members and here the subset of them marked ready.
// invitedAttending and invitedReady map an invitee to the player who brokered
// them. An invitee is only ever held by one of the four maps.
type Group struct {
	capacity int

	attending        map[discord.Snowflake]Attendance
	here             map[discord.Snowflake]Attendance
	invitedAttending map[discord.Snowflake]discord.Snowflake
	invitedReady     map[discord.Snowflake]discord.Snowflake

	// ready is set once a remote party has been called in.
	ready bool
}

// GroupRemoval describes what RemovePlayer changed.
type GroupRemoval struct {
	Removed   bool
	WasReady  bool
	Uninvited []discord.Snowflake
}

func NewGroup(capacity int) *Group {
	return &Group{
		capacity: capacity,

		attending:        make(map[discord.Snowflake]Attendance),
		here:             make(map[discord.Snowflake]Attendance),
		invitedAttending: make(map[discord.Snowflake]discord.Snowflake),
		invitedReady:     make(map[discord.Snowflake]discord.Snowflake),
	}
}

func (g *Group) Capacity() int {
	return g.capacity
}

// AddPlayer sets the player's attendance. A repeated call replaces the previous
// attendance rather than adding to it. When onBehalfOf is another player the
// entry is recorded as a remote invitee brokered by them.
func (g *Group) AddPlayer(player discord.Snowflake, attendance Attendance, onBehalfOf discord.Snowflake) error {
	if !attendance.Valid() {
		return ErrAttendanceRange
	}

	if onBehalfOf != NoPlayer && onBehalfOf != player {
		return g.addRemote(player, onBehalfOf)
	}

	total := g.TotalPlayers() - g.contribution(player) + attendance.InPerson
	if total > g.capacity {
		return ErrCapacityExceeded
	}

	delete(g.invitedAttending, player)
	delete(g.invitedReady, player)

	g.attending[player] = attendance

	if _, ok := g.here[player]; ok {
		g.here[player] = attendance
	}

	return nil
}

func (g *Group) addRemote(player, inviter discord.Snowflake) error {
	if _, ok := g.attending[player]; ok {
		return ErrAlreadyMember
	}

	if _, ok := g.invitedReady[player]; ok {
		g.invitedReady[player] = inviter

		return nil
	}

	if _, ok := g.invitedAttending[player]; !ok && g.TotalPlayers()+1 > g.capacity {
		return ErrCapacityExceeded
	}

	g.invitedAttending[player] = inviter

	return nil
}

// AddInvite records an invitee brokered by inviter.
func (g *Group) AddInvite(invitee, inviter discord.Snowflake) error {
	if g.Contains(invitee, true) {
		return ErrAlreadyMember
	}

	if g.TotalPlayers()+1 > g.capacity {
		return ErrCapacityExceeded
	}

	g.invitedAttending[invitee] = inviter

	return nil
}

// contribution is how much of the capacity the player currently uses.
func (g *Group) contribution(player discord.Snowflake) int {
	if attendance, ok := g.attending[player]; ok {
		return attendance.InPerson
	}

	if _, ok := g.invitedAttending[player]; ok {
		return 1
	}

	if _, ok := g.invitedReady[player]; ok {
		return 1
	}

	return 0
}

// MarkReady marks the player as here. It returns true only on the call that
// makes every attending player ready.
func (g *Group) MarkReady(player discord.Snowflake) bool {
	if attendance, ok := g.attending[player]; ok {
		if _, already := g.here[player]; already {
			return false
		}

		g.here[player] = attendance

		return g.allAttendingReady()
	}

	if inviter, ok := g.invitedAttending[player]; ok {
		delete(g.invitedAttending, player)
		g.invitedReady[player] = inviter
	}

	return false
}

func (g *Group) allAttendingReady() bool {
	if len(g.attending) == 0 {
		return false
	}

	for player := range g.attending {
		if _, ok := g.here[player]; !ok {
			return false
		}
	}

	return true
}

// RemovePlayer drops the player from every map and revokes the invites they brokered.
// Revoked invitees are returned; putting them back in a queue is left to the caller.
func (g *Group) RemovePlayer(player discord.Snowflake) GroupRemoval {
	removal := GroupRemoval{
		Removed: g.Contains(player, true),
	}

	_, here := g.here[player]
	_, invitedReady := g.invitedReady[player]
	removal.WasReady = here || invitedReady

	delete(g.attending, player)
	delete(g.here, player)
	delete(g.invitedAttending, player)
	delete(g.invitedReady, player)

	removal.Uninvited = g.RevokeInvitesBy(player)

	return removal
}

// ClearEmptyPlayer revokes the invitees of a player who no longer attends in
// person, as a remote sponsor cannot bring anyone in. The player stays in the group.
func (g *Group) ClearEmptyPlayer(player discord.Snowflake) map[discord.Snowflake][]discord.Snowflake {
	cleared := make(map[discord.Snowflake][]discord.Snowflake)

	attendance, ok := g.attending[player]
	if !ok || attendance.InPerson > 0 {
		return cleared
	}

	if revoked := g.RevokeInvitesBy(player); len(revoked) > 0 {
		cleared[player] = revoked
	}

	return cleared
}

// RevokeInvitesBy removes every invitee brokered by inviter, in id order.
func (g *Group) RevokeInvitesBy(inviter discord.Snowflake) []discord.Snowflake {
	revoked := make([]discord.Snowflake, 0)

	for invitee, by := range g.invitedAttending {
		if by == inviter {
			revoked = append(revoked, invitee)
			delete(g.invitedAttending, invitee)
		}
	}

	for invitee, by := range g.invitedReady {
		if by == inviter {
			revoked = append(revoked, invitee)
			delete(g.invitedReady, invitee)
		}
	}

	slices.Sort(revoked)

	return revoked
}

// InvitesBy counts the invitees currently brokered by inviter.
func (g *Group) InvitesBy(inviter discord.Snowflake) int {
	count := 0

	for _, by := range g.invitedAttending {
		if by == inviter {
			count++
		}
	}

	for _, by := range g.invitedReady {
		if by == inviter {
			count++
		}
	}

	return count
}

// Inviter returns who brokered the invitee, if they are an invitee here.
func (g *Group) Inviter(invitee discord.Snowflake) (discord.Snowflake, bool) {
	if by, ok := g.invitedAttending[invitee]; ok {
		return by, true
	}

	by, ok := g.invitedReady[invitee]

	return by, ok
}

func (g *Group) Contains(player discord.Snowflake, includeInvited bool) bool {
	if _, ok := g.attending[player]; ok {
		return true
	}

	if !includeInvited {
		return false
	}

	_, invited := g.Inviter(player)

	return invited
}

func (g *Group) IsReady(player discord.Snowflake) bool {
	if _, ok := g.here[player]; ok {
		return true
	}

	_, ok := g.invitedReady[player]

	return ok
}

func (g *Group) AttendanceOf(player discord.Snowflake) (Attendance, bool) {
	attendance, ok := g.attending[player]

	return attendance, ok
}

// ResetReady clears readiness for a new stop. Ready invitees go back to attending.
func (g *Group) ResetReady() {
	clear(g.here)

	for invitee, inviter := range g.invitedReady {
		g.invitedAttending[invitee] = inviter
	}

	clear(g.invitedReady)

	g.ready = false
}

// AllInviteesReady reports whether the group has invitees and all of them are ready.
func (g *Group) AllInviteesReady() bool {
	return len(g.invitedReady) > 0 && len(g.invitedAttending) == 0
}

// MarkGroupReady flags the group as called in. It returns false if it already was.
func (g *Group) MarkGroupReady() bool {
	if g.ready {
		return false
	}

	g.ready = true

	return true
}

func (g *Group) GroupReady() bool {
	return g.ready
}

func (g *Group) Empty() bool {
	return len(g.attending) == 0 && g.InviteCount() == 0
}

// TotalPlayers counts in-person accounts plus one per invitee.
func (g *Group) TotalPlayers() int {
	total := g.InviteCount()

	for _, attendance := range g.attending {
		total += attendance.InPerson
	}

	return total
}

func (g *Group) ReadyCount() int {
	count := 0

	for _, attendance := range g.here {
		count += attendance.InPerson
	}

	return count
}

func (g *Group) RemoteReadyCount() int {
	count := len(g.invitedReady)

	for _, attendance := range g.here {
		count += attendance.Remote
	}

	return count
}

func (g *Group) InviteCount() int {
	return len(g.invitedAttending) + len(g.invitedReady)
}

func (g *Group) RemoteCount() int {
	count := 0

	for _, attendance := range g.attending {
		count += attendance.Remote
	}

	return count
}

// Members returns attending players followed by invitees, each in id order.
func (g *Group) Members() []discord.Snowflake {
	members := lo.Keys(g.attending)
	slices.Sort(members)

	return append(members, g.Invitees()...)
}

// Invitees returns every invitee in id order.
func (g *Group) Invitees() []discord.Snowflake {
	invitees := append(lo.Keys(g.invitedAttending), lo.Keys(g.invitedReady)...)
	slices.Sort(invitees)

	return invitees
}

func (g *Group) Attending() map[discord.Snowflake]Attendance {
	return maps.Clone(g.attending)
}

func (g *Group) Here() map[discord.Snowflake]Attendance {
	return maps.Clone(g.here)
}

func (g *Group) InvitedAttending() map[discord.Snowflake]discord.Snowflake {
	return maps.Clone(g.invitedAttending)
}

func (g *Group) InvitedReady() map[discord.Snowflake]discord.Snowflake {
	return maps.Clone(g.invitedReady)
}

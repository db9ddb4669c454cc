package raid

import (
	"slices"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
)

// NotInSession is returned in place of a group index when a player is in no group.
const NotInSession = -1

// NoPlayer is the zero Snowflake, used where no player holds a role.
const NoPlayer discord.Snowflake = 0

// SessionLifetime is how long a session lives before the sweep drops it.
const SessionLifetime = 24 * time.Hour

const (
	RaidGroupLimit = 3
	GroupCapacity  = 20
	InviteLimit    = 10
)

type Kind uint8

const (
	KindRaid Kind = iota
	KindMule
	KindTrain
)

func (k Kind) String() string {
	switch k {
	case KindRaid:
		return "raid"
	case KindMule:
		return "mule"
	case KindTrain:
		return "train"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "raid":
		return KindRaid, nil
	case "mule":
		return KindMule, nil
	case "train":
		return KindTrain, nil
	default:
		return KindRaid, ErrUnknownSessionKind
	}
}

type State uint8

const (
	StateBossSelection State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateBossSelection:
		return "boss_selection"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Boss describes the raid boss a session is fighting.
type Boss struct {
	Name        string   `json:"name" yaml:"name"`
	Tier        int      `json:"tier" yaml:"tier"`
	Types       []string `json:"types,omitempty" yaml:"types"`
	BaseAttack  int      `json:"base_attack" yaml:"base_attack"`
	BaseDefense int      `json:"base_defense" yaml:"base_defense"`
	BaseStamina int      `json:"base_stamina" yaml:"base_stamina"`
}

// Options are the parameters a session is created with. A nil Boss leaves the
// session selecting between Candidates.
type Options struct {
	Tier       int
	Boss       *Boss
	Candidates []string
	Time       string
	Location   string
	CreatedAt  time.Time
}

// JoinResult is returned by AddPlayer. Revoked holds invitees who lost their
// invite because of the change and were queued again.
type JoinResult struct {
	GroupIndex int
	Revoked    []discord.Snowflake
}

// RemoveResult is returned by RemovePlayer.
type RemoveResult struct {
	GroupIndex int
	WasReady   bool
	Revoked    []discord.Snowflake
}

// Session holds the operations shared by every session kind. Kind specific
// behaviour lives on *Raid, *Mule and *Train.
type Session interface {
	Kind() Kind
	State(now time.Time) State
	IsExpired(now time.Time) bool
	CreatedAt() time.Time

	Tier() int
	Time() string
	Location() string
	Boss() *Boss
	BossCandidates() []string
	SetBoss(boss Boss) error

	BeginInvite(initiator discord.Snowflake) error
	EndInvite()
	EndInviteFor(initiator discord.Snowflake) bool
	InvitingPlayer() discord.Snowflake
	ChangeInvitePage(forward bool, pageSize int) int
	InvitePage() int
	InviteCandidates(pageSize int) []discord.Snowflake
	InvitePlayer(invitee, inviter discord.Snowflake) error
	RequestInvite(player discord.Snowflake) error
	CancelInviteRequest(player discord.Snowflake) bool
	QueuedPlayers() []discord.Snowflake

	AddPlayer(groupIndex int, player discord.Snowflake, attendance Attendance, onBehalfOf discord.Snowflake) (JoinResult, error)
	RemovePlayer(player discord.Snowflake) RemoveResult
	PlayerReady(player discord.Snowflake) int
	IsInRaid(player discord.Snowflake, includeInvited bool) int
	AttendanceOf(player discord.Snowflake) (Attendance, bool)
	NewGroup() (int, error)
	GroupCount() int
	Groups() []GroupView
}

// session is the state common to every kind. It is not safe for concurrent
// use; the registry serialises access per session.
type session struct {
	kind Kind

	tier       int
	boss       *Boss
	candidates []string
	time       string
	location   string
	createdAt  time.Time

	groups        []*Group
	groupLimit    int
	groupCapacity int

	queue          *InviteQueue
	invitingPlayer discord.Snowflake
	invitePage     int
}

func newSession(kind Kind, opts Options, firstCapacity, groupCapacity, groupLimit, queueLimit int) session {
	s := session{
		kind: kind,

		tier:       opts.Tier,
		candidates: slices.Clone(opts.Candidates),
		time:       opts.Time,
		location:   opts.Location,
		createdAt:  opts.CreatedAt,

		groups:        []*Group{NewGroup(firstCapacity)},
		groupLimit:    groupLimit,
		groupCapacity: groupCapacity,

		queue: NewInviteQueue(queueLimit),
	}

	if opts.Boss != nil {
		boss := *opts.Boss
		s.boss = &boss
		s.candidates = nil
	}

	return s
}

func (s *session) Kind() Kind {
	return s.kind
}

func (s *session) State(now time.Time) State {
	switch {
	case s.IsExpired(now):
		return StateExpired
	case s.boss == nil:
		return StateBossSelection
	default:
		return StateActive
	}
}

func (s *session) IsExpired(now time.Time) bool {
	return now.Sub(s.createdAt) >= SessionLifetime
}

func (s *session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *session) Tier() int {
	return s.tier
}

func (s *session) Time() string {
	return s.time
}

func (s *session) Location() string {
	return s.location
}

func (s *session) Boss() *Boss {
	if s.boss == nil {
		return nil
	}

	boss := *s.boss

	return &boss
}

func (s *session) BossCandidates() []string {
	return slices.Clone(s.candidates)
}

// SetBoss resolves the boss and moves the session out of boss selection.
func (s *session) SetBoss(boss Boss) error {
	if s.boss != nil {
		return ErrInvalidState
	}

	s.boss = &boss
	s.candidates = nil

	return nil
}

func (s *session) active() bool {
	return s.boss != nil
}

// BeginInvite takes the session's invite dialog for initiator.
func (s *session) BeginInvite(initiator discord.Snowflake) error {
	if !s.active() {
		return ErrInvalidState
	}

	if s.invitingPlayer != NoPlayer {
		return ErrInviteActive
	}

	s.invitingPlayer = initiator
	s.invitePage = 0

	return nil
}

// EndInvite releases the invite dialog whoever holds it.
func (s *session) EndInvite() {
	s.invitingPlayer = NoPlayer
	s.invitePage = 0
}

// EndInviteFor releases the invite dialog only if initiator still holds it.
func (s *session) EndInviteFor(initiator discord.Snowflake) bool {
	if s.invitingPlayer == NoPlayer || s.invitingPlayer != initiator {
		return false
	}

	s.EndInvite()

	return true
}

func (s *session) InvitingPlayer() discord.Snowflake {
	return s.invitingPlayer
}

// ChangeInvitePage moves the invite dialog one page and returns the new page.
// Moving past either end leaves the page where it is.
func (s *session) ChangeInvitePage(forward bool, pageSize int) int {
	last := s.lastPage(pageSize)

	switch {
	case forward && s.invitePage < last:
		s.invitePage++
	case !forward && s.invitePage > 0:
		s.invitePage--
	}

	s.invitePage = clamp(s.invitePage, 0, last)

	return s.invitePage
}

func (s *session) lastPage(pageSize int) int {
	if pageSize <= 0 || s.queue.Len() == 0 {
		return 0
	}

	return (s.queue.Len()+pageSize-1)/pageSize - 1
}

func (s *session) InvitePage() int {
	return s.invitePage
}

// InviteCandidates returns the queued players on the current invite page.
func (s *session) InviteCandidates(pageSize int) []discord.Snowflake {
	s.invitePage = clamp(s.invitePage, 0, s.lastPage(pageSize))

	return s.queue.Page(s.invitePage*pageSize, pageSize)
}

func (s *session) QueuedPlayers() []discord.Snowflake {
	return s.queue.Players()
}

// InvitePlayer moves a queued player into the inviter's group.
func (s *session) InvitePlayer(invitee, inviter discord.Snowflake) error {
	if !s.active() {
		return ErrInvalidState
	}

	if !s.queue.Contains(invitee) {
		return ErrNotQueued
	}

	groupIndex := s.IsInRaid(inviter, false)
	if groupIndex == NotInSession {
		return ErrNotInSession
	}

	group := s.groups[groupIndex]

	if attendance, _ := group.AttendanceOf(inviter); attendance.InPerson == 0 {
		return ErrNotInPerson
	}

	if err := group.AddInvite(invitee, inviter); err != nil {
		return err
	}

	s.queue.Remove(invitee)
	s.invitingPlayer = NoPlayer

	return nil
}

// RequestInvite puts the player in the invite queue.
func (s *session) RequestInvite(player discord.Snowflake) error {
	if !s.active() {
		return ErrInvalidState
	}

	switch {
	case s.IsInRaid(player, true) != NotInSession:
		return ErrAlreadyMember
	case s.queue.Contains(player):
		return ErrAlreadyQueued
	case s.queue.Full():
		return ErrQueueFull
	}

	s.queue.Enqueue(player)

	return nil
}

func (s *session) CancelInviteRequest(player discord.Snowflake) bool {
	return s.queue.Remove(player)
}

// AddPlayer sets a player's attendance in a group. A groupIndex of NotInSession
// keeps the player in their current group or places them in the first group
// with room. When onBehalfOf names another member, the player is recorded as
// their remote invitee in the sponsor's group.
func (s *session) AddPlayer(groupIndex int, player discord.Snowflake, attendance Attendance, onBehalfOf discord.Snowflake) (JoinResult, error) {
	result := JoinResult{GroupIndex: NotInSession}

	if !s.active() {
		return result, ErrInvalidState
	}

	if !attendance.Valid() {
		return result, ErrAttendanceRange
	}

	remote := onBehalfOf != NoPlayer && onBehalfOf != player

	if remote {
		sponsorGroup := s.IsInRaid(onBehalfOf, false)
		if sponsorGroup == NotInSession {
			return result, ErrNotInSession
		}

		if sponsor, _ := s.groups[sponsorGroup].AttendanceOf(onBehalfOf); sponsor.InPerson == 0 {
			return result, ErrNotInPerson
		}

		if groupIndex == NotInSession {
			groupIndex = sponsorGroup
		}
	}

	current := s.IsInRaid(player, true)

	if groupIndex == NotInSession {
		groupIndex = s.placement(current, attendance.InPerson)
	}

	if groupIndex < 0 || groupIndex >= len(s.groups) {
		return result, ErrInvalidGroup
	}

	group := s.groups[groupIndex]

	if err := group.AddPlayer(player, attendance, onBehalfOf); err != nil {
		return result, err
	}

	result.GroupIndex = groupIndex
	result.Revoked = make([]discord.Snowflake, 0)

	if current != NotInSession && current != groupIndex {
		removal := s.groups[current].RemovePlayer(player)
		result.Revoked = append(result.Revoked, removal.Uninvited...)
	}

	if !remote && attendance.InPerson == 0 {
		for _, revoked := range group.ClearEmptyPlayer(player) {
			result.Revoked = append(result.Revoked, revoked...)
		}

		for index, other := range s.groups {
			if index != groupIndex {
				result.Revoked = append(result.Revoked, other.RevokeInvitesBy(player)...)
			}
		}
	}

	s.queue.Remove(player)
	s.requeue(result.Revoked)

	return result, nil
}

// placement picks a group for a player who did not name one.
func (s *session) placement(current, inPerson int) int {
	if current != NotInSession {
		return current
	}

	for index, group := range s.groups {
		if group.TotalPlayers()+max(inPerson, 1) <= group.Capacity() {
			return index
		}
	}

	return len(s.groups) - 1
}

func (s *session) requeue(players []discord.Snowflake) {
	slices.Sort(players)

	for _, player := range players {
		s.queue.Requeue(player)
	}
}

// RemovePlayer takes the player out of the session. Invitees they brokered in
// any group are revoked and queued again.
func (s *session) RemovePlayer(player discord.Snowflake) RemoveResult {
	result := RemoveResult{
		GroupIndex: NotInSession,
		Revoked:    make([]discord.Snowflake, 0),
	}

	if !s.active() {
		return result
	}

	s.queue.Remove(player)

	if s.invitingPlayer == player {
		s.EndInvite()
	}

	for index, group := range s.groups {
		if group.Contains(player, true) {
			removal := group.RemovePlayer(player)

			result.GroupIndex = index
			result.WasReady = removal.WasReady
			result.Revoked = append(result.Revoked, removal.Uninvited...)

			continue
		}

		result.Revoked = append(result.Revoked, group.RevokeInvitesBy(player)...)
	}

	s.requeue(result.Revoked)

	return result
}

// PlayerReady marks the player here. It returns the group index only on the call
// that makes the whole group ready.
func (s *session) PlayerReady(player discord.Snowflake) int {
	if !s.active() {
		return NotInSession
	}

	groupIndex := s.IsInRaid(player, true)
	if groupIndex == NotInSession {
		return NotInSession
	}

	if s.groups[groupIndex].MarkReady(player) {
		return groupIndex
	}

	return NotInSession
}

func (s *session) IsInRaid(player discord.Snowflake, includeInvited bool) int {
	for index, group := range s.groups {
		if group.Contains(player, includeInvited) {
			return index
		}
	}

	return NotInSession
}

func (s *session) AttendanceOf(player discord.Snowflake) (Attendance, bool) {
	groupIndex := s.IsInRaid(player, false)
	if groupIndex == NotInSession {
		return Attendance{}, false
	}

	return s.groups[groupIndex].AttendanceOf(player)
}

// NewGroup appends an empty group and returns its index.
func (s *session) NewGroup() (int, error) {
	if !s.active() {
		return NotInSession, ErrInvalidState
	}

	if len(s.groups) >= s.groupLimit {
		return NotInSession, ErrGroupLimit
	}

	s.groups = append(s.groups, NewGroup(s.groupCapacity))

	return len(s.groups) - 1, nil
}

func (s *session) GroupCount() int {
	return len(s.groups)
}

func (s *session) Groups() []GroupView {
	views := make([]GroupView, len(s.groups))

	for index, group := range s.groups {
		views[index] = group.View(index)
	}

	return views
}

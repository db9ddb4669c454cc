package raid

import (
	"cmp"
	"slices"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/samber/lo"
)

// MemberView is one attending player as shown on a rendered session.
type MemberView struct {
	Player   discord.Snowflake `json:"player"`
	InPerson int               `json:"in_person"`
	Remote   int               `json:"remote"`
	Code     int               `json:"code"`
	Here     bool              `json:"here"`
}

// InviteeView is one invited player and who brought them in.
type InviteeView struct {
	Player    discord.Snowflake `json:"player"`
	InvitedBy discord.Snowflake `json:"invited_by"`
	Ready     bool              `json:"ready"`
}

// GroupView is a read only projection of a group for rendering.
type GroupView struct {
	Index       int           `json:"index"`
	Capacity    int           `json:"capacity"`
	Total       int           `json:"total"`
	Ready       int           `json:"ready"`
	RemoteReady int           `json:"remote_ready"`
	Invites     int           `json:"invites"`
	Remote      int           `json:"remote"`
	Called      bool          `json:"called,omitempty"`
	Attending   []MemberView  `json:"attending"`
	Invited     []InviteeView `json:"invited"`
}

// SessionView is a read only projection of a whole session for rendering.
type SessionView struct {
	ID             discord.Snowflake   `json:"id"`
	Kind           string              `json:"kind"`
	State          string              `json:"state"`
	Tier           int                 `json:"tier"`
	Boss           *Boss               `json:"boss,omitempty"`
	Candidates     []string            `json:"candidates,omitempty"`
	Time           string              `json:"time"`
	Location       string              `json:"location"`
	Groups         []GroupView         `json:"groups"`
	Queue          []discord.Snowflake `json:"queue"`
	InvitingPlayer discord.Snowflake   `json:"inviting_player,omitempty"`
	InvitePage     int                 `json:"invite_page"`
	CreatedAt      time.Time           `json:"created_at"`
	ExpiresAt      time.Time           `json:"expires_at"`

	Conductor   discord.Snowflake `json:"conductor,omitempty"`
	Stops       []Stop            `json:"stops,omitempty"`
	CurrentStop int               `json:"current_stop,omitempty"`
}

// View projects the group. Attending players are ordered by attendance code,
// largest first, then by id.
func (g *Group) View(index int) GroupView {
	attending := lo.MapToSlice(g.attending, func(player discord.Snowflake, attendance Attendance) MemberView {
		_, here := g.here[player]

		return MemberView{
			Player:   player,
			InPerson: attendance.InPerson,
			Remote:   attendance.Remote,
			Code:     attendance.Code(),
			Here:     here,
		}
	})

	slices.SortFunc(attending, func(a, b MemberView) int {
		if c := cmp.Compare(b.Code, a.Code); c != 0 {
			return c
		}

		return cmp.Compare(a.Player, b.Player)
	})

	invited := lo.Map(g.Invitees(), func(player discord.Snowflake, _ int) InviteeView {
		inviter, _ := g.Inviter(player)

		return InviteeView{
			Player:    player,
			InvitedBy: inviter,
			Ready:     g.IsReady(player),
		}
	})

	return GroupView{
		Index:       index,
		Capacity:    g.capacity,
		Total:       g.TotalPlayers(),
		Ready:       g.ReadyCount(),
		RemoteReady: g.RemoteReadyCount(),
		Invites:     g.InviteCount(),
		Remote:      g.RemoteCount(),
		Called:      g.ready,
		Attending:   attending,
		Invited:     invited,
	}
}

// ViewOf projects a session registered under id.
func ViewOf(id discord.Snowflake, s Session, now time.Time) SessionView {
	view := SessionView{
		ID:             id,
		Kind:           s.Kind().String(),
		State:          s.State(now).String(),
		Tier:           s.Tier(),
		Boss:           s.Boss(),
		Candidates:     s.BossCandidates(),
		Time:           s.Time(),
		Location:       s.Location(),
		Groups:         s.Groups(),
		Queue:          s.QueuedPlayers(),
		InvitingPlayer: s.InvitingPlayer(),
		InvitePage:     s.InvitePage(),
		CreatedAt:      s.CreatedAt(),
		ExpiresAt:      s.CreatedAt().Add(SessionLifetime),
	}

	if train, ok := s.(*Train); ok {
		view.Conductor = train.Conductor()
		view.Stops = train.Stops()
		_, view.CurrentStop = train.CurrentStop()
	}

	return view
}

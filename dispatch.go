package raid

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
)

func NewTrace() *Trace {
	t := make(Trace)
	return &t
}

type Trace map[string]any

func (t *Trace) Set(key string, value any) *Trace {
	(*t)[key] = value

	return t
}

type Action uint8

const (
	ActionNone Action = iota
	ActionAttend0
	ActionAttend1
	ActionAttend2
	ActionAttend3
	ActionAttend4
	ActionAttend5
	ActionAttend6
	ActionRemote
	ActionReady
	ActionRequestInvite
	ActionBeginInvite
	ActionRemove
	ActionHelp
	ActionNewGroup
	ActionPageForward
	ActionPageBack
	ActionPick1
	ActionPick2
	ActionPick3
	ActionPick4
	ActionPick5
	ActionCancel
	ActionAdvanceStop
	ActionGroupReady
)

var actionNames = []string{
	"none",
	"attend_0",
	"attend_1",
	"attend_2",
	"attend_3",
	"attend_4",
	"attend_5",
	"attend_6",
	"remote",
	"ready",
	"request_invite",
	"begin_invite",
	"remove",
	"help",
	"new_group",
	"page_forward",
	"page_back",
	"pick_1",
	"pick_2",
	"pick_3",
	"pick_4",
	"pick_5",
	"cancel",
	"advance_stop",
	"group_ready",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}

	return "unknown"
}

func ParseAction(name string) (Action, bool) {
	index := slices.Index(actionNames, strings.ToLower(strings.TrimSpace(name)))
	if index <= 0 {
		return ActionNone, false
	}

	return Action(index), true
}

// Count returns N for ActionAttendN.
func (a Action) Count() (int, bool) {
	if a < ActionAttend0 || a > ActionAttend6 {
		return 0, false
	}

	return int(a - ActionAttend0), true
}

// Pick returns the zero based index for ActionPickN.
func (a Action) Pick() (int, bool) {
	if a < ActionPick1 || a > ActionPick5 {
		return 0, false
	}

	return int(a - ActionPick1), true
}

// asPick turns the attend reactions 1 to 5 into picks on selection messages.
func (a Action) asPick() Action {
	if a >= ActionAttend1 && a <= ActionAttend5 {
		return ActionPick1 + (a - ActionAttend1)
	}

	return a
}

type Emoji struct {
	ID   discord.Snowflake `json:"id,omitempty"`
	Name string            `json:"name"`
}

// Key is the custom emoji id when set, otherwise the unicode name.
func (e Emoji) Key() string {
	if e.ID != 0 {
		return e.ID.String()
	}

	return e.Name
}

// ReactionEvent is a reaction added to or removed from a tracked message.
type ReactionEvent struct {
	MessageID discord.Snowflake `json:"message_id"`
	ChannelID discord.Snowflake `json:"channel_id"`
	GuildID   discord.Snowflake `json:"guild_id,omitempty"`
	UserID    discord.Snowflake `json:"user_id"`
	Emoji     Emoji             `json:"emoji"`
	Removed   bool              `json:"-"`
}

// ReactionTable maps an emoji key to the action it triggers.
type ReactionTable map[string]Action

func DefaultReactionTable() ReactionTable {
	return ReactionTable{
		"0\ufe0f\u20e3": ActionAttend0,
		"1\ufe0f\u20e3": ActionAttend1,
		"2\ufe0f\u20e3": ActionAttend2,
		"3\ufe0f\u20e3": ActionAttend3,
		"4\ufe0f\u20e3": ActionAttend4,
		"5\ufe0f\u20e3": ActionAttend5,
		"6\ufe0f\u20e3": ActionAttend6,
		"\U0001F310":    ActionRemote,
		"\u2705":        ActionReady,
		"\U0001F4E8":    ActionRequestInvite,
		"\u2709\ufe0f":  ActionBeginInvite,
		"\u274c":        ActionRemove,
		"\u2753":        ActionHelp,
		"\u2795":        ActionNewGroup,
		"\u25b6\ufe0f":  ActionPageForward,
		"\u25c0\ufe0f":  ActionPageBack,
		"\U0001F6AB":    ActionCancel,
		"\U0001F682":    ActionAdvanceStop,
		"\U0001F514":    ActionGroupReady,
	}
}

// ReactionTableFromNames builds a table from emoji key to action name, on top
// of the defaults.
func ReactionTableFromNames(names map[string]string) (ReactionTable, error) {
	table := DefaultReactionTable()

	for emoji, name := range names {
		action, ok := ParseAction(name)
		if !ok {
			return nil, fmt.Errorf("reaction %q: unknown action %q", emoji, name)
		}

		table[emoji] = action
	}

	return table, nil
}

func (t ReactionTable) Resolve(emoji Emoji) (Action, bool) {
	action, ok := t[emoji.Key()]
	if !ok && emoji.ID != 0 {
		action, ok = t[emoji.Name]
	}

	return action, ok && action != ActionNone
}

type NotificationKind uint8

const (
	NotifyUninvited NotificationKind = iota + 1
	NotifyInvited
	NotifyGroupCalled
	NotifyTrainMoved
	NotifyHelp
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyUninvited:
		return "uninvited"
	case NotifyInvited:
		return "invited"
	case NotifyGroupCalled:
		return "group_called"
	case NotifyTrainMoved:
		return "train_moved"
	case NotifyHelp:
		return "help"
	default:
		return "unknown"
	}
}

func (k NotificationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notification is a direct message to one player.
type Notification struct {
	Kind       NotificationKind  `json:"kind"`
	PlayerID   discord.Snowflake `json:"player_id"`
	SessionID  discord.Snowflake `json:"session_id"`
	GroupIndex int               `json:"group_index"`
	Stop       *Stop             `json:"stop,omitempty"`
}

// Ping mentions every member of a group that has just become ready.
type Ping struct {
	SessionID  discord.Snowflake   `json:"session_id"`
	ChannelID  discord.Snowflake   `json:"channel_id"`
	GroupIndex int                 `json:"group_index"`
	Players    []discord.Snowflake `json:"players"`
}

// Dialog asks the host to post or update a sub-message. MessageID is zero for
// a dialog that does not exist yet.
type Dialog struct {
	MessageID  discord.Snowflake   `json:"message_id,omitempty"`
	SessionID  discord.Snowflake   `json:"session_id"`
	ChannelID  discord.Snowflake   `json:"channel_id"`
	Kind       SubMessageKind      `json:"kind"`
	Owner      discord.Snowflake   `json:"owner"`
	Page       int                 `json:"page"`
	Players    []discord.Snowflake `json:"players,omitempty"`
	Candidates []string            `json:"candidates,omitempty"`
}

// Outcome is everything a dispatched reaction asks the host to do.
type Outcome struct {
	SessionID     discord.Snowflake   `json:"session_id"`
	Action        Action              `json:"-"`
	Render        []SessionView       `json:"render,omitempty"`
	Dialogs       []Dialog            `json:"dialogs,omitempty"`
	Closed        []discord.Snowflake `json:"closed,omitempty"`
	Notifications []Notification      `json:"notifications,omitempty"`
	Pings         []Ping              `json:"pings,omitempty"`

	render bool
}

func (o *Outcome) rerender() {
	o.render = true
}

func (o *Outcome) notify(kind NotificationKind, groupIndex int, players ...discord.Snowflake) {
	for _, player := range players {
		o.Notifications = append(o.Notifications, Notification{
			Kind:       kind,
			PlayerID:   player,
			SessionID:  o.SessionID,
			GroupIndex: groupIndex,
		})
	}
}

// Empty reports whether the outcome asks for nothing.
func (o Outcome) Empty() bool {
	return len(o.Render) == 0 && len(o.Dialogs) == 0 && len(o.Closed) == 0 &&
		len(o.Notifications) == 0 && len(o.Pings) == 0
}

// ActionCall is the context an action handler runs with. The session lock is
// held for the whole call.
type ActionCall struct {
	Event      ReactionEvent
	Action     Action
	SessionID  discord.Snowflake
	Session    Session
	SubMessage *SubMessage
	Registry   *Registry
	Now        time.Time
	Trace      *Trace
}

type ActionHandler func(ctx context.Context, d *Dispatcher, call *ActionCall, outcome *Outcome) error

var actionHandlers = make(map[Action]ActionHandler)

func registerActionHandler(action Action, handler ActionHandler) {
	actionHandlers[action] = handler
}

type DispatcherOptions struct {
	Table     ReactionTable
	Blacklist []Action
	PageSize  int
	Now       func() time.Time
}

// Dispatcher turns reactions into session operations.
type Dispatcher struct {
	registry *Registry
	bosses   BossProvider

	table     ReactionTable
	blacklist []Action
	pageSize  int
	now       func() time.Time

	handlers map[Action]ActionHandler
}

func NewDispatcher(registry *Registry, bosses BossProvider, opts DispatcherOptions) *Dispatcher {
	if opts.Table == nil {
		opts.Table = DefaultReactionTable()
	}

	if opts.PageSize <= 0 {
		opts.PageSize = DefaultInvitePageSize
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		registry: registry,
		bosses:   bosses,

		table:     opts.Table,
		blacklist: slices.Clone(opts.Blacklist),
		pageSize:  opts.PageSize,
		now:       opts.Now,

		handlers: actionHandlers,
	}
}

// DefaultInvitePageSize matches the five pick reactions of an invite dialog.
const DefaultInvitePageSize = 5

func (d *Dispatcher) PageSize() int {
	return d.pageSize
}

// Dispatch applies one reaction. Reactions that map to no action, or to a
// blacklisted one, return ErrActionIgnored.
func (d *Dispatcher) Dispatch(ctx context.Context, event ReactionEvent, trace *Trace) (Outcome, error) {
	action, ok := d.table.Resolve(event.Emoji)
	if !ok || slices.Contains(d.blacklist, action) {
		return Outcome{}, ErrActionIgnored
	}

	if trace == nil {
		trace = NewTrace()
	}

	var outcome Outcome

	err := d.registry.WithSession(event.MessageID, func(sessionID discord.Snowflake, session Session, sub *SubMessage) error {
		now := d.now()

		call := &ActionCall{
			Event:      event,
			Action:     action,
			SessionID:  sessionID,
			Session:    session,
			SubMessage: sub,
			Registry:   d.registry,
			Now:        now,
			Trace:      trace,
		}

		if selecting(call) {
			call.Action = action.asPick()
		}

		handler, ok := d.handlers[call.Action]
		if !ok {
			return fmt.Errorf("%s: %w", call.Action, ErrNoActionHandler)
		}

		outcome = Outcome{SessionID: sessionID, Action: call.Action}

		if err := handler(ctx, d, call, &outcome); err != nil {
			return err
		}

		if outcome.render {
			outcome.Render = append(outcome.Render, ViewOf(sessionID, session, now))
		}

		return nil
	})

	trace.Set("dispatch", d.now().UnixNano())

	if err != nil {
		return Outcome{}, err
	}

	return outcome, nil
}

// selecting reports whether number reactions pick from a list rather than set
// attendance.
func selecting(call *ActionCall) bool {
	if call.SubMessage != nil {
		return call.SubMessage.Kind == SubMessageInviteDialog || call.SubMessage.Kind == SubMessageBossSelection
	}

	return call.Session.State(call.Now) == StateBossSelection
}

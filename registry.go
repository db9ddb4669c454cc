package raid

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/WelcomerTeam/Raid-Daemon/pkg/lockset"
	"github.com/WelcomerTeam/Raid-Daemon/pkg/syncmap"
)

type SubMessageKind uint8

const (
	SubMessageInviteDialog SubMessageKind = iota + 1
	SubMessageBossSelection
	SubMessageMuleGroup
)

func (k SubMessageKind) String() string {
	switch k {
	case SubMessageInviteDialog:
		return "invite_dialog"
	case SubMessageBossSelection:
		return "boss_selection"
	case SubMessageMuleGroup:
		return "mule_group"
	default:
		return "unknown"
	}
}

// ParseSubMessageKind maps a kind name back to its SubMessageKind.
func ParseSubMessageKind(name string) (SubMessageKind, bool) {
	for _, kind := range []SubMessageKind{SubMessageInviteDialog, SubMessageBossSelection, SubMessageMuleGroup} {
		if kind.String() == name {
			return kind, true
		}
	}

	return 0, false
}

func (k SubMessageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SubMessageKind) UnmarshalText(text []byte) error {
	kind, ok := ParseSubMessageKind(string(text))
	if !ok {
		return fmt.Errorf("unknown sub-message kind %q", text)
	}

	*k = kind

	return nil
}

// SubMessage is a secondary message that acts on a parent session, such as an
// invite dialog. GroupIndex is only used by mule group messages.
type SubMessage struct {
	Kind       SubMessageKind    `json:"kind"`
	Parent     discord.Snowflake `json:"parent"`
	GroupIndex int               `json:"group_index"`
	Owner      discord.Snowflake `json:"owner,omitempty"`
}

// Resolution is what a message id points at.
type Resolution struct {
	SessionID  discord.Snowflake
	SubMessage *SubMessage
}

// SessionFunc runs with exclusive access to a session.
type SessionFunc func(sessionID discord.Snowflake, session Session, sub *SubMessage) error

// Registry maps message ids to live sessions and their sub-messages. Lookups
// are safe from any goroutine; mutating a session must go through WithSession.
type Registry struct {
	sessions    *syncmap.Map[discord.Snowflake, Session]
	subMessages *syncmap.Map[discord.Snowflake, SubMessage]
	locks       *lockset.LockSet[discord.Snowflake]

	// OnSweep, if set, is called with the ids removed by each sweep.
	OnSweep func(removed []discord.Snowflake)
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    &syncmap.Map[discord.Snowflake, Session]{},
		subMessages: &syncmap.Map[discord.Snowflake, SubMessage]{},
		locks:       lockset.New[discord.Snowflake](),
	}
}

func (r *Registry) Register(messageID discord.Snowflake, session Session) error {
	if _, loaded := r.sessions.LoadOrStore(messageID, session); loaded {
		return ErrSessionExists
	}

	return nil
}

// Unregister drops the session and every sub-message pointing at it.
func (r *Registry) Unregister(messageID discord.Snowflake) bool {
	unlock := r.locks.Lock(messageID)
	defer unlock()

	return r.unregister(messageID)
}

func (r *Registry) unregister(messageID discord.Snowflake) bool {
	if _, ok := r.sessions.LoadAndDelete(messageID); !ok {
		return false
	}

	r.subMessages.DeleteFunc(func(_ discord.Snowflake, sub SubMessage) bool {
		return sub.Parent == messageID
	})

	return true
}

func (r *Registry) RegisterSubMessage(messageID discord.Snowflake, sub SubMessage) error {
	if _, ok := r.sessions.Load(sub.Parent); !ok {
		return ErrSessionNotFound
	}

	if _, loaded := r.subMessages.LoadOrStore(messageID, sub); loaded {
		return ErrSessionExists
	}

	return nil
}

func (r *Registry) UnregisterSubMessage(messageID discord.Snowflake) bool {
	_, ok := r.subMessages.LoadAndDelete(messageID)

	return ok
}

// SubMessages returns the ids of sub-messages of the given kind for a session.
func (r *Registry) SubMessages(parent discord.Snowflake, kind SubMessageKind) []discord.Snowflake {
	ids := make([]discord.Snowflake, 0)

	r.subMessages.Range(func(id discord.Snowflake, sub SubMessage) bool {
		if sub.Parent == parent && sub.Kind == kind {
			ids = append(ids, id)
		}

		return true
	})

	slices.Sort(ids)

	return ids
}

// Resolve finds the session a message belongs to, either directly or through
// a sub-message.
func (r *Registry) Resolve(messageID discord.Snowflake) (Resolution, bool) {
	if _, ok := r.sessions.Load(messageID); ok {
		return Resolution{SessionID: messageID}, true
	}

	sub, ok := r.subMessages.Load(messageID)
	if !ok {
		return Resolution{}, false
	}

	return Resolution{SessionID: sub.Parent, SubMessage: &sub}, true
}

// WithSession runs fn holding the lock of the session messageID resolves to.
// Calls for the same session never overlap.
func (r *Registry) WithSession(messageID discord.Snowflake, fn SessionFunc) error {
	resolution, ok := r.Resolve(messageID)
	if !ok {
		return ErrSessionNotFound
	}

	unlock := r.locks.Lock(resolution.SessionID)
	defer unlock()

	// The session may have been dropped while we waited for the lock.
	session, ok := r.sessions.Load(resolution.SessionID)
	if !ok {
		return ErrSessionNotFound
	}

	return fn(resolution.SessionID, session, resolution.SubMessage)
}

func (r *Registry) Count() int {
	return r.sessions.Count()
}

// CountByKind returns how many sessions of each kind are registered.
func (r *Registry) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)

	r.sessions.Range(func(_ discord.Snowflake, session Session) bool {
		counts[session.Kind()]++

		return true
	})

	return counts
}

func (r *Registry) SubMessageCount() int {
	return r.subMessages.Count()
}

// IDs returns every registered session id in ascending order.
func (r *Registry) IDs() []discord.Snowflake {
	ids := r.sessions.Keys()
	slices.Sort(ids)

	return ids
}

// Sweep drops every session expired at now and returns their ids.
func (r *Registry) Sweep(now time.Time) []discord.Snowflake {
	removed := make([]discord.Snowflake, 0)

	for _, id := range r.IDs() {
		unlock := r.locks.Lock(id)

		if session, ok := r.sessions.Load(id); ok && session.IsExpired(now) && r.unregister(id) {
			removed = append(removed, id)
		}

		unlock()
	}

	if r.OnSweep != nil {
		r.OnSweep(removed)
	}

	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(now())
		}
	}
}

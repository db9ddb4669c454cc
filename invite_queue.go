package raid

import (
	"slices"

	"github.com/WelcomerTeam/Discord/discord"
)

// InviteQueue is the FIFO list of players waiting for a remote invite.
type InviteQueue struct {
	pending []discord.Snowflake
	limit   int
}

func NewInviteQueue(limit int) *InviteQueue {
	return &InviteQueue{
		pending: make([]discord.Snowflake, 0, limit),
		limit:   limit,
	}
}

// Enqueue appends the player unless they are already waiting or the queue is full.
func (q *InviteQueue) Enqueue(player discord.Snowflake) bool {
	if len(q.pending) >= q.limit || q.Contains(player) {
		return false
	}

	q.pending = append(q.pending, player)

	return true
}

// Requeue puts a revoked invitee back at the end of the queue. The limit only
// applies to new requests, so the queue may grow past it.
func (q *InviteQueue) Requeue(player discord.Snowflake) bool {
	if q.Contains(player) {
		return false
	}

	q.pending = append(q.pending, player)

	return true
}

// Remove drops the player from the queue, keeping the order of everyone else.
func (q *InviteQueue) Remove(player discord.Snowflake) bool {
	index := slices.Index(q.pending, player)
	if index < 0 {
		return false
	}

	q.pending = slices.Delete(q.pending, index, index+1)

	return true
}

// Page returns up to size players starting at offset. An offset past the end
// returns an empty page.
func (q *InviteQueue) Page(offset, size int) []discord.Snowflake {
	if offset < 0 || size <= 0 || offset >= len(q.pending) {
		return []discord.Snowflake{}
	}

	end := min(offset+size, len(q.pending))

	return slices.Clone(q.pending[offset:end])
}

func (q *InviteQueue) Contains(player discord.Snowflake) bool {
	return slices.Contains(q.pending, player)
}

func (q *InviteQueue) Len() int {
	return len(q.pending)
}

func (q *InviteQueue) Limit() int {
	return q.limit
}

func (q *InviteQueue) Full() bool {
	return len(q.pending) >= q.limit
}

// Players returns a copy of the queue in FIFO order.
func (q *InviteQueue) Players() []discord.Snowflake {
	return slices.Clone(q.pending)
}

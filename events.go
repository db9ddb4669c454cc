package raid

import (
	"fmt"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/WelcomerTeam/Raid-Daemon/raidjson"
)

const (
	EventMessageReactionAdd    = "MESSAGE_REACTION_ADD"
	EventMessageReactionRemove = "MESSAGE_REACTION_REMOVE"
	EventMessageDelete         = "MESSAGE_DELETE"
)

// ProducedPayload is the envelope events travel in, both the gateway events
// we consume and the raid events we publish.
type ProducedPayload struct {
	discord.GatewayPayload

	Extra    map[string]any   `json:"__extra,omitempty"`
	Metadata ProducedMetadata `json:"__metadata"`
	Trace    Trace            `json:"__trace,omitempty"`
}

type ProducedMetadata struct {
	Identifier    string            `json:"i"`
	Application   string            `json:"a"`
	ApplicationID discord.Snowflake `json:"id"`
	Shard         [3]int32          `json:"s"`
}

// MessageDeleteEvent is the part of MESSAGE_DELETE we read.
type MessageDeleteEvent struct {
	ID        discord.Snowflake `json:"id"`
	ChannelID discord.Snowflake `json:"channel_id"`
}

// NewProducedPayload wraps data as a dispatch of eventType.
func NewProducedPayload(eventType string, data any, metadata ProducedMetadata, trace Trace) (ProducedPayload, error) {
	raw, err := raidjson.Marshal(data)
	if err != nil {
		return ProducedPayload{}, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	payload := ProducedPayload{
		Metadata: metadata,
		Trace:    trace,
	}

	payload.Type = eventType
	payload.Data = raw

	if payload.Trace == nil {
		payload.Trace = make(Trace)
	}

	payload.Trace.Set("publish", time.Now().UnixNano())

	return payload, nil
}

func unmarshalData(data []byte, payload *ProducedPayload) error {
	if err := raidjson.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	return nil
}

func unmarshalPayload(payload *ProducedPayload, out any) error {
	if err := raidjson.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}

package raid

import "github.com/WelcomerTeam/Discord/discord"

const (
	// Consumed from the bot.
	RaidEventCreate     = "RAID_CREATE"
	RaidEventSubMessage = "RAID_SUBMESSAGE"
	RaidEventDelete     = "RAID_DELETE"

	// Produced for the bot.
	RaidEventRender = "RAID_RENDER"
	RaidEventDialog = "RAID_DIALOG"
	RaidEventClose  = "RAID_CLOSE"
	RaidEventNotify = "RAID_NOTIFY"
	RaidEventPing   = "RAID_PING"
)

// CreateSessionEvent starts a session on an already posted message.
type CreateSessionEvent struct {
	MessageID discord.Snowflake `json:"message_id"`
	ChannelID discord.Snowflake `json:"channel_id"`
	GuildID   discord.Snowflake `json:"guild_id,omitempty"`
	Creator   discord.Snowflake `json:"creator"`
	Kind      string            `json:"kind"`
	Tier      int               `json:"tier"`
	Boss      string            `json:"boss,omitempty"`
	Time      string            `json:"time"`
	Location  string            `json:"location"`
}

// SubMessageEvent registers a message the bot posted for a Dialog.
type SubMessageEvent struct {
	MessageID discord.Snowflake `json:"message_id"`
	SubMessage
}

type DeleteSessionEvent struct {
	MessageID discord.Snowflake `json:"message_id"`
}

// CloseEvent tells the bot sub-messages are no longer tracked.
type CloseEvent struct {
	SessionID  discord.Snowflake   `json:"session_id"`
	MessageIDs []discord.Snowflake `json:"message_ids"`
}

package raid

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const PermissionWrite = 0o600

type Configuration struct {
	// Identifier is sent as the metadata identifier on everything we produce.
	Identifier string `yaml:"identifier"`

	ClientName          string `yaml:"client_name"`
	IncludeRandomSuffix bool   `yaml:"client_name_uses_random_suffix"`

	Consumer ConsumerConfiguration `yaml:"consumer"`
	Producer ProducerConfiguration `yaml:"producer"`

	Engine        EngineConfiguration       `yaml:"engine"`
	Dedupe        DedupeConfiguration       `yaml:"dedupe"`
	Scheduler     SchedulerConfiguration    `yaml:"scheduler"`
	Notifications NotificationConfiguration `yaml:"notifications"`
	HTTP          HTTPConfiguration         `yaml:"http"`

	// BossesPath points at a yaml file with a bosses list.
	BossesPath string `yaml:"bosses_path"`
}

type ConsumerConfiguration struct {
	Type        string         `yaml:"type"`
	Channels    []string       `yaml:"channels"`
	Concurrency int            `yaml:"concurrency"`
	Args        map[string]any `yaml:"args"`
}

type ProducerConfiguration struct {
	Type    string         `yaml:"type"`
	Channel string         `yaml:"channel"`
	Args    map[string]any `yaml:"args"`
}

type EngineConfiguration struct {
	// Reactions maps an emoji name or custom emoji id to an action name, on
	// top of the default table.
	Reactions map[string]string `yaml:"reactions"`

	// Actions that are never handled.
	ActionBlacklist []string `yaml:"action_blacklist"`

	InvitePageSize int           `yaml:"invite_page_size"`
	InviteTimeout  time.Duration `yaml:"invite_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

type DedupeConfiguration struct {
	// Type is one of none, memory or redis.
	Type     string        `yaml:"type"`
	TTL      time.Duration `yaml:"ttl"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
}

type SchedulerConfiguration struct {
	// Type is one of memory or asynq.
	Type        string `yaml:"type"`
	Address     string `yaml:"address"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	Concurrency int    `yaml:"concurrency"`
}

type NotificationConfiguration struct {
	// PerSecond caps direct notifications across every player.
	PerSecond int32 `yaml:"per_second"`
}

type HTTPConfiguration struct {
	Host string `yaml:"host"`
}

// Validate fills defaults and rejects configurations the daemon cannot run with.
func (c *Configuration) Validate() error {
	if c.Identifier == "" {
		return ErrConfigMissingIdentifier
	}

	if c.ClientName == "" {
		c.ClientName = c.Identifier
	}

	if c.Consumer.Type != "" && len(c.Consumer.Channels) == 0 {
		return ErrConfigMissingConsumer
	}

	if c.Consumer.Concurrency <= 0 {
		c.Consumer.Concurrency = 1
	}

	if c.Engine.InvitePageSize <= 0 {
		c.Engine.InvitePageSize = DefaultInvitePageSize
	}

	if c.Engine.InviteTimeout <= 0 {
		c.Engine.InviteTimeout = DefaultInviteTimeout
	}

	if c.Engine.SweepInterval <= 0 {
		c.Engine.SweepInterval = time.Hour
	}

	if c.Dedupe.TTL <= 0 {
		c.Dedupe.TTL = 10 * time.Second
	}

	if c.Dedupe.Prefix == "" {
		c.Dedupe.Prefix = c.Identifier + ":dedupe:"
	}

	switch strings.ToLower(c.Dedupe.Type) {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown dedupe type %q", c.Dedupe.Type)
	}

	switch strings.ToLower(c.Scheduler.Type) {
	case "", "memory", "asynq":
	default:
		return fmt.Errorf("unknown scheduler type %q", c.Scheduler.Type)
	}

	if c.Notifications.PerSecond <= 0 {
		c.Notifications.PerSecond = 10
	}

	if _, err := c.ReactionTable(); err != nil {
		return err
	}

	if _, err := c.ActionBlacklist(); err != nil {
		return err
	}

	return nil
}

func (c *Configuration) ReactionTable() (ReactionTable, error) {
	return ReactionTableFromNames(c.Engine.Reactions)
}

func (c *Configuration) ActionBlacklist() ([]Action, error) {
	actions := make([]Action, 0, len(c.Engine.ActionBlacklist))

	for _, name := range c.Engine.ActionBlacklist {
		action, ok := ParseAction(name)
		if !ok {
			return nil, fmt.Errorf("action blacklist: unknown action %q", name)
		}

		actions = append(actions, action)
	}

	return actions, nil
}

type ConfigProvider interface {
	GetConfig(ctx context.Context) (*Configuration, error)
	SaveConfig(ctx context.Context, config *Configuration) error
}

// ConfigProviderFromPath reads and writes a yaml file. Environment variables
// in the file are expanded on read.
type ConfigProviderFromPath struct {
	path string
}

func NewConfigProviderFromPath(path string) ConfigProviderFromPath {
	return ConfigProviderFromPath{path}
}

func (c ConfigProviderFromPath) GetConfig(_ context.Context) (*Configuration, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

func (c ConfigProviderFromPath) SaveConfig(_ context.Context, config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(c.path, data, PermissionWrite)
}

// ParseConfig decodes and validates a yaml configuration.
func ParseConfig(data []byte) (*Configuration, error) {
	var config Configuration
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// StaticConfigProvider serves a configuration held in memory.
type StaticConfigProvider struct {
	config *Configuration
}

func NewStaticConfigProvider(config *Configuration) *StaticConfigProvider {
	return &StaticConfigProvider{config}
}

func (c *StaticConfigProvider) GetConfig(context.Context) (*Configuration, error) {
	config := *c.config

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *StaticConfigProvider) SaveConfig(_ context.Context, config *Configuration) error {
	c.config = config

	return nil
}

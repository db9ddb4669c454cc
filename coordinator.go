package raid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/WelcomerTeam/Raid-Daemon/pkg/accumulator"
	"github.com/WelcomerTeam/RealRock/limiter"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

var Version = "1.0.0"

const (
	// MaxBossCandidates is how many bosses fit on the pick reactions.
	MaxBossCandidates = int(ActionPick5-ActionPick1) + 1

	prometheusGatherInterval = 10 * time.Second

	reactionSampleInterval = time.Minute
	reactionSampleLimit    = 60
)

// Coordinator owns the session registry and connects it to the transport.
type Coordinator struct {
	Logger zerolog.Logger

	StartTime time.Time

	configProvider ConfigProvider
	config         *atomic.Pointer[Configuration]

	bossProvider     BossProvider
	producerProvider ProducerProvider
	dedupeProvider   DedupeProvider
	scheduler        InviteScheduler

	producer   Producer
	consumer   *Consumer
	registry   *Registry
	dispatcher *Dispatcher

	notifyLimiter *limiter.DurationLimiter

	prometheusRegistry *prometheus.Registry

	EventsInflight *atomic.Int32

	// Applied reactions per minute over the last hour.
	ReactionSamples *accumulator.Accumulator

	now    func() time.Time
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator. A nil bossProvider or dedupeProvider is
// built from the configuration on Start.
func NewCoordinator(logger zerolog.Logger, configProvider ConfigProvider, bossProvider BossProvider, producerProvider ProducerProvider, dedupeProvider DedupeProvider) *Coordinator {
	return &Coordinator{
		Logger: logger,

		configProvider: configProvider,
		config:         atomic.NewPointer[Configuration](nil),

		bossProvider:     bossProvider,
		producerProvider: producerProvider,
		dedupeProvider:   dedupeProvider,

		registry: NewRegistry(),

		EventsInflight: atomic.NewInt32(0),

		ReactionSamples: accumulator.New("reactions", reactionSampleLimit, reactionSampleInterval),

		now: time.Now,
	}
}

func (c *Coordinator) WithInviteScheduler(scheduler InviteScheduler) *Coordinator {
	c.scheduler = scheduler

	return c
}

func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now

	return c
}

// WithPrometheusAnalytics registers the raid metrics with registry and serves
// them on /metrics of the HTTP server.
func (c *Coordinator) WithPrometheusAnalytics(registry *prometheus.Registry) *Coordinator {
	if registry == nil {
		registry = prometheus.NewPedanticRegistry()
	}

	registry.MustRegister(
		EventMetrics.EventsTotal,
		EventMetrics.ReactionsTotal,
		EventMetrics.EventsInflight,

		SessionMetrics.Sessions,
		SessionMetrics.SubMessages,
		SessionMetrics.SessionsSwept,
		SessionMetrics.InviteTimeouts,

		ProducerMetrics.PublishedTotal,
		ProducerMetrics.NotificationsTotal,
	)

	c.prometheusRegistry = registry

	return c
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

func (c *Coordinator) Config() *Configuration {
	return c.config.Load()
}

func (c *Coordinator) Start(ctx context.Context) error {
	c.Logger.Info().Msgf("Starting raid daemon. Version %s", Version)

	ctx, c.cancel = context.WithCancel(ctx)
	c.StartTime = c.now()

	config, err := c.configProvider.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	c.config.Store(config)

	if c.bossProvider == nil {
		c.bossProvider, err = c.newBossProvider(config)
		if err != nil {
			return err
		}
	}

	table, err := config.ReactionTable()
	if err != nil {
		return err
	}

	blacklist, err := config.ActionBlacklist()
	if err != nil {
		return err
	}

	c.dispatcher = NewDispatcher(c.registry, c.bossProvider, DispatcherOptions{
		Table:     table,
		Blacklist: blacklist,
		PageSize:  config.Engine.InvitePageSize,
		Now:       c.now,
	})

	c.notifyLimiter = limiter.NewDurationLimiter(config.Notifications.PerSecond, time.Second)

	clientName, err := ClientName(config.ClientName, config.IncludeRandomSuffix)
	if err != nil {
		return err
	}

	if c.producerProvider == nil {
		return ErrProducerMissing
	}

	c.producer, err = c.producerProvider.GetProducer(ctx, config.Identifier, clientName)
	if err != nil {
		return fmt.Errorf("failed to get producer: %w", err)
	}

	if c.dedupeProvider == nil {
		c.dedupeProvider = c.newDedupeProvider(ctx, config)
	}

	if c.scheduler == nil {
		c.scheduler = newInviteScheduler(config)
	}

	if err := c.scheduler.Start(c.expireInvite); err != nil {
		return fmt.Errorf("failed to start invite scheduler: %w", err)
	}

	c.registry.OnSweep = func(removed []discord.Snowflake) {
		RecordSweep(len(removed))

		if len(removed) > 0 {
			c.Logger.Info().Int("sessions", len(removed)).Msg("Swept expired sessions")
		}
	}

	go c.registry.Run(ctx, config.Engine.SweepInterval, c.now)
	go c.prometheusGatherer(ctx)
	go c.ReactionSamples.Run(ctx, c.now)

	if config.Consumer.Type != "" {
		c.consumer = NewConsumer(c.Logger, config.Consumer)

		if err := c.consumer.Start(ctx, clientName, c.HandlePayload); err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
	}

	if config.HTTP.Host != "" {
		go func() {
			if err := c.ListenAndServe(config.HTTP.Host); err != nil {
				c.Logger.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	return nil
}

func (c *Coordinator) Stop(ctx context.Context) {
	c.Logger.Info().Msg("Stopping raid daemon")

	if c.cancel != nil {
		c.cancel()
	}

	if c.consumer != nil {
		if err := c.consumer.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to close consumer")
		}
	}

	if c.scheduler != nil {
		if err := c.scheduler.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to close invite scheduler")
		}
	}

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to close producer")
		}
	}
}

func (c *Coordinator) newBossProvider(config *Configuration) (BossProvider, error) {
	if config.BossesPath == "" {
		c.Logger.Warn().Msg("No bosses path configured, every session needs an explicit boss")

		return NewStaticBossProvider(nil), nil
	}

	provider, err := NewStaticBossProviderFromPath(config.BossesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load bosses: %w", err)
	}

	c.Logger.Info().Int("bosses", provider.Count()).Str("path", config.BossesPath).Msg("Loaded bosses")

	return provider, nil
}

func (c *Coordinator) newDedupeProvider(ctx context.Context, config *Configuration) DedupeProvider {
	switch strings.ToLower(config.Dedupe.Type) {
	case "none":
		return NewNoopDedupeProvider()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.Dedupe.Address,
			Password: config.Dedupe.Password,
			DB:       config.Dedupe.DB,
		})

		return NewRedisDedupeProvider(client, config.Dedupe.Prefix)
	default:
		provider := NewInMemoryDedupeProvider().WithClock(c.now)

		go provider.Run(ctx, config.Dedupe.TTL)

		return provider
	}
}

func newInviteScheduler(config *Configuration) InviteScheduler {
	if strings.EqualFold(config.Scheduler.Type, "asynq") {
		return NewAsynqInviteScheduler(asynq.RedisClientOpt{
			Addr:     config.Scheduler.Address,
			Password: config.Scheduler.Password,
			DB:       config.Scheduler.DB,
		}, config.Scheduler.Concurrency)
	}

	return NewInMemoryInviteScheduler()
}

// HandlePayload handles one message from the consumer. Errors are only
// returned for payloads that cannot be decoded or results that could not be
// published.
func (c *Coordinator) HandlePayload(ctx context.Context, data []byte) error {
	c.EventsInflight.Inc()
	defer c.EventsInflight.Dec()

	var payload ProducedPayload
	if err := unmarshalData(data, &payload); err != nil {
		return err
	}

	if payload.Op != discord.GatewayOpDispatch {
		return nil
	}

	trace := payload.Trace
	if trace == nil {
		trace = make(Trace)
	}

	trace.Set("receive", c.now().UnixNano())

	RecordEvent(c.identifier(), payload.Type)

	switch payload.Type {
	case EventMessageReactionAdd, EventMessageReactionRemove:
		var event ReactionEvent
		if err := unmarshalPayload(&payload, &event); err != nil {
			return err
		}

		event.Removed = payload.Type == EventMessageReactionRemove

		// Reactions the bot adds to its own messages.
		if payload.Metadata.ApplicationID != 0 && event.UserID == payload.Metadata.ApplicationID {
			return nil
		}

		return c.HandleReaction(ctx, event, trace)
	case EventMessageDelete:
		var event MessageDeleteEvent
		if err := unmarshalPayload(&payload, &event); err != nil {
			return err
		}

		return c.handleMessageDelete(ctx, event.ID, trace)
	case RaidEventCreate:
		var event CreateSessionEvent
		if err := unmarshalPayload(&payload, &event); err != nil {
			return err
		}

		view, err := c.CreateSession(ctx, event)
		if err != nil {
			c.Logger.Warn().Err(err).Str("message_id", event.MessageID.String()).Msg("Failed to create session")

			return nil
		}

		return c.publish(ctx, RaidEventRender, view, trace)
	case RaidEventSubMessage:
		var event SubMessageEvent
		if err := unmarshalPayload(&payload, &event); err != nil {
			return err
		}

		if err := c.RegisterSubMessage(ctx, event); err != nil {
			c.Logger.Warn().Err(err).Str("message_id", event.MessageID.String()).Msg("Failed to register sub-message")
		}

		return nil
	case RaidEventDelete:
		var event DeleteSessionEvent
		if err := unmarshalPayload(&payload, &event); err != nil {
			return err
		}

		return c.handleMessageDelete(ctx, event.MessageID, trace)
	default:
		c.Logger.Debug().Str("type", payload.Type).Msg("Ignoring event")

		return nil
	}
}

// HandleReaction dispatches a reaction and publishes what it produced.
func (c *Coordinator) HandleReaction(ctx context.Context, event ReactionEvent, trace Trace) error {
	if c.dispatcher == nil {
		return ErrInvalidState
	}

	key := ReactionDedupeKey(event)
	action, _ := c.dispatcher.table.Resolve(event.Emoji)

	if c.dedupeProvider != nil && !c.dedupeProvider.Deduplicate(ctx, key, c.config.Load().Dedupe.TTL) {
		RecordReaction(c.identifier(), action, "duplicate")

		return nil
	}

	outcome, err := c.dispatcher.Dispatch(ctx, event, &trace)
	if err != nil {
		// Nothing changed, so the same reaction may be tried again.
		if c.dedupeProvider != nil {
			c.dedupeProvider.Release(ctx, key)
		}

		switch {
		case errors.Is(err, ErrActionIgnored), errors.Is(err, ErrSessionNotFound):
			RecordReaction(c.identifier(), action, "ignored")
		case errors.Is(err, ErrNoActionHandler):
			c.Logger.Error().Err(err).Msg("Reaction has no handler")
		default:
			RecordReaction(c.identifier(), action, "rejected")

			c.Logger.Debug().Err(err).
				Str("message_id", event.MessageID.String()).
				Str("user_id", event.UserID.String()).
				Msg("Reaction rejected")
		}

		return nil
	}

	RecordReaction(c.identifier(), outcome.Action, "applied")
	c.ReactionSamples.Increment()

	return c.publishOutcome(ctx, outcome, trace)
}

// CreateSession registers a new session on messageID. The boss is resolved
// straight away when the event names one or the tier has a single candidate.
func (c *Coordinator) CreateSession(ctx context.Context, event CreateSessionEvent) (SessionView, error) {
	kind, err := ParseKind(event.Kind)
	if err != nil {
		return SessionView{}, err
	}

	if c.bossProvider == nil {
		return SessionView{}, ErrUnknownBoss
	}

	opts := Options{
		Tier:      event.Tier,
		Time:      event.Time,
		Location:  event.Location,
		CreatedAt: c.now(),
	}

	candidates := []string{event.Boss}

	if event.Boss == "" {
		candidates, err = c.bossProvider.GetBossCandidates(ctx, event.Tier)
		if err != nil {
			return SessionView{}, err
		}
	}

	if len(candidates) == 1 {
		boss, err := c.bossProvider.GetBossDescriptor(ctx, candidates[0])
		if err != nil {
			return SessionView{}, err
		}

		opts.Boss = &boss
	} else {
		opts.Candidates = candidates[:min(len(candidates), MaxBossCandidates)]
	}

	var session Session

	switch kind {
	case KindMule:
		session = NewMule(opts)
	case KindTrain:
		session = NewTrain(event.Creator, opts)
	default:
		session = NewRaid(opts)
	}

	if err := c.registry.Register(event.MessageID, session); err != nil {
		return SessionView{}, err
	}

	c.Logger.Info().
		Str("message_id", event.MessageID.String()).
		Str("kind", kind.String()).
		Int("tier", event.Tier).
		Msg("Created session")

	return c.Session(event.MessageID)
}

// RegisterSubMessage tracks a message the bot posted for a session. Invite
// dialogs are closed after the configured timeout.
func (c *Coordinator) RegisterSubMessage(ctx context.Context, event SubMessageEvent) error {
	sub := event.SubMessage

	if sub.Kind == SubMessageInviteDialog && sub.Owner == NoPlayer {
		err := c.registry.WithSession(sub.Parent, func(_ discord.Snowflake, session Session, _ *SubMessage) error {
			sub.Owner = session.InvitingPlayer()

			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := c.registry.RegisterSubMessage(event.MessageID, sub); err != nil {
		return err
	}

	if sub.Kind != SubMessageInviteDialog || c.scheduler == nil {
		return nil
	}

	return c.scheduler.Schedule(ctx, InviteTimeout{
		SessionID: sub.Parent,
		DialogID:  event.MessageID,
		Initiator: sub.Owner,
	}, c.config.Load().Engine.InviteTimeout)
}

// ExpireInvite closes an invite dialog that is still open and still held by
// the player who opened it.
func (c *Coordinator) ExpireInvite(ctx context.Context, timeout InviteTimeout) error {
	var outcome Outcome

	err := c.registry.WithSession(timeout.SessionID, func(sessionID discord.Snowflake, session Session, _ *SubMessage) error {
		if _, ok := c.registry.Resolve(timeout.DialogID); !ok {
			return nil
		}

		if !session.EndInviteFor(timeout.Initiator) {
			return nil
		}

		outcome.SessionID = sessionID

		for _, id := range c.registry.SubMessages(sessionID, SubMessageInviteDialog) {
			if c.registry.UnregisterSubMessage(id) {
				outcome.Closed = append(outcome.Closed, id)
			}
		}

		outcome.Render = append(outcome.Render, ViewOf(sessionID, session, c.now()))

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}

		return err
	}

	if outcome.Empty() {
		return nil
	}

	RecordInviteTimeout()

	c.Logger.Debug().Str("session_id", timeout.SessionID.String()).Msg("Invite dialog timed out")

	return c.publishOutcome(ctx, outcome, make(Trace))
}

// expireInvite is the scheduler's handler.
func (c *Coordinator) expireInvite(ctx context.Context, timeout InviteTimeout) error {
	err := c.ExpireInvite(ctx, timeout)
	if err != nil {
		c.Logger.Warn().Err(err).
			Str("session_id", timeout.SessionID.String()).
			Str("dialog_id", timeout.DialogID.String()).
			Msg("Failed to expire invite dialog")
	}

	return err
}

// DeleteSession drops a session with its sub-messages and returns the ids of
// every message no longer tracked.
func (c *Coordinator) DeleteSession(messageID discord.Snowflake) (CloseEvent, bool) {
	closed := CloseEvent{SessionID: messageID}

	for _, kind := range []SubMessageKind{SubMessageInviteDialog, SubMessageBossSelection, SubMessageMuleGroup} {
		closed.MessageIDs = append(closed.MessageIDs, c.registry.SubMessages(messageID, kind)...)
	}

	if !c.registry.Unregister(messageID) {
		return CloseEvent{}, false
	}

	c.Logger.Info().Str("message_id", messageID.String()).Msg("Deleted session")

	return closed, true
}

func (c *Coordinator) handleMessageDelete(ctx context.Context, messageID discord.Snowflake, trace Trace) error {
	resolution, ok := c.registry.Resolve(messageID)
	if !ok {
		return nil
	}

	if resolution.SubMessage == nil {
		closed, ok := c.DeleteSession(messageID)
		if !ok || len(closed.MessageIDs) == 0 {
			return nil
		}

		return c.publish(ctx, RaidEventClose, closed, trace)
	}

	var outcome Outcome

	err := c.registry.WithSession(resolution.SessionID, func(sessionID discord.Snowflake, session Session, _ *SubMessage) error {
		if !c.registry.UnregisterSubMessage(messageID) {
			return nil
		}

		outcome.SessionID = sessionID

		if resolution.SubMessage.Kind == SubMessageInviteDialog && session.EndInviteFor(resolution.SubMessage.Owner) {
			outcome.Render = append(outcome.Render, ViewOf(sessionID, session, c.now()))
		}

		return nil
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	return c.publishOutcome(ctx, outcome, trace)
}

// Session returns a view of one session.
func (c *Coordinator) Session(messageID discord.Snowflake) (SessionView, error) {
	var view SessionView

	err := c.registry.WithSession(messageID, func(sessionID discord.Snowflake, session Session, _ *SubMessage) error {
		view = ViewOf(sessionID, session, c.now())

		return nil
	})

	return view, err
}

// Sessions returns a view of every live session ordered by id.
func (c *Coordinator) Sessions() []SessionView {
	ids := c.registry.IDs()
	views := make([]SessionView, 0, len(ids))

	for _, id := range ids {
		view, err := c.Session(id)
		if err != nil {
			continue
		}

		views = append(views, view)
	}

	return views
}

func (c *Coordinator) publishOutcome(ctx context.Context, outcome Outcome, trace Trace) error {
	errs := make([]error, 0)

	for _, view := range outcome.Render {
		errs = append(errs, c.publish(ctx, RaidEventRender, view, trace))
	}

	for _, dialog := range outcome.Dialogs {
		errs = append(errs, c.publish(ctx, RaidEventDialog, dialog, trace))
	}

	if len(outcome.Closed) > 0 {
		errs = append(errs, c.publish(ctx, RaidEventClose, CloseEvent{
			SessionID:  outcome.SessionID,
			MessageIDs: outcome.Closed,
		}, trace))
	}

	for _, notification := range outcome.Notifications {
		if c.notifyLimiter != nil {
			c.notifyLimiter.Lock()
		}

		RecordNotification(notification.Kind)

		errs = append(errs, c.publish(ctx, RaidEventNotify, notification, trace))
	}

	for _, ping := range outcome.Pings {
		errs = append(errs, c.publish(ctx, RaidEventPing, ping, trace))
	}

	return errors.Join(errs...)
}

func (c *Coordinator) publish(ctx context.Context, eventType string, data any, trace Trace) error {
	if c.producer == nil {
		return ErrProducerMissing
	}

	payload, err := NewProducedPayload(eventType, data, c.metadata(), trace)
	if err != nil {
		return err
	}

	if err := c.producer.Publish(ctx, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	RecordPublish(c.identifier(), eventType)

	return nil
}

func (c *Coordinator) identifier() string {
	if config := c.config.Load(); config != nil {
		return config.Identifier
	}

	return ""
}

func (c *Coordinator) metadata() ProducedMetadata {
	config := c.config.Load()
	if config == nil {
		return ProducedMetadata{}
	}

	return ProducedMetadata{
		Identifier:  config.Identifier,
		Application: config.ClientName,
	}
}

func (c *Coordinator) prometheusGatherer(ctx context.Context) {
	t := time.NewTicker(prometheusGatherInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		counts := c.registry.CountByKind()
		subMessages := c.registry.SubMessageCount()
		eventsInflight := c.EventsInflight.Load()

		UpdateSessionMetrics(counts, subMessages)
		EventMetrics.EventsInflight.Set(float64(eventsInflight))

		c.Logger.Debug().
			Int("raids", counts[KindRaid]).
			Int("mules", counts[KindMule]).
			Int("trains", counts[KindTrain]).
			Int("subMessages", subMessages).
			Int32("eventsInflight", eventsInflight).
			Msg("Updated prometheus gauges")
	}
}

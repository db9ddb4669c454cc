package raid

import (
	"context"
	"fmt"

	mqclients "github.com/WelcomerTeam/Raid-Daemon/messaging"
	"github.com/WelcomerTeam/Raid-Daemon/pkg/limiter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const clientSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ClientName returns name, with a random suffix when several daemons share the
// same configuration.
func ClientName(name string, randomSuffix bool) (string, error) {
	if !randomSuffix {
		return name, nil
	}

	suffix, err := gonanoid.Generate(clientSuffixAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("failed to generate client suffix: %w", err)
	}

	return name + "-" + suffix, nil
}

// Consumer reads gateway and raid events off the configured transport.
type Consumer struct {
	logger zerolog.Logger

	configuration ConsumerConfiguration

	client  mqclients.MQClient
	limiter *limiter.ConcurrencyLimiter
}

func NewConsumer(logger zerolog.Logger, configuration ConsumerConfiguration) *Consumer {
	return &Consumer{
		logger:        logger.With().Str("component", "consumer").Logger(),
		configuration: configuration,
		limiter:       limiter.NewConcurrencyLimiter("consumer", configuration.Concurrency),
	}
}

// Start connects and subscribes to every configured channel. At most
// Concurrency messages are handled at once across all of them.
func (c *Consumer) Start(ctx context.Context, clientName string, handler mqclients.Handler) error {
	client, err := mqclients.NewMQClient(c.configuration.Type)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if err := client.Connect(ctx, clientName, c.configuration.Args); err != nil {
		return fmt.Errorf("failed to connect consumer: %w", err)
	}

	c.client = client

	for _, channel := range c.configuration.Channels {
		if err := client.Subscribe(ctx, channel, c.limited(handler)); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}

		c.logger.Info().Str("type", client.String()).Str("channel", channel).Msg("Subscribed")
	}

	return nil
}

func (c *Consumer) limited(handler mqclients.Handler) mqclients.Handler {
	return func(ctx context.Context, data []byte) error {
		ticket, err := c.limiter.Wait(ctx)
		if err != nil {
			return err
		}

		defer c.limiter.FreeTicket(ticket)

		if err := handler(ctx, data); err != nil {
			c.logger.Error().Err(err).Msg("Failed to handle message")

			return err
		}

		return nil
	}
}

// InProgress returns how many messages are being handled.
func (c *Consumer) InProgress() int32 {
	return c.limiter.InProgress()
}

func (c *Consumer) Close() error {
	if c.client == nil {
		return nil
	}

	return c.client.Close()
}

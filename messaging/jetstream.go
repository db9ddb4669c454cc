package mqclients

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func init() {
	MQClients = append(MQClients, "jetstream")
}

type JetStreamMQClient struct {
	NatsClient      *nats.Conn          `json:"-"`
	JetStreamClient jetstream.JetStream `json:"-"`
	JetStreamStream jetstream.Stream    `json:"-"`

	clientName string
	channel    string

	consumersMu sync.Mutex
	consumers   []jetstream.ConsumeContext
}

func (jetstreamMQ *JetStreamMQClient) String() string {
	return "jetstream"
}

func (jetstreamMQ *JetStreamMQClient) Channel() string {
	return jetstreamMQ.channel
}

func (jetstreamMQ *JetStreamMQClient) Connect(ctx context.Context, clientName string, args map[string]any) error {
	address, ok := GetString(args, "Address")
	if !ok {
		return errors.New("jetstreamMQ connect: string type assertion failed for Address")
	}

	channel, ok := GetString(args, "Channel")
	if !ok {
		return errors.New("jetstreamMQ connect: string type assertion failed for Channel")
	}

	jetstreamMQ.channel = channel
	jetstreamMQ.clientName = clientName

	var err error

	jetstreamMQ.NatsClient, err = nats.Connect(address, nats.Name(clientName))
	if err != nil {
		return fmt.Errorf("jetstreamMQ connect nats: %w", err)
	}

	jetstreamMQ.JetStreamClient, err = jetstream.New(jetstreamMQ.NatsClient)
	if err != nil {
		return fmt.Errorf("jetstreamMQ new: %w", err)
	}

	retention := jetstream.WorkQueuePolicy

	if GetBool(args, "UseInterestPolicy", false) {
		retention = jetstream.InterestPolicy
	}

	jetstreamMQ.JetStreamStream, err = jetstreamMQ.JetStreamClient.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              jetstreamMQ.channel,
		Subjects:          []string{jetstreamMQ.channel + ".*"},
		Retention:         retention,
		Discard:           jetstream.DiscardOld,
		MaxAge:            time.Duration(GetInt(args, "MaxAgeSeconds", 300)) * time.Second,
		Storage:           jetstream.MemoryStorage,
		MaxMsgsPerSubject: 1_000_000,
		MaxMsgSize:        math.MaxInt32,
		NoAck:             false,
	})
	if err != nil {
		return fmt.Errorf("jetstreamMQ create stream: %w", err)
	}

	return nil
}

func (jetstreamMQ *JetStreamMQClient) subject(channelName string) string {
	if channelName == "" {
		return jetstreamMQ.channel + ".*"
	}

	return jetstreamMQ.channel + "." + channelName
}

func (jetstreamMQ *JetStreamMQClient) Publish(ctx context.Context, channelName string, data []byte) error {
	_, err := jetstreamMQ.JetStreamClient.Publish(ctx, jetstreamMQ.subject(channelName), data)

	return err
}

// Subscribe consumes channelName with a durable consumer named after the client.
// Messages are acked once handler returns without error.
func (jetstreamMQ *JetStreamMQClient) Subscribe(ctx context.Context, channelName string, handler Handler) error {
	consumer, err := jetstreamMQ.JetStreamStream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       jetstreamMQ.clientName,
		FilterSubject: jetstreamMQ.subject(channelName),
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("jetstreamMQ create consumer: %w", err)
	}

	consumeContext, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			_ = msg.Nak()

			return
		}

		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("jetstreamMQ consume: %w", err)
	}

	jetstreamMQ.consumersMu.Lock()
	jetstreamMQ.consumers = append(jetstreamMQ.consumers, consumeContext)
	jetstreamMQ.consumersMu.Unlock()

	return nil
}

func (jetstreamMQ *JetStreamMQClient) Close() error {
	jetstreamMQ.consumersMu.Lock()
	for _, consumeContext := range jetstreamMQ.consumers {
		consumeContext.Stop()
	}

	jetstreamMQ.consumers = nil
	jetstreamMQ.consumersMu.Unlock()

	if jetstreamMQ.NatsClient != nil {
		jetstreamMQ.NatsClient.Close()
	}

	return nil
}

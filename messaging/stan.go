package mqclients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
)

func init() {
	MQClients = append(MQClients, "stan")
}

type StanMQClient struct {
	NatsClient *nats.Conn `json:"-"`
	StanClient stan.Conn  `json:"-"`

	async bool

	clientName string
	channel    string
	cluster    string

	subscriptionsMu sync.Mutex
	subscriptions   []stan.Subscription
}

func (stanMQ *StanMQClient) String() string {
	return "stan"
}

func (stanMQ *StanMQClient) Channel() string {
	return stanMQ.channel
}

func (stanMQ *StanMQClient) Cluster() string {
	return stanMQ.cluster
}

func (stanMQ *StanMQClient) Connect(ctx context.Context, clientName string, args map[string]any) (err error) {
	address, ok := GetString(args, "Address")
	if !ok {
		return errors.New("stanMQ connect: string type assertion failed for Address")
	}

	cluster, ok := GetString(args, "Cluster")
	if !ok {
		return errors.New("stanMQ connect: string type assertion failed for Cluster")
	}

	channel, ok := GetString(args, "Channel")
	if !ok {
		return errors.New("stanMQ connect: string type assertion failed for Channel")
	}

	stanMQ.clientName = clientName
	stanMQ.cluster = cluster
	stanMQ.channel = channel
	stanMQ.async = GetBool(args, "Async", false)

	var option stan.Option

	if GetBool(args, "UseNATSConnection", true) {
		stanMQ.NatsClient, err = nats.Connect(address)
		if err != nil {
			return fmt.Errorf("stanMQ connect nats: %w", err)
		}

		option = stan.NatsConn(stanMQ.NatsClient)
	} else {
		option = stan.NatsURL(address)
	}

	stanMQ.StanClient, err = stan.Connect(
		cluster,
		clientName,
		option,
	)
	if err != nil {
		return fmt.Errorf("stanMQ connect stan: %w", err)
	}

	return nil
}

func (stanMQ *StanMQClient) Publish(ctx context.Context, channelName string, data []byte) (err error) {
	if stanMQ.async {
		_, err = stanMQ.StanClient.PublishAsync(
			channelName,
			data,
			nil,
		)

		return err
	}

	return stanMQ.StanClient.Publish(
		channelName,
		data,
	)
}

// Subscribe uses a durable subscription so a restarted daemon resumes where it stopped.
func (stanMQ *StanMQClient) Subscribe(ctx context.Context, channelName string, handler Handler) error {
	subscription, err := stanMQ.StanClient.Subscribe(
		channelName,
		func(msg *stan.Msg) {
			_ = handler(ctx, msg.Data)
		},
		stan.DurableName(stanMQ.clientName),
	)
	if err != nil {
		return fmt.Errorf("stanMQ subscribe: %w", err)
	}

	stanMQ.subscriptionsMu.Lock()
	stanMQ.subscriptions = append(stanMQ.subscriptions, subscription)
	stanMQ.subscriptionsMu.Unlock()

	return nil
}

func (stanMQ *StanMQClient) Close() error {
	stanMQ.subscriptionsMu.Lock()
	for _, subscription := range stanMQ.subscriptions {
		_ = subscription.Close()
	}

	stanMQ.subscriptions = nil
	stanMQ.subscriptionsMu.Unlock()

	if stanMQ.StanClient != nil {
		if err := stanMQ.StanClient.Close(); err != nil {
			return fmt.Errorf("stanMQ close: %w", err)
		}
	}

	if stanMQ.NatsClient != nil {
		stanMQ.NatsClient.Close()
	}

	return nil
}

package raid

import (
	"context"
	"fmt"
	"sync"

	mqclients "github.com/WelcomerTeam/Raid-Daemon/messaging"
	"github.com/WelcomerTeam/Raid-Daemon/raidjson"
)

type ProducerProvider interface {
	GetProducer(ctx context.Context, identifier, clientName string) (Producer, error)
}

type Producer interface {
	Publish(ctx context.Context, payload ProducedPayload) error
	Close() error
}

// MQProducerProvider publishes through one of the messaging clients.
type MQProducerProvider struct {
	clientType string
	channel    string
	args       map[string]any
}

func NewMQProducerProvider(clientType, channel string, args map[string]any) *MQProducerProvider {
	return &MQProducerProvider{
		clientType: clientType,
		channel:    channel,
		args:       args,
	}
}

func (p *MQProducerProvider) GetProducer(ctx context.Context, identifier, clientName string) (Producer, error) {
	client, err := mqclients.NewMQClient(p.clientType)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer for %s: %w", identifier, err)
	}

	if err := client.Connect(ctx, clientName, p.args); err != nil {
		return nil, fmt.Errorf("failed to connect producer for %s: %w", identifier, err)
	}

	channel := p.channel
	if channel == "" {
		channel = client.Channel()
	}

	return &MQProducer{
		client:  client,
		channel: channel,
	}, nil
}

type MQProducer struct {
	client  mqclients.MQClient
	channel string
}

func (p *MQProducer) Publish(ctx context.Context, payload ProducedPayload) error {
	data, err := raidjson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data)
}

func (p *MQProducer) Close() error {
	return p.client.Close()
}

// MemoryProducer keeps every published payload. It backs the status API when
// no transport is configured and is what tests publish into.
type MemoryProducer struct {
	mu       sync.Mutex
	payloads []ProducedPayload
}

func NewMemoryProducer() *MemoryProducer {
	return &MemoryProducer{}
}

func (p *MemoryProducer) GetProducer(context.Context, string, string) (Producer, error) {
	return p, nil
}

func (p *MemoryProducer) Publish(_ context.Context, payload ProducedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.payloads = append(p.payloads, payload)

	return nil
}

// Drain returns the payloads published so far and forgets them.
func (p *MemoryProducer) Drain() []ProducedPayload {
	p.mu.Lock()
	defer p.mu.Unlock()

	payloads := p.payloads
	p.payloads = nil

	return payloads
}

func (p *MemoryProducer) Close() error {
	return nil
}

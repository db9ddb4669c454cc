package mqclients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

func init() {
	MQClients = append(MQClients, "kafka")
}

type KafkaMQClient struct {
	KafkaClient *kafka.Writer

	address    string
	clientName string
	channel    string
	cluster    string

	readersMu sync.Mutex
	readers   []*kafka.Reader
}

func parseKafkaBalancer(balancer string) kafka.Balancer {
	switch balancer {
	case "crc32":
		return &kafka.CRC32Balancer{}
	case "hash":
		return &kafka.Hash{}
	case "murmur2":
		return &kafka.Murmur2Balancer{}
	case "roundrobin":
		return &kafka.RoundRobin{}
	case "leastbytes":
		return &kafka.LeastBytes{}
	default:
		return nil
	}
}

func (kafkaMQ *KafkaMQClient) String() string {
	return "kafka"
}

func (kafkaMQ *KafkaMQClient) Channel() string {
	return kafkaMQ.channel
}

func (kafkaMQ *KafkaMQClient) Cluster() string {
	return kafkaMQ.cluster
}

func (kafkaMQ *KafkaMQClient) Connect(ctx context.Context, clientName string, args map[string]any) error {
	address, ok := GetString(args, "Address")
	if !ok {
		return errors.New("kafkaMQ connect: string type assertion failed for Address")
	}

	balancerStr, ok := GetString(args, "Balancer")
	if !ok {
		return errors.New("kafkaMQ connect: string type assertion failed for Balancer")
	}

	kafkaMQ.address = address
	kafkaMQ.clientName = clientName
	kafkaMQ.channel, _ = GetString(args, "Channel")
	kafkaMQ.cluster, _ = GetString(args, "Cluster")

	kafkaMQ.KafkaClient = &kafka.Writer{
		Addr:     kafka.TCP(address),
		Balancer: parseKafkaBalancer(balancerStr),
		Async:    GetBool(args, "Async", false),
	}

	return nil
}

func (kafkaMQ *KafkaMQClient) Publish(ctx context.Context, channelName string, data []byte) error {
	return kafkaMQ.KafkaClient.WriteMessages(
		ctx,
		kafka.Message{
			Topic: channelName,
			Value: data,
		},
	)
}

// Subscribe reads channelName as part of a consumer group named after the client.
// Offsets are only committed once handler succeeds.
func (kafkaMQ *KafkaMQClient) Subscribe(ctx context.Context, channelName string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{kafkaMQ.address},
		Topic:   channelName,
		GroupID: kafkaMQ.clientName,
	})

	kafkaMQ.readersMu.Lock()
	kafkaMQ.readers = append(kafkaMQ.readers, reader)
	kafkaMQ.readersMu.Unlock()

	go func() {
		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				return
			}

			if err := handler(ctx, msg.Value); err != nil {
				continue
			}

			_ = reader.CommitMessages(ctx, msg)
		}
	}()

	return nil
}

func (kafkaMQ *KafkaMQClient) Close() error {
	var errs []error

	kafkaMQ.readersMu.Lock()
	for _, reader := range kafkaMQ.readers {
		errs = append(errs, reader.Close())
	}

	kafkaMQ.readers = nil
	kafkaMQ.readersMu.Unlock()

	if kafkaMQ.KafkaClient != nil {
		errs = append(errs, kafkaMQ.KafkaClient.Close())
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("kafkaMQ close: %w", err)
	}

	return nil
}

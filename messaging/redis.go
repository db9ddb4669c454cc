package mqclients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

func init() {
	MQClients = append(MQClients, "redis")
}

type RedisMQClient struct {
	redisClient *redis.Client

	channel string

	pubsubsMu sync.Mutex
	pubsubs   []*redis.PubSub
}

func (redisMQ *RedisMQClient) String() string {
	return "redis"
}

func (redisMQ *RedisMQClient) Channel() string {
	return redisMQ.channel
}

// Client exposes the connection so other components can share it.
func (redisMQ *RedisMQClient) Client() *redis.Client {
	return redisMQ.redisClient
}

func (redisMQ *RedisMQClient) Connect(ctx context.Context, clientName string, args map[string]any) error {
	address, ok := GetString(args, "Address")
	if !ok {
		return errors.New("redisMQ connect: string type assertion failed for Address")
	}

	password, _ := GetString(args, "Password")

	redisMQ.channel, _ = GetString(args, "Channel")

	redisMQ.redisClient = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       GetInt(args, "DB", 0),
	})

	if err := redisMQ.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisMQ connect ping: %w", err)
	}

	return nil
}

func (redisMQ *RedisMQClient) Publish(ctx context.Context, channelName string, data []byte) error {
	return redisMQ.redisClient.Publish(
		ctx,
		channelName,
		data,
	).Err()
}

// Subscribe listens on a pub/sub channel. Pub/sub has no redelivery so handler
// errors are dropped.
func (redisMQ *RedisMQClient) Subscribe(ctx context.Context, channelName string, handler Handler) error {
	pubsub := redisMQ.redisClient.Subscribe(ctx, channelName)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return fmt.Errorf("redisMQ subscribe: %w", err)
	}

	redisMQ.pubsubsMu.Lock()
	redisMQ.pubsubs = append(redisMQ.pubsubs, pubsub)
	redisMQ.pubsubsMu.Unlock()

	go func() {
		for msg := range pubsub.Channel() {
			_ = handler(ctx, []byte(msg.Payload))
		}
	}()

	return nil
}

func (redisMQ *RedisMQClient) Close() error {
	redisMQ.pubsubsMu.Lock()
	for _, pubsub := range redisMQ.pubsubs {
		_ = pubsub.Close()
	}

	redisMQ.pubsubs = nil
	redisMQ.pubsubsMu.Unlock()

	if redisMQ.redisClient == nil {
		return nil
	}

	err := redisMQ.redisClient.Close()
	redisMQ.redisClient = nil

	return err
}

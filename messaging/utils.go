package mqclients

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// MQClients lists all current mqclients we have available.
var MQClients = []string{}

// Handler is called with the body of every consumed message. A returned error
// asks the broker to redeliver where it supports that.
type Handler func(ctx context.Context, data []byte) error

type MQClient interface {
	String() string
	Channel() string

	Connect(ctx context.Context, clientName string, args map[string]any) error
	Publish(ctx context.Context, channel string, data []byte) error
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

func NewMQClient(mqType string) (MQClient, error) {
	switch strings.ToLower(mqType) {
	case "jetstream":
		return &JetStreamMQClient{}, nil
	case "stan":
		return &StanMQClient{}, nil
	case "kafka":
		return &KafkaMQClient{}, nil
	case "redis":
		return &RedisMQClient{}, nil
	case "websocket":
		return &WebsocketMQClient{}, nil
	default:
		return nil, fmt.Errorf("no mq client named %q", mqType)
	}
}

// GetEntry returns the first match from a map, comparing keys case insensitively.
func GetEntry(m map[string]any, key string) any {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}

	return nil
}

// GetString reads a scalar entry as a string.
func GetString(m map[string]any, key string) (string, bool) {
	switch v := GetEntry(m, key).(type) {
	case string:
		return v, true
	case int, int64, float64, bool:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

// GetBool reads an entry as a bool, falling back to def when missing or invalid.
func GetBool(m map[string]any, key string, def bool) bool {
	switch v := GetEntry(m, key).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return def
}

// GetInt reads an entry as an int, falling back to def when missing or invalid.
func GetInt(m map[string]any, key string, def int) int {
	switch v := GetEntry(m, key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}

	return def
}

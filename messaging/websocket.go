package mqclients

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nhooyr.io/websocket"
)

func init() {
	MQClients = append(MQClients, "websocket")
}

// WebsocketMQClient talks to a single websocket endpoint. Every frame is one
// message, channel names are not used on the wire.
type WebsocketMQClient struct {
	conn *websocket.Conn

	channel string

	writeMu sync.Mutex
}

func (websocketMQ *WebsocketMQClient) String() string {
	return "websocket"
}

func (websocketMQ *WebsocketMQClient) Channel() string {
	return websocketMQ.channel
}

func (websocketMQ *WebsocketMQClient) Connect(ctx context.Context, clientName string, args map[string]any) error {
	address, ok := GetString(args, "Address")
	if !ok {
		return errors.New("websocketMQ connect: string type assertion failed for Address")
	}

	websocketMQ.channel, _ = GetString(args, "Channel")

	conn, _, err := websocket.Dial(ctx, address, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			"X-Client-Name": {clientName},
		},
	})
	if err != nil {
		return fmt.Errorf("websocketMQ dial: %w", err)
	}

	conn.SetReadLimit(-1)

	websocketMQ.conn = conn

	return nil
}

func (websocketMQ *WebsocketMQClient) Publish(ctx context.Context, _ string, data []byte) error {
	websocketMQ.writeMu.Lock()
	defer websocketMQ.writeMu.Unlock()

	return websocketMQ.conn.Write(ctx, websocket.MessageText, data)
}

func (websocketMQ *WebsocketMQClient) Subscribe(ctx context.Context, _ string, handler Handler) error {
	if websocketMQ.conn == nil {
		return errors.New("websocketMQ subscribe: not connected")
	}

	go func() {
		for {
			_, data, err := websocketMQ.conn.Read(ctx)
			if err != nil {
				return
			}

			_ = handler(ctx, data)
		}
	}()

	return nil
}

func (websocketMQ *WebsocketMQClient) Close() error {
	if websocketMQ.conn == nil {
		return nil
	}

	err := websocketMQ.conn.Close(websocket.StatusNormalClosure, "closing")
	websocketMQ.conn = nil

	return err
}

package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueNotifications is the durable queue dashboard notices are published to.
const QueueNotifications = "dashboard.notifications"

// AMQPNotifier publishes events to RabbitMQ so external consumers (e.g. a
// websocket relay) can render them. It reconnects lazily on demand.
type AMQPNotifier struct {
	url    string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPNotifier(url string, logger *zap.Logger) (*AMQPNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &AMQPNotifier{url: url, logger: logger}
	if _, err := n.channel(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal notification event", zap.Error(err))
		return
	}

	ch, err := n.channel()
	if err != nil {
		n.logger.Error("failed to open rabbitmq channel", zap.Error(err))
		return
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Type:         string(event.Level),
		Body:         payload,
	}

	if err := ch.PublishWithContext(ctx, "", QueueNotifications, false, false, publishing); err != nil {
		n.logger.Error("failed to publish notification event",
			zap.String("level", string(event.Level)),
			zap.Error(err),
		)
	}
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

func (n *AMQPNotifier) channel() (*amqp.Channel, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect rabbitmq: %w", err)
		}
		n.conn = conn
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueNotifications, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", QueueNotifications, err)
	}
	return ch, nil
}

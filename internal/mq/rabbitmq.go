package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes to a topic exchange with the channel name as the
// routing key. Each Subscribe call opens its own AMQP channel.
type RabbitMQClient struct {
	conn *amqp.Connection
	cfg  config.RabbitMQConfig

	mu      sync.Mutex
	publish *amqp.Channel
}

// NewRabbitMQClient dials the broker and declares the events exchange.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQClient{conn: conn, cfg: cfg, publish: ch}, nil
}

// Publish routes a persistent JSON message to every queue bound to channel.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	r.mu.Lock()
	err := r.publish.PublishWithContext(ctx, r.cfg.Exchange, channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      headers,
		Body:         data,
	})
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return messageID, nil
}

// Subscribe binds a queue to channel and consumes it until ctx is done.
// A failed handler nacks the delivery for redelivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	queue, err := r.declareQueue(ch, channel)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(queue.Name, channel, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", queue.Name, channel, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, msg); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publish channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publish != nil {
		_ = r.publish.Close()
	}
	return r.conn.Close()
}

// declareQueue returns a private server-named queue, or a shared named queue
// when a prefix is configured.
func (r *RabbitMQClient) declareQueue(ch *amqp.Channel, channel string) (amqp.Queue, error) {
	name := queueName(r.cfg.QueuePrefix, channel)
	var (
		queue amqp.Queue
		err   error
	)
	if name == "" {
		queue, err = ch.QueueDeclare("", false, true, true, false, nil)
	} else {
		queue, err = ch.QueueDeclare(name, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil)
	}
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue for %s: %w", channel, err)
	}
	return queue, nil
}

func queueName(prefix, channel string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	return prefix + "." + channel
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/quillpost/apiserver/config"
	"google.golang.org/api/option"
)

// privateSubscriptionTTL bounds how long an abandoned private subscription
// survives when the process dies before deleting it.
const privateSubscriptionTTL = 24 * time.Hour

// PubSubClient maps each channel to a Pub/Sub topic of the same name.
type PubSubClient struct {
	client *pubsub.Client
	suffix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	return &PubSubClient{
		client: client,
		suffix: strings.TrimSpace(cfg.SubscriptionSuffix),
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

// Publish blocks until the server has assigned a message id.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe receives from channel until ctx is done. With a subscription
// suffix configured, all subscribers share "<channel><suffix>". Without one,
// each call gets a private subscription that is deleted on return.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return err
	}

	var sub *pubsub.Subscription
	if p.suffix != "" {
		sub, err = p.sharedSubscription(ctx, channel+p.suffix, topic)
	} else {
		sub, err = p.client.CreateSubscription(ctx, privateSubscriptionName(channel), pubsub.SubscriptionConfig{
			Topic:            topic,
			ExpirationPolicy: privateSubscriptionTTL,
		})
		if sub != nil {
			defer func() {
				cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				_ = sub.Delete(cleanup)
			}()
		}
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, Message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes}); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes before closing the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}

func (p *PubSubClient) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if topic, ok := p.topics[name]; ok {
		return topic, nil
	}
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup topic %s: %w", name, err)
	}
	if !exists {
		if topic, err = p.client.CreateTopic(ctx, name); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", name, err)
		}
	}
	p.topics[name] = topic
	return topic, nil
}

func (p *PubSubClient) sharedSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil || exists {
		return sub, err
	}
	return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
}

// privateSubscriptionName returns a valid, unique subscription id. Pub/Sub ids
// must start with a letter, and channel names do.
func privateSubscriptionName(channel string) string {
	return channel + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Event is the envelope written to the queue for every domain event.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
// Publish may be called from many request goroutines; mu serializes channel use.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	queue   string
	log     logrus.FieldLogger
	now     func() time.Time
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := NewWithChannel(ch, cfg.Queue, log)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	client.conn = conn

	log.WithField("queue", cfg.Queue).Info("RabbitMQ client connected")
	return client, nil
}

// NewWithChannel builds a client on an already open channel and declares the queue.
func NewWithChannel(ch Channel, queue string, log logrus.FieldLogger) (*Client, error) {
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	return &Client{
		channel: ch,
		queue:   queue,
		log:     log,
		now:     time.Now,
	}, nil
}

func declare(ch Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// Publish wraps payload in an Event and sends it as a persistent JSON message.
func (c *Client) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	now := c.now()
	msg, err := json.Marshal(Event{Type: eventType, OccurredAt: now, Payload: body})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         eventType,
			Body:         msg,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	c.log.WithField("event", eventType).Debug("event published")
	return nil
}

// ConsumeEvents starts a goroutine that decodes each delivery and passes it to
// handler. Successful deliveries are acked. Undecodable ones are dropped and
// handler failures are requeued once.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
		c.log.Info("RabbitMQ consumer stopped")
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(Event) error) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("dropping undecodable event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.WithError(nackErr).Warn("failed to nack event")
		}
		return
	}

	if err := handler(event); err != nil {
		c.log.WithError(err).WithField("event", event.Type).Warn("event handler failed")
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			c.log.WithError(nackErr).Warn("failed to nack event")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.WithError(ackErr).Warn("failed to ack event")
	}
}

// LogEvent is the default consumer handler: it records each event in the log.
func LogEvent(log logrus.FieldLogger) func(Event) error {
	return func(e Event) error {
		log.WithFields(logrus.Fields{
			"event":       e.Type,
			"occurred_at": e.OccurredAt,
		}).Info("domain event received")
		return nil
	}
}

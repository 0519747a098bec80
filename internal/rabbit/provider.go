package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("rabbit provider is not connected")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
}

// Message is published when an event is added to a user's calendar.
type Message struct {
	UserID    int64     `json:"userId"`
	EventID   int64     `json:"eventId"`
	EventName string    `json:"eventName"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	AddedAt   time.Time `json:"addedAt"`
}

type Provider struct {
	conn       *amqp.Connection
	queue      amqp.Queue
	channel    *amqp.Channel
	connString string
	queueName  string
}

func New(config Config) *Provider {
	return &Provider{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		queueName: config.Queue,
	}
}

func (r *Provider) Connect() error {
	var err error
	r.conn, err = amqp.Dial(r.connString)
	if err != nil {
		return fmt.Errorf("failed to dial rabbit: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	r.queue, err = r.channel.QueueDeclare(
		r.queueName,
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", r.queueName, err)
	}
	return nil
}

func (r *Provider) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *Provider) Publish(body []byte) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	return r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

func (r *Provider) PublishMessage(_ context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return r.Publish(data)
}

type MessageProcess = func(msg amqp.Delivery)

func (r *Provider) Consume(ctx context.Context, process MessageProcess) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		true,         // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			process(m)
		}
	}
}

// ParseMessage decodes a delivery body produced by PublishMessage.
func ParseMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("failed to parse message: %w", err)
	}
	return m, nil
}

package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitChannel is a connection plus one channel bound to a durable queue.
type RabbitChannel struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

// DialRabbit connects and declares the durable queue used for jobs.
func DialRabbit(url, queue string) (*RabbitChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return &RabbitChannel{conn: conn, ch: ch, Queue: queue}, nil
}

func (r *RabbitChannel) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// Consume starts manual-ack delivery with the given prefetch.
func (r *RabbitChannel) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := r.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	return r.ch.Consume(r.Queue, "", false, false, false, false, nil)
}

// RabbitPublisher publishes JSON messages to the default exchange of one queue.
type RabbitPublisher struct {
	*RabbitChannel
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	rc, err := DialRabbit(url, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{RabbitChannel: rc}, nil
}

// PublishJSON publishes a JSON-encoded persistent message to the queue.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

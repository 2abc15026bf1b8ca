package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue is the task-delivery collaborator: at-least-once, no ordering
// guarantee. The engine's handlers tolerate duplicates by design.
type Queue interface {
	Publish(ctx context.Context, task Task) error
	PublishWithDelay(ctx context.Context, task Task, delay time.Duration) error
	Consume(ctx context.Context, handler func(body []byte) error) error
	Close() error
}

type RabbitQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	name    string
}

func NewRabbitQueue(url, queueName string) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &RabbitQueue{
		conn:    conn,
		channel: channel,
		queue:   q,
		name:    queueName,
	}, nil
}

func (r *RabbitQueue) Publish(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",     // default exchange
		r.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish task: %w", err)
	}
	return nil
}

// PublishWithDelay parks the task in a TTL queue whose dead-letter routing
// points back at the main queue, so it surfaces after the delay.
func (r *RabbitQueue) PublishWithDelay(ctx context.Context, task Task, delay time.Duration) error {
	if delay <= 0 {
		return r.Publish(ctx, task)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	delayedName := fmt.Sprintf("%s_delayed_%d", r.name, delay.Milliseconds())
	_, err = r.channel.QueueDeclare(
		delayedName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl":             delay.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": r.name,
			"x-expires":                 delay.Milliseconds() + 60_000,
		},
	)
	if err != nil {
		return fmt.Errorf("declare delayed queue: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",
		delayedName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish delayed task: %w", err)
	}
	return nil
}

func (r *RabbitQueue) Consume(ctx context.Context, handler func(body []byte) error) error {
	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := r.channel.Consume(
		r.queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if err := handler(msg.Body); err != nil {
					_ = msg.Nack(false, true)
				} else {
					_ = msg.Ack(false)
				}
			}
		}
	}()
	return nil
}

func (r *RabbitQueue) Close() error {
	var errs []error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close rabbitmq: %v", errs)
	}
	return nil
}

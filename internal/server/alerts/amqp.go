package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPAlerter publishes events to a durable RabbitMQ queue so an external
// monitor can act on theft signals.
type AMQPAlerter struct {
	conn  *amqp.Connection
	chn   *amqp.Channel
	queue string
}

func NewAMQPAlerter(url, queue string) (*AMQPAlerter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if _, err := chn.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	return &AMQPAlerter{conn: conn, chn: chn, queue: queue}, nil
}

func (a *AMQPAlerter) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}
	return a.chn.PublishWithContext(
		ctx,
		"",      // exchange
		a.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (a *AMQPAlerter) Close() error {
	if err := a.chn.Close(); err != nil {
		return err
	}
	return a.conn.Close()
}

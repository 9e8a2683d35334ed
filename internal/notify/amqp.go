package notify

import (
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "academy.notifications"
	exchangeKind = "topic"
)

// AMQPPublisher forwards events to the notification collaborator through
// a topic exchange, routed by event type.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

// Publish is fire-and-forget: broker errors are logged and swallowed so
// notification delivery can never fail a booking operation.
func (p *AMQPPublisher) Publish(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify amqp encode event: %v", err)
		return
	}

	err = p.channel.Publish(
		exchangeName,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Body:        body,
		},
	)
	if err != nil {
		log.Printf("notify amqp publish %s: %v", event.Type, err)
	}
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Fanout publishes to every configured backend.
type Fanout []Publisher

func (f Fanout) Publish(event Event) {
	for _, p := range f {
		p.Publish(event)
	}
}

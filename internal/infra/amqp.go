package infra

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPConnection dials the message broker used for reminder delivery.
func NewAMQPConnection(url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}

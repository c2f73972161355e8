package rabbitmq

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// Subscriber pulls raw messages from the sensor queue. RabbitMQ has no
// partition-EOF concept; the closure of the delivery channel is reported
// as the end-of-partition marker instead.
type Subscriber struct {
	conn       *amqp.Connection
	deliveries <-chan amqp.Delivery
	logger     zerolog.Logger
}

func NewSubscriber(config RabbitMQConfig, logger zerolog.Logger) (*Subscriber, error) {
	conn, err := amqp.Dial(config.ConnectionString)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to connect to RabbitMQ"))
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Join(err, errors.New("failed to open a channel"))
	}

	_, err = ch.QueueDeclare(config.QueueName, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, errors.Join(err, errors.New("failed to declare queue"))
	}

	deliveries, err := ch.Consume(
		config.QueueName, // queue
		"",               // consumer
		true,             // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		conn.Close()
		return nil, errors.Join(err, errors.New("failed to start consuming"))
	}

	return &Subscriber{
		conn:       conn,
		deliveries: deliveries,
		logger:     logger.With().Str("component", "rabbitmq-subscriber").Logger(),
	}, nil
}

func (s *Subscriber) Poll(timeout time.Duration) *model.PollEvent {
	select {
	case d, ok := <-s.deliveries:
		if !ok {
			return &model.PollEvent{EndOfPartition: true}
		}
		return &model.PollEvent{Payload: d.Body}
	case <-time.After(timeout):
		return nil
	}
}

func (s *Subscriber) Close() error {
	return s.conn.Close()
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type RabbitMQConfig struct {
	ConnectionString string `yaml:"ConnectionString"`
	QueueName        string `yaml:"QueueName"`
}

type keyedMessage struct {
	key  string
	body []byte
}

// RabbitMQ publishes sensor readings on a durable queue. Readings are
// handed over through a channel so every producer goroutine can share
// one connection.
type RabbitMQ struct {
	ConnectionString string
	QueueName        string
	msgs             chan keyedMessage
	done             chan struct{}
	logger           zerolog.Logger
	conn             *amqp.Connection
	ch               *amqp.Channel
}

func NewRabbitMQ(config RabbitMQConfig, logger zerolog.Logger) *RabbitMQ {
	return &RabbitMQ{
		msgs:             make(chan keyedMessage),
		done:             make(chan struct{}),
		ConnectionString: config.ConnectionString,
		QueueName:        config.QueueName,
		logger:           logger.With().Str("component", "rabbitmq").Logger(),
	}
}

// SendReading serializes the reading and queues it for publishing, keyed
// by the equipment id. Once the publish loop has stopped, producers get
// an error instead of blocking on the handover channel.
func (r *RabbitMQ) SendReading(reading model.SensorReading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	select {
	case r.msgs <- keyedMessage{key: reading.EquipmentID, body: body}:
		return nil
	case <-r.done:
		return errors.New("rabbitmq gateway stopped")
	}
}

// connect establishes a new connection and channel
func (r *RabbitMQ) connect() error {
	var err error

	r.conn, err = amqp.Dial(r.ConnectionString)
	if err != nil {
		return err
	}

	r.ch, err = r.conn.Channel()
	if err != nil {
		return err
	}

	_, err = r.ch.QueueDeclare(
		r.QueueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return err
	}

	return nil
}

// reconnect handles reconnection logic
func (r *RabbitMQ) reconnect() {
	for {
		r.logger.Info().Msg("Attempting to reconnect to RabbitMQ...")
		err := r.connect()
		if err == nil {
			r.logger.Info().Msg("Successfully reconnected to RabbitMQ...")
			break
		}
		r.logger.Error().Err(err).Msg("Reconnect failed")
		time.Sleep(5 * time.Second)
	}
}

// Start connects and spawns the publish loop. Connection failure at
// startup is fatal.
func (r *RabbitMQ) Start(ctx context.Context, wg *sync.WaitGroup) {
	if err := r.connect(); err != nil {
		r.logger.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	wg.Add(1)
	go r.run(ctx, wg)
}

// Close gracefully shuts down the connection and channel
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

func (r *RabbitMQ) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(r.done)
	for {
		select {
		case msg := <-r.msgs:
			err := r.ch.Publish(
				"",          // Exchange
				r.QueueName, // Routing key (queue name)
				false,       // Mandatory
				false,       // Immediate
				amqp.Publishing{
					ContentType: "application/json",
					MessageId:   msg.key,
					Headers:     amqp.Table{"equipment_id": msg.key},
					Body:        msg.body,
				},
			)
			if err != nil {
				r.logger.Error().Err(err).Str("equipment", msg.key).Msg("Failed to publish a message")
				r.reconnect()
			}
		case <-ctx.Done():
			if err := r.Close(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to close connection")
			}
			r.logger.Info().Msg("Received interrupt signal, closing connection")
			return
		}
	}
}

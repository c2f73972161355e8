package mqtt

import (
	"crypto/tls"
	"errors"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// subscriberQueueLen bounds how far the broker can run ahead of the
// poll loop before messages are reported as transport errors.
const subscriberQueueLen = 256

// Subscriber receives readings from <topic>/# and exposes them through
// a bounded poll interface.
type Subscriber struct {
	client   pmqtt.Client
	payloads chan []byte
	overflow chan error
	logger   zerolog.Logger
}

func NewSubscriber(conf MqttConf, logger zerolog.Logger) (*Subscriber, error) {
	l := logger.With().Str("component", "mqtt-subscriber").Logger()
	cid := uuid.NewV4()

	s := &Subscriber{
		payloads: make(chan []byte, subscriberQueueLen),
		overflow: make(chan error, 1),
		logger:   l,
	}

	opt := pmqtt.NewClientOptions().
		AddBroker(conf.Connection).
		SetClientID("pdm-sensor-sink-" + cid.String()).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true,
		}).
		SetConnectionLostHandler(ConnectLostHandler(l)).
		SetOnConnectHandler(ConnectHandler(l))

	s.client = pmqtt.NewClient(opt)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Join(token.Error(), errors.New("error connecting to mqtt broker"))
	}

	token := s.client.Subscribe(conf.Topic+"/#", 1, func(_ pmqtt.Client, msg pmqtt.Message) {
		select {
		case s.payloads <- msg.Payload():
		default:
			select {
			case s.overflow <- errors.New("subscriber queue full, message dropped"):
			default:
			}
		}
	})
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		s.client.Disconnect(250)
		return nil, errors.Join(token.Error(), errors.New("failed to subscribe"))
	}

	return s, nil
}

func (s *Subscriber) Poll(timeout time.Duration) *model.PollEvent {
	select {
	case err := <-s.overflow:
		return &model.PollEvent{Err: err}
	case payload := <-s.payloads:
		return &model.PollEvent{Payload: payload}
	case <-time.After(timeout):
		return nil
	}
}

func (s *Subscriber) Close() error {
	s.client.Disconnect(250)
	s.logger.Info().Msg("Disconnected from mqtt broker")
	return nil
}

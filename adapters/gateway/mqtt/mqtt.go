package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"sync"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// MqttConf holds the configuration for the MQTT client.
type MqttConf struct {
	Connection string `yaml:"Connection"`
	Topic      string `yaml:"Topic"`
}

// Mqtt publishes one reading per message under <topic>/<equipment_id>,
// so every device keeps its own ordered stream.
type Mqtt struct {
	Topic    string
	MgtUrl   string
	logger   zerolog.Logger
	opt      *pmqtt.ClientOptions
	ClientID uuid.UUID
	client   pmqtt.Client
}

func NewMqtt(conf MqttConf, logger zerolog.Logger, ctx context.Context, wg *sync.WaitGroup) (*Mqtt, error) {
	var (
		err        error
		cid        uuid.UUID
		mqttClient *Mqtt
	)

	wg.Add(1)

	cid = uuid.NewV4()
	l := logger.With().Str("component", "mqtt").Logger()
	mqttClient = &Mqtt{
		Topic:    conf.Topic,
		MgtUrl:   conf.Connection,
		logger:   l,
		ClientID: cid,
		opt: pmqtt.NewClientOptions().
			AddBroker(conf.Connection).
			SetClientID("pdm-sensor-bridge-" + cid.String()).
			SetCleanSession(true).
			SetAutoReconnect(true).
			SetTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}).
			SetConnectionLostHandler(ConnectLostHandler(l)).
			SetOnConnectHandler(ConnectHandler(l)),
	}

	mqttClient.setupContextListener(ctx, wg)

	err = mqttClient.Connect()
	if err != nil {
		return mqttClient, err
	}

	mqttClient.publishTestMessage()

	return mqttClient, err
}

// setupContextListener ensures proper disconnection when the context is canceled.
func (m *Mqtt) setupContextListener(ctx context.Context, wg *sync.WaitGroup) {
	go func() {
		<-ctx.Done()
		m.client.Disconnect(250)
		wg.Done()
		m.logger.Warn().Msg("Mqtt disconnected")
	}()
}

// publishTestMessage sends a test message to a predefined topic to verify the MQTT connection.
func (m *Mqtt) publishTestMessage() {
	dump := struct {
		Message string `json:"message"`
		Uuidc   string `json:"uuid_client"`
		Tm      string `json:"tm"`
	}{
		Message: "pdm-sensor-bridge test Message",
		Uuidc:   m.ClientID.String(),
		Tm:      time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(dump)
	if err != nil {
		m.logger.Error().Err(err).Msg("Mqtt test message error while marshaling")
	}
	token := m.client.Publish("topic/test", 0, false, b)
	m.logger.Info().Str("test", string(b)).Str("topic", "topic/test").Msg("test message send on topic")
	token.Wait()
}

// SendReading publishes a serialized sensor reading to the broker and
// logs any errors that occur during the process.
func (m *Mqtt) SendReading(reading model.SensorReading) error {
	b, err := json.Marshal(reading)
	if err != nil {
		m.logger.Error().Err(err).Str("equipment", reading.EquipmentID).Msg("failed to marshal reading")
		return errors.Join(err, errors.New("failed to marshal reading"))
	}
	token := m.client.Publish(m.Topic+"/"+reading.EquipmentID, 1, false, b)
	if token.WaitTimeout(200*time.Millisecond) && token.Error() != nil {
		m.logger.Error().Err(token.Error()).Str("equipment", reading.EquipmentID).Msg("Timeout exceeded during publishing")
	}

	return nil
}

// Disconnect terminates the connection to the MQTT broker and logs the disconnection event.
func (m *Mqtt) Disconnect() {
	m.client.Disconnect(500)
	m.logger.Info().Msg("Disconnected from mqtt broker")
	m.client = nil
}

func (m *Mqtt) Connect() error {
	m.client = pmqtt.NewClient(m.opt)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		m.logger.Error().Err(token.Error()).Msg("Error connecting to mqtt broker")
		return errors.Join(token.Error(), errors.New("error connecting to mqtt broker"))
	}
	return nil
}

// ConnectHandler returns a function to handle successful connections to the MQTT broker.
func ConnectHandler(logger zerolog.Logger) func(client pmqtt.Client) {
	return func(client pmqtt.Client) {
		logger.Info().Msg("Connected to mqtt broker")
	}
}

// ConnectLostHandler returns a function to handle lost connections to the MQTT broker.
func ConnectLostHandler(logger zerolog.Logger) func(client pmqtt.Client, err error) {
	return func(client pmqtt.Client, err error) {
		logger.Warn().Err(err).Msg("Connection Lost")
	}
}

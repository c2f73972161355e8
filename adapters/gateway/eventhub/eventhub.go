package eventhub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// connection string can have the event hub name like this
// Endpoint=sb://<namespace>.servicebus.windows.net/;SharedAccessKeyName=<KeyName>;SharedAccessKey=<KeyValue>;EntityPath=equipment-sensors
// see https://learn.microsoft.com/en-us/azure/event-hubs/event-hubs-get-connection-string

type EventHubConfig struct {
	Connection   string `yaml:"Connection"`
	EventHubName string `yaml:"EventHubName"`
}

// EventHub publishes readings with the equipment id as partition key so
// each device's stream lands on a single partition in order.
type EventHub struct {
	producerClient *azeventhubs.ProducerClient
	logger         zerolog.Logger
}

func NewEventHub(ctx context.Context, wg *sync.WaitGroup, conf EventHubConfig, logger zerolog.Logger) (*EventHub, error) {
	producerClient, err := azeventhubs.NewProducerClientFromConnectionString(conf.Connection, conf.EventHubName, nil)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to create producer client"))
	}

	l := logger.With().Str("component", "eventhub").Logger()

	wg.Add(1)
	go func() {
		<-ctx.Done()
		if err := producerClient.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close producer client")
		}
		wg.Done()
	}()

	return &EventHub{
		producerClient: producerClient,
		logger:         l,
	}, nil
}

func (e *EventHub) SendReading(reading model.SensorReading) error {
	buf, err := json.Marshal(reading)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal reading"))
	}

	key := reading.EquipmentID
	batchOptions := &azeventhubs.EventDataBatchOptions{
		// Same key, same partition: keeps one device's readings ordered.
		PartitionKey: &key,
	}

	batch, err := e.producerClient.NewEventDataBatch(context.TODO(), batchOptions)
	if err != nil {
		return errors.Join(err, errors.New("failed to create event data batch"))
	}

	err = batch.AddEventData(&azeventhubs.EventData{Body: buf}, nil)
	if errors.Is(err, azeventhubs.ErrEventDataTooLarge) {
		// The event is too large even for an empty batch; nothing to retry.
		return errors.Join(err, errors.New("reading too large for an event batch"))
	} else if err != nil {
		return errors.Join(err, errors.New("failed to add reading to batch"))
	}

	if err := e.producerClient.SendEventDataBatch(context.TODO(), batch, nil); err != nil {
		return errors.Join(err, errors.New("failed to send reading batch"))
	}

	return nil
}

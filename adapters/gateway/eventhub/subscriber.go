package eventhub

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type SubscriberConfig struct {
	Connection    string `yaml:"Connection"`
	EventHubName  string `yaml:"EventHubName"`
	ConsumerGroup string `yaml:"ConsumerGroup"`
	PartitionID   string `yaml:"PartitionID"`
}

// eventReceiver is the slice of the partition client that Poll uses.
type eventReceiver interface {
	ReceiveEvents(ctx context.Context, count int, options *azeventhubs.ReceiveEventsOptions) ([]*azeventhubs.ReceivedEventData, error)
}

// Subscriber reads one Event Hubs partition with a bounded receive, which
// maps directly onto the driver's poll contract.
type Subscriber struct {
	consumerClient  *azeventhubs.ConsumerClient
	partitionClient *azeventhubs.PartitionClient
	receiver        eventReceiver
	logger          zerolog.Logger
}

func NewSubscriber(conf SubscriberConfig, logger zerolog.Logger) (*Subscriber, error) {
	group := conf.ConsumerGroup
	if group == "" {
		group = azeventhubs.DefaultConsumerGroup
	}
	partitionID := conf.PartitionID
	if partitionID == "" {
		partitionID = "0"
	}

	consumerClient, err := azeventhubs.NewConsumerClientFromConnectionString(conf.Connection, conf.EventHubName, group, nil)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to create consumer client"))
	}

	earliest := true
	partitionClient, err := consumerClient.NewPartitionClient(partitionID, &azeventhubs.PartitionClientOptions{
		StartPosition: azeventhubs.StartPosition{
			Earliest: &earliest,
		},
	})
	if err != nil {
		consumerClient.Close(context.Background())
		return nil, errors.Join(err, errors.New("failed to create partition client"))
	}

	return &Subscriber{
		consumerClient:  consumerClient,
		partitionClient: partitionClient,
		receiver:        partitionClient,
		logger:          logger.With().Str("component", "eventhub-subscriber").Logger(),
	}, nil
}

func (s *Subscriber) Poll(timeout time.Duration) *model.PollEvent {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	events, err := s.receiver.ReceiveEvents(ctx, 1, nil)
	if len(events) > 0 {
		return &model.PollEvent{Payload: events[0].Body}
	}
	// An idle partition surfaces as a deadline error, not as an empty
	// result: either way there is no message to report.
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return &model.PollEvent{Err: err}
}

func (s *Subscriber) Close() error {
	ctx := context.Background()
	if err := s.partitionClient.Close(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to close partition client")
	}
	return s.consumerClient.Close(ctx)
}

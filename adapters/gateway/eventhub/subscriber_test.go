package eventhub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"
)

type fakeReceiver struct {
	events []*azeventhubs.ReceivedEventData
	err    error
}

func (f *fakeReceiver) ReceiveEvents(_ context.Context, _ int, _ *azeventhubs.ReceiveEventsOptions) ([]*azeventhubs.ReceivedEventData, error) {
	return f.events, f.err
}

func pollWith(r eventReceiver) *Subscriber {
	return &Subscriber{receiver: r, logger: zerolog.Nop()}
}

func TestPollReturnsPayload(t *testing.T) {
	body := []byte(`{"equipment_id":"EQUIP-001"}`)
	s := pollWith(&fakeReceiver{events: []*azeventhubs.ReceivedEventData{
		{EventData: azeventhubs.EventData{Body: body}},
	}})

	ev := s.Poll(10 * time.Millisecond)
	if ev == nil || string(ev.Payload) != string(body) {
		t.Fatalf("expected payload event, got %+v", ev)
	}
}

func TestPollMapsIdlePartitionToNoMessage(t *testing.T) {
	s := pollWith(&fakeReceiver{err: context.DeadlineExceeded})
	if ev := s.Poll(10 * time.Millisecond); ev != nil {
		t.Fatalf("expected nil for an idle partition, got %+v", ev)
	}

	s = pollWith(&fakeReceiver{})
	if ev := s.Poll(10 * time.Millisecond); ev != nil {
		t.Fatalf("expected nil for an empty receive, got %+v", ev)
	}
}

func TestPollReportsTransportError(t *testing.T) {
	broken := errors.New("link detached")
	s := pollWith(&fakeReceiver{err: broken})

	ev := s.Poll(10 * time.Millisecond)
	if ev == nil || !errors.Is(ev.Err, broken) {
		t.Fatalf("expected transport error event, got %+v", ev)
	}
}

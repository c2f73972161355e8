package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/buffer"
	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type scriptedSubscriber struct {
	events chan *model.PollEvent
	closes atomic.Int32
}

func newScriptedSubscriber(events ...*model.PollEvent) *scriptedSubscriber {
	s := &scriptedSubscriber{events: make(chan *model.PollEvent, len(events))}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func (s *scriptedSubscriber) Poll(timeout time.Duration) *model.PollEvent {
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(timeout):
		return nil
	}
}

func (s *scriptedSubscriber) Close() error {
	s.closes.Add(1)
	return nil
}

type syncStore struct {
	mu      sync.Mutex
	records []model.FlushRecord
}

func (s *syncStore) AppendRecords(rec model.FlushRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *syncStore) Close() error { return nil }

func (s *syncStore) snapshot() []model.FlushRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FlushRecord, len(s.records))
	copy(out, s.records)
	return out
}

func payload(t *testing.T, equipmentID string, temp float64) []byte {
	t.Helper()
	buf, err := json.Marshal(model.SensorReading{
		EquipmentID: equipmentID,
		Timestamp:   "2025-03-10T09:00:00Z",
		Temperature: temp,
		HealthScore: 99.5,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return buf
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRunProcessesAndShutsDownCleanly(t *testing.T) {
	sub := newScriptedSubscriber(
		&model.PollEvent{Payload: payload(t, "EQ-1", 70)},
		&model.PollEvent{Payload: []byte("{not json")},
		&model.PollEvent{Payload: []byte(`{"timestamp":"2025-03-10T09:00:01Z","temperature":71}`)},
		&model.PollEvent{Err: errors.New("broker hiccup")},
		&model.PollEvent{EndOfPartition: true},
		&model.PollEvent{Payload: payload(t, "EQ-1", 72)},
		&model.PollEvent{Payload: payload(t, "EQ-2", 73)},
	)
	store := &syncStore{}
	// Capacity 2: the two EQ-1 readings flush mid-run, EQ-2 flushes on
	// shutdown.
	buf := buffer.NewManager(2, store, zerolog.Nop())
	d := NewDriver(Config{PollTimeoutMs: 10}, sub, buf, zerolog.Nop())

	if d.State() != Stopped {
		t.Fatalf("expected STOPPED before Run, got %s", d.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return len(store.snapshot()) == 1 }, "size-triggered flush never happened")
	if d.State() != Running {
		t.Fatalf("expected RUNNING mid-run, got %s", d.State())
	}

	// Let the driver drain the remaining scripted events before asking
	// it to stop.
	waitFor(t, func() bool { return len(sub.events) == 0 }, "subscriber never drained")
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancellation")
	}

	if d.State() != Stopped {
		t.Fatalf("expected STOPPED after Run, got %s", d.State())
	}
	if got := sub.closes.Load(); got != 1 {
		t.Fatalf("subscriber closed %d times, expected exactly once", got)
	}

	records := store.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected 2 flush records, got %d: %+v", len(records), records)
	}
	if records[0].EquipmentID != "EQ-1" || len(records[0].Readings) != 2 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Readings[0].Temperature != 70 || records[0].Readings[1].Temperature != 72 {
		t.Fatalf("EQ-1 readings out of order: %+v", records[0].Readings)
	}
	if records[1].EquipmentID != "EQ-2" || len(records[1].Readings) != 1 {
		t.Fatalf("unexpected shutdown record: %+v", records[1])
	}
}

func TestMalformedPayloadsNeverReachTheBuffer(t *testing.T) {
	sub := newScriptedSubscriber(
		&model.PollEvent{Payload: []byte("garbage")},
		&model.PollEvent{Payload: []byte(`{"temperature":50}`)},
		&model.PollEvent{Payload: []byte(`{"equipment_id":""}`)},
	)
	store := &syncStore{}
	buf := buffer.NewManager(1, store, zerolog.Nop())
	d := NewDriver(Config{PollTimeoutMs: 10}, sub, buf, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	// Capacity 1 means any ingested reading would flush immediately.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if got := store.snapshot(); len(got) != 0 {
		t.Fatalf("malformed payloads reached persistence: %+v", got)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Stopped: "STOPPED", Running: "RUNNING", Stopping: "STOPPING"}
	for s, want := range cases {
		if s.String() != want {
			t.Fatalf("expected %s, got %s", want, s.String())
		}
	}
}

package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/adapters/controller"
	"github.com/Go-routine-4595/pdm-sim-g/model"
	"github.com/Go-routine-4595/pdm-sim-g/service"
)

// trackingGateway records whether any reading arrives after the bus
// handle has been released.
type trackingGateway struct {
	mu              sync.Mutex
	closed          bool
	sends           int
	sendsAfterClose int
}

func (g *trackingGateway) SendReading(_ model.SensorReading) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends++
	if g.closed {
		g.sendsAfterClose++
	}
	return nil
}

func (g *trackingGateway) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

func (g *trackingGateway) stats() (int, int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends, g.sendsAfterClose, g.closed
}

func TestJoinThenReleaseClosesBusAfterProducersStop(t *testing.T) {
	gw := &trackingGateway{}

	// Mimic a gateway lifecycle: close the handle when the bus context
	// is cancelled, registered on the bus WaitGroup.
	busCtx, busCancel := context.WithCancel(context.Background())
	busWg := &sync.WaitGroup{}
	busWg.Add(1)
	go func() {
		<-busCtx.Done()
		gw.close()
		busWg.Done()
	}()

	svc, err := service.NewService(gw, controller.EquipmentIDs(3))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctrl := controller.NewController(controller.ControllerConfig{EquipmentCount: 3, IntervalMs: 1, MaxDataPoint: 10}, svc, zerolog.Nop())

	devWg := &sync.WaitGroup{}
	ctrl.Start(context.Background(), devWg)

	done := make(chan struct{})
	go func() {
		joinThenRelease(devWg, busCancel, busWg)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not wind down after all devices hit their data-point cap")
	}

	sends, sendsAfterClose, closed := gw.stats()
	if !closed {
		t.Fatal("bus handle never released")
	}
	if sendsAfterClose != 0 {
		t.Fatalf("%d readings published after the bus was closed", sendsAfterClose)
	}
	if sends != 30 {
		t.Fatalf("expected 30 readings (3 devices x 10), got %d", sends)
	}
}

func TestJoinThenReleaseOnCancellation(t *testing.T) {
	gw := &trackingGateway{}

	busCtx, busCancel := context.WithCancel(context.Background())
	busWg := &sync.WaitGroup{}
	busWg.Add(1)
	go func() {
		<-busCtx.Done()
		gw.close()
		busWg.Done()
	}()

	svc, err := service.NewService(gw, controller.EquipmentIDs(2))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctrl := controller.NewController(controller.ControllerConfig{EquipmentCount: 2, IntervalMs: 5}, svc, zerolog.Nop())

	devCtx, devCancel := context.WithCancel(context.Background())
	devWg := &sync.WaitGroup{}
	ctrl.Start(devCtx, devWg)

	time.Sleep(30 * time.Millisecond)
	devCancel()

	done := make(chan struct{})
	go func() {
		joinThenRelease(devWg, busCancel, busWg)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not wind down after cancellation")
	}

	_, sendsAfterClose, closed := gw.stats()
	if !closed {
		t.Fatal("bus handle never released")
	}
	if sendsAfterClose != 0 {
		t.Fatalf("%d readings published after the bus was closed", sendsAfterClose)
	}
}

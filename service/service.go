package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// Service ties one generator per equipment id to the publishing gateway.
// The generator map is read-only after construction; each generator is
// ticked only by the goroutine driving its equipment id, so no locking
// is needed.
type Service struct {
	gateway    model.IGateway
	generators map[string]*Generator
}

func NewService(gateway model.IGateway, equipmentIDs []string) (*Service, error) {
	generators := make(map[string]*Generator, len(equipmentIDs))
	for i, id := range equipmentIDs {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		g, err := NewGenerator(id, rnd)
		if err != nil {
			return nil, fmt.Errorf("generator for %s: %w", id, err)
		}
		generators[id] = g
	}
	return &Service{
		gateway:    gateway,
		generators: generators,
	}, nil
}

// EmitReading ticks the generator for the given equipment id and hands
// the reading to the gateway. Delivery guarantees belong to the bus.
func (s *Service) EmitReading(equipmentID string) error {
	g, ok := s.generators[equipmentID]
	if !ok {
		return fmt.Errorf("unknown equipment id %s", equipmentID)
	}
	return s.gateway.SendReading(g.Tick())
}

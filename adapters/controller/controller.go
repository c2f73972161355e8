package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type ControllerConfig struct {
	EquipmentCount int `yaml:"EquipmentCount"`
	IntervalMs     int `yaml:"IntervalMs"`
	MaxDataPoint   int `yaml:"MaxDataPoint"`
}

// Controller is the simulation driver: one goroutine per equipment id,
// each looping generate -> publish -> sleep until the shared context is
// cancelled or its data-point cap is reached.
type Controller struct {
	interval     time.Duration
	maxDataPoint int
	equipmentIDs []string
	svc          model.IService
	logger       zerolog.Logger
}

func NewController(conf ControllerConfig, svc model.IService, logger zerolog.Logger) Controller {
	interval := time.Duration(conf.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return Controller{
		interval:     interval,
		maxDataPoint: conf.MaxDataPoint,
		equipmentIDs: EquipmentIDs(conf.EquipmentCount),
		svc:          svc,
		logger:       logger.With().Str("component", "controller").Logger(),
	}
}

// EquipmentIDs builds the device identities driven by the simulation,
// EQUIP-001 through EQUIP-0nn.
func EquipmentIDs(count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("EQUIP-%03d", i))
	}
	return ids
}

// Start spawns one goroutine per equipment id. The caller owns the
// WaitGroup; after cancelling the context it joins every device loop by
// waiting on it. Worst-case shutdown latency is one interval.
func (c Controller) Start(ctx context.Context, wg *sync.WaitGroup) {
	c.logger.Info().Int("equipment", len(c.equipmentIDs)).Dur("interval", c.interval).Msg("starting simulators")

	for _, id := range c.equipmentIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for ticks := 0; c.maxDataPoint == 0 || ticks < c.maxDataPoint; ticks++ {
				if err := c.svc.EmitReading(id); err != nil {
					c.logger.Error().Err(err).Str("equipment", id).Msg("failed to publish reading")
				}
				select {
				case <-ctx.Done():
					c.logger.Info().Str("equipment", id).Msg("context received signal, shutting down")
					return
				case <-time.After(c.interval):
				}
			}
			c.logger.Info().Str("equipment", id).Int("ticks", c.maxDataPoint).Msg("reached max data points")
		}(id)
	}
}

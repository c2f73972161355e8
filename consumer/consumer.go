package consumer

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/buffer"
	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	PollTimeoutMs  int `yaml:"PollTimeoutMs"`
	BufferCapacity int `yaml:"BufferCapacity"`
}

// Driver owns the poll loop: it pulls raw messages from the subscriber,
// routes decoded readings to the buffer manager, and guarantees a final
// flush-all on shutdown. Everything after construction runs on the one
// goroutine that calls Run.
type Driver struct {
	sub     model.ISubscriber
	buffers *buffer.Manager
	timeout time.Duration
	state   atomic.Int32
	logger  zerolog.Logger
}

func NewDriver(conf Config, sub model.ISubscriber, buffers *buffer.Manager, logger zerolog.Logger) *Driver {
	timeout := time.Duration(conf.PollTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Driver{
		sub:     sub,
		buffers: buffers,
		timeout: timeout,
		logger:  logger.With().Str("component", "consumer").Logger(),
	}
}

// State reports the driver's lifecycle state. Safe from any goroutine.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Run polls until the context is cancelled, then flushes all buffers and
// releases the subscriber before returning. Transport errors, partition
// EOF markers and malformed payloads are logged and skipped; nothing in
// the loop halts the pipeline.
func (d *Driver) Run(ctx context.Context) {
	d.state.Store(int32(Running))
	d.logger.Info().Dur("poll_timeout", d.timeout).Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return
		default:
		}

		ev := d.sub.Poll(d.timeout)
		if ev == nil {
			continue
		}
		switch {
		case ev.EndOfPartition:
			d.logger.Info().Msg("reached end of partition")
		case ev.Err != nil:
			d.logger.Error().Err(ev.Err).Msg("transport error, message skipped")
		default:
			d.handle(ev.Payload)
		}
	}
}

func (d *Driver) handle(payload []byte) {
	var reading model.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		d.logger.Warn().Err(err).Msg("malformed payload discarded")
		return
	}
	if reading.EquipmentID == "" {
		d.logger.Warn().Str("payload", string(payload)).Msg("payload missing equipment_id, discarded")
		return
	}
	d.buffers.Ingest(reading)
}

func (d *Driver) shutdown() {
	d.state.Store(int32(Stopping))
	d.logger.Info().Msg("shutdown requested, flushing buffers")
	d.buffers.FlushAll()
	if err := d.sub.Close(); err != nil {
		d.logger.Error().Err(err).Msg("failed to close subscriber")
	}
	d.state.Store(int32(Stopped))
	d.logger.Info().Msg("stopped")
}

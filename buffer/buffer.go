package buffer

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// DefaultCapacity is the number of readings a key accumulates before a
// size-triggered flush.
const DefaultCapacity = 100

// Manager accumulates readings per equipment key and flushes them to
// persistence when a key reaches capacity or when FlushAll is called.
// It is mutated only by the consumption driver's poll loop, so it needs
// no synchronization.
type Manager struct {
	capacity int
	buffers  map[string][]model.SensorReading
	store    model.IPersistence
	logger   zerolog.Logger
	now      func() time.Time
}

func NewManager(capacity int, store model.IPersistence, logger zerolog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		capacity: capacity,
		buffers:  make(map[string][]model.SensorReading),
		store:    store,
		logger:   logger.With().Str("component", "buffer").Logger(),
		now:      time.Now,
	}
}

// Ingest appends the reading to its key's buffer, creating the buffer on
// first sight of the key, and flushes the key once it reaches capacity.
func (m *Manager) Ingest(reading model.SensorReading) {
	key := reading.EquipmentID
	m.buffers[key] = append(m.buffers[key], reading)
	if len(m.buffers[key]) >= m.capacity {
		m.flush(key)
	}
}

// FlushAll flushes every non-empty buffer in sorted key order. Keys stay
// known afterwards; their buffers are cleared, not deleted.
func (m *Manager) FlushAll() {
	keys := make([]string, 0, len(m.buffers))
	for k := range m.buffers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.flush(k)
	}
}

// Len reports how many readings are currently buffered for the key.
func (m *Manager) Len(key string) int {
	return len(m.buffers[key])
}

// flush hands the key's readings to persistence and clears the buffer.
// A failed append is logged and the readings are dropped; there is no
// retry queue.
func (m *Manager) flush(key string) {
	readings := m.buffers[key]
	if len(readings) == 0 {
		return
	}

	// The record owns its own copy: the buffer's backing array is reused
	// by subsequent ingests.
	out := make([]model.SensorReading, len(readings))
	copy(out, readings)

	rec := model.FlushRecord{
		ID:          uuid.NewString(),
		EquipmentID: key,
		Readings:    out,
		Label:       m.now().Format("20060102_150405"),
	}

	if err := m.store.AppendRecords(rec); err != nil {
		m.logger.Error().Err(err).Str("equipment", key).Int("count", len(out)).Msg("persistence failed, records dropped")
	} else {
		m.logger.Debug().Str("equipment", key).Int("count", len(out)).Str("flush", rec.ID).Msg("flushed")
	}

	m.buffers[key] = m.buffers[key][:0]
}

package model

import "time"

// SensorReading is one multi-channel sample produced by a single tick of
// an equipment simulator. Field names match the wire format expected by
// the downstream training and dashboard services.
type SensorReading struct {
	EquipmentID string  `json:"equipment_id"`
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
	Pressure    float64 `json:"pressure"`
	NoiseLevel  float64 `json:"noise_level"`
	HealthScore float64 `json:"health_score"`
}

// FlushRecord is the unit handed to persistence: one equipment key and
// the ordered readings accumulated since the previous flush.
type FlushRecord struct {
	ID          string
	EquipmentID string
	Readings    []SensorReading
	Label       string
}

// PollEvent is the discriminated result of one subscriber poll. At most
// one of Payload, EndOfPartition and Err is set; a nil *PollEvent means
// no message arrived within the poll timeout.
type PollEvent struct {
	Payload        []byte
	EndOfPartition bool
	Err            error
}

type IService interface {
	EmitReading(equipmentID string) error
}

type IGateway interface {
	SendReading(reading SensorReading) error
}

type ISubscriber interface {
	Poll(timeout time.Duration) *PollEvent
	Close() error
}

type IPersistence interface {
	AppendRecords(rec FlushRecord) error
	Close() error
}

package storage

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

func TestMysqlAppendRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewMysqlStorage(db)
	rec := model.FlushRecord{
		ID:          "flush-1",
		EquipmentID: "EQUIP-002",
		Label:       "20250310_090000",
		Readings: []model.SensorReading{
			{EquipmentID: "EQUIP-002", Timestamp: "2025-03-10T09:00:00Z", Temperature: 68.4, Vibration: 0.22, Pressure: 101.3, NoiseLevel: 63.9, HealthScore: 97.1},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO sensor_readings (equipment_id, ts, temperature, vibration, pressure, noise_level, health_score) VALUES (?,?,?,?,?,?,?)")
	mock.ExpectExec(expectedQuery).
		WithArgs("EQUIP-002", "2025-03-10T09:00:00Z", 68.4, 0.22, 101.3, 63.9, 97.1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.AppendRecords(rec); err != nil {
		t.Fatalf("append records: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

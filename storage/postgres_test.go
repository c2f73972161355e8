package storage

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

func TestPostgresAppendRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStorage(db)
	rec := model.FlushRecord{
		ID:          "flush-1",
		EquipmentID: "EQUIP-001",
		Label:       "20250310_090000",
		Readings: []model.SensorReading{
			{EquipmentID: "EQUIP-001", Timestamp: "2025-03-10T09:00:00Z", Temperature: 71.2, Vibration: 0.31, Pressure: 99.8, NoiseLevel: 66.1, HealthScore: 98.7},
			{EquipmentID: "EQUIP-001", Timestamp: "2025-03-10T09:00:01Z", Temperature: 71.4, Vibration: 0.29, Pressure: 99.1, NoiseLevel: 65.8, HealthScore: 98.65},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO sensor_readings (equipment_id, ts, temperature, vibration, pressure, noise_level, health_score) VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)")
	mock.ExpectExec(expectedQuery).
		WithArgs(
			"EQUIP-001", "2025-03-10T09:00:00Z", 71.2, 0.31, 99.8, 66.1, 98.7,
			"EQUIP-001", "2025-03-10T09:00:01Z", 71.4, 0.29, 99.1, 65.8, 98.65,
		).
		WillReturnResult(sqlmock.NewResult(1, 2))

	if err := store.AppendRecords(rec); err != nil {
		t.Fatalf("append records: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAppendRecordsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStorage(db)
	if err := store.AppendRecords(model.FlushRecord{EquipmentID: "EQUIP-001"}); err != nil {
		t.Fatalf("expected nil error for empty record, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

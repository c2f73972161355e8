package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id SERIAL PRIMARY KEY,
	equipment_id VARCHAR(64) NOT NULL,
	ts VARCHAR(64) NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	vibration DOUBLE PRECISION NOT NULL,
	pressure DOUBLE PRECISION NOT NULL,
	noise_level DOUBLE PRECISION NOT NULL,
	health_score DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sensor_readings_equipment ON sensor_readings(equipment_id);
`

// PostgresStorage appends flushed readings to the sensor_readings table
// with one multi-row INSERT per flush.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// OpenPostgres connects, verifies the connection and ensures the schema
// exists.
func OpenPostgres(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to open postgres connection"))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Join(err, errors.New("postgres connection test failed"))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, errors.Join(err, errors.New("failed to create postgres schema"))
	}

	return NewPostgresStorage(db), nil
}

func (p *PostgresStorage) AppendRecords(rec model.FlushRecord) error {
	if len(rec.Readings) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO sensor_readings (equipment_id, ts, temperature, vibration, pressure, noise_level, health_score) VALUES ")

	args := make([]any, 0, len(rec.Readings)*7)
	for i, r := range rec.Readings {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6, len(args)+7))
		args = append(args,
			rec.EquipmentID,
			r.Timestamp,
			r.Temperature,
			r.Vibration,
			r.Pressure,
			r.NoiseLevel,
			r.HealthScore,
		)
	}

	_, err := p.db.Exec(b.String(), args...)
	return err
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}

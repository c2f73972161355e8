package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id INT AUTO_INCREMENT PRIMARY KEY,
	equipment_id VARCHAR(64) NOT NULL,
	ts VARCHAR(64) NOT NULL,
	temperature DOUBLE NOT NULL,
	vibration DOUBLE NOT NULL,
	pressure DOUBLE NOT NULL,
	noise_level DOUBLE NOT NULL,
	health_score DOUBLE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_sensor_readings_equipment (equipment_id)
)`

// MysqlStorage mirrors PostgresStorage for MySQL deployments.
type MysqlStorage struct {
	db *sql.DB
}

func NewMysqlStorage(db *sql.DB) *MysqlStorage {
	return &MysqlStorage{db: db}
}

func OpenMysql(dsn string) (*MysqlStorage, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to open mysql connection"))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Join(err, errors.New("mysql connection test failed"))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(mysqlSchema); err != nil {
		db.Close()
		return nil, errors.Join(err, errors.New("failed to create mysql schema"))
	}

	return NewMysqlStorage(db), nil
}

func (m *MysqlStorage) AppendRecords(rec model.FlushRecord) error {
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
		b.WriteString("(?,?,?,?,?,?,?)")
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

	_, err := m.db.Exec(b.String(), args...)
	return err
}

func (m *MysqlStorage) Close() error {
	return m.db.Close()
}

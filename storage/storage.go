package storage

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

type Config struct {
	Csv      CsvConfig      `yaml:"Csv"`
	Postgres DatabaseConfig `yaml:"Postgres"`
	Mysql    DatabaseConfig `yaml:"Mysql"`
}

type CsvConfig struct {
	Enabled bool   `yaml:"Enabled"`
	Dir     string `yaml:"Dir"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"Enabled"`
	DSN     string `yaml:"DSN"`
}

// Manager fans a flush record out to every enabled backend. A backend
// failure is reported to the caller but does not stop the other
// backends from receiving the record.
type Manager struct {
	backends []model.IPersistence
	logger   zerolog.Logger
}

// NewManager builds the enabled backends. Construction failure of an
// enabled backend is fatal to the caller. With nothing enabled it
// defaults to CSV files under ./data.
func NewManager(conf Config, logger zerolog.Logger) (*Manager, error) {
	var backends []model.IPersistence

	if conf.Csv.Enabled {
		c, err := NewCsvStorage(conf.Csv.Dir, logger)
		if err != nil {
			return nil, errors.Join(err, errors.New("failed to initialize csv storage"))
		}
		backends = append(backends, c)
	}
	if conf.Postgres.Enabled {
		p, err := OpenPostgres(conf.Postgres.DSN)
		if err != nil {
			return nil, errors.Join(err, errors.New("failed to initialize postgres storage"))
		}
		backends = append(backends, p)
	}
	if conf.Mysql.Enabled {
		m, err := OpenMysql(conf.Mysql.DSN)
		if err != nil {
			return nil, errors.Join(err, errors.New("failed to initialize mysql storage"))
		}
		backends = append(backends, m)
	}
	if len(backends) == 0 {
		c, err := NewCsvStorage("./data", logger)
		if err != nil {
			return nil, errors.Join(err, errors.New("failed to initialize default csv storage"))
		}
		backends = append(backends, c)
	}

	return &Manager{
		backends: backends,
		logger:   logger.With().Str("component", "storage").Logger(),
	}, nil
}

func (m *Manager) AppendRecords(rec model.FlushRecord) error {
	var errs []error
	for _, backend := range m.backends {
		if err := backend.AppendRecords(rec); err != nil {
			m.logger.Error().Err(err).Str("equipment", rec.EquipmentID).Msg("backend append failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	var errs []error
	for _, backend := range m.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

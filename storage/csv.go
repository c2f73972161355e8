package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

var csvHeader = []string{"equipment_id", "timestamp", "temperature", "vibration", "pressure", "noise_level", "health_score"}

// CsvStorage writes one CSV file per flush, named
// <equipment_id>_<label>.csv, the format the training jobs read.
type CsvStorage struct {
	dir    string
	logger zerolog.Logger
}

func NewCsvStorage(dir string, logger zerolog.Logger) (*CsvStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Join(err, errors.New("failed to create output directory"))
	}
	return &CsvStorage{
		dir:    dir,
		logger: logger.With().Str("component", "csv-storage").Logger(),
	}, nil
}

func (c *CsvStorage) AppendRecords(rec model.FlushRecord) error {
	if len(rec.Readings) == 0 {
		return nil
	}

	path := filepath.Join(c.dir, fmt.Sprintf("%s_%s.csv", rec.EquipmentID, rec.Label))
	f, err := os.Create(path)
	if err != nil {
		return errors.Join(err, errors.New("failed to create csv file"))
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, r := range rec.Readings {
		row := []string{
			r.EquipmentID,
			r.Timestamp,
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			strconv.FormatFloat(r.Vibration, 'f', -1, 64),
			strconv.FormatFloat(r.Pressure, 'f', -1, 64),
			strconv.FormatFloat(r.NoiseLevel, 'f', -1, 64),
			strconv.FormatFloat(r.HealthScore, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.logger.Debug().Str("file", path).Int("count", len(rec.Readings)).Msg("saved records")
	return nil
}

func (c *CsvStorage) Close() error {
	return nil
}

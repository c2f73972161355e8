package display

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// Display is the fallback gateway used when no bus is configured: it
// prints each reading to stdout.
type Display struct{}

func NewDisplay() Display {
	return Display{}
}

func (d Display) SendReading(reading model.SensorReading) error {
	buf, err := json.Marshal(reading)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal reading display.SendReading"))
	}
	fmt.Println(string(buf))

	return nil
}

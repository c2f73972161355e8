package service

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/Go-routine-4595/pdm-sim-g/model"
)

// Normal operating ranges per sensor channel.
const (
	tempMin      = 60.0
	tempMax      = 80.0
	vibrationMin = 0.1
	vibrationMax = 0.5
	pressureMin  = 95.0
	pressureMax  = 105.0
	noiseMin     = 60.0
	noiseMax     = 75.0

	degradationMin = 0.01
	degradationMax = 0.05

	baseAnomalyProb  = 0.01
	anomalyProbScale = 0.1
)

// Generator simulates the sensors of a single piece of equipment.
// It owns its equipment state exclusively; Tick must only be called from
// one goroutine.
type Generator struct {
	equipmentID     string
	healthScore     float64
	degradationRate float64
	rnd             *rand.Rand
	now             func() time.Time
}

// NewGenerator builds a generator for the given equipment id. The random
// source is mandatory: every stochastic term of the simulation is drawn
// from it so runs are reproducible under a fixed seed.
func NewGenerator(equipmentID string, rnd *rand.Rand) (*Generator, error) {
	if rnd == nil {
		return nil, errors.New("generator requires a random source")
	}
	return &Generator{
		equipmentID:     equipmentID,
		healthScore:     100.0,
		degradationRate: degradationMin + rnd.Float64()*(degradationMax-degradationMin),
		rnd:             rnd,
		now:             time.Now,
	}, nil
}

// Tick advances the degradation state by one step and emits a reading.
// Health only goes down; once it hits zero it stays there.
func (g *Generator) Tick() model.SensorReading {
	g.healthScore = math.Max(0, g.healthScore-g.degradationRate)

	now := g.now()

	// Equipment runs hotter during peak hours, and wears more on weekdays.
	timeFactor := 1.0 + 0.2*math.Sin(math.Pi*float64(now.Hour())/12)
	dayFactor := 1.1
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		dayFactor = 0.9
	}

	healthFactor := (100 - g.healthScore) / 100

	temperature := g.sample(tempMin, tempMax, timeFactor, healthFactor*30, 2.0)
	vibration := g.sample(vibrationMin, vibrationMax, dayFactor, healthFactor*1.5, 0.05)
	pressure := g.sample(pressureMin, pressureMax, 1.0, healthFactor*-15, 3.0)
	noiseLevel := g.sample(noiseMin, noiseMax, dayFactor, healthFactor*25, 2.0)

	if g.rnd.Float64() < anomalyProbability(g.healthScore) {
		// One channel takes an excursion, always in the direction that
		// makes the reading worse for that channel.
		switch g.rnd.Intn(4) {
		case 0:
			temperature += g.uniform(10, 30)
		case 1:
			vibration += g.uniform(0.5, 2.0)
		case 2:
			pressure -= g.uniform(10, 30)
		case 3:
			noiseLevel += g.uniform(10, 20)
		}
	}

	return model.SensorReading{
		EquipmentID: g.equipmentID,
		Timestamp:   now.Format(time.RFC3339Nano),
		Temperature: round2(temperature),
		Vibration:   round3(vibration),
		Pressure:    round2(pressure),
		NoiseLevel:  round2(noiseLevel),
		HealthScore: round2(g.healthScore),
	}
}

// HealthScore reports the current health of the simulated equipment.
func (g *Generator) HealthScore() float64 {
	return g.healthScore
}

// DegradationRate reports the per-tick health decrement drawn at creation.
func (g *Generator) DegradationRate() float64 {
	return g.degradationRate
}

func (g *Generator) sample(lo, hi, multiplier, healthEffect, noise float64) float64 {
	return g.uniform(lo, hi)*multiplier + healthEffect + g.uniform(-noise, noise)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

// anomalyProbability grows as health falls: failing equipment throws
// outliers more often.
func anomalyProbability(health float64) float64 {
	return baseAnomalyProb + (100-health)/100*anomalyProbScale
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Package telemetry generates a synthetic car-telemetry snapshot for the
// demo binaries, in the spirit of the teacher's exchanges.MockFeeder
// random-walk generator — except here the "exchange" is a lap and the
// "symbol" is a telemetry channel.
package telemetry

import (
	"math"
	"math/rand"

	"github.com/ashwin-nat/pits-n-giggles-sub002/topics"
)

// Snapshot is one tick of car telemetry, the kind of thing a real
// pits-n-giggles producer would L2W.Add under topics "speed"/"gear"/"brake"/"rpm".
type Snapshot struct {
	SpeedKph float64 `json:"speed_kph"`
	Gear     int     `json:"gear"`
	Brake    float64 `json:"brake"` // 0..1
	RPM      int     `json:"rpm"`
}

// Generator produces a plausible, slowly-varying telemetry stream — a
// random walk around a cruising speed with occasional braking events.
type Generator struct {
	rng   *rand.Rand
	speed float64
	gear  int
}

// NewGenerator seeds a generator with a given cruising speed.
func NewGenerator(seed int64, startSpeedKph float64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		speed: startSpeedKph,
		gear:  4,
	}
}

// Next advances the walk by one tick and returns the new snapshot.
func (g *Generator) Next() Snapshot {
	g.speed += g.speed * (g.rng.Float64() - 0.5) * 0.02
	if g.speed < 0 {
		g.speed = 0
	}

	brake := 0.0
	if g.rng.Float64() < 0.05 {
		brake = 0.2 + g.rng.Float64()*0.8
		g.speed *= 1 - brake*0.1
	}

	g.gear = gearFor(g.speed)
	rpm := int(1500 + g.speed*45 + g.rng.Float64()*200)

	return Snapshot{
		SpeedKph: math.Round(g.speed*10) / 10,
		Gear:     g.gear,
		Brake:    math.Round(brake*100) / 100,
		RPM:      rpm,
	}
}

func gearFor(speedKph float64) int {
	switch {
	case speedKph < 30:
		return 1
	case speedKph < 60:
		return 2
	case speedKph < 100:
		return 3
	case speedKph < 150:
		return 4
	case speedKph < 200:
		return 5
	default:
		return 6
	}
}

// Publish adds this tick's channels onto w under the conventional topic
// names "speed", "gear", "brake", and "rpm".
func (s Snapshot) Publish(w *topics.Writer) {
	w.Add("speed", s.SpeedKph)
	w.Add("gear", s.Gear)
	w.Add("brake", s.Brake)
	w.Add("rpm", s.RPM)
}

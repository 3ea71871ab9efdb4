// Package daylight tracks a looping day and derives the sun direction bound
// as the terrain shader's lightDir.
package daylight

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// sunTilt keeps the sun off the exact X/Y plane so noon light is not purely
// vertical.
const sunTilt = 0.25

type Cycle struct {
	start           time.Time
	dayLength       time.Duration
	initialFraction float64
}

type State struct {
	TimeOfDay    float64    `json:"timeOfDay"`
	Progress     float64    `json:"progress"`
	Phase        string     `json:"phase"`
	SunDirection mgl32.Vec3 `json:"sunDirection"`
	SunIntensity float64    `json:"sunIntensity"`
	Ambient      float64    `json:"ambient"`
}

// NewCycle starts a day of dayLength at startHour (0-24) as of start.
func NewCycle(dayLength time.Duration, startHour float64, start time.Time) *Cycle {
	if dayLength <= 0 {
		dayLength = 20 * time.Minute
	}
	initialFraction := startHour / 24
	if initialFraction < 0 {
		initialFraction = 0
	}
	if initialFraction >= 1 {
		initialFraction = math.Mod(initialFraction, 1)
	}
	return &Cycle{
		start:           start,
		dayLength:       dayLength,
		initialFraction: initialFraction,
	}
}

func (c *Cycle) DayLength() time.Duration { return c.dayLength }

func (c *Cycle) State(now time.Time) State {
	if c == nil {
		return State{}
	}
	elapsed := now.Sub(c.start)
	if elapsed < 0 {
		elapsed = 0
	}
	progress := math.Mod(c.initialFraction+float64(elapsed)/float64(c.dayLength), 1)
	timeOfDay := progress * 24

	// Sunrise at 06:00 puts the sun on +X, noon straight overhead.
	orbital := math.Mod(progress+0.75, 1) * 2 * math.Pi
	dir := mgl32.Vec3{
		float32(math.Cos(orbital)),
		float32(math.Sin(orbital)),
		sunTilt,
	}.Normalize()

	elevation := math.Max(0, math.Sin(orbital))
	return State{
		TimeOfDay:    timeOfDay,
		Progress:     progress,
		Phase:        phaseForHour(timeOfDay),
		SunDirection: dir,
		SunIntensity: 0.15 + 0.85*elevation,
		Ambient:      0.2 + 0.6*elevation,
	}
}

func phaseForHour(hour float64) string {
	switch {
	case hour >= 5 && hour < 7:
		return "dawn"
	case hour >= 7 && hour < 18:
		return "day"
	case hour >= 18 && hour < 21:
		return "dusk"
	default:
		return "night"
	}
}

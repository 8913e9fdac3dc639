package tracking

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/2beens/phonetracker/internal/mapview"

	"github.com/dustin/go-humanize"
)

const earthRadiusMeters = 6371000

var ErrNoSteps = errors.New("tracking steps must be positive")

// Frame is one step of the simulated live tracking.
type Frame struct {
	Step        int            `json:"step"`
	Total       int            `json:"total"`
	Position    mapview.LatLng `json:"position"`
	DriftMeters float64        `json:"drift_meters"`
	DriftText   string         `json:"drift_text"`
	Map         *mapview.Map   `json:"map"`
}

// EmitFunc receives each frame; a returned error stops the simulation.
type EmitFunc func(frame Frame) error

// Simulator produces a jittered walk around a starting coordinate. The
// positions are synthetic and say nothing about the real device.
type Simulator struct {
	steps     int
	maxOffset float64
	interval  time.Duration
	rnd       *rand.Rand
}

func NewSimulator(steps int, maxOffset float64, interval time.Duration) *Simulator {
	return &Simulator{
		steps:     steps,
		maxOffset: maxOffset,
		interval:  interval,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
}

// WithSeed makes the walk reproducible.
func (s *Simulator) WithSeed(seed uint64) *Simulator {
	s.rnd = rand.New(rand.NewPCG(seed, seed))
	return s
}

// Run perturbs start once per step, emits the frame and waits interval
// before the next step. It returns the last emitted position. Cancelling ctx
// stops the walk between steps.
func (s *Simulator) Run(ctx context.Context, start mapview.LatLng, emit EmitFunc) (mapview.LatLng, error) {
	if s.steps <= 0 {
		return start, ErrNoSteps
	}

	timer := time.NewTimer(s.interval)
	timer.Stop()
	defer timer.Stop()

	pos := start
	for step := 1; step <= s.steps; step++ {
		if err := ctx.Err(); err != nil {
			return pos, err
		}

		pos = mapview.LatLng{
			Lat: pos.Lat + s.offset(),
			Lng: pos.Lng + s.offset(),
		}

		drift := Distance(start, pos)
		frame := Frame{
			Step:        step,
			Total:       s.steps,
			Position:    pos,
			DriftMeters: drift,
			DriftText:   humanize.SIWithDigits(drift, 1, "m"),
			Map:         mapview.Frame(pos),
		}
		if err := emit(frame); err != nil {
			return pos, err
		}

		if step == s.steps {
			break
		}

		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
			return pos, ctx.Err()
		case <-timer.C:
		}
	}

	return pos, nil
}

func (s *Simulator) offset() float64 {
	return (s.rnd.Float64()*2 - 1) * s.maxOffset
}

// Distance is the haversine distance between a and b in meters.
func Distance(a, b mapview.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

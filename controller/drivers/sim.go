package drivers

import (
	"math"
	"math/rand"
	"sync"
)

// SimulatedSensor produces plausible probe angles without hardware, for dev
// mode. Readings wander around a configurable center with a little noise.
type SimulatedSensor struct {
	mu     sync.Mutex
	center float64
	phase  float64
}

func NewSimulatedSensor(center float64) *SimulatedSensor {
	return &SimulatedSensor{center: center}
}

func (s *SimulatedSensor) ReadAngle() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase += 0.3
	return s.center + 1.5*math.Sin(s.phase) + rand.Float64()*0.4 - 0.2, nil
}

// SetCenter moves the simulated equilibrium angle.
func (s *SimulatedSensor) SetCenter(center float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = center
}

package drivers

import "sync"

// SoftPin is an in-memory hal.DigitalOutputPin for dev mode and tests.
type SoftPin struct {
	name   string
	number int

	mu    sync.Mutex
	state bool
}

func NewSoftPin(name string, number int) *SoftPin {
	return &SoftPin{name: name, number: number}
}

func (p *SoftPin) Name() string { return p.name }
func (p *SoftPin) Number() int  { return p.number }
func (p *SoftPin) Close() error { return nil }

func (p *SoftPin) Write(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	return nil
}

func (p *SoftPin) LastState() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

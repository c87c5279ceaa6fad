package drivers

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// OutPin drives one gpio line as a hal.DigitalOutputPin. The solenoids and the
// indicator relay are switched through active-low driver boards, so the
// activeLow flag inverts the electrical level while Write/LastState keep the
// logical on/off view.
type OutPin struct {
	name      string
	number    int
	activeLow bool
	line      *gpiocdev.Line
	last      bool
}

func NewOutPin(chip string, offset int, name string, activeLow bool) (*OutPin, error) {
	initial := 0
	if activeLow {
		initial = 1
	}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("drivers: request gpio %s/%d for %s: %w", chip, offset, name, err)
	}
	return &OutPin{name: name, number: offset, activeLow: activeLow, line: line}, nil
}

func (p *OutPin) Name() string { return p.name }
func (p *OutPin) Number() int  { return p.number }

func (p *OutPin) Write(state bool) error {
	level := 0
	if state != p.activeLow {
		level = 1
	}
	if err := p.line.SetValue(level); err != nil {
		return fmt.Errorf("drivers: set %s: %w", p.name, err)
	}
	p.last = state
	return nil
}

func (p *OutPin) LastState() bool { return p.last }

func (p *OutPin) Close() error {
	return p.line.Close()
}

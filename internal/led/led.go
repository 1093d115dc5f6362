// Package led drives the board's active-low status LEDs.
package led

// Pin is a digital output. machine.Pin satisfies it once configured as an output.
type Pin interface {
	High()
	Low()
}

// Indicator is a single active-low LED: the pin is driven low to light it.
type Indicator struct {
	pin Pin
	on  bool
}

// New wraps an already configured output pin and switches the LED off.
func New(pin Pin) *Indicator {
	i := &Indicator{pin: pin}
	i.Off()
	return i
}

func (i *Indicator) On() {
	i.pin.Low()
	i.on = true
}

func (i *Indicator) Off() {
	i.pin.High()
	i.on = false
}

func (i *Indicator) Toggle() {
	if i.on {
		i.Off()
	} else {
		i.On()
	}
}

func (i *Indicator) IsOn() bool {
	return i.on
}

// Set is the three status LEDs of the board.
type Set struct {
	LED0 *Indicator
	LED1 *Indicator
	LED2 *Indicator
}

// NewSet builds the indicator set, leaving every LED off.
func NewSet(p0, p1, p2 Pin) Set {
	return Set{
		LED0: New(p0),
		LED1: New(p1),
		LED2: New(p2),
	}
}

// Off switches every LED off.
func (s Set) Off() {
	s.LED0.Off()
	s.LED1.Off()
	s.LED2.Off()
}

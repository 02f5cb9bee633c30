package machine

import (
	"strings"

	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
)

type Machine struct {
	Adapter
}

type State struct {
	Status string
	MPos   coord.Point
	WCO    coord.Point
}

// WPos returns the work position.
func (s State) WPos() coord.Point { return s.MPos.Sub(s.WCO) }

// Idle reports whether the machine is ready for new commands.
func (s State) Idle() bool {
	return s.Status == "Idle" || strings.HasPrefix(s.Status, "Hold")
}

func NewMachine(a Adapter) *Machine {
	return &Machine{Adapter: a}
}

// Run streams a generated program and returns once it has executed.
func (m *Machine) Run(p gcode.Program) error {
	_, err := m.Adapter.ReadFrom(gcode.NewBuffer(&gcode.LinesReader{Lines: p}))
	return err
}

// Send streams program text and returns once it has executed.
func (m *Machine) Send(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := m.Adapter.ReadFrom(strings.NewReader(text))
	return err
}

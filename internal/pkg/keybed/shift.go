package keybed

// OutputPin matches machine.Pin output methods on TinyGo.
type OutputPin interface {
	High()
	Low()
}

// InputPin matches machine.Pin input methods on TinyGo.
type InputPin interface {
	Get() bool
}

// ShiftRegister drives the 8 select lines of the key matrix.
type ShiftRegister struct {
	enable, input, clock OutputPin
}

func NewShiftRegister(enable, input, clock OutputPin) ShiftRegister {
	return ShiftRegister{enable: enable, input: input, clock: clock}
}

func (s *ShiftRegister) Enable() {
	s.enable.High()
}

func (s *ShiftRegister) Disable() {
	s.enable.Low()
}

func (s *ShiftRegister) Clock() {
	s.clock.High()
	s.clock.Low()
}

// PushHigh shifts a single 1 into the register, selecting the first line.
func (s *ShiftRegister) PushHigh() {
	s.input.High()
	s.Clock()
	s.input.Low()
}

// PushLow moves the selected line one position further.
func (s *ShiftRegister) PushLow() {
	s.Clock()
}

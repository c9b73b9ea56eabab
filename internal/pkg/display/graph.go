package display

import "strings"

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Graph keeps the most recent samples in a ring, oldest first when rendered.
type Graph struct {
	samples []uint
	pointer int
}

func NewGraph(width int) *Graph {
	return &Graph{samples: make([]uint, width)}
}

func (g *Graph) Add(v uint) {
	if len(g.samples) == 0 {
		return
	}
	g.samples[g.pointer] = v
	g.pointer = (g.pointer + 1) % len(g.samples)
}

// String renders one block character per sample scaled to the largest one, zero is blank.
func (g *Graph) String() string {
	var maxVal uint = 8
	for _, v := range g.samples {
		maxVal = max(maxVal, v)
	}

	var b strings.Builder
	for i := range g.samples {
		v := g.samples[(g.pointer+i)%len(g.samples)]
		if v == 0 {
			b.WriteRune(' ')
			continue
		}
		realVal := float64(v) / (float64(maxVal) + 1) * 7
		b.WriteRune(blocks[int(realVal)])
	}
	return b.String()
}

// Fit pads or cuts s to exactly width characters.
func Fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// Center places s in the middle of a width wide line.
func Center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return Fit(s, width)
	}
	left := (width - n) / 2
	return Fit(strings.Repeat(" ", left)+s, width)
}

// Package noise produces white, pink and brown noise one sample at a time.
package noise

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Color selects the noise spectrum.
type Color int

const (
	White Color = iota
	Pink
	Brown
)

// String returns the string representation of the color.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Pink:
		return "pink"
	case Brown:
		return "brown"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// ParseColor parses a color name, case-insensitively.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return White, nil
	case "pink":
		return Pink, nil
	case "brown", "brownian", "red":
		return Brown, nil
	default:
		return 0, fmt.Errorf("unknown noise color %q", s)
	}
}

// UnmarshalText lets colors be decoded from YAML and flags.
func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Source supplies uniform random numbers in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource draws from the process-wide generator.
var DefaultSource Source = globalSource{}

// NewSeeded returns a deterministic source.
func NewSeeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generator is a single noise voice. It is not safe for concurrent use.
type Generator struct {
	color Color
	rng   Source

	pink  [7]float64
	brown float64
}

// New returns a generator for color. A nil rng uses DefaultSource.
func New(color Color, rng Source) *Generator {
	if rng == nil {
		rng = DefaultSource
	}
	return &Generator{color: color, rng: rng}
}

// Color reports the generator's color.
func (g *Generator) Color() Color { return g.color }

func (g *Generator) white() float64 {
	return 2*g.rng.Float64() - 1
}

// Next returns the next sample in [-1, 1].
func (g *Generator) Next() float64 {
	switch g.color {
	case Pink:
		return g.nextPink()
	case Brown:
		return g.nextBrown()
	default:
		return g.white()
	}
}

// Paul Kellet's refined pink filter.
func (g *Generator) nextPink() float64 {
	w := g.white()
	b := &g.pink

	b[0] = 0.99886*b[0] + w*0.0555179
	b[1] = 0.99332*b[1] + w*0.0750759
	b[2] = 0.96900*b[2] + w*0.1538520
	b[3] = 0.86650*b[3] + w*0.3104856
	b[4] = 0.55000*b[4] + w*0.5329522
	b[5] = -0.7616*b[5] - w*0.0168980

	out := b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + w*0.5362
	b[6] = w * 0.115926

	return clamp(out * 0.11)
}

func (g *Generator) nextBrown() float64 {
	g.brown = clamp(g.brown + g.white()*0.02)
	return g.brown
}

func clamp(x float64) float64 {
	return min(max(x, -1), 1)
}

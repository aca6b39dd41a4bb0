package heatmap

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Anchor is one stop of the temperature color ramp: a Fahrenheit threshold
// and an RGBA color. RGB channels are 0-255, alpha is fractional 0-1.
type Anchor struct {
	Temp  float64    `yaml:"temp" json:"temp"`
	Color [4]float64 `yaml:"color" json:"color"`
}

// defaultAnchors spans -20F to 120F in 10F steps. Adjacent stops differ in
// every RGB channel so interpolated colors always move with the temperature.
var defaultAnchors = []Anchor{
	{Temp: -20, Color: [4]float64{150, 0, 200, 0.8}},
	{Temp: -10, Color: [4]float64{110, 40, 230, 0.8}},
	{Temp: 0, Color: [4]float64{0, 0, 255, 0.8}},
	{Temp: 10, Color: [4]float64{30, 60, 240, 0.8}},
	{Temp: 20, Color: [4]float64{60, 120, 220, 0.8}},
	{Temp: 30, Color: [4]float64{80, 160, 200, 0.8}},
	{Temp: 40, Color: [4]float64{100, 200, 170, 0.8}},
	{Temp: 50, Color: [4]float64{120, 220, 120, 0.8}},
	{Temp: 60, Color: [4]float64{160, 230, 80, 0.8}},
	{Temp: 70, Color: [4]float64{200, 220, 50, 0.8}},
	{Temp: 80, Color: [4]float64{240, 200, 30, 0.8}},
	{Temp: 90, Color: [4]float64{250, 150, 20, 0.8}},
	{Temp: 100, Color: [4]float64{240, 90, 10, 0.8}},
	{Temp: 110, Color: [4]float64{220, 40, 30, 0.8}},
	{Temp: 120, Color: [4]float64{180, 0, 60, 0.8}},
}

// Color is a mapped heatmap color: integer RGB channels plus a fractional
// alpha, matching the rgba() form the overlay is drawn with.
type Color struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// NRGBA converts the color to the 8-bit non-premultiplied form used when
// drawing onto the image canvas.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(c.R),
		G: uint8(c.G),
		B: uint8(c.B),
		A: uint8(math.Round(c.A * 255)),
	}
}

// String renders the color in CSS rgba() notation.
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, c.A)
}

// Palette maps temperatures to colors by piecewise-linear interpolation over
// an ordered set of anchors.
type Palette struct {
	anchors []Anchor
}

// Default returns the built-in 15-anchor palette.
func Default() *Palette {
	return &Palette{anchors: defaultAnchors}
}

// LoadFile reads a palette from a YAML file of the form:
//
//	anchors:
//	  - temp: -20
//	    color: [150, 0, 200, 0.8]
func LoadFile(path string) (*Palette, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading palette file: %w", err)
	}

	var doc struct {
		Anchors []Anchor `yaml:"anchors"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing palette file: %w", err)
	}

	p := &Palette{anchors: doc.Anchors}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid palette %s: %w", path, err)
	}
	return p, nil
}

func (p *Palette) validate() error {
	if len(p.anchors) < 2 {
		return fmt.Errorf("need at least 2 anchors, got %d", len(p.anchors))
	}
	for i, a := range p.anchors {
		if i > 0 && a.Temp <= p.anchors[i-1].Temp {
			return fmt.Errorf("anchor %d: thresholds must be strictly ascending", i)
		}
		for ch := 0; ch < 3; ch++ {
			if a.Color[ch] < 0 || a.Color[ch] > 255 {
				return fmt.Errorf("anchor %d: channel %d out of range 0-255", i, ch)
			}
		}
		if a.Color[3] < 0 || a.Color[3] > 1 {
			return fmt.Errorf("anchor %d: alpha out of range 0-1", i)
		}
	}
	return nil
}

// Anchors returns a copy of the anchor table (for the legend endpoint).
func (p *Palette) Anchors() []Anchor {
	out := make([]Anchor, len(p.anchors))
	copy(out, p.anchors)
	return out
}

// ColorFor maps a temperature to a color. Temperatures at or below the first
// threshold clamp to the first anchor, at or above the last threshold to the
// last. In between, RGB channels interpolate linearly and are floored to
// integers; alpha interpolates without flooring.
func (p *Palette) ColorFor(temp float64) Color {
	first := p.anchors[0]
	if temp <= first.Temp {
		return anchorColor(first)
	}
	last := p.anchors[len(p.anchors)-1]
	if temp >= last.Temp {
		return anchorColor(last)
	}

	for i := 1; i < len(p.anchors); i++ {
		hi := p.anchors[i]
		if temp > hi.Temp {
			continue
		}
		lo := p.anchors[i-1]
		frac := (temp - lo.Temp) / (hi.Temp - lo.Temp)
		return Color{
			R: int(math.Floor(lo.Color[0] + frac*(hi.Color[0]-lo.Color[0]))),
			G: int(math.Floor(lo.Color[1] + frac*(hi.Color[1]-lo.Color[1]))),
			B: int(math.Floor(lo.Color[2] + frac*(hi.Color[2]-lo.Color[2]))),
			A: lo.Color[3] + frac*(hi.Color[3]-lo.Color[3]),
		}
	}

	return anchorColor(last)
}

func anchorColor(a Anchor) Color {
	return Color{R: int(a.Color[0]), G: int(a.Color[1]), B: int(a.Color[2]), A: a.Color[3]}
}

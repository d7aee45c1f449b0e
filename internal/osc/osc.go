package osc

import (
	"fmt"
	"math"
)

// Shape selects an oscillator waveform. Values match the shader's integer
// shape codes.
type Shape int32

const (
	Sine Shape = iota
	Square
	Triangle
	Noise

	ShapeCount
)

func (s Shape) Valid() bool { return s >= 0 && s < ShapeCount }

func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Noise:
		return "noise"
	}
	return fmt.Sprintf("shape(%d)", int32(s))
}

// Next cycles through the shapes, wrapping back to Sine.
func (s Shape) Next() Shape {
	if !s.Valid() {
		return Sine
	}
	return (s + 1) % ShapeCount
}

// Coord is a normalized spatial coordinate on the frame, used as the lookup
// position for noise-shaped channels.
type Coord struct {
	U, V float32
}

// Sampler is a 2D field returning values in [0,1].
type Sampler interface {
	Sample(u, v float32) float32
}

type waveFunc func(b *Bank, theta float32, at Coord) float32

var waves = [ShapeCount]waveFunc{
	Sine:     sine,
	Square:   square,
	Triangle: triangle,
	Noise:    noise,
}

// Bank evaluates the stateless oscillator shapes. Noise reads from a
// precomputed field; a Bank without one yields 0 for Noise.
type Bank struct {
	field Sampler
}

func NewBank(field Sampler) *Bank {
	return &Bank{field: field}
}

// Evaluate returns the waveform value for theta in [-1, 1]. Out-of-range
// shapes return 0.
func (b *Bank) Evaluate(theta float32, shape Shape, at Coord) float32 {
	if !shape.Valid() {
		return 0
	}
	return waves[shape](b, theta, at)
}

func sine(_ *Bank, theta float32, _ Coord) float32 {
	return float32(math.Sin(float64(theta)))
}

func square(_ *Bank, theta float32, _ Coord) float32 {
	s := math.Sin(float64(theta))
	switch {
	case s > 0:
		return 1
	case s < 0:
		return -1
	}
	return 0
}

// triangle peaks at +1 on multiples of 2π and bottoms at -1 half a cycle later.
func triangle(_ *Bank, theta float32, _ Coord) float32 {
	p := float64(theta) / (2 * math.Pi)
	p -= math.Floor(p)
	return float32(4*math.Abs(p-0.5) - 1)
}

func noise(b *Bank, _ float32, at Coord) float32 {
	if b == nil || b.field == nil {
		return 0
	}
	v := b.field.Sample(at.U, at.V)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return 2*v - 1
}

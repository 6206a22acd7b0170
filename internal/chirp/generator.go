// Package chirp generates the linear-FM up/down chirps that carry LoRa
// symbols: complex baseband sweeps across [-BW/2, +BW/2] whose starting
// frequency offset encodes the transmitted symbol value.
package chirp

import "math"

// Generator produces N*OVS-sample chirps and carries a running phase
// accumulator across calls so consecutive chirps stay phase-continuous.
// It is not safe for concurrent use; each modulator/demodulator instance
// owns one.
type Generator struct {
	N    int
	OVS  int
	Ampl float64

	phase float64
}

// NewGenerator builds a chirp generator for N samples per symbol at OVS
// times oversampling and the given output amplitude.
func NewGenerator(n, ovs int, ampl float64) *Generator {
	return &Generator{N: n, OVS: ovs, Ampl: ampl}
}

// Phase returns the current phase accumulator, always in [0, 2*pi).
func (g *Generator) Phase() float64 { return g.phase }

// samplesPerSymbol is N*OVS, the full-length chirp duration.
func (g *Generator) samplesPerSymbol() int { return g.N * g.OVS }

// chirp emits numSamples samples of a sweep starting at frequency offset
// f0 within the band, stepping by fStep per sample and wrapping within
// [-pi/OVS, +pi/OVS). up selects a rising (true) or falling (false)
// sweep. The phase accumulator carries in and out; it is reduced modulo
// 2*pi before returning.
func (g *Generator) chirp(numSamples int, f0 float64, up bool) []complex64 {
	fStep := 2 * math.Pi / float64(g.N*g.OVS*g.OVS)
	fMax := math.Pi / float64(g.OVS)
	f := -fMax + f0

	out := make([]complex64, numSamples)
	for i := 0; i < numSamples; i++ {
		f += fStep
		if f >= fMax {
			f -= 2 * fMax
		}
		if up {
			g.phase += f
		} else {
			g.phase -= f
		}
		out[i] = complex(float32(g.Ampl*math.Cos(g.phase)), float32(g.Ampl*math.Sin(g.phase)))
	}

	g.phase = math.Mod(g.phase, 2*math.Pi)
	if g.phase < 0 {
		g.phase += 2 * math.Pi
	}

	return out
}

// Upchirp emits a full N*OVS-sample rising sweep offset by f0 (radians/sample).
// f0 == 2*pi*sym/(N*OVS) encodes symbol sym.
func (g *Generator) Upchirp(f0 float64) []complex64 {
	return g.chirp(g.samplesPerSymbol(), f0, true)
}

// Downchirp emits a full N*OVS-sample falling sweep offset by f0.
func (g *Generator) Downchirp(f0 float64) []complex64 {
	return g.chirp(g.samplesPerSymbol(), f0, false)
}

// QuarterDownchirp emits only N*OVS/4 samples of a falling sweep, used by
// the modulator/demodulator QUARTERCHIRP state.
func (g *Generator) QuarterDownchirp(f0 float64) []complex64 {
	return g.chirp(g.samplesPerSymbol()/4, f0, false)
}

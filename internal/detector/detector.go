package detector

import "math"

// Detector performs FFT-based LoRa symbol detection: an argmax over
// |FFT|^2 with a three-bin parabolic fractional-bin estimator and a
// noise-floor (power minus peak) estimate.
type Detector struct {
	n   int
	fft *fft
	in  []complex128
	mag []float64
}

// New builds a detector for an N-sample input buffer.
func New(n int) *Detector {
	return &Detector{
		n:   n,
		fft: newFFT(n),
		in:  make([]complex128, n),
		mag: make([]float64, n),
	}
}

// Result is one detect() call's output.
type Result struct {
	MaxIndex int     // argmax bin, i.e. the recovered symbol value
	Power    float64 // dB, peak bin power referenced to full scale
	PowerAvg float64 // dB, noise-floor estimate (energy outside the peak bin)
	FIndex   float64 // fractional-bin offset in [-0.5, 0.5]
}

// Detect runs the FFT over samples (which must have length N, already
// down-mixed against the appropriate local chirp replica) and returns the
// peak bin, its power, the noise floor, and the fractional-bin estimate.
func (d *Detector) Detect(samples []complex64) Result {
	for i, s := range samples {
		d.in[i] = complex(float64(real(s)), float64(imag(s)))
	}

	coeff := d.fft.transform(d.in)

	var total, maxValue float64
	maxIndex := 0
	for i, c := range coeff {
		m2 := real(c)*real(c) + imag(c)*imag(c)
		d.mag[i] = math.Sqrt(m2)
		total += m2
		if m2 > maxValue {
			maxValue = m2
			maxIndex = i
		}
	}

	n := float64(d.n)
	power := 20*math.Log10(math.Sqrt(maxValue)) - 20*math.Log10(n)
	powerAvg := 20*math.Log10(math.Sqrt(total-maxValue)) - 20*math.Log10(n)

	left := d.mag[(maxIndex-1+d.n)%d.n]
	right := d.mag[(maxIndex+1)%d.n]
	peak := math.Sqrt(maxValue)
	denom := 2*peak - right - left

	var fIndex float64
	if denom != 0 {
		fIndex = 0.5 * (right - left) / denom
	}

	return Result{
		MaxIndex: maxIndex,
		Power:    power,
		PowerAvg: powerAvg,
		FIndex:   fIndex,
	}
}

// Magnitude returns the magnitude spectrum computed by the most recent
// Detect call, for telemetry/spectrum-snapshot consumers.
func (d *Detector) Magnitude() []float64 { return d.mag }

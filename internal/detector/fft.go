package detector

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft wraps gonum's mixed-radix complex FFT — the black-box FFT kernel
// the demodulator's symbol detector is built on. It is not reimplemented
// here; only the peak-finding and power estimation around it are ours.
type fft struct {
	n     int
	plan  *fourier.CmplxFFT
	coeff []complex128
}

func newFFT(n int) *fft {
	return &fft{
		n:     n,
		plan:  fourier.NewCmplxFFT(n),
		coeff: make([]complex128, n),
	}
}

func (f *fft) transform(in []complex128) []complex128 {
	f.coeff = f.plan.Coefficients(f.coeff, in)
	return f.coeff
}

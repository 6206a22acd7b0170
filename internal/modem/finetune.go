package modem

import "math"

// fineSteps is the fractional-bin resolution of the fine-frequency
// rotation table: each symbol-domain bin is subdivided into fineSteps
// rotation-table entries.
const fineSteps = 16

// fineTuneTable is the precomputed complex-exponential lookup table spec
// §4.8 and §9 describe: built once at construction, shared immutably, and
// walked by a fractional index that free-runs across Rotate calls.
type fineTuneTable struct {
	table []complex64
	index float64
}

func newFineTuneTable(n int) *fineTuneTable {
	size := n * fineSteps
	table := make([]complex64, size)
	for i := range table {
		theta := 2 * math.Pi * float64(i) / float64(size)
		table[i] = complex(float32(math.Cos(theta)), float32(math.Sin(theta)))
	}
	return &fineTuneTable{table: table}
}

// Rotate multiplies each sample by the table entry at the current index,
// decrementing the index by freqError*fineSteps per sample and wrapping
// within the table.
func (t *fineTuneTable) Rotate(samples []complex64, freqError float64) []complex64 {
	out := make([]complex64, len(samples))
	size := float64(len(t.table))
	step := freqError * fineSteps
	for i, s := range samples {
		idx := int(math.Mod(t.index, size))
		if idx < 0 {
			idx += len(t.table)
		}
		out[i] = s * t.table[idx]
		t.index -= step
	}
	return out
}

// Package modem implements the LoRa modulator and demodulator state
// machines of spec §4.7/§4.8: symbol vector <-> complex baseband sample
// stream, synchronization, and frequency-error tracking.
package modem

// Label is an informational marker the modulator attaches to a sample
// stream position (spec §6): "SYNC", "DC", "QC", "Sn", "txEnd".
type Label struct {
	Sample int
	Name   string
}

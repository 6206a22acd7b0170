// Package capture records raw complex-baseband I/Q bursts to disk for
// offline replay and debugging, using the hybrid binary-framing and
// pooled zstd-encoder conventions of pcm_binary.go.
package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	magicFull uint16 = 0x4C51 // "LQ"
	version   uint8  = 1

	formatRaw  uint8 = 0
	formatZstd uint8 = 2

	fileHeaderSize   = 15 // magic(2) + version(1) + format(1) + sampleRateHz(4) + ovs(4) + reserved(3)
	recordHeaderSize = 16 // rtpTime(4) + wallClockMs(8) + numSamples(4)
)

var zstdEncoderPool = sync.Pool{
	New: func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

// Recorder writes framed I/Q capture files. One Recorder owns one
// destination writer and one session identifier.
type Recorder struct {
	w              io.Writer
	sessionID      string
	useCompression bool
	zstdEncoder    *zstd.Encoder
	mu             sync.Mutex
	wroteHeader    bool
	sampleRateHz   uint32
	ovs            uint32
}

// NewRecorder builds a Recorder writing to w. sampleRateHz and ovs are the
// bandwidth-derived sample rate and oversampling factor recorded in the
// file header for a replayer to reconstruct phyparam.Config.OVS.
func NewRecorder(w io.Writer, sampleRateHz, ovs uint32, useCompression bool) *Recorder {
	r := &Recorder{
		w:              w,
		sessionID:      uuid.NewString(),
		useCompression: useCompression,
		sampleRateHz:   sampleRateHz,
		ovs:            ovs,
	}
	if useCompression {
		r.zstdEncoder = zstdEncoderPool.Get().(*zstd.Encoder)
	}
	return r
}

// SessionID identifies this capture run: a random UUID assigned by
// NewRecorder.
func (r *Recorder) SessionID() string { return r.sessionID }

func (r *Recorder) writeFileHeader() error {
	format := formatRaw
	if r.useCompression {
		format = formatZstd
	}
	hdr := make([]byte, fileHeaderSize)
	binary.BigEndian.PutUint16(hdr[0:], magicFull)
	hdr[2] = version
	hdr[3] = format
	binary.BigEndian.PutUint32(hdr[4:], r.sampleRateHz)
	binary.BigEndian.PutUint32(hdr[8:], r.ovs)
	_, err := r.w.Write(hdr)
	return err
}

// WriteBurst appends one timestamped burst of complex samples.
func (r *Recorder) WriteBurst(rtpTime uint32, wallClockMs int64, samples []complex64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.wroteHeader {
		if err := r.writeFileHeader(); err != nil {
			return fmt.Errorf("capture: write file header: %w", err)
		}
		r.wroteHeader = true
	}

	record := make([]byte, recordHeaderSize+len(samples)*8)
	binary.BigEndian.PutUint32(record[0:], rtpTime)
	binary.BigEndian.PutUint64(record[4:], uint64(wallClockMs))
	binary.BigEndian.PutUint32(record[12:], uint32(len(samples)))
	for i, s := range samples {
		off := recordHeaderSize + i*8
		binary.BigEndian.PutUint32(record[off:], math.Float32bits(real(s)))
		binary.BigEndian.PutUint32(record[off+4:], math.Float32bits(imag(s)))
	}

	if r.useCompression && r.zstdEncoder != nil {
		record = r.zstdEncoder.EncodeAll(record, make([]byte, 0, len(record)))
	}

	frameLen := make([]byte, 4)
	binary.BigEndian.PutUint32(frameLen, uint32(len(record)))
	if _, err := r.w.Write(frameLen); err != nil {
		return fmt.Errorf("capture: write frame length: %w", err)
	}
	if _, err := r.w.Write(record); err != nil {
		return fmt.Errorf("capture: write record: %w", err)
	}
	return nil
}

// Close releases the pooled zstd encoder, if any.
func (r *Recorder) Close() error {
	if r.zstdEncoder != nil {
		zstdEncoderPool.Put(r.zstdEncoder)
		r.zstdEncoder = nil
	}
	return nil
}

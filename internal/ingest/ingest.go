// Package ingest receives complex-baseband I/Q sample multicast streams
// (one RTP group per configured channel) and routes them to the
// per-channel demodulator worker, following the multicast socket setup
// and RTP unmarshal/route conventions of audio.go.
package ingest

import (
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// Packet is the burst of complex baseband samples carried by one RTP
// datagram for a channel, timestamped on arrival.
type Packet struct {
	Channel     string
	SessionID   string
	Samples     []complex64
	RTPTime     uint32
	ArrivalTime time.Time
}

// bytesToComplex64 decodes an RTP payload of interleaved big-endian
// float32 I/Q pairs into complex64 samples.
func bytesToComplex64(payload []byte) []complex64 {
	n := len(payload) / 8
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		iBits := uint32(payload[i*8])<<24 | uint32(payload[i*8+1])<<16 | uint32(payload[i*8+2])<<8 | uint32(payload[i*8+3])
		qBits := uint32(payload[i*8+4])<<24 | uint32(payload[i*8+5])<<16 | uint32(payload[i*8+6])<<8 | uint32(payload[i*8+7])
		out[i] = complex(math.Float32frombits(iBits), math.Float32frombits(qBits))
	}
	return out
}

// Receiver listens on one multicast group per configured channel and
// forwards decoded I/Q packets on Packets.
type Receiver struct {
	mu       sync.RWMutex
	conns    map[string]*net.UDPConn // channel -> socket
	running  bool
	Packets  chan Packet
	sessions map[string]string // channel -> session id, assigned by AddChannel
}

// NewReceiver builds a receiver with an internal packet queue of the
// given depth.
func NewReceiver(queueDepth int) *Receiver {
	return &Receiver{
		conns:    make(map[string]*net.UDPConn),
		Packets:  make(chan Packet, queueDepth),
		sessions: make(map[string]string),
	}
}

// setupDataSocket opens a multicast UDP socket with SO_REUSEPORT and
// SO_REUSEADDR set, matching audio.go's setupDataSocket.
func setupDataSocket(addr *net.UDPAddr, iface *net.Interface) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					sockErr = fmt.Errorf("SO_REUSEPORT: %w", err)
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					sockErr = fmt.Errorf("SO_REUSEADDR: %w", err)
					return
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	udpConn := conn.(*net.UDPConn)

	if err := udpConn.SetReadBuffer(1024 * 1024); err != nil {
		log.Printf("ingest: warning: failed to set read buffer: %v", err)
	}

	// A nil iface joins on the system-assigned multicast interface.
	p := ipv4.NewPacketConn(udpConn)
	if err := p.JoinGroup(iface, addr); err != nil {
		log.Printf("ingest: warning: failed to join multicast group %s: %v", addr, err)
	}

	return udpConn, nil
}

// AddChannel joins the multicast group for one configured channel. If the
// receiver is already running it starts the channel's receive goroutine;
// otherwise Start does.
func (r *Receiver) AddChannel(channel string, addr *net.UDPAddr, iface *net.Interface) error {
	conn, err := setupDataSocket(addr, iface)
	if err != nil {
		return fmt.Errorf("ingest: setup socket for channel %s: %w", channel, err)
	}

	r.mu.Lock()
	r.conns[channel] = conn
	r.sessions[channel] = uuid.NewString()
	running := r.running
	r.mu.Unlock()

	log.Printf("ingest: channel %s listening on %s", channel, addr)

	if running {
		go r.receiveLoop(channel, conn)
	}
	return nil
}

// Start begins the receive loop for every channel added so far.
func (r *Receiver) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	conns := make(map[string]*net.UDPConn, len(r.conns))
	for ch, c := range r.conns {
		conns[ch] = c
	}
	r.mu.Unlock()

	for ch, c := range conns {
		go r.receiveLoop(ch, c)
	}
}

// Stop closes every channel's socket, ending its receive loop.
func (r *Receiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	for _, c := range r.conns {
		_ = c.Close()
	}
}

func (r *Receiver) isRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Receiver) sessionID(channel string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[channel]
}

func (r *Receiver) receiveLoop(channel string, conn *net.UDPConn) {
	buf := make([]byte, 65536)
	for r.isRunning() {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !r.isRunning() {
				return
			}
			log.Printf("ingest: channel %s: read error: %v", channel, err)
			continue
		}
		arrival := time.Now()

		if n < 12 {
			continue
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			log.Printf("ingest: channel %s: RTP parse error: %v", channel, err)
			continue
		}

		samples := bytesToComplex64(pkt.Payload)

		select {
		case r.Packets <- Packet{
			Channel:     channel,
			SessionID:   r.sessionID(channel),
			Samples:     samples,
			RTPTime:     pkt.Timestamp,
			ArrivalTime: arrival,
		}:
		default:
			log.Printf("ingest: channel %s: packet queue full, dropping burst", channel)
		}
	}
}

// Command lora-gwd runs a multi-channel LoRa PHY gateway daemon: it joins
// one multicast I/Q group per configured channel, demodulates and decodes
// packets, and republishes results to MQTT, Prometheus, and a websocket
// monitor feed. The overall wiring — config load, per-channel worker
// goroutines, signal-driven shutdown — follows main.go's daemon layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/cwsl/lora-phy/internal/capture"
	"github.com/cwsl/lora-phy/internal/codec"
	"github.com/cwsl/lora-phy/internal/gwconfig"
	"github.com/cwsl/lora-phy/internal/gwstat"
	"github.com/cwsl/lora-phy/internal/ingest"
	"github.com/cwsl/lora-phy/internal/modem"
	"github.com/cwsl/lora-phy/internal/mqttpub"
	"github.com/cwsl/lora-phy/internal/phyparam"
	"github.com/cwsl/lora-phy/internal/telemetry"
	"github.com/cwsl/lora-phy/internal/wsmonitor"
)

// minGoVersion is the lowest go-version release this daemon is validated
// against; it is a config-file-style compatibility gate, not a build
// constraint, matching the teacher's runtime version-compatibility check.
const minGoVersion = "1.21.0"

func checkRuntimeCompat() error {
	min, err := version.NewVersion(minGoVersion)
	if err != nil {
		return fmt.Errorf("main: parse minimum version: %w", err)
	}
	cur, err := version.NewVersion(strings.TrimPrefix(runtime.Version(), "go"))
	if err != nil {
		// Non-release toolchain string (e.g. "devel"); don't block startup.
		return nil
	}
	if cur.LessThan(min) {
		return fmt.Errorf("main: go runtime %s is older than required %s", cur, min)
	}
	return nil
}

// channelWorker owns one channel's demodulator/decoder pipeline: samples
// arrive from ingest, are fed to the demodulator work cycle, and completed
// symbol vectors are handed to the codec.
type channelWorker struct {
	name     string
	demod    *modem.Demodulator
	phyCfg   phyparam.Config
	buf      []complex64
	recorder *capture.Recorder
}

func newChannelWorker(ch gwconfig.ChannelConfig, rec *capture.Recorder) (*channelWorker, error) {
	phyCfg, err := ch.PHYConfig()
	if err != nil {
		return nil, err
	}
	demod, err := modem.NewDemodulator(phyCfg)
	if err != nil {
		return nil, fmt.Errorf("channel %s: build demodulator: %w", ch.Name, err)
	}
	return &channelWorker{name: ch.Name, demod: demod, phyCfg: phyCfg, recorder: rec}, nil
}

// feed appends newly arrived samples and runs the demodulator's work cycle
// until it needs more input than is buffered, decoding and reporting every
// packet completed along the way.
func (w *channelWorker) feed(pkt ingest.Packet, onResult func(codec.Result), onEvent func(wsmonitor.Event)) {
	if w.recorder != nil {
		if err := w.recorder.WriteBurst(pkt.RTPTime, pkt.ArrivalTime.UnixMilli(), pkt.Samples); err != nil {
			log.Printf("channel %s: capture write failed: %v", w.name, err)
		}
	}

	w.buf = append(w.buf, pkt.Samples...)

	for {
		res, err := w.demod.Step(w.buf)
		if err != nil {
			if _, ok := err.(*modem.ErrNeedMoreSamples); ok {
				return
			}
			log.Printf("channel %s: demodulator error: %v", w.name, err)
			w.demod.Reset()
			w.buf = w.buf[:0]
			return
		}

		w.buf = w.buf[res.Consumed:]

		onEvent(wsmonitor.Event{
			Timestamp: time.Now(),
			Channel:   w.name,
			Type:      "detect",
			State:     res.State.String(),
			Power:     res.Power,
			SNR:       res.SNR,
		})

		if !res.PacketReady {
			continue
		}

		decoded, err := codec.Decode(res.Symbols, w.phyCfg)
		if err != nil {
			log.Printf("channel %s: decode error: %v", w.name, err)
			continue
		}
		onResult(decoded)
	}
}

func runChannel(ctx context.Context, w *channelWorker, packets <-chan ingest.Packet, pub *mqttpub.Publisher, metrics *telemetry.Metrics, hub *wsmonitor.Hub, sem *semaphore.Weighted) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			w.feed(pkt, func(res codec.Result) {
				metrics.RecordResult(w.name, res)
				evType := "packet"
				if res.Dropped {
					evType = "dropped"
				}
				hub.Broadcast(wsmonitor.Event{
					Timestamp: time.Now(),
					Channel:   w.name,
					Type:      evType,
					Length:    len(res.Payload),
					Reason:    res.Reason.String(),
				})
				if pub != nil {
					if err := pub.Run(ctx, w.name, res); err != nil {
						log.Printf("channel %s: mqtt publish failed: %v", w.name, err)
					}
				}
			}, hub.Broadcast)
			sem.Release(1)
		}
	}
}

func main() {
	configPath := flag.String("config", "/etc/lora-gwd/config.yaml", "path to gateway configuration file")
	flag.Parse()

	if err := checkRuntimeCompat(); err != nil {
		log.Fatalf("main: %v", err)
	}

	cfg, err := gwconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.New()
	hub := wsmonitor.NewHub()

	var pub *mqttpub.Publisher
	if cfg.MQTT.Enabled {
		pub, err = mqttpub.New(cfg.MQTT.ToPublisherConfig())
		if err != nil {
			log.Fatalf("main: mqtt: %v", err)
		}
		defer pub.Close()
	}

	cpuCount, err := gwstat.HostCPUCount()
	if err != nil || cpuCount < 1 {
		cpuCount = 1
	}
	sem := semaphore.NewWeighted(int64(cpuCount))

	sampler, err := gwstat.New(720)
	if err != nil {
		log.Fatalf("main: gwstat: %v", err)
	}
	go sampler.Run(ctx, 5*time.Second)

	receiver := ingest.NewReceiver(256)
	channels := make(map[string]*channelWorker, len(cfg.Channels))
	perChannelQueues := make(map[string]chan ingest.Packet, len(cfg.Channels))

	for _, ch := range cfg.Channels {
		addr, err := net.ResolveUDPAddr("udp4", ch.MulticastAddr)
		if err != nil {
			log.Fatalf("main: channel %s: resolve multicast addr: %v", ch.Name, err)
		}
		var iface *net.Interface
		if ch.Interface != "" {
			iface, err = net.InterfaceByName(ch.Interface)
			if err != nil {
				log.Fatalf("main: channel %s: interface %s: %v", ch.Name, ch.Interface, err)
			}
		}
		if err := receiver.AddChannel(ch.Name, addr, iface); err != nil {
			log.Fatalf("main: channel %s: %v", ch.Name, err)
		}

		var rec *capture.Recorder
		if cfg.Capture.Enabled {
			f, err := os.Create(fmt.Sprintf("%s/%s-%d.iqcap", cfg.Capture.Directory, ch.Name, time.Now().Unix()))
			if err != nil {
				log.Printf("channel %s: capture disabled: %v", ch.Name, err)
			} else {
				defer f.Close()
				phyCfg, _ := ch.PHYConfig()
				rec = capture.NewRecorder(f, uint32(phyCfg.N()*phyCfg.OVS), uint32(phyCfg.OVS), cfg.Capture.Compression)
				defer rec.Close()
			}
		}

		w, err := newChannelWorker(ch, rec)
		if err != nil {
			log.Fatalf("main: %v", err)
		}
		channels[ch.Name] = w
		perChannelQueues[ch.Name] = make(chan ingest.Packet, 64)
		go runChannel(ctx, w, perChannelQueues[ch.Name], pub, metrics, hub, sem)
	}

	receiver.Start()
	defer receiver.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case pkt := <-receiver.Packets:
				if q, ok := perChannelQueues[pkt.Channel]; ok {
					select {
					case q <- pkt:
					default:
						log.Printf("channel %s: worker queue full, dropping burst", pkt.Channel)
					}
				}
			}
		}
	}()

	if cfg.Admin.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/health", sampler.HealthHandler())
		srv := &http.Server{Addr: cfg.Admin.ListenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("main: admin server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Prometheus.ListenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("main: prometheus server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Monitor.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: cfg.Monitor.ListenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("main: monitor server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Printf("main: lora-gwd running with %d channel(s)", len(channels))
	<-ctx.Done()
	log.Println("main: shutting down")
}

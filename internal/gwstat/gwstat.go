// Package gwstat samples host and process resource usage for the gateway
// daemon's health telemetry, following the periodic-sampling and
// gopsutil field selection conventions of instance_reporter.go.
package gwstat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one point-in-time resource reading.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemPercent    float32   `json:"mem_percent"`
	MemRSSBytes   uint64    `json:"mem_rss_bytes"`
	Load1         float64   `json:"load1"`
	Load5         float64   `json:"load5"`
	Load15        float64   `json:"load15"`
	NumGoroutines int       `json:"num_goroutines"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// Sampler periodically records Snapshots of the current process and host,
// keeping a bounded history for a "load over time" style admin view.
type Sampler struct {
	proc      *process.Process
	startedAt time.Time

	mu      sync.RWMutex
	history []Snapshot
	maxLen  int
}

// New builds a Sampler for the current process, retaining up to maxLen
// history entries (oldest evicted first), matching load_history.go's
// bounded ring-buffer approach.
func New(maxLen int) (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("gwstat: get self process: %w", err)
	}
	return &Sampler{
		proc:      p,
		startedAt: time.Now(),
		maxLen:    maxLen,
	}, nil
}

// Sample takes one reading and appends it to the retained history.
func (s *Sampler) Sample() (Snapshot, error) {
	cpuPct, err := s.proc.CPUPercent()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gwstat: cpu percent: %w", err)
	}
	memInfo, err := s.proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gwstat: memory info: %w", err)
	}
	memPct, err := s.proc.MemoryPercent()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gwstat: memory percent: %w", err)
	}
	avg, err := load.Avg()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gwstat: load average: %w", err)
	}

	snap := Snapshot{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPct,
		MemPercent:    memPct,
		MemRSSBytes:   memInfo.RSS,
		Load1:         avg.Load1,
		Load5:         avg.Load5,
		Load15:        avg.Load15,
		NumGoroutines: runtime.NumGoroutine(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}

	s.mu.Lock()
	s.history = append(s.history, snap)
	if len(s.history) > s.maxLen {
		s.history = s.history[len(s.history)-s.maxLen:]
	}
	s.mu.Unlock()

	return snap, nil
}

// History returns a copy of the retained snapshots, oldest first.
func (s *Sampler) History() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, len(s.history))
	copy(out, s.history)
	return out
}

// Run samples on the given interval until ctx is canceled, matching
// instance_reporter.go's ticker-driven reporting loop.
func (s *Sampler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sample(); err != nil {
				continue
			}
		}
	}
}

// HostCPUCount reports the number of logical CPUs available to the host,
// used to size the worker semaphore in cmd/lora-gwd.
func HostCPUCount() (int, error) {
	counts, err := cpu.Counts(true)
	if err != nil {
		return 0, fmt.Errorf("gwstat: cpu counts: %w", err)
	}
	return counts, nil
}

// TotalMemoryBytes reports host physical memory, used for admin/health
// reporting alongside process RSS.
func TotalMemoryBytes() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("gwstat: virtual memory: %w", err)
	}
	return v.Total, nil
}

// HealthReport is the JSON body served by HealthHandler: a fresh process
// snapshot alongside host-wide totals, matching decoder_health.go's
// enabled/healthy-status JSON shape.
type HealthReport struct {
	Snapshot
	HostMemoryTotalBytes uint64 `json:"host_memory_total_bytes"`
}

// HealthHandler serves a fresh HealthReport as JSON, for the admin HTTP
// surface cmd/lora-gwd exposes at AdminConfig.ListenAddr.
func (s *Sampler) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.Sample()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		total, err := TotalMemoryBytes()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(HealthReport{Snapshot: snap, HostMemoryTotalBytes: total})
	}
}

package library

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const defaultDoctorTTL = 5 * time.Minute

// Capabilities reports whether imports can decode media on this machine.
type Capabilities struct {
	FFprobe  bool      `json:"ffprobe"`
	Version  string    `json:"version,omitempty"`
	Error    string    `json:"error,omitempty"`
	ProbedAt time.Time `json:"probed_at"`
}

// DoctorRunner performs one capability probe.
type DoctorRunner interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// RunDoctor checks that the ffprobe binary runs and reads its version line.
// A missing binary is reported in the capabilities, not as an error.
func (f *FFprobe) RunDoctor(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	caps := &Capabilities{ProbedAt: time.Now()}
	out, err := exec.CommandContext(ctx, f.bin, "-version").Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		caps.Error = fmt.Sprintf("%s: %v", f.bin, err)
		return caps, nil
	}
	caps.FFprobe = true
	caps.Version = parseVersionLine(out)
	return caps, nil
}

// parseVersionLine pulls "6.1.1" out of "ffprobe version 6.1.1 Copyright ...".
func parseVersionLine(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return ""
	}
	fields := strings.Fields(sc.Text())
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// CachedDoctor caches capability probes for a TTL so /health does not fork a
// process per request.
type CachedDoctor struct {
	runner DoctorRunner
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(runner DoctorRunner, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		runner: runner,
		ttl:    defaultDoctorTTL,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && d.now().Sub(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh probes regardless of cache freshness. A failed probe falls back to
// the stale result when there is one.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.runner.RunDoctor(ctx)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("doctor probe failed", "error", err)
		}
		if d.cached != nil {
			return d.cached, nil
		}
		return nil, err
	}
	if caps.ProbedAt.IsZero() {
		caps.ProbedAt = d.now()
	}
	d.cached = caps
	return caps, nil
}

func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

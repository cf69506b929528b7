package internal

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

type Profiler struct {
	enabled bool
	logger  *Logger
}

func NewProfiler(cfg *Config, logger *Logger) *Profiler {
	return &Profiler{
		enabled: cfg.EnableProfiling,
		logger:  logger,
	}
}

// StartMemoryProfiling periodically dumps heap profiles until ctx is
// cancelled. No-op unless profiling is enabled.
func (p *Profiler) StartMemoryProfiling(ctx context.Context) {
	if !p.enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.captureMemoryProfile()
			case <-ctx.Done():
				return
			}
		}
	}()

	p.logger.Info("memory_profiling_started").
		Component("profiler").
		Operation("start_memory").
		Log()
}

func (p *Profiler) captureMemoryProfile() {
	filename := fmt.Sprintf("mem_%d.prof", time.Now().Unix())

	f, err := os.Create(filename)
	if err != nil {
		p.logger.Error("memory_profile_create_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}
	defer f.Close()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		p.logger.Error("memory_profile_write_failed").
			Component("profiler").
			Operation("capture_memory").
			Err(err).
			Log()
		return
	}

	p.logger.Info("memory_profile_captured").
		Component("profiler").
		Operation("capture_memory").
		Meta("file", filename).
		Log()
}

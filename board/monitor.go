package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"soundboard/config"
)

// Stats is a snapshot of cache and playback counters
type Stats struct {
	Packs        int
	CachedSounds int
	CachedBytes  int64
	Active       int
	Pending      int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d pack(s), %d cached sound(s) (%s), %d playing, %d scheduled",
		s.Packs, s.CachedSounds, humanize.Bytes(uint64(s.CachedBytes)), s.Active, s.Pending)
}

// StatsMonitor periodically logs board statistics
type StatsMonitor struct {
	interval    time.Duration
	stats       func() Stats
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
	stopChannel chan struct{}
	stopOnce    sync.Once
}

// NewStatsMonitor creates a new StatsMonitor instance
func NewStatsMonitor(cfg *config.Config, stats func() Stats, wg *sync.WaitGroup) *StatsMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &StatsMonitor{
		interval:    cfg.Monitor.Interval,
		stats:       stats,
		logger:      slog.With("component", "stats-monitor"),
		ctx:         ctx,
		cancel:      cancel,
		wg:          wg,
		stopChannel: make(chan struct{}),
	}
}

// Start begins periodic logging. A zero interval disables the monitor.
func (s *StatsMonitor) Start() {
	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Debug("Starting stats monitoring", slog.Duration("interval", s.interval))

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				st := s.stats()
				s.logger.Debug("Soundboard stats",
					slog.Int("packs", st.Packs),
					slog.Int("cached", st.CachedSounds),
					slog.String("cache_size", humanize.Bytes(uint64(st.CachedBytes))),
					slog.Int("playing", st.Active),
					slog.Int("scheduled", st.Pending))
			case <-s.ctx.Done():
				s.logger.Debug("Stats monitoring stopped")
				return
			case <-s.stopChannel:
				s.logger.Debug("Stats monitoring stopped via stop channel")
				return
			}
		}
	}()
}

// Stop stops stats monitoring
func (s *StatsMonitor) Stop() {
	s.cancel()
	s.stopOnce.Do(func() { close(s.stopChannel) })
}

// SetContext updates the context for cancellation
func (s *StatsMonitor) SetContext(ctx context.Context) {
	s.cancel() // Cancel the old context
	s.ctx, s.cancel = context.WithCancel(ctx)
}

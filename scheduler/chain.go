package scheduler

import (
	"log/slog"
	"strings"
	"time"

	"soundboard/status"
)

// ChainLink names a pack subfolder to pick an attached sound from and the
// delay added to the chain's running offset before it plays.
type ChainLink struct {
	Pack      string
	Subfolder string
	Delay     time.Duration
}

// Valid reports whether both pack and subfolder are set
func (l ChainLink) Valid() bool {
	return strings.TrimSpace(l.Pack) != "" && strings.TrimSpace(l.Subfolder) != ""
}

// ScheduledLink is a chain link with its offset from the start of the chain.
// Index is the link's 1-based position in the requested chain.
type ScheduledLink struct {
	ChainLink
	Index  int
	Offset time.Duration
}

// Schedule drops invalid links and assigns each remaining link the
// cumulative sum of the delays up to and including its own. Dropped links do
// not contribute a delay.
func Schedule(links []ChainLink) (scheduled []ScheduledLink, dropped []int) {
	var offset time.Duration
	for i, link := range links {
		if !link.Valid() {
			dropped = append(dropped, i+1)
			continue
		}
		offset += link.Delay
		scheduled = append(scheduled, ScheduledLink{
			ChainLink: ChainLink{
				Pack:      strings.TrimSpace(link.Pack),
				Subfolder: strings.TrimSpace(link.Subfolder),
				Delay:     link.Delay,
			},
			Index:  i + 1,
			Offset: offset,
		})
	}
	return scheduled, dropped
}

// PlayChain plays main immediately, then arms one timer per valid link at its
// cumulative offset from the moment PlayChain was called.
//
// Only the main sound's failure is returned; no links are armed in that case.
// Link failures, empty pools and dropped links are reported to the status sink.
func (s *Scheduler) PlayChain(main string, policy PanPolicy, links []ChainLink) error {
	start := time.Now()

	if _, err := s.PlayNow(main, policy.Sample(s.rand)); err != nil {
		return err
	}

	scheduled, dropped := Schedule(links)
	for _, n := range dropped {
		status.Reportf(s.status, "Attached sound #%d skipped: no pack or subfolder selected.", n)
	}

	for _, link := range scheduled {
		s.arm(link, policy, time.Until(start.Add(link.Offset)))
	}
	return nil
}

// arm schedules link to fire after wait. A wait of zero or less still fires
// on a timer goroutine.
func (s *Scheduler) arm(link ScheduledLink, policy PanPolicy, wait time.Duration) {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	s.logger.Debug("Armed attached sound",
		slog.Int("link", link.Index),
		slog.String("pack", link.Pack),
		slog.String("subfolder", link.Subfolder),
		slog.Duration("offset", link.Offset))

	time.AfterFunc(max(wait, 0), func() { s.fire(link, policy) })
}

// fire resolves the link's pool, picks a sound and plays it
func (s *Scheduler) fire(link ScheduledLink, policy PanPolicy) {
	defer s.fired()
	// A timer goroutine has no caller to recover for it.
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Attached sound panicked", slog.Int("link", link.Index), slog.Any("panic", p))
			status.Reportf(s.status, "Attached sound #%d failed: %v", link.Index, p)
		}
	}()

	pool := s.resolver.Pool(link.Pack, link.Subfolder)
	if len(pool) == 0 {
		status.Reportf(s.status, "Attached sound: '%s' in pack '%s' is empty/invalid. Skipping.", link.Subfolder, link.Pack)
		return
	}

	pick := pool[s.rand.IntN(len(pool))]
	if _, err := s.PlayNow(pick, policy.Sample(s.rand)); err != nil {
		s.logger.Warn("Attached sound failed",
			slog.Int("link", link.Index),
			slog.String("id", pick),
			slog.Any("error", err))
		status.Reportf(s.status, "Attached sound #%d failed: %v", link.Index, err)
	}
}

func (s *Scheduler) fired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	s.notifyLocked()
}

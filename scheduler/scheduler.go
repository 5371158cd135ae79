// Package scheduler turns sound identifiers into audible plays and fires
// chains of attached sounds at cumulative delays.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"soundboard/playback"
	"soundboard/status"
)

// Options configures a Scheduler
type Options struct {
	// Status receives asynchronous notices. Nil discards them.
	Status status.Sink
	// Rand drives pool picks and random pan. Nil uses math/rand/v2.
	Rand Rand
	// Logger defaults to a "scheduler" component logger.
	Logger *slog.Logger
}

// Scheduler plays sounds from a cache through a device and keeps every
// started instance referenced until the device reports it finished.
type Scheduler struct {
	cache    Cache
	device   Device
	resolver Resolver
	status   status.Sink
	rand     Rand
	logger   *slog.Logger

	mu      sync.Mutex
	alive   map[Instance]struct{}
	pending int
	idle    chan struct{}
}

// New creates a Scheduler. resolver is consulted when chain links fire.
func New(cache Cache, device Device, resolver Resolver, opts Options) *Scheduler {
	s := &Scheduler{
		cache:    cache,
		device:   device,
		resolver: resolver,
		status:   opts.Status,
		rand:     opts.Rand,
		logger:   opts.Logger,
		alive:    make(map[Instance]struct{}),
	}
	if s.status == nil {
		s.status = status.Discard
	}
	if s.rand == nil {
		s.rand = globalRand{}
	}
	if s.logger == nil {
		s.logger = slog.With("component", "scheduler")
	}
	return s
}

// PlayNow loads id through the cache, starts it at pan and returns the
// started instance. It does not wait for the sound to finish.
//
// Errors wrap cache.ErrSourceUnavailable when the bytes cannot be read and
// ErrPlaybackFailed when the device rejects or cannot start them.
func (s *Scheduler) PlayNow(id string, pan float64) (Instance, error) {
	data, err := s.cache.GetOrLoad(id)
	if err != nil {
		return nil, err
	}

	inst, err := s.device.Open(id, data)
	if err != nil {
		return nil, playbackError(id, err)
	}

	pan = playback.ClampPan(pan)
	if pan != 0 {
		inst.SetPan(pan)
	}

	s.keep(inst)
	if err := inst.Play(func() { s.release(inst) }); err != nil {
		s.release(inst)
		return nil, playbackError(id, err)
	}

	s.logger.Debug("Playing sound", slog.String("id", id), slog.Float64("pan", pan))
	return inst, nil
}

func playbackError(id string, err error) error {
	if errors.Is(err, ErrPlaybackFailed) {
		return err
	}
	return fmt.Errorf("play %s: %w: %w", id, ErrPlaybackFailed, err)
}

// keep adds inst to the keep-alive set
func (s *Scheduler) keep(inst Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive[inst] = struct{}{}
}

// release drops inst from the keep-alive set
func (s *Scheduler) release(inst Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alive, inst)
	s.notifyLocked()
}

// Active returns the number of instances still playing
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alive)
}

// Pending returns the number of armed chain links that have not fired yet
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until every armed link has fired and every started instance
// has finished, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 && len(s.alive) == 0 {
			s.mu.Unlock()
			return nil
		}
		if s.idle == nil {
			s.idle = make(chan struct{})
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notifyLocked wakes waiters once no work remains; s.mu must be held
func (s *Scheduler) notifyLocked() {
	if s.pending == 0 && len(s.alive) == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

// Package board wires the sound library, cache, output device and scheduler
// into one soundboard with a start/stop lifecycle.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/ffmpeg-audio"

	"soundboard/cache"
	"soundboard/config"
	"soundboard/library"
	"soundboard/playback"
	"soundboard/scheduler"
	"soundboard/status"
)

var (
	// ErrNoSelection is returned when the main pack or subfolder is not chosen.
	ErrNoSelection = errors.New("no selection")
	// ErrEmptyPool is returned when the main selection has no sound files.
	ErrEmptyPool = errors.New("no sound files")
	// ErrTooManyLinks is returned when more attached sounds are requested than allowed.
	ErrTooManyLinks = errors.New("too many attached sounds")
	// ErrInvalidDelay is returned for an attached delay outside the allowed range.
	ErrInvalidDelay = errors.New("invalid delay")
	// ErrNotInitialized is returned when Play is called before Initialize.
	ErrNotInitialized = errors.New("board not initialized")
)

// Selection names the pack subfolder the main sound is picked from
type Selection struct {
	Pack      string
	Subfolder string
}

func (s Selection) String() string {
	return s.Pack + "/" + s.Subfolder
}

// Board represents the main application state
type Board struct {
	config    *config.Config
	library   *library.Library
	cache     *cache.AudioCache
	device    *playback.Device
	scheduler *scheduler.Scheduler
	monitor   *StatsMonitor
	status    status.Sink
	output    playback.Output
	rand      scheduler.Rand
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errorChan chan error
}

// Option customizes a Board
type Option func(*Board)

// WithOutput replaces the system speaker
func WithOutput(out playback.Output) Option {
	return func(b *Board) { b.output = out }
}

// WithStatus sets where status notices go. The default logs them.
func WithStatus(sink status.Sink) Option {
	return func(b *Board) { b.status = sink }
}

// WithRand sets the randomness used for sound picks and pan
func WithRand(r scheduler.Rand) Option {
	return func(b *Board) { b.rand = r }
}

// WithLoader sets how sound files are read into the cache
func WithLoader(l cache.Loader) Option {
	return func(b *Board) { b.cache = cache.New(l) }
}

// New creates a new Board instance
func New(cfg *config.Config, opts ...Option) *Board {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Board{
		config:    cfg,
		logger:    slog.With("component", "board"),
		ctx:       ctx,
		cancel:    cancel,
		errorChan: make(chan error, 10),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.status == nil {
		b.status = status.NewLog()
	}
	if b.rand == nil {
		b.rand = scheduler.SystemRand()
	}
	if b.cache == nil {
		b.cache = cache.New(nil)
	}

	b.library = library.New(cfg.Sounds.Dir, b.status)
	return b
}

// Initialize scans the sound library and opens the output device
func (b *Board) Initialize() error {
	b.logger.Info("Initializing soundboard...")

	transcoder := b.transcoder()
	b.library.SetFilter(func(name string) bool {
		return playback.Playable(name, transcoder)
	})

	status.Reportf(b.status, "Scanning sound packs...")
	if _, err := b.library.Scan(); err != nil {
		return fmt.Errorf("failed to scan sound library: %w", err)
	}

	device, err := playback.NewDevice(playback.Options{
		SampleRate: b.config.Playback.SampleRate,
		Buffer:     b.config.Playback.Buffer,
		Volume:     b.config.Playback.Volume,
		Output:     b.output,
		Transcoder: transcoder,
	})
	if err != nil {
		return fmt.Errorf("failed to open output device: %w", err)
	}
	b.device = device

	b.scheduler = scheduler.New(b.cache, scheduler.FromPlayback(device), b.library, scheduler.Options{
		Status: b.status,
		Rand:   b.rand,
	})
	b.monitor = NewStatsMonitor(b.config, b.Stats, &b.wg)

	b.logger.Info("Soundboard initialized", slog.Int("packs", len(b.library.Packs())))
	return nil
}

// transcoder returns the ffmpeg fallback decoder, or nil when it is disabled
// or the executable is missing
func (b *Board) transcoder() *playback.Transcoder {
	exec := b.config.Playback.FFmpeg
	if exec == "" {
		return nil
	}
	t := playback.NewTranscoder(
		ffmpeg.WithExec(exec),
		ffmpeg.WithSampleRate(b.config.Playback.SampleRate),
	)
	if !t.Available() {
		b.logger.Warn("ffmpeg not found, only built-in formats will play", slog.String("exec", exec))
		return nil
	}
	return t
}

// Start begins background operations
func (b *Board) Start() error {
	if b.scheduler == nil {
		return ErrNotInitialized
	}
	b.logger.Info("Starting soundboard...")

	if b.config.Sounds.Watch {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			err := b.library.Watch(b.ctx, func(packs []string) {
				status.Reportf(b.status, "Sound packs changed: %d pack(s) available.", len(packs))
			})
			if err != nil {
				b.logger.Error("Library watch stopped", slog.Any("error", err))
				select {
				case b.errorChan <- err:
				default:
				}
			}
		}()
	}

	b.monitor.SetContext(b.ctx)
	b.monitor.Start()

	status.Reportf(b.status, "Ready.")
	return nil
}

// Stop gracefully shuts down the board. Sounds still playing are cut off.
func (b *Board) Stop() error {
	b.logger.Info("Stopping soundboard...")

	b.cancel()

	if b.monitor != nil {
		b.monitor.Stop()
	}

	b.wg.Wait()

	if b.device != nil {
		if err := b.device.Close(); err != nil {
			return fmt.Errorf("failed to close output device: %w", err)
		}
	}

	b.logger.Info("Soundboard stopped")
	return nil
}

// Error returns the error channel for monitoring errors
func (b *Board) Error() <-chan error {
	return b.errorChan
}

// Library returns the sound library
func (b *Board) Library() *library.Library {
	return b.library
}

// Play picks a random sound from main and plays it, followed by the attached
// chain. Only problems with the main sound are returned.
func (b *Board) Play(main Selection, attached []scheduler.ChainLink, randomPan bool) error {
	if b.scheduler == nil {
		return ErrNotInitialized
	}

	files, err := b.mainPool(main)
	if err != nil {
		return err
	}

	if err := b.checkLinks(attached); err != nil {
		return err
	}

	policy := scheduler.Center()
	if randomPan {
		policy = scheduler.Random()
	}

	pick := files[b.rand.IntN(len(files))]
	b.logger.Info("Playing",
		slog.String("selection", main.String()),
		slog.String("file", pick),
		slog.Int("attached", len(attached)),
		slog.String("pan", policy.Mode.String()))

	return b.scheduler.PlayChain(pick, policy, attached)
}

// mainPool resolves the main selection, explaining what is missing
func (b *Board) mainPool(main Selection) ([]string, error) {
	pack := strings.TrimSpace(main.Pack)
	subfolder := strings.TrimSpace(main.Subfolder)

	if pack == "" {
		return nil, fmt.Errorf("%w: please select a main sound pack", ErrNoSelection)
	}
	if subfolder == "" {
		subs, err := b.library.Subfolders(pack)
		if err != nil || len(subs) == 0 {
			return nil, fmt.Errorf("%w: main pack '%s' has no subfolders", ErrNoSelection, pack)
		}
		return nil, fmt.Errorf("%w: please select a main subfolder", ErrNoSelection)
	}

	files, err := b.library.Files(pack, subfolder)
	if err != nil {
		return nil, fmt.Errorf("failed to list main selection: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in main selection: '%s/%s'", ErrEmptyPool, pack, subfolder)
	}
	return files, nil
}

func (b *Board) checkLinks(links []scheduler.ChainLink) error {
	if len(links) > b.config.Playback.MaxAttached {
		return fmt.Errorf("%w: %d requested, at most %d", ErrTooManyLinks, len(links), b.config.Playback.MaxAttached)
	}
	for i, link := range links {
		if link.Delay < 0 || link.Delay > b.config.Playback.MaxDelay {
			return fmt.Errorf("%w: attached sound #%d delay %s outside 0..%s",
				ErrInvalidDelay, i+1, link.Delay, b.config.Playback.MaxDelay)
		}
	}
	return nil
}

// Wait blocks until every scheduled and playing sound has finished
func (b *Board) Wait(ctx context.Context) error {
	if b.scheduler == nil {
		return nil
	}
	return b.scheduler.Wait(ctx)
}

// Stats reports cache and playback counters
func (b *Board) Stats() Stats {
	st := Stats{
		CachedSounds: b.cache.Len(),
		CachedBytes:  b.cache.Size(),
		Packs:        len(b.library.Packs()),
	}
	if b.scheduler != nil {
		st.Active = b.scheduler.Active()
		st.Pending = b.scheduler.Pending()
	}
	return st
}

// DefaultDelay returns the configured delay for attached sounds given without one
func (b *Board) DefaultDelay() time.Duration {
	return b.config.Playback.DefaultDelay
}

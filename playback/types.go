package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

var (
	// ErrPlaybackFailed is returned when sound bytes cannot be decoded or started.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("device is closed")
)

// DefaultSampleRate is the rate the output runs at when none is configured
var DefaultSampleRate = beep.SampleRate(44100)

// Device is the single output all sounds are mixed into.
type Device struct {
	out        Output
	mixer      *beep.Mixer
	volume     *effects.Volume
	ctrl       *beep.Ctrl
	mu         sync.RWMutex
	closed     bool
	sampleRate beep.SampleRate
	quality    int
	transcoder *Transcoder
	active     map[*Instance]struct{}
}

// Options configures a Device
type Options struct {
	// SampleRate of the output in Hz. Zero uses DefaultSampleRate.
	SampleRate int
	// Buffer is the output buffer duration. Zero uses 100ms.
	Buffer time.Duration
	// Volume is the master gain exponent (base 2). Zero leaves samples untouched.
	Volume float64
	// Quality of the resampler used for sounds at a different rate (1-64).
	Quality int
	// Output receives the mixed stream. Nil uses the system speaker.
	Output Output
	// Transcoder decodes formats without a built-in decoder. Nil disables it.
	Transcoder *Transcoder
}

// Instance is a single decoded, pannable play of a sound.
type Instance struct {
	name   string
	device *Device
	stream beep.StreamSeekCloser
	format beep.Format
	pan    *effects.Pan

	mu      sync.Mutex
	started bool
	onDone  func()
	done    chan struct{}
	once    sync.Once
}

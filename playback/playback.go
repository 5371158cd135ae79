package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// NewDevice initializes the output and starts streaming an empty mixer into it.
// The output is initialized exactly once here and released by Close.
func NewDevice(opts Options) (*Device, error) {
	sampleRate := beep.SampleRate(opts.SampleRate)
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 4
	}
	out := opts.Output
	if out == nil {
		out = Speaker{}
	}

	if err := out.Init(sampleRate, sampleRate.N(buffer)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	mixer := &beep.Mixer{}
	volume := &effects.Volume{
		Streamer: mixer,
		Base:     2,
		Volume:   opts.Volume,
	}
	ctrl := &beep.Ctrl{Streamer: volume}

	d := &Device{
		out:        out,
		mixer:      mixer,
		volume:     volume,
		ctrl:       ctrl,
		sampleRate: sampleRate,
		quality:    quality,
		transcoder: opts.Transcoder,
		active:     make(map[*Instance]struct{}),
	}

	out.Play(ctrl)

	slog.Debug("Output device started",
		slog.Int("sample_rate", int(sampleRate)),
		slog.Duration("buffer", buffer))

	return d, nil
}

// SampleRate returns the output sample rate
func (d *Device) SampleRate() beep.SampleRate {
	return d.sampleRate
}

// Open decodes data into a new, not yet started instance. name is used to
// pick a decoder by file extension.
func (d *Device) Open(name string, data []byte) (*Instance, error) {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("open %s: %w: %w", name, ErrPlaybackFailed, ErrClosed)
	}

	stream, format, err := d.decode(name, data)
	if err != nil {
		return nil, err
	}

	var s beep.Streamer = stream
	if format.SampleRate != d.sampleRate {
		s = beep.Resample(d.quality, format.SampleRate, d.sampleRate, stream)
	}

	return &Instance{
		name:   name,
		device: d,
		stream: stream,
		format: format,
		pan:    &effects.Pan{Streamer: s},
		done:   make(chan struct{}),
	}, nil
}

// decode uses the transcoder for the formats it handles and as a last resort
// for files no built-in decoder recognizes
func (d *Device) decode(name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	t := d.transcoder
	if t != nil && len(data) > 0 && t.Handles(name) {
		return transcode(t, name, data)
	}

	stream, format, err := Decode(name, data)
	if err != nil && t != nil && len(data) > 0 && !Supported(name) {
		return transcode(t, name, data)
	}
	return stream, format, err
}

func transcode(t *Transcoder, name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	stream, format, err := guard(t.Decode, data)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("transcode %s: %w: %w", name, ErrPlaybackFailed, err)
	}
	return stream, format, nil
}

// start adds inst to the mixer
func (d *Device) start(inst *Instance) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("play %s: %w: %w", inst.name, ErrPlaybackFailed, ErrClosed)
	}

	d.active[inst] = struct{}{}

	d.out.Lock()
	d.mixer.Add(beep.Seq(inst.pan, beep.Callback(inst.finish)))
	d.out.Unlock()

	return nil
}

// release forgets inst once it has finished
func (d *Device) release(inst *Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, inst)
}

// Active returns the number of instances currently in the mixer
func (d *Device) Active() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.active)
}

// SetVolume sets the master gain exponent (base 2). 0 is unchanged, -1 is half.
func (d *Device) SetVolume(volume float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.out.Lock()
		d.volume.Volume = volume
		d.out.Unlock()
	}
}

// Mute silences or restores the output
func (d *Device) Mute(mute bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.out.Lock()
		d.volume.Silent = mute
		d.out.Unlock()
	}
}

// Pause pauses every playing sound
func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.out.Lock()
		d.ctrl.Paused = true
		d.out.Unlock()
	}
}

// Resume resumes the playback
func (d *Device) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.out.Lock()
		d.ctrl.Paused = false
		d.out.Unlock()
	}
}

// IsPlaying returns true if the output is not paused
func (d *Device) IsPlaying() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	d.out.Lock()
	playing := !d.ctrl.Paused
	d.out.Unlock()

	return playing
}

// Stop removes every sound from the mixer. Stopped instances report completion.
func (d *Device) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.out.Lock()
	d.mixer.Clear()
	d.out.Unlock()
	stopped := d.drainActive()
	d.mu.Unlock()

	for _, inst := range stopped {
		inst.finish()
	}
}

// Close stops all sounds and releases the output. Further opens fail with ErrClosed.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true

	d.out.Lock()
	d.mixer.Clear()
	d.out.Unlock()
	stopped := d.drainActive()
	d.mu.Unlock()

	for _, inst := range stopped {
		inst.finish()
	}

	d.out.Close()
	return nil
}

// drainActive empties the active set; d.mu must be held
func (d *Device) drainActive() []*Instance {
	out := make([]*Instance, 0, len(d.active))
	for inst := range d.active {
		out = append(out, inst)
	}
	clear(d.active)
	return out
}

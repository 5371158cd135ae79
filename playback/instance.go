package playback

import (
	"math"
	"time"
)

// Name returns the source name the instance was opened from
func (i *Instance) Name() string {
	return i.name
}

// Duration returns the length of the decoded sound
func (i *Instance) Duration() time.Duration {
	return i.format.SampleRate.D(i.stream.Len())
}

// Pan returns the current stereo balance
func (i *Instance) Pan() float64 {
	i.mu.Lock()
	started := i.started
	i.mu.Unlock()

	if started {
		i.device.out.Lock()
		defer i.device.out.Unlock()
	}
	return i.pan.Pan
}

// SetPan sets the stereo balance in [-1, 1], before or during playback.
// Values outside the range are clamped.
func (i *Instance) SetPan(pan float64) {
	pan = ClampPan(pan)

	i.mu.Lock()
	started := i.started
	i.mu.Unlock()

	if started {
		i.device.out.Lock()
		defer i.device.out.Unlock()
	}
	i.pan.Pan = pan
}

// Play starts the instance. onDone, if not nil, runs on its own goroutine once
// the sound has finished or was stopped. Play may be called only once.
func (i *Instance) Play(onDone func()) error {
	i.mu.Lock()
	if i.started {
		i.mu.Unlock()
		return nil
	}
	i.started = true
	i.onDone = onDone
	i.mu.Unlock()

	if err := i.device.start(i); err != nil {
		i.mu.Lock()
		i.started = false
		i.onDone = nil
		i.mu.Unlock()
		return err
	}
	return nil
}

// Done is closed when playback has finished
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// finish may run on the audio goroutine while the output lock is held, so
// anything that takes device locks is moved off it.
func (i *Instance) finish() {
	i.once.Do(func() {
		_ = i.stream.Close()
		close(i.done)

		i.mu.Lock()
		onDone := i.onDone
		i.mu.Unlock()

		go func() {
			i.device.release(i)
			if onDone != nil {
				onDone()
			}
		}()
	})
}

// ClampPan limits pan to [-1, 1]. NaN is centered.
func ClampPan(pan float64) float64 {
	switch {
	case math.IsNaN(pan):
		return 0
	case pan < -1:
		return -1
	case pan > 1:
		return 1
	default:
		return pan
	}
}

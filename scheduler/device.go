package scheduler

import (
	"soundboard/playback"
)

// ErrPlaybackFailed is returned when the device rejects a sound's bytes or
// cannot start it.
var ErrPlaybackFailed = playback.ErrPlaybackFailed

// Cache provides encoded sound bytes, loading each identifier at most once.
type Cache interface {
	GetOrLoad(id string) ([]byte, error)
}

// Instance is one started or startable play of a sound.
type Instance interface {
	SetPan(pan float64)
	// Play starts playback; onDone runs once the sound has finished.
	Play(onDone func()) error
	Done() <-chan struct{}
}

// Device decodes sound bytes into playable instances.
type Device interface {
	Open(name string, data []byte) (Instance, error)
}

// Resolver returns the candidate sound identifiers of a pack subfolder.
// An empty result means there is nothing to play.
type Resolver interface {
	Pool(pack, subfolder string) []string
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(pack, subfolder string) []string

// Pool calls f(pack, subfolder)
func (f ResolverFunc) Pool(pack, subfolder string) []string {
	return f(pack, subfolder)
}

type playbackDevice struct {
	d *playback.Device
}

// FromPlayback exposes a playback.Device as a scheduler Device
func FromPlayback(d *playback.Device) Device {
	return playbackDevice{d: d}
}

func (p playbackDevice) Open(name string, data []byte) (Instance, error) {
	inst, err := p.d.Open(name, data)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

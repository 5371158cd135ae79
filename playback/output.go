package playback

import (
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the process-wide audio sink a Device streams into.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// Speaker plays through the system audio device via beep's speaker package.
type Speaker struct{}

func (Speaker) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (Speaker) Play(s beep.Streamer) { speaker.Play(s) }
func (Speaker) Lock()                { speaker.Lock() }
func (Speaker) Unlock()              { speaker.Unlock() }
func (Speaker) Close()               { speaker.Close() }

// ManualOutput is an Output that only produces samples when Advance is called.
// It is used where no audio hardware is available, such as tests and dry runs.
type ManualOutput struct {
	mu         sync.Mutex
	streamers  []beep.Streamer
	SampleRate beep.SampleRate
	BufferSize int
	Closed     bool
}

func (m *ManualOutput) Init(sampleRate beep.SampleRate, bufferSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SampleRate = sampleRate
	m.BufferSize = bufferSize
	m.Closed = false
	return nil
}

func (m *ManualOutput) Play(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = append(m.streamers, s)
}

func (m *ManualOutput) Lock()   { m.mu.Lock() }
func (m *ManualOutput) Unlock() { m.mu.Unlock() }

func (m *ManualOutput) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamers = nil
	m.Closed = true
}

// Advance pulls n frames through every playing streamer and returns the
// mixed samples.
func (m *ManualOutput) Advance(n int) [][2]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][2]float64, n)
	buf := make([][2]float64, n)
	for _, s := range m.streamers {
		got, _ := s.Stream(buf)
		for i := 0; i < got; i++ {
			out[i][0] += buf[i][0]
			out[i][1] += buf[i][1]
		}
	}
	return out
}

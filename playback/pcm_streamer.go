package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"
)

var ErrAlreadyClosed = errors.New("already closed")

// PCMStreamer streams interleaved 16-bit PCM held in memory
type PCMStreamer struct {
	mu       sync.Mutex
	pcm      []int16
	channels int
	pos      int // in frames
	closed   bool
}

var _ beep.StreamSeekCloser = (*PCMStreamer)(nil)

// NewPCMStreamer wraps pcm samples interleaved over channels (1 or 2)
func NewPCMStreamer(pcm []int16, channels int) (*PCMStreamer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	return &PCMStreamer{
		pcm:      pcm[:len(pcm)-len(pcm)%channels],
		channels: channels,
	}, nil
}

func (s *PCMStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false
	}

	for ; n < len(samples) && s.pos < s.lenLocked(); n++ {
		i := s.pos * s.channels
		left := float64(s.pcm[i]) / 32767
		right := left
		if s.channels == 2 {
			right = float64(s.pcm[i+1]) / 32767
		}
		samples[n][0] = left
		samples[n][1] = right
		s.pos++
	}

	if n == 0 {
		return 0, false
	}
	return n, true
}

func (s *PCMStreamer) Err() error {
	return nil
}

// Len returns the length in frames
func (s *PCMStreamer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lenLocked()
}

func (s *PCMStreamer) lenLocked() int {
	return len(s.pcm) / s.channels
}

func (s *PCMStreamer) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *PCMStreamer) Seek(p int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p < 0 || p > s.lenLocked() {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, s.lenLocked())
	}
	s.pos = p
	return nil
}

func (s *PCMStreamer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	return nil
}

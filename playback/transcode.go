package playback

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/ffmpeg-audio"
	"github.com/gopxl/beep/v2"
)

// TranscodeTimeout bounds a single ffmpeg run
const TranscodeTimeout = 30 * time.Second

// transcodeExtensions are handed to ffmpeg instead of the built-in decoders
var transcodeExtensions = []string{".aac", ".m4a", ".opus", ".webm", ".wma"}

// Transcoder decodes formats the built-in decoders cannot read by piping
// them through an ffmpeg process into 16-bit PCM.
type Transcoder struct {
	cfg *ffmpeg.Config
}

// NewTranscoder creates a Transcoder. By default it runs "ffmpeg" from PATH
// and produces stereo at the default sample rate.
func NewTranscoder(opts ...ffmpeg.ConfigOpt) *Transcoder {
	cfg := ffmpeg.DefaultConfig()
	cfg.SampleRate = int(DefaultSampleRate)
	cfg.Channels = 2
	cfg.Apply(opts)
	return &Transcoder{cfg: cfg}
}

// Available reports whether the ffmpeg executable can be found
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.cfg.Exec)
	return err == nil
}

// Handles reports whether name should be transcoded rather than decoded
func (t *Transcoder) Handles(name string) bool {
	return slices.Contains(transcodeExtensions, strings.ToLower(filepath.Ext(name)))
}

// Decode runs data through ffmpeg and returns the resulting PCM
func (t *Transcoder) Decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	ctx, cancel := context.WithTimeout(context.Background(), TranscodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.cfg.Exec,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", strconv.Itoa(t.cfg.Channels),
		"-ar", strconv.Itoa(t.cfg.SampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, beep.Format{}, err
	}

	if err = cmd.Start(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to start %s: %w", t.cfg.Exec, err)
	}

	raw, readErr := io.ReadAll(bufio.NewReaderSize(pipe, t.cfg.BufferSize))
	if err := cmd.Wait(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("%s: %w: %s", t.cfg.Exec, err, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		return nil, beep.Format{}, fmt.Errorf("error reading PCM data: %w", readErr)
	}

	// Convert bytes to int16 samples
	samples := make([]int16, len(raw)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}

	stream, err := NewPCMStreamer(samples, t.cfg.Channels)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return stream, beep.Format{
		SampleRate:  beep.SampleRate(t.cfg.SampleRate),
		NumChannels: t.cfg.Channels,
		Precision:   2,
	}, nil
}

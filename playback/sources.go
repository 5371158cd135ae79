package playback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeFunc decodes an in-memory encoded sound
type DecodeFunc func(data []byte) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]DecodeFunc{
	".wav":  decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeVorbis,
	".flac": decodeFLAC,
}

// fallbackOrder is tried when the extension is unknown
var fallbackOrder = []string{".wav", ".ogg", ".flac", ".mp3"}

// Extensions lists the file extensions with a registered decoder
func Extensions() []string {
	out := make([]string, len(fallbackOrder))
	copy(out, fallbackOrder)
	return out
}

// Supported reports whether name has a registered decoder extension
func Supported(name string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Playable reports whether name can be played, either by a built-in decoder
// or through t. t may be nil.
func Playable(name string, t *Transcoder) bool {
	return Supported(name) || (t != nil && t.Handles(name))
}

// Decode picks a decoder from name's extension, falling back to probing every
// decoder in turn. The data slice is read but never modified.
func Decode(name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	if len(data) == 0 {
		return nil, beep.Format{}, fmt.Errorf("decode %s: empty data: %w", name, ErrPlaybackFailed)
	}

	if decode, ok := decoders[strings.ToLower(filepath.Ext(name))]; ok {
		s, format, err := guard(decode, data)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode %s: %w: %w", name, ErrPlaybackFailed, err)
		}
		return s, format, nil
	}

	var errs []error
	for _, ext := range fallbackOrder {
		s, format, err := guard(decoders[ext], data)
		if err == nil {
			return s, format, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", ext, err))
	}
	return nil, beep.Format{}, fmt.Errorf("decode %s: unrecognized format: %w: %w", name, ErrPlaybackFailed, errors.Join(errs...))
}

// guard runs decode, turning a decoder panic on malformed input into an error
func guard(decode DecodeFunc, data []byte) (s beep.StreamSeekCloser, format beep.Format, err error) {
	defer func() {
		if p := recover(); p != nil {
			s, format, err = nil, beep.Format{}, fmt.Errorf("decoder panic: %v", p)
		}
	}()
	return decode(data)
}

func decodeWAV(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(bytes.NewReader(data))
}

func decodeMP3(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
}

func decodeVorbis(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
}

func decodeFLAC(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	return flac.Decode(bytes.NewReader(data))
}

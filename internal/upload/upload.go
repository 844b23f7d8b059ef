// Package upload turns local or received audio into a domain.AudioFile.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

// MaxSize bounds how much audio is buffered for one upload.
const MaxSize = 64 << 20

var (
	// ErrUnsupportedFormat is returned for extensions the analyzer does not take.
	ErrUnsupportedFormat = errors.New("upload: unsupported audio format")
	// ErrTooLarge is returned when the payload exceeds MaxSize.
	ErrTooLarge = errors.New("upload: file too large")
	// ErrCorrupt is returned when an MP3 has no decodable frames.
	ErrCorrupt = errors.New("upload: audio is not decodable")
)

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

// Upload is a buffered audio payload ready to send.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	// Duration is a local estimate; zero when the format is not probed.
	Duration time.Duration
}

// AudioFile returns a fresh domain.AudioFile over the buffered bytes.
func (u *Upload) AudioFile() domain.AudioFile {
	return domain.AudioFile{
		Filename:    u.Filename,
		ContentType: u.ContentType,
		Size:        int64(len(u.Data)),
		Content:     bytes.NewReader(u.Data),

		EstimatedSeconds: u.Duration.Seconds(),
	}
}

// Open reads and checks the audio file at path.
func Open(path string) (*Upload, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the local user
	if err != nil {
		return nil, fmt.Errorf("upload: open %s: %w", path, err)
	}
	defer f.Close()
	return FromReader(filepath.Base(path), f)
}

// FromReader buffers r and checks it as a file called name.
func FromReader(name string, r io.Reader) (*Upload, error) {
	ext := strings.ToLower(filepath.Ext(name))
	ct, ok := contentTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("upload: read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, domain.ErrNoAudio
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	u := &Upload{Filename: name, ContentType: ct, Data: data}
	if ext == ".mp3" {
		d, err := probeMP3(data)
		if err != nil {
			return nil, err
		}
		u.Duration = d
	}
	return u, nil
}

// probeMP3 decodes the stream header and estimates the duration from the
// decoded length. Output is 16-bit stereo, so four bytes per sample frame.
func probeMP3(data []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		return 0, ErrCorrupt
	}
	samples := dec.Length() / 4
	if samples <= 0 {
		return 0, ErrCorrupt
	}
	return time.Duration(samples) * time.Second / time.Duration(rate), nil
}

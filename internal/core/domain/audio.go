package domain

import "io"

// AudioFile is an upload handed to the analysis service.
type AudioFile struct {
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
	Content     io.Reader
	// EstimatedSeconds is a locally probed duration, 0 when unknown.
	EstimatedSeconds float64
}

// Valid reports whether f carries a payload.
func (f *AudioFile) Valid() bool {
	return f != nil && f.Content != nil
}

package domain

import (
	"errors"
	"time"
)

// ErrNoAudio is returned when an analysis is requested without an audio payload.
var ErrNoAudio = errors.New("domain: no audio payload")

// PrimaryFeatures are the values produced by the analysis service for an upload.
type PrimaryFeatures struct {
	BPM             float64 `json:"bpm"`
	DurationSeconds float64 `json:"duration_seconds"`
	RMS             float64 `json:"rms"`
	CamelotKey      string  `json:"camelot_key"`
	Genre           string  `json:"genre,omitempty"`
	StoredFilePath  string  `json:"stored_file_path,omitempty"`
}

// SupplementalFeatures are descriptors fetched from a third-party catalog.
// A nil field means the value is unknown.
type SupplementalFeatures struct {
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	SpotifyTempo     *float64 `json:"spotify_tempo,omitempty"`
	SpotifyKey       *int     `json:"spotify_key,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
	TimeSignature    *int     `json:"time_signature,omitempty"`
}

// Merge overlays the non-nil fields of next onto s.
// Fields that next does not carry keep their previous value.
func (s SupplementalFeatures) Merge(next SupplementalFeatures) SupplementalFeatures {
	out := s
	mergeFloat(&out.Danceability, next.Danceability)
	mergeFloat(&out.Energy, next.Energy)
	mergeFloat(&out.Valence, next.Valence)
	mergeFloat(&out.Acousticness, next.Acousticness)
	mergeFloat(&out.Instrumentalness, next.Instrumentalness)
	mergeFloat(&out.Liveness, next.Liveness)
	mergeFloat(&out.Speechiness, next.Speechiness)
	mergeFloat(&out.Loudness, next.Loudness)
	mergeFloat(&out.SpotifyTempo, next.SpotifyTempo)
	mergeInt(&out.SpotifyKey, next.SpotifyKey)
	mergeInt(&out.Mode, next.Mode)
	mergeInt(&out.TimeSignature, next.TimeSignature)
	return out
}

// IsZero reports whether no supplemental descriptor is known.
func (s SupplementalFeatures) IsZero() bool {
	return s == SupplementalFeatures{}
}

func mergeFloat(dst **float64, src *float64) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func mergeInt(dst **int, src *int) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

// AnalysisResult is the payload returned by a successful analyze call.
type AnalysisResult struct {
	Title  string
	Artist string
	PrimaryFeatures
}

// TrackProfile accumulates everything known about one analyzed upload.
type TrackProfile struct {
	ID                 string               `json:"id,omitempty"`
	Title              string               `json:"title,omitempty"`
	Artist             string               `json:"artist,omitempty"`
	Primary            *PrimaryFeatures     `json:"primary,omitempty"`
	Supplemental       SupplementalFeatures `json:"supplemental"`
	ResolvedExternalID string               `json:"resolved_external_id,omitempty"`
	AnalyzedAt         time.Time            `json:"analyzed_at,omitempty"`
}

// NewTrackProfile builds a fresh profile from an analysis result.
func NewTrackProfile(id string, res AnalysisResult, at time.Time) TrackProfile {
	primary := res.PrimaryFeatures
	return TrackProfile{
		ID:         id,
		Title:      res.Title,
		Artist:     res.Artist,
		Primary:    &primary,
		AnalyzedAt: at,
	}
}

// IsEmpty reports whether the profile holds no analysis at all.
func (p TrackProfile) IsEmpty() bool {
	return p.Primary == nil && p.Title == "" && p.Artist == "" && p.ID == ""
}

// HasIdentity reports whether both artist and title are known.
func (p TrackProfile) HasIdentity() bool {
	return p.Artist != "" && p.Title != ""
}

// WithSupplemental returns a copy of p with s merged into its supplemental features.
func (p TrackProfile) WithSupplemental(s SupplementalFeatures) TrackProfile {
	out := p.Clone()
	out.Supplemental = out.Supplemental.Merge(s)
	return out
}

// Clone returns a deep copy so callers can't mutate shared state through pointers.
func (p TrackProfile) Clone() TrackProfile {
	out := p
	if p.Primary != nil {
		primary := *p.Primary
		out.Primary = &primary
	}
	out.Supplemental = SupplementalFeatures{}.Merge(p.Supplemental)
	return out
}

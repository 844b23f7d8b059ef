package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

var (
	colorInfo    = color.New(color.FgCyan)
	colorSuccess = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed)
	colorPrompt  = color.New(color.FgBlue, color.Bold)
	colorLabel   = color.New(color.Bold)
)

func printProfile(w io.Writer, p domain.TrackProfile) {
	title := orUnknown(p.Title)
	artist := orUnknown(p.Artist)
	colorSuccess.Fprintf(w, "%s - %s\n", artist, title)

	if p.Primary != nil {
		field(w, "BPM", fmt.Sprintf("%.1f", p.Primary.BPM))
		field(w, "Key", orUnknown(p.Primary.CamelotKey))
		field(w, "Duration", formatSeconds(p.Primary.DurationSeconds))
		field(w, "RMS", fmt.Sprintf("%.4f", p.Primary.RMS))
		if p.Primary.Genre != "" {
			field(w, "Genre", p.Primary.Genre)
		}
	}
	if p.ResolvedExternalID != "" {
		field(w, "Spotify ID", p.ResolvedExternalID)
	}

	s := p.Supplemental
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"Danceability", s.Danceability},
		{"Energy", s.Energy},
		{"Valence", s.Valence},
		{"Acousticness", s.Acousticness},
		{"Instrumentalness", s.Instrumentalness},
		{"Liveness", s.Liveness},
		{"Speechiness", s.Speechiness},
		{"Loudness", s.Loudness},
		{"Spotify tempo", s.SpotifyTempo},
	} {
		if f.v != nil {
			field(w, f.name, fmt.Sprintf("%.3f", *f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"Spotify key", s.SpotifyKey},
		{"Mode", s.Mode},
		{"Time signature", s.TimeSignature},
	} {
		if f.v != nil {
			field(w, f.name, fmt.Sprintf("%d", *f.v))
		}
	}
}

func printLyricState(w io.Writer, st domain.LyricSearchState) {
	switch st.Status {
	case domain.StatusHasResults:
		c, _ := st.Current()
		colorSuccess.Fprintf(w, "%s - %s", orUnknown(c.Artist), orUnknown(c.Title))
		fmt.Fprintf(w, "  (%d/%d)\n", st.Cursor+1, len(st.Candidates))
		if c.CoverURL != "" {
			field(w, "Cover", c.CoverURL)
		}
	case domain.StatusEmpty:
		colorWarning.Fprintln(w, st.ErrorMessage)
	case domain.StatusError:
		colorError.Fprintln(w, st.ErrorMessage)
	default:
		colorInfo.Fprintln(w, "enter a lyric snippet to search")
	}
}

func field(w io.Writer, name, value string) {
	colorLabel.Fprintf(w, "  %-17s", name+":")
	fmt.Fprintln(w, value)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func formatSeconds(sec float64) string {
	total := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

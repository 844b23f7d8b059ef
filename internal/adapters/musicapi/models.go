package musicapi

import "github.com/ewilliams-labs/tracklens/internal/core/domain"

type analyzeResponse struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Genre    string  `json:"genre"`
	BPM      float64 `json:"bpm"`
	Duration float64 `json:"duration"`
	RMS      float64 `json:"rms"`
	Camelot  string  `json:"camelot"`
	Path     string  `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type youtubeResponse struct {
	VideoURL string `json:"video_url"`
}

type spotifyResponse struct {
	TrackURL string `json:"track_url"`
}

type lyricSearchRequest struct {
	Snippet string `json:"snippet"`
}

// songs is a pointer so an absent field can be told apart from an empty list.
type lyricSearchResponse struct {
	Songs *[]lyricSong `json:"songs"`
	Error string       `json:"error"`
}

type lyricSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Cover  string `json:"cover"`
}

func mapAnalysisToDomain(r analyzeResponse) domain.AnalysisResult {
	return domain.AnalysisResult{
		Title:  r.Title,
		Artist: r.Artist,
		PrimaryFeatures: domain.PrimaryFeatures{
			BPM:             r.BPM,
			DurationSeconds: r.Duration,
			RMS:             r.RMS,
			CamelotKey:      r.Camelot,
			Genre:           r.Genre,
			StoredFilePath:  r.Path,
		},
	}
}

func mapSongsToDomain(songs []lyricSong) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(songs))
	for _, s := range songs {
		out = append(out, domain.Candidate{Title: s.Title, Artist: s.Artist, CoverURL: s.Cover})
	}
	return out
}

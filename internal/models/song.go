// internal/models/song.go
package models

import "github.com/google/uuid"

// Song is one track in a lobby's pool. Records arrive from catalog
// providers without an ID; the registry assigns one when the song is added.
// Duration, StartTime and EndTime are seconds.
type Song struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album,omitempty"`
	CoverURL   string    `json:"coverUrl,omitempty"`
	Source     string    `json:"source"`
	SourceID   string    `json:"sourceId"`
	Duration   float64   `json:"duration"`
	PreviewURL string    `json:"previewUrl,omitempty"`
	StartTime  float64   `json:"startTime"`
	EndTime    float64   `json:"endTime"`
}

// ClampSnippet fixes the playback window to roughly snippet seconds near
// the start of the track. Catalog providers sometimes report zero or
// negative durations; those are treated as unknown and the window starts
// at zero.
func (s *Song) ClampSnippet(snippet float64) {
	if snippet <= 0 {
		snippet = 15
	}
	if s.Duration <= 0 {
		s.StartTime = 0
		s.EndTime = snippet
		return
	}
	start := s.Duration * 0.1
	if start+snippet > s.Duration {
		start = s.Duration - snippet
	}
	if start < 0 {
		start = 0
	}
	end := start + snippet
	if end > s.Duration {
		end = s.Duration
	}
	s.StartTime = start
	s.EndTime = end
}

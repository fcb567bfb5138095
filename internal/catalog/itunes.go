// internal/catalog/itunes.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jamsesh/jamsesh/internal/models"
)

// Provider searches an external music catalog for songs with playable
// previews. Results feed the host's song picker.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]models.Song, error)
}

// ITunesProvider queries the iTunes Search API. No auth required, which
// makes it the default provider.
type ITunesProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewITunesProvider() *ITunesProvider {
	return &ITunesProvider{
		BaseURL:    "https://itunes.apple.com",
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	TrackID         int64  `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	ArtworkURL      string `json:"artworkUrl100"`
	PreviewURL      string `json:"previewUrl"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
}

// Search queries the song catalog. Results without a preview URL are
// dropped; a song nobody can hear cannot be guessed.
func (p *ITunesProvider) Search(ctx context.Context, query string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{}
	q.Set("term", query)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build itunes request: %w", err)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("itunes search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes search: unexpected status %d", resp.StatusCode)
	}

	var body itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode itunes response: %w", err)
	}

	songs := make([]models.Song, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PreviewURL == "" {
			continue
		}
		songs = append(songs, models.Song{
			Title:      r.TrackName,
			Artist:     r.ArtistName,
			Album:      r.CollectionName,
			CoverURL:   r.ArtworkURL,
			Source:     "itunes",
			SourceID:   strconv.FormatInt(r.TrackID, 10),
			Duration:   float64(r.TrackTimeMillis) / 1000,
			PreviewURL: r.PreviewURL,
		})
	}
	return songs, nil
}

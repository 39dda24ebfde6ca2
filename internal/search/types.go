// Package search implements tiered subtitle discovery against the remote
// search API: query construction, the retrying HTTP client, result
// filtering with season-pack fallback, and attribute matching.
package search

import (
	"golang.org/x/text/language"

	"github.com/subrift/subrift/internal/media"
)

// VideoType is the media kind sent to the search endpoint.
type VideoType string

const (
	VideoTypeEpisode VideoType = "episode"
	VideoTypeMovie   VideoType = "movie"
)

// Query is one search attempt against the remote endpoint. A fresh value
// is built per attempt; Season is set for every episodic tier, Episode
// only for the exact-episode tier.
type Query struct {
	Text      string
	VideoType VideoType
	Season    *int
	Episode   *int
	Year      int    // 0 when unknown
	ImdbID    string // preferred over Text when set
}

// RawResultItem is one record as returned by the remote search endpoint.
// Season and Episode are null for results that do not carry them; a null
// Episode denotes a season pack.
type RawResultItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	UploaderName string `json:"uploader_name"`
	Season       *int   `json:"season"`
	Episode      *int   `json:"episode"`
	PageURL      string `json:"page_url"`
}

// searchResponse is the JSON envelope of the search endpoint.
type searchResponse struct {
	Total int             `json:"total"`
	Items []RawResultItem `json:"items"`
}

// Candidate is a subtitle result surfaced to the caller after filtering,
// prior to download. Matched is computed once and not mutated afterwards.
type Candidate struct {
	ID          string
	Video       media.Video
	Title       string
	Description string
	Uploader    string
	PageURL     string
	DownloadURL string
	Language    language.Tag
	Season      *int
	Episode     *int
	Matched     MatchSet
}

// IsSeasonPack reports whether the candidate covers a whole season
// rather than one specific episode.
func (c *Candidate) IsSeasonPack() bool {
	return c.Episode == nil
}

// ReleaseInfo returns the free-text metadata used for attribute matching:
// the result title, plus the description when present.
func (c *Candidate) ReleaseInfo() string {
	if c.Description == "" {
		return c.Title
	}
	return c.Title + " | " + c.Description
}

func intPtr(v int) *int { return &v }

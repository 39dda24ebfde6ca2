// Package media defines the video references a subtitle search is performed for.
package media

// Video identifies a piece of video media subtitles are wanted for.
// It is read-only for the duration of a search; implementations are
// Episode and Movie.
type Video interface {
	// PrimaryTitle returns the main title (series title for episodes).
	PrimaryTitle() string
	// AlternateTitles returns alternate titles in their original order.
	// May be empty; absence is a normal state.
	AlternateTitles() []string
	// IMDb returns the IMDb id ("tt1234567") if known, empty otherwise.
	IMDb() string
	// ReleaseInfo returns the release name of the video file if known,
	// empty otherwise. Used for free-text attribute matching only.
	ReleaseInfo() string

	isVideo()
}

// Episode references one episode of a TV series.
type Episode struct {
	Series          string
	AlternateSeries []string
	Season          int
	Episode         int
	Year            int
	ImdbID          string
	ReleaseName     string
}

// Movie references a movie.
type Movie struct {
	Title       string
	Alternates  []string
	Year        int
	ImdbID      string
	ReleaseName string
}

func (e Episode) PrimaryTitle() string      { return e.Series }
func (e Episode) AlternateTitles() []string { return e.AlternateSeries }
func (e Episode) IMDb() string              { return e.ImdbID }
func (e Episode) ReleaseInfo() string       { return e.ReleaseName }
func (e Episode) isVideo()                  {}

func (m Movie) PrimaryTitle() string      { return m.Title }
func (m Movie) AlternateTitles() []string { return m.Alternates }
func (m Movie) IMDb() string              { return m.ImdbID }
func (m Movie) ReleaseInfo() string       { return m.ReleaseName }
func (m Movie) isVideo()                  {}

// DefaultMaxTitles caps how many titles a search will try per video.
const DefaultMaxTitles = 3

// SearchTitles derives the list of titles to search for a video: the
// primary title first, then alternates in their original order, with
// empty entries and duplicates removed, truncated to max entries.
// A non-positive max falls back to DefaultMaxTitles. The result is
// empty only when the primary title and all alternates are empty.
func SearchTitles(v Video, max int) []string {
	if max <= 0 {
		max = DefaultMaxTitles
	}

	seen := make(map[string]struct{})
	titles := make([]string, 0, max)

	for _, title := range append([]string{v.PrimaryTitle()}, v.AlternateTitles()...) {
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
		if len(titles) == max {
			break
		}
	}

	return titles
}

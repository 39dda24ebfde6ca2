package search

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separatorRuns  = regexp.MustCompile(`[._]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// SanitizeTitle normalizes a raw title for searching: runs of dots and
// underscores become a single space, repeated whitespace collapses, and
// the result is trimmed. Purely textual; idempotent.
func SanitizeTitle(title string) string {
	title = separatorRuns.ReplaceAllString(title, " ")
	title = whitespaceRuns.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// BuildEpisodeTiers returns the three query tiers for an episode, in
// fixed precision order: exact episode, season only, title only. Later
// tiers trade precision for recall and are only meant to run when the
// earlier ones find nothing.
func BuildEpisodeTiers(title string, season, episode int) []Query {
	return []Query{
		{
			Text:      fmt.Sprintf("%s S%02dE%02d", title, season, episode),
			VideoType: VideoTypeEpisode,
			Season:    intPtr(season),
			Episode:   intPtr(episode),
		},
		{
			Text:      fmt.Sprintf("%s S%02d", title, season),
			VideoType: VideoTypeEpisode,
			Season:    intPtr(season),
		},
		{
			Text:      title,
			VideoType: VideoTypeEpisode,
			Season:    intPtr(season),
		},
	}
}

// BuildMovieQuery returns the single query used for a movie title.
func BuildMovieQuery(title string) Query {
	return Query{
		Text:      title,
		VideoType: VideoTypeMovie,
	}
}

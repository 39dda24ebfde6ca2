package search

import (
	"sort"
	"strings"

	"github.com/moistari/rls"

	"github.com/subrift/subrift/internal/media"
)

// MatchSet is the set of attribute names a candidate satisfies for a
// video. Callers rank by set size and membership, not a scalar score.
type MatchSet map[string]struct{}

// Add inserts attribute names into the set.
func (s MatchSet) Add(names ...string) {
	for _, name := range names {
		s[name] = struct{}{}
	}
}

// Has reports whether the attribute is in the set.
func (s MatchSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the attribute names in sorted order.
func (s MatchSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute names an episode or movie candidate can satisfy. Used to
// express the match as a percentage for threshold decisions.
var (
	episodeAttributes = []string{
		"title", "series", "year", "season", "episode",
		"resolution", "source", "video_codec", "audio_codec", "release_group",
	}
	movieAttributes = []string{
		"title", "year",
		"resolution", "source", "video_codec", "audio_codec", "release_group",
	}
)

// ScoreMatches computes the matched attributes between a video and a
// candidate. The result is computed once per candidate and treated as
// immutable afterwards.
//
// A season pack (candidate without an episode number) is a forced
// episode match: packs are never penalized for lacking the exact
// number, and the free-text pass cannot undo that.
func ScoreMatches(video media.Video, c *Candidate) MatchSet {
	matched := make(MatchSet)
	seasonPack := false

	switch v := video.(type) {
	case media.Episode:
		matched.Add("title", "series", "year")
		if c.Season != nil && *c.Season == v.Season {
			matched.Add("season")
		}
		if c.Episode != nil {
			if *c.Episode == v.Episode {
				matched.Add("episode")
			}
		} else {
			seasonPack = true
			matched.Add("episode")
		}
	case media.Movie:
		matched.Add("title", "year")
	}

	matchReleaseAttributes(matched, video.ReleaseInfo(), c.ReleaseInfo())

	// The season-pack episode match always wins over the text pass.
	if seasonPack {
		matched.Add("episode")
	}

	return matched
}

// matchReleaseAttributes adds attributes derived from free-text release
// metadata: both sides are parsed as release names and compared field by
// field. An attribute is added only when both sides carry the field and
// agree on it.
func matchReleaseAttributes(matched MatchSet, videoRelease, candidateRelease string) {
	if videoRelease == "" || candidateRelease == "" {
		return
	}

	want := rls.ParseString(videoRelease)
	got := rls.ParseString(candidateRelease)

	if fieldEqual(want.Resolution, got.Resolution) {
		matched.Add("resolution")
	}
	if fieldEqual(want.Source, got.Source) {
		matched.Add("source")
	}
	if fieldEqual(want.Group, got.Group) {
		matched.Add("release_group")
	}
	if listEqual(want.Codec, got.Codec) {
		matched.Add("video_codec")
	}
	if listEqual(want.Audio, got.Audio) {
		matched.Add("audio_codec")
	}
}

// ScorePercent expresses a match set as a percentage of the attributes
// the video type can satisfy.
func ScorePercent(video media.Video, matched MatchSet) float64 {
	attributes := movieAttributes
	if _, ok := video.(media.Episode); ok {
		attributes = episodeAttributes
	}

	hits := 0
	for _, name := range attributes {
		if matched.Has(name) {
			hits++
		}
	}
	return float64(hits) / float64(len(attributes)) * 100
}

func fieldEqual(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	return a != "" && a == b
}

func listEqual(a, b []string) bool {
	return len(a) > 0 && len(b) > 0 && fieldEqual(strings.Join(a, " "), strings.Join(b, " "))
}

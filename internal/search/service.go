package search

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/subrift/subrift/internal/archive"
	"github.com/subrift/subrift/internal/media"
)

// defaultTitlePacing is the delay between attempts on different titles,
// to avoid hammering the remote endpoint. The client already backs off
// between tiers of the same title when it has to.
const defaultTitlePacing = time.Second

// ServiceConfig contains options for creating a Service.
type ServiceConfig struct {
	// Languages the provider serves. A request whose language set does
	// not intersect it is answered empty without any HTTP traffic.
	Languages   []language.Tag
	MaxTitles   int           // titles tried per video (default 3)
	TitlePacing time.Duration // delay between title attempts (default 1s)
	Logger      zerolog.Logger
}

// Service drives a subtitle search across titles and query tiers,
// stopping at the first tier that produces results. It exposes the two
// operations the caller sees: ListCandidates and FetchContent.
type Service struct {
	client      *Client
	languages   []language.Tag
	maxTitles   int
	titlePacing time.Duration
	logger      zerolog.Logger
}

// NewService creates a search service on top of an API client.
func NewService(client *Client, cfg ServiceConfig) *Service {
	s := &Service{
		client:      client,
		languages:   cfg.Languages,
		maxTitles:   cfg.MaxTitles,
		titlePacing: cfg.TitlePacing,
		logger:      cfg.Logger.With().Str("component", "search").Logger(),
	}
	if s.maxTitles <= 0 {
		s.maxTitles = media.DefaultMaxTitles
	}
	if s.titlePacing <= 0 {
		s.titlePacing = defaultTitlePacing
	}
	return s
}

// ListCandidates searches for acceptable subtitle candidates for the
// video in any of the requested languages. An exhausted search returns
// an empty list and no error; only invalid credentials (and
// cancellation) surface as errors.
func (s *Service) ListCandidates(ctx context.Context, video media.Video, languages []language.Tag) ([]Candidate, error) {
	logger := s.logger.With().Str("searchId", uuid.New().String()[:8]).Logger()

	lang, ok := s.matchLanguage(languages)
	if !ok {
		logger.Debug().Msg("No requested language is served, skipping search")
		return nil, nil
	}

	titles := media.SearchTitles(video, s.maxTitles)
	if len(titles) == 0 {
		logger.Debug().Msg("Video has no usable titles, no search possible")
		return nil, nil
	}

	for i, rawTitle := range titles {
		title := SanitizeTitle(rawTitle)
		if title == "" {
			logger.Debug().Str("rawTitle", rawTitle).Msg("Title vanished in sanitization, skipping")
			continue
		}

		candidates, err := s.searchTitle(ctx, logger, video, title, lang)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				// Continuing against a throttling endpoint cannot help;
				// the caller may defer this video to a later run.
				logger.Warn().Str("title", title).Msg("Rate limited, abandoning remaining titles")
				return nil, nil
			}
			return nil, err
		}
		if len(candidates) > 0 {
			logger.Info().
				Str("title", title).
				Int("candidates", len(candidates)).
				Msg("Search found candidates")
			return candidates, nil
		}

		if i < len(titles)-1 {
			if err := sleepCtx(ctx, s.titlePacing); err != nil {
				return nil, err
			}
		}
	}

	logger.Info().Int("titles", len(titles)).Msg("Search exhausted, no candidates")
	return nil, nil
}

// searchTitle runs every query tier for one title and returns the first
// tier's filtered candidates, or nil when all tiers come up empty.
func (s *Service) searchTitle(ctx context.Context, logger zerolog.Logger, video media.Video, title string, lang language.Tag) ([]Candidate, error) {
	for _, q := range s.buildTiers(video, title) {
		items, err := s.client.Search(ctx, q)
		if err != nil {
			return nil, err
		}

		kept := FilterResults(items, q.Season, q.Episode)
		logger.Debug().
			Str("query", q.Text).
			Int("items", len(items)).
			Int("kept", len(kept)).
			Msg("Tier searched")

		if len(kept) > 0 {
			return s.buildCandidates(video, kept, lang), nil
		}
	}
	return nil, nil
}

// buildTiers constructs the query tiers for one title: three for an
// episode, one for a movie. Year and IMDb id narrowing ride along on
// every tier.
func (s *Service) buildTiers(video media.Video, title string) []Query {
	var tiers []Query
	var year int

	switch v := video.(type) {
	case media.Episode:
		tiers = BuildEpisodeTiers(title, v.Season, v.Episode)
		year = v.Year
	case media.Movie:
		tiers = []Query{BuildMovieQuery(title)}
		year = v.Year
	}

	for i := range tiers {
		tiers[i].Year = year
		tiers[i].ImdbID = video.IMDb()
	}
	return tiers
}

// buildCandidates converts filtered result items into candidates with
// their matched attributes computed.
func (s *Service) buildCandidates(video media.Video, items []RawResultItem, lang language.Tag) []Candidate {
	candidates := make([]Candidate, 0, len(items))
	for i := range items {
		item := &items[i]
		c := Candidate{
			ID:          s.client.ItemPageURL(item),
			Video:       video,
			Title:       item.Title,
			Description: item.Description,
			Uploader:    item.UploaderName,
			PageURL:     s.client.ItemPageURL(item),
			DownloadURL: s.client.ItemDownloadURL(item),
			Language:    lang,
			Season:      item.Season,
			Episode:     item.Episode,
		}
		c.Matched = ScoreMatches(video, &c)
		candidates = append(candidates, c)
	}
	return candidates
}

// FetchContent downloads a candidate's payload and extracts the subtitle
// text from it. For episodes the wanted episode number is passed down as
// an extraction hint so season packs yield the right file.
func (s *Service) FetchContent(ctx context.Context, c *Candidate) ([]byte, error) {
	data, err := s.client.Download(ctx, c.DownloadURL)
	if err != nil {
		return nil, err
	}

	var episodeHint *int
	if v, ok := c.Video.(media.Episode); ok {
		episodeHint = &v.Episode
	}

	text, err := archive.ExtractSubtitle(ctx, data, episodeHint)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("candidate", c.ID).
		Int("bytes", len(text)).
		Msg("Subtitle content fetched")

	return text, nil
}

// matchLanguage returns the first requested language the provider
// serves.
func (s *Service) matchLanguage(requested []language.Tag) (language.Tag, bool) {
	for _, want := range requested {
		for _, have := range s.languages {
			if want == have {
				return want, true
			}
		}
	}
	return language.Und, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

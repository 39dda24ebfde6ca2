package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/subrift/subrift/internal/config"
	"github.com/subrift/subrift/internal/logger"
	"github.com/subrift/subrift/internal/media"
	"github.com/subrift/subrift/internal/pathutil"
	"github.com/subrift/subrift/internal/postprocess"
	"github.com/subrift/subrift/internal/search"
	"github.com/subrift/subrift/internal/subsync"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	series := flag.String("series", "", "Series title (episode search)")
	season := flag.Int("season", 0, "Season number")
	episode := flag.Int("episode", 0, "Episode number")
	movie := flag.String("movie", "", "Movie title (movie search)")
	year := flag.Int("year", 0, "Release year")
	imdb := flag.String("imdb", "", "IMDb id (tt1234567)")
	release := flag.String("release", "", "Release name of the video file")
	lang := flag.String("lang", "en", "Comma-separated subtitle languages")
	download := flag.String("download", "", "Download the best candidate to this path")
	videoPath := flag.String("video", "", "Video file path (for sync and post-processing)")
	flag.Parse()

	// Optional .env file for the API key and friends.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	video, err := videoFromFlags(*series, *season, *episode, *movie, *year, *imdb, *release)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	languages, err := parseLanguages(*lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -lang: %v\n", err)
		os.Exit(2)
	}

	client, err := search.NewClient(search.ClientConfig{
		BaseURL:         cfg.Provider.BaseURL,
		APIKey:          cfg.Provider.APIKey,
		UserAgent:       cfg.Provider.UserAgent,
		MaxRetries:      cfg.Provider.MaxRetries,
		SearchTimeout:   cfg.Provider.SearchTimeout(),
		DownloadTimeout: cfg.Provider.DownloadTimeout(),
		Logger:          log.Logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}

	service := search.NewService(client, search.ServiceConfig{
		Languages:   providerLanguages(cfg.Provider.Languages, log),
		MaxTitles:   cfg.Provider.MaxTitles,
		TitlePacing: cfg.Provider.TitlePacing(),
		Logger:      log.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candidates, err := service.ListCandidates(ctx, video, languages)
	if err != nil {
		log.Error().Err(err).Msg("Search failed")
		os.Exit(1)
	}
	if len(candidates) == 0 {
		fmt.Println("No subtitle candidates found.")
		return
	}

	// Rank by matched attribute count, most attributes first.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Matched) > len(candidates[j].Matched)
	})

	for i := range candidates {
		c := &candidates[i]
		episodeLabel := "pack"
		if c.Episode != nil {
			episodeLabel = fmt.Sprintf("E%02d", *c.Episode)
		}
		fmt.Printf("%2d. [%s] %-50s uploader=%-15s matches=%s\n",
			i+1, episodeLabel, truncate(c.Title, 50), c.Uploader,
			strings.Join(c.Matched.Names(), ","))
	}

	// With -video but no explicit -download target, save the subtitle
	// next to the video file.
	outPath := *download
	if outPath == "" && *videoPath != "" {
		outPath = pathutil.SubtitlePath(*videoPath, languages[0].String(), false)
	}
	if outPath == "" {
		return
	}

	best := &candidates[0]
	content, err := service.FetchContent(ctx, best)
	if err != nil {
		log.Error().Err(err).Msg("Download failed")
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, content, 0644); err != nil {
		log.Error().Err(err).Msg("Failed to write subtitle file")
		os.Exit(1)
	}
	fmt.Printf("Saved %s (%d bytes)\n", outPath, len(content))

	runAfterDownload(ctx, cfg, log, video, best, outPath, *videoPath)
}

// runAfterDownload runs the optional sync and post-processing steps for
// a freshly written subtitle.
func runAfterDownload(ctx context.Context, cfg *config.Config, log *logger.Logger, video media.Video, c *search.Candidate, subtitlePath, videoPath string) {
	_, isEpisode := video.(media.Episode)

	if videoPath != "" {
		syncer := subsync.NewSyncer(subsync.Config{
			Enabled:          cfg.Subsync.Enabled,
			ToolPath:         cfg.Subsync.ToolPath,
			MaxOffsetSeconds: cfg.Subsync.MaxOffsetSeconds,
			NoFixFramerate:   cfg.Subsync.NoFixFramerate,
			EpisodeThreshold: cfg.Subsync.EpisodeThreshold,
			MovieThreshold:   cfg.Subsync.MovieThreshold,
		}, log.Logger)

		_, _ = syncer.Sync(ctx, subsync.Request{
			VideoPath:    videoPath,
			SubtitlePath: subtitlePath,
			Language:     c.Language.String(),
			IsEpisode:    isEpisode,
			ScorePercent: search.ScorePercent(video, c.Matched),
		})
	}

	runner := postprocess.NewRunner(postprocess.Config{
		Enabled: cfg.PostProcess.Enabled,
		Command: cfg.PostProcess.Command,
		Timeout: time.Duration(cfg.PostProcess.TimeoutSeconds) * time.Second,
	}, log.Logger)

	runner.Run(ctx, postprocess.Vars{
		SubtitlePath: subtitlePath,
		VideoPath:    videoPath,
		Language:     c.Language.String(),
	})
}

func videoFromFlags(series string, season, episode int, movie string, year int, imdb, release string) (media.Video, error) {
	switch {
	case series != "":
		if season <= 0 || episode <= 0 {
			return nil, fmt.Errorf("episode search requires -season and -episode")
		}
		return media.Episode{
			Series:      series,
			Season:      season,
			Episode:     episode,
			Year:        year,
			ImdbID:      imdb,
			ReleaseName: release,
		}, nil
	case movie != "":
		return media.Movie{
			Title:       movie,
			Year:        year,
			ImdbID:      imdb,
			ReleaseName: release,
		}, nil
	default:
		return nil, fmt.Errorf("either -series or -movie is required")
	}
}

func parseLanguages(csv string) ([]language.Tag, error) {
	var tags []language.Tag
	for _, code := range strings.Split(csv, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", code, err)
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("no languages given")
	}
	return tags, nil
}

// providerLanguages parses the configured language set, skipping (and
// logging) anything unparseable.
func providerLanguages(codes []string, log *logger.Logger) []language.Tag {
	var tags []language.Tag
	for _, code := range codes {
		tag, err := language.Parse(code)
		if err != nil {
			log.Warn().Str("language", code).Msg("Ignoring invalid provider language")
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Package subsync wraps an external subtitle synchronization tool and
// the policy deciding when it should run at all.
package subsync

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 5 * time.Minute

// Config holds synchronization settings.
type Config struct {
	Enabled          bool
	ToolPath         string // path to the sync binary
	MaxOffsetSeconds int
	NoFixFramerate   bool
	Timeout          time.Duration

	// Sync is skipped when the subtitle's match score is at or above
	// the threshold for its media kind; a zero threshold disables the
	// gate for that kind.
	EpisodeThreshold float64
	MovieThreshold   float64
}

// Request describes one subtitle to synchronize.
type Request struct {
	VideoPath    string
	SubtitlePath string
	Language     string
	Forced       bool
	IsEpisode    bool
	ScorePercent float64
}

// commandRunner runs the sync tool; swapped out in tests.
type commandRunner func(ctx context.Context, name string, args ...string) error

// Syncer gates and runs the external sync tool.
type Syncer struct {
	cfg    Config
	run    commandRunner
	logger zerolog.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(cfg Config, logger zerolog.Logger) *Syncer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Syncer{
		cfg:    cfg,
		run:    runCommand,
		logger: logger.With().Str("component", "subsync").Logger(),
	}
}

// Sync synchronizes one subtitle against its video if policy allows.
// Returns true when the tool actually ran and succeeded.
func (s *Syncer) Sync(ctx context.Context, req Request) (bool, error) {
	logger := s.logger.With().Str("subtitle", req.SubtitlePath).Logger()

	if !s.cfg.Enabled {
		logger.Debug().Msg("Automatic syncing is disabled, skipping")
		return false, nil
	}
	if req.Forced {
		logger.Debug().Msg("Forced subtitles cannot be synced, skipping")
		return false, nil
	}

	threshold := s.cfg.MovieThreshold
	if req.IsEpisode {
		threshold = s.cfg.EpisodeThreshold
	}
	if threshold > 0 && req.ScorePercent >= threshold {
		logger.Debug().
			Float64("score", req.ScorePercent).
			Float64("threshold", threshold).
			Msg("Score at or above sync threshold, skipping")
		return false, nil
	}

	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	args := s.buildArgs(req)
	if err := s.run(syncCtx, s.cfg.ToolPath, args...); err != nil {
		logger.Error().Err(err).Msg("Subtitle synchronization failed")
		return false, fmt.Errorf("sync tool failed: %w", err)
	}

	logger.Info().Msg("Subtitle synchronized")
	return true, nil
}

// buildArgs assembles the sync tool's argument list.
func (s *Syncer) buildArgs(req Request) []string {
	args := []string{
		req.VideoPath,
		"-i", req.SubtitlePath,
		"-o", req.SubtitlePath,
		"--srtin-lang", req.Language,
	}
	if s.cfg.MaxOffsetSeconds > 0 {
		args = append(args, "--max-offset-seconds", strconv.Itoa(s.cfg.MaxOffsetSeconds))
	}
	if s.cfg.NoFixFramerate {
		args = append(args, "--no-fix-framerate")
	}
	return args
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

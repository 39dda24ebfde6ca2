// Package postprocess runs a user-supplied command after a subtitle has
// been written, normalizing whatever the command prints.
package postprocess

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = time.Minute

// Config holds post-processing configuration.
type Config struct {
	Enabled bool
	Command string // shell command with {{...}} placeholders
	Timeout time.Duration
}

// Vars are the placeholder values exposed to the command.
type Vars struct {
	SubtitlePath string
	VideoPath    string
	Language     string
}

// Runner executes the configured post-processing command.
type Runner struct {
	cfg    Config
	logger zerolog.Logger
}

// NewRunner creates a post-processing runner.
func NewRunner(cfg Config, logger zerolog.Logger) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.With().Str("component", "postprocess").Logger(),
	}
}

// Run expands the placeholders and executes the command through the
// shell. Failures are logged, never propagated: post-processing must
// not undo a successful subtitle download.
func (r *Runner) Run(ctx context.Context, vars Vars) {
	if !r.cfg.Enabled || r.cfg.Command == "" {
		return
	}

	command := ExpandCommand(r.cfg.Command, vars)
	logger := r.logger.With().Str("file", vars.SubtitlePath).Logger()

	cmdCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := shellCommand(cmdCtx, command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Error().
			Err(err).
			Str("stderr", normalizeOutput(stderr.String())).
			Msg("Post-processing command failed")
		return
	}

	if errOut := normalizeOutput(stderr.String()); errOut != "" {
		logger.Error().Str("output", errOut).Msg("Post-processing reported errors")
		return
	}

	out := normalizeOutput(stdout.String())
	if out == "" {
		logger.Info().Msg("Post-processing finished, nothing returned from command")
		return
	}
	logger.Info().Str("output", out).Msg("Post-processing finished")
}

// ExpandCommand substitutes the {{subtitle_path}}, {{video_path}} and
// {{subtitle_language}} placeholders.
func ExpandCommand(command string, vars Vars) string {
	replacer := strings.NewReplacer(
		"{{subtitle_path}}", vars.SubtitlePath,
		"{{video_path}}", vars.VideoPath,
		"{{subtitle_language}}", vars.Language,
	)
	return replacer.Replace(command)
}

// normalizeOutput flattens command output to a single trimmed line.
func normalizeOutput(out string) string {
	out = strings.ReplaceAll(out, "\r", " ")
	out = strings.ReplaceAll(out, "\n", " ")
	return strings.TrimSpace(out)
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

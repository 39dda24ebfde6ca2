// Package archive extracts subtitle text from downloaded payloads,
// which arrive as compressed archives, compressed single files, or
// occasionally as bare subtitle text.
package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/mholt/archives"
	"github.com/moistari/rls"
)

// ErrNoSubtitle means the payload contained no usable subtitle file.
var ErrNoSubtitle = errors.New("no subtitle found in payload")

// subtitleExtensions are the file extensions recognized as subtitle text.
var subtitleExtensions = map[string]struct{}{
	".srt": {},
	".sub": {},
	".ssa": {},
	".ass": {},
	".vtt": {},
}

// ExtractSubtitle returns the subtitle text contained in a downloaded
// payload. Archive entries are preferred in this order: a file whose
// parsed episode number equals episodeHint, then the first file with a
// subtitle extension. Payloads that are not archives are returned
// unchanged, on the assumption the endpoint served bare subtitle text.
func ExtractSubtitle(ctx context.Context, data []byte, episodeHint *int) ([]byte, error) {
	format, stream, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return passthrough(data)
		}
		return nil, err
	}

	if extractor, ok := format.(archives.Extractor); ok {
		return extractFromArchive(ctx, extractor, stream, episodeHint)
	}

	if decomp, ok := format.(archives.Decompressor); ok {
		rc, err := decomp.OpenReader(stream)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return passthrough(data)
}

// extractFromArchive walks the archive entries and picks the best
// subtitle file.
func extractFromArchive(ctx context.Context, extractor archives.Extractor, stream io.Reader, episodeHint *int) ([]byte, error) {
	var fallback []byte
	var hinted []byte

	err := extractor.Extract(ctx, stream, func(ctx context.Context, info archives.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		name := info.NameInArchive
		if _, ok := subtitleExtensions[strings.ToLower(path.Ext(name))]; !ok {
			return nil
		}

		if hinted == nil && episodeHint != nil && parsedEpisode(name) == *episodeHint {
			content, err := readEntry(info)
			if err != nil {
				return err
			}
			hinted = content
			return nil
		}

		if fallback == nil {
			content, err := readEntry(info)
			if err != nil {
				return err
			}
			fallback = content
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hinted != nil {
		return hinted, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoSubtitle
}

func readEntry(info archives.FileInfo) ([]byte, error) {
	f, err := info.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parsedEpisode extracts the episode number from an archive entry name,
// 0 when it has none.
func parsedEpisode(name string) int {
	return rls.ParseString(path.Base(name)).Episode
}

func passthrough(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNoSubtitle
	}
	return data, nil
}

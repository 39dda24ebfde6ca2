// Package pathutil derives subtitle file paths from video file paths.
package pathutil

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts all path separators to forward slashes.
// Go's os.Open/os.Stat accept forward slashes on all platforms.
func NormalizePath(p string) string {
	return filepath.ToSlash(p)
}

// SubtitlePath returns the conventional subtitle path for a video file:
// the video path with its extension replaced by the language code and
// ".srt". Forced subtitles get a ".forced" marker before the extension
// so players keep them apart from the full track.
func SubtitlePath(videoPath, langCode string, forced bool) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	if forced {
		return base + "." + langCode + ".forced.srt"
	}
	return base + "." + langCode + ".srt"
}

package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func intPtr(v int) *int { return &v }

func TestExtractSubtitleFromZip(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Dark.S01E01.srt": "episode one",
	})

	got, err := ExtractSubtitle(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if string(got) != "episode one" {
		t.Errorf("got %q", got)
	}
}

func TestExtractSubtitleEpisodeHint(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Season 3/Breaking.Bad.S03E01.srt": "first",
		"Season 3/Breaking.Bad.S03E13.srt": "thirteenth",
		"Season 3/readme.nfo":              "not a subtitle",
	})

	got, err := ExtractSubtitle(context.Background(), data, intPtr(13))
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if string(got) != "thirteenth" {
		t.Errorf("hint ignored, got %q", got)
	}
}

func TestExtractSubtitleHintMissFallsBack(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Breaking.Bad.S03E01.srt": "first",
	})

	got, err := ExtractSubtitle(context.Background(), data, intPtr(13))
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("got %q", got)
	}
}

func TestExtractSubtitleSkipsNonSubtitleFiles(t *testing.T) {
	data := buildZip(t, map[string]string{
		"sample.mkv":      "video bytes",
		"Dark.S01E01.ass": "styled subs",
	})

	got, err := ExtractSubtitle(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if string(got) != "styled subs" {
		t.Errorf("got %q", got)
	}
}

func TestExtractSubtitleEmptyArchive(t *testing.T) {
	data := buildZip(t, map[string]string{
		"readme.txt": "nothing here",
	})

	if _, err := ExtractSubtitle(context.Background(), data, nil); !errors.Is(err, ErrNoSubtitle) {
		t.Fatalf("expected ErrNoSubtitle, got %v", err)
	}
}

func TestExtractSubtitlePassthrough(t *testing.T) {
	raw := []byte("1\n00:00:01,000 --> 00:00:02,000\nplain srt text\n")

	got, err := ExtractSubtitle(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("ExtractSubtitle: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("bare payload must pass through unchanged")
	}
}

func TestExtractSubtitleEmptyPayload(t *testing.T) {
	if _, err := ExtractSubtitle(context.Background(), nil, nil); !errors.Is(err, ErrNoSubtitle) {
		t.Fatalf("expected ErrNoSubtitle, got %v", err)
	}
}

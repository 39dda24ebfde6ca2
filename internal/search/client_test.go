package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
		Logger:     zerolog.New(zerolog.NewTestWriter(t)),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func episodeQuery() Query {
	return Query{Text: "Dark S01E01", VideoType: VideoTypeEpisode, Season: intPtr(1), Episode: intPtr(1)}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "http://localhost"})
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSearchSuccess(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "200" {
			t.Errorf("limit = %q, want 200", got)
		}
		if got := r.URL.Query().Get("video_type"); got != "episode" {
			t.Errorf("video_type = %q, want episode", got)
		}
		if got := r.URL.Query().Get("title"); got != "Dark S01E01" {
			t.Errorf("title = %q", got)
		}

		fmt.Fprint(w, `{"total":2,"items":[
			{"id":"1","title":"Dark S01E01","season":1,"episode":1},
			{"id":"2","title":"Dark S01","season":1,"episode":null}
		]}`)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Episode == nil || *items[0].Episode != 1 {
		t.Error("first item episode not parsed")
	}
	if items[1].Episode != nil {
		t.Error("null episode must parse as nil")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("success must short-circuit retries, got %d attempts", got)
	}
}

func TestSearchPrefersImdbID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("imdb_id"); got != "tt0903747" {
			t.Errorf("imdb_id = %q", got)
		}
		if r.URL.Query().Has("title") {
			t.Error("title must not be sent when imdb_id is set")
		}
		fmt.Fprint(w, `{"total":0,"items":[]}`)
	}))
	defer server.Close()

	q := episodeQuery()
	q.ImdbID = "tt0903747"
	if _, err := testClient(t, server).Search(context.Background(), q); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestSearchNoCriteria(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer server.Close()

	q := Query{Text: "", VideoType: VideoTypeEpisode, Season: intPtr(1), Episode: intPtr(1)}
	items, err := testClient(t, server).Search(context.Background(), q)
	if err != nil {
		t.Fatalf("a query without criteria must degrade to empty, got %v", err)
	}
	if items != nil {
		t.Errorf("got %d items, want none", len(items))
	}
	if got := atomic.LoadInt32(&attempts); got != 0 {
		t.Errorf("no HTTP traffic expected, got %d requests", got)
	}
}

func TestSearchBadRequestNoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil {
		t.Fatalf("400 must degrade to empty, got %v", err)
	}
	if items != nil {
		t.Errorf("got %d items, want none", len(items))
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("400 must not be retried, got %d attempts", got)
	}
}

func TestSearchNotFoundNoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil || items != nil {
		t.Fatalf("404 must degrade to empty, got items=%v err=%v", items, err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("404 must not be retried, got %d attempts", got)
	}
}

func TestSearchUnauthorizedFatal(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("401 must not be retried, got %d attempts", got)
	}
}

func TestSearchRateLimitedBackoff(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	start := time.Now()
	_, err := testClient(t, server).Search(context.Background(), episodeQuery())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	// Two backoff waits between three attempts: base + 2*base.
	if elapsed < 30*time.Millisecond {
		t.Errorf("backoff too short: %v", elapsed)
	}
}

func TestSearchServerErrorDegradesToEmpty(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil {
		t.Fatalf("5xx must degrade to empty after retries, got %v", err)
	}
	if items != nil {
		t.Errorf("got %d items, want none", len(items))
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSearchServerErrorRecovers(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"total":1,"items":[{"id":"1","title":"Dark S01E01","season":1,"episode":1}]}`)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestSearchMalformedResponseDegradesToEmpty(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		fmt.Fprint(w, `{"total": not json`)
	}))
	defer server.Close()

	items, err := testClient(t, server).Search(context.Background(), episodeQuery())
	if err != nil || items != nil {
		t.Fatalf("parse errors must degrade to empty, got items=%v err=%v", items, err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("parse errors are transient, expected 3 attempts, got %d", got)
	}
}

func TestSearchCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Logger:     zerolog.New(zerolog.NewTestWriter(t)),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Search(ctx, episodeQuery())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation did not abort the backoff wait promptly: %v", elapsed)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/subtitles/42/download" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "payload-bytes")
	}))
	defer server.Close()

	client := testClient(t, server)
	item := RawResultItem{ID: "42"}

	data, err := client.Download(context.Background(), client.ItemDownloadURL(&item))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "payload-bytes" {
		t.Errorf("got %q", data)
	}
}

func TestDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(t, server)
	if _, err := client.Download(context.Background(), server.URL+"/nope"); err == nil {
		t.Fatal("expected an error for status 403")
	}
}

func TestItemPageURL(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := testClient(t, server)

	explicit := RawResultItem{ID: "9", PageURL: "https://example.com/page/9"}
	if got := client.ItemPageURL(&explicit); got != "https://example.com/page/9" {
		t.Errorf("explicit page url not preserved: %q", got)
	}

	derived := RawResultItem{ID: "9"}
	want := server.URL + "/api/subtitles/9"
	if got := client.ItemPageURL(&derived); got != want {
		t.Errorf("derived page url = %q, want %q", got, want)
	}
}

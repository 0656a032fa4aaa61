package pipeline

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/begum-kara/webrank/rank"
)

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<html><body><main>
		<p>welcome to the hub page about gophers</p>
		<a href="/burrow">burrow</a> <a href="/diet">diet</a>
	</main></body></html>`))
	mux.HandleFunc("/burrow", page(`<html><body><main>
		<p>gophers dig burrows in soft soil</p>
		<a href="/">home</a>
	</main></body></html>`))
	mux.HandleFunc("/diet", page(`<html><body><main>
		<p>gophers eat roots and vegetables</p>
		<a href="/">home</a> <a href="/burrow">burrow</a>
	</main></body></html>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildOpts(t *testing.T, srv *httptest.Server) Options {
	return Options{
		Seed:     srv.URL + "/",
		MaxPages: 10,
		Workers:  2,
		DataDir:  t.TempDir(),
		Client:   srv.Client(),
	}
}

func TestBuildEndToEnd(t *testing.T) {
	srv := testSite(t)
	opts := buildOpts(t, srv)

	corpus, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(corpus.Pages) != 3 {
		t.Errorf("expected 3 pages, got %d", len(corpus.Pages))
	}
	if corpus.EdgeCount != 5 {
		t.Errorf("expected 5 unique edges, got %d", corpus.EdgeCount)
	}

	// Rank scores sum to 1 over kept records.
	var sum float64
	for _, r := range corpus.Records {
		sum += r.Score
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("rank scores sum to %v, want 1", sum)
	}

	// All three artifacts exist and are non-empty.
	for _, name := range []string{PagesFile, EdgesFile, PagerankFile} {
		st, err := os.Stat(filepath.Join(opts.DataDir, name))
		if err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		} else if st.Size() == 0 {
			t.Errorf("artifact %s is empty", name)
		}
	}

	resp, err := corpus.Search("burrows soil", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count == 0 || resp.Results[0].URL != srv.URL+"/burrow" {
		t.Errorf("expected the burrow page first, got %+v", resp)
	}
	if resp.Results[0].Snippet == "" {
		t.Error("expected a snippet")
	}
}

func TestBuildThenLoad(t *testing.T) {
	srv := testSite(t)
	opts := buildOpts(t, srv)
	if _, err := Build(context.Background(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	corpus, err := Load(opts.DataDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := corpus.Search("vegetables", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count == 0 || resp.Results[0].URL != srv.URL+"/diet" {
		t.Errorf("expected the diet page, got %+v", resp)
	}
}

func TestBuildNoLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>a dead end</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := Build(context.Background(), Options{
		Seed: srv.URL + "/", MaxPages: 5, Workers: 1, DataDir: t.TempDir(), Client: srv.Client(),
	})
	if err == nil || !strings.Contains(err.Error(), "no crawlable links") {
		t.Errorf("expected a no-links error, got %v", err)
	}
}

func TestRankFromSeed(t *testing.T) {
	srv := testSite(t)
	result, err := RankFromSeed(context.Background(), RankRequest{
		URL:      srv.URL + "/",
		MaxPages: 10,
		TopK:     10,
		Workers:  2,
	}, rank.PowerRanker{}, srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PageCount != 3 {
		t.Errorf("expected 3 nodes, got %d", result.PageCount)
	}
	if result.EdgeCount != 5 {
		t.Errorf("expected 5 unique edges, got %d", result.EdgeCount)
	}
	if len(result.Nodes) != result.PageCount {
		t.Errorf("nodes/page_count mismatch: %d vs %d", len(result.Nodes), result.PageCount)
	}
	if len(result.Edges) != result.EdgeCount {
		t.Errorf("edges/edge_count mismatch: %d vs %d", len(result.Edges), result.EdgeCount)
	}
	for i, p := range result.Pages {
		if p.Rank != i+1 {
			t.Errorf("rank positions must be 1-based and sequential, got %+v", result.Pages)
			break
		}
	}
	// The hub is linked from both other pages and must rank first.
	if result.Pages[0].URL != srv.URL+"/" {
		t.Errorf("expected the hub first, got %+v", result.Pages[0])
	}
}

func TestRankFromSeedNoLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := RankFromSeed(context.Background(), RankRequest{URL: srv.URL + "/"}, rank.PowerRanker{}, srv.Client())
	if err == nil {
		t.Error("expected error when the crawl finds no links")
	}
}

func TestBuildHonorsContext(t *testing.T) {
	srv := testSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := buildOpts(t, srv)
	opts.MaxPages = 100
	start := time.Now()
	if _, err := Build(ctx, opts); err == nil {
		t.Error("expected error from canceled context")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("canceled build should return promptly")
	}
}

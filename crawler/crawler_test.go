package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testSite serves a small fixed site: / links to /a, /b and an
// off-site URL; /a links to /b; /b is a leaf.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<html><body>
		<p>root page about cats</p>
		<a href="/a">a</a>
		<a href="/b#frag">b</a>
		<a href="https://elsewhere.example.com/x">ext</a>
		<a href="mailto:x@y.z">mail</a>
	</body></html>`))
	mux.HandleFunc("/a", page(`<html><body><p>page a about dogs</p><a href="/b">b</a></body></html>`))
	mux.HandleFunc("/b", page(`<html><body><p>page b about birds</p></body></html>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func crawlOpts(srv *httptest.Server) Options {
	return Options{
		MaxPages: 10,
		Workers:  3,
		Delay:    time.Millisecond,
		Client:   srv.Client(),
	}
}

func TestCrawlVisitsSameDomainOnly(t *testing.T) {
	srv := testSite(t)
	res, err := Crawl(context.Background(), srv.URL+"/", crawlOpts(srv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d: %+v", len(res.Pages), res.Pages)
	}
	for u := range res.Visited {
		if !strings.HasPrefix(u, srv.URL) {
			t.Errorf("visited off-site url %q", u)
		}
	}
	for u := range res.URLToID {
		if !strings.HasPrefix(u, srv.URL) {
			t.Errorf("assigned id to off-site url %q", u)
		}
	}
	for _, e := range res.Edges {
		if !strings.HasPrefix(e.From, srv.URL) || !strings.HasPrefix(e.To, srv.URL) {
			t.Errorf("edge escapes the domain: %+v", e)
		}
	}
}

func TestCrawlDeduplicatesByCanonicalURL(t *testing.T) {
	srv := testSite(t)
	res, err := Crawl(context.Background(), srv.URL+"/", crawlOpts(srv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// /b is linked twice (once with a fragment); it must be visited
	// and recorded once.
	b := srv.URL + "/b"
	count := 0
	for _, p := range res.Pages {
		if p.URL == b {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one page record for %q, got %d", b, count)
	}
	if !res.Visited[b] {
		t.Errorf("expected %q visited", b)
	}
	if len(res.Edges) != 3 {
		t.Errorf("expected 3 edges, got %d: %+v", len(res.Edges), res.Edges)
	}
}

func TestCrawlBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		// Every page links to ten fresh pages.
		fmt.Fprint(w, "<html><body>")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, `<a href="%sp%d">l</a>`, r.URL.Path, i)
		}
		fmt.Fprint(w, "</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := Crawl(context.Background(), srv.URL+"/", Options{
		MaxPages: 7,
		Workers:  3,
		Delay:    time.Millisecond,
		Client:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Visited) > 7 {
		t.Errorf("budget exceeded: visited %d > 7", len(res.Visited))
	}
	if len(res.Pages) > 7 {
		t.Errorf("more pages than budget: %d", len(res.Pages))
	}
}

func TestCrawlSkipsBadResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/missing">x</a><a href="/plain">y</a></body></html>`)
	})
	mux.HandleFunc("/missing", http.NotFound)
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "not html")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := Crawl(context.Background(), srv.URL+"/", Options{
		MaxPages: 10, Workers: 2, Delay: time.Millisecond, Client: srv.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Rejected URLs still count as visited but yield no page record.
	if !res.Visited[srv.URL+"/missing"] || !res.Visited[srv.URL+"/plain"] {
		t.Errorf("rejected urls should stay visited: %v", res.Visited)
	}
	if len(res.Pages) != 1 {
		t.Errorf("expected 1 page, got %d", len(res.Pages))
	}
}

func TestCrawlLanguageFilter(t *testing.T) {
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<html lang="en"><body>english root <a href="/de">de</a></body></html>`))
	mux.HandleFunc("/de", page(`<html lang="de"><body>deutsche seite <a href="/hidden">h</a></body></html>`))
	mux.HandleFunc("/hidden", page(`<html lang="en"><body>reachable only through the german page</body></html>`))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := Crawl(context.Background(), srv.URL+"/", Options{
		MaxPages: 10, Workers: 2, TargetLang: "en", Delay: time.Millisecond, Client: srv.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Pages) != 1 || res.Pages[0].URL != srv.URL+"/" {
		t.Fatalf("expected only the english root indexed, got %+v", res.Pages)
	}
	if !res.Visited[srv.URL+"/de"] {
		t.Error("german page should still count as visited")
	}
	if res.Visited[srv.URL+"/hidden"] {
		t.Error("outlinks of the german page must not be expanded")
	}
}

func TestCrawlInvalidSeed(t *testing.T) {
	if _, err := Crawl(context.Background(), "not a url", Options{}); err == nil {
		t.Error("expected error for invalid seed")
	}
	if _, err := Crawl(context.Background(), "ftp://example.com/", Options{}); err == nil {
		t.Error("expected error for non-http seed")
	}
}

func TestCrawlIDsAreDenseAndStable(t *testing.T) {
	srv := testSite(t)
	res, err := Crawl(context.Background(), srv.URL+"/", crawlOpts(srv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for _, id := range res.URLToID {
		if id < 0 || id >= len(res.URLToID) {
			t.Errorf("id %d out of dense range [0,%d)", id, len(res.URLToID))
		}
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	for _, p := range res.Pages {
		if res.URLToID[p.URL] != p.ID {
			t.Errorf("page id %d disagrees with table %d for %q", p.ID, res.URLToID[p.URL], p.URL)
		}
	}
}

/*
 * Crawls same-domain pages breadth-first from a seed URL, extracting
 * page text and the link graph that feeds the ranker and the index.
 */

package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/begum-kara/webrank/extract"
	"github.com/begum-kara/webrank/urlutil"
)

const (
	// DefaultUserAgent is a desktop browser UA; some sites serve
	// stripped-down or error pages to obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MAX_BODY_BYTES caps response bodies; anything larger is skipped.
	MAX_BODY_BYTES = 2 << 20

	fetchTimeout = 2 * time.Second
	defaultDelay = 100 * time.Millisecond
)

// Page is one visited page with its extracted text. Text may be empty
// when extraction found no content.
type Page struct {
	ID   int    `json:"id"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Edge is a link between two normalized URLs. Duplicates are recorded
// as-is; the graph materializer deduplicates.
type Edge struct {
	From string
	To   string
}

// Options configures a crawl.
type Options struct {
	// MaxPages bounds how many URLs are visited (fetch attempted).
	// Visited-but-rejected pages still count.
	MaxPages int
	// Workers is the number of concurrent fetches per batch.
	Workers int
	// TargetLang, when set, drops pages whose declared language does
	// not start with this prefix: they stay visited but are neither
	// indexed nor expanded.
	TargetLang string
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// Delay is the politeness pause between fetch batches.
	Delay time.Duration
	// Client overrides the shared HTTP client (tests).
	Client *http.Client
}

// Result is everything a crawl produced.
type Result struct {
	// Pages in first-visit order.
	Pages []Page
	// Edges as (source URL, target URL) pairs, in discovery order.
	Edges []Edge
	// URLToID assigns dense ids in first-observation order, covering
	// both visited pages and pure link targets.
	URLToID map[string]int
	// Visited is the set of URLs a fetch was attempted for.
	Visited map[string]bool
}

type fetched struct {
	url  string
	body []byte
	skip string
	err  error
}

// Crawl runs a bounded, polite, same-domain BFS from seed.
//
// Fetches run in parallel batches of up to Workers requests, but all
// bookkeeping (visited set, id table, pages, edges, frontier) is
// mutated only here in the control loop, so batch results integrate in
// a serialized order. Per-URL failures are logged and swallowed; the
// only fatal errors are an invalid seed and cancellation of ctx.
func Crawl(ctx context.Context, seed string, opts Options) (*Result, error) {
	seed, err := urlutil.ParseSeed(seed)
	if err != nil {
		return nil, err
	}
	su, _ := url.Parse(seed)
	base := urlutil.BaseDomain(su.Hostname())

	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultDelay
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	limiter := rate.NewLimiter(rate.Every(opts.Delay), 1)

	res := &Result{
		URLToID: map[string]int{},
		Visited: map[string]bool{},
	}
	frontier := []string{seed}

	for len(frontier) > 0 && len(res.Visited) < opts.MaxPages {
		// Pop a batch of distinct, unvisited URLs and mark them
		// visited up front so a URL is fetched exactly once per run.
		batch := make([]string, 0, opts.Workers)
		for len(frontier) > 0 && len(batch) < opts.Workers && len(res.Visited) < opts.MaxPages {
			u := frontier[0]
			frontier = frontier[1:]
			if res.Visited[u] {
				continue
			}
			res.Visited[u] = true
			batch = append(batch, u)
		}
		if len(batch) == 0 {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		log.Printf("Visiting %d urls (%d/%d)", len(batch), len(res.Visited), opts.MaxPages)

		results := make([]fetched, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, u := range batch {
			i, u := i, u
			g.Go(func() error {
				results[i] = fetchURL(gctx, client, u, opts.UserAgent)
				return nil
			})
		}
		g.Wait()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for _, f := range results {
			res.integrate(f, base, opts.TargetLang, &frontier)
		}
	}

	return res, nil
}

// fetchURL downloads one URL. It classifies unusable responses as skips
// rather than errors; both are swallowed by the control loop.
func fetchURL(ctx context.Context, client *http.Client, u, userAgent string) fetched {
	f := fetched{url: u}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		f.err = err
		return f
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		f.err = err
		return f
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.skip = fmt.Sprintf("status %d", resp.StatusCode)
		return f
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		f.skip = fmt.Sprintf("content type %q", ct)
		return f
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MAX_BODY_BYTES+1))
	if err != nil {
		f.err = err
		return f
	}
	if len(body) > MAX_BODY_BYTES {
		f.skip = "body too large"
		return f
	}
	f.body = body
	return f
}

// integrate folds one fetch result into the crawl state: id assignment,
// page record, edge records, and frontier growth. Only the control loop
// calls this.
func (res *Result) integrate(f fetched, base, targetLang string, frontier *[]string) {
	if f.err != nil {
		log.Printf("Request failed for %q: %v", f.url, f.err)
		return
	}
	if f.skip != "" {
		log.Printf("Skipping %q: %s", f.url, f.skip)
		return
	}

	ex, err := extract.Text(bytes.NewReader(f.body))
	if err != nil {
		log.Printf("Parse failed for %q: %v", f.url, err)
		return
	}

	// Off-language pages stay visited but are neither indexed nor
	// expanded.
	if targetLang != "" && ex.Lang != "" && !strings.HasPrefix(ex.Lang, targetLang) {
		log.Printf("Skipping %q: language %q", f.url, ex.Lang)
		return
	}

	id, ok := res.URLToID[f.url]
	if !ok {
		id = len(res.URLToID)
		res.URLToID[f.url] = id
	}
	res.Pages = append(res.Pages, Page{ID: id, URL: f.url, Text: ex.Text})

	for _, href := range anchorHrefs(f.body) {
		target := resolveLink(f.url, href)
		if target == "" || !urlutil.Crawlable(target) {
			continue
		}
		if !urlutil.SameDomain(target, base) {
			continue
		}
		if _, ok := res.URLToID[target]; !ok {
			res.URLToID[target] = len(res.URLToID)
		}
		res.Edges = append(res.Edges, Edge{From: f.url, To: target})
		if !res.Visited[target] {
			*frontier = append(*frontier, target)
		}
	}
}

// anchorHrefs returns the raw href of every anchor in the document.
func anchorHrefs(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key == "href" && a.Val != "" {
					hrefs = append(hrefs, a.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return hrefs
}

// resolveLink resolves href against the page URL and normalizes it.
func resolveLink(pageURL, href string) string {
	b, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return urlutil.Normalize(b.ResolveReference(ref).String())
}

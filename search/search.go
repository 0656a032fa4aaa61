// Package search serves ranked queries by blending TF-IDF cosine
// similarity with min-max-normalized PageRank.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/begum-kara/webrank/crawler"
	"github.com/begum-kara/webrank/index"
	"github.com/begum-kara/webrank/rank"
	"github.com/begum-kara/webrank/urlutil"
)

const (
	// Blend weights. TF-IDF carries relevance, PageRank nudges
	// well-linked pages up.
	tfidfWeight    = 0.8
	pagerankWeight = 0.2

	// DefaultSnippetLen is the snippet window size in runes.
	DefaultSnippetLen = 220

	defaultTopK = 10
)

// Result is one blended search hit, shaped for the query API.
type Result struct {
	URL           string  `json:"url"`
	Snippet       string  `json:"snippet"`
	TFIDFScore    float64 `json:"tfidf_score"`
	PagerankScore float64 `json:"pagerank_score"`
	CombinedScore float64 `json:"combined_score"`
}

// Response is the full answer to one query.
type Response struct {
	Query   string   `json:"query"`
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

// Engine is the immutable blended-search state. Build it once with
// NewEngine; Search is safe for concurrent use afterwards.
type Engine struct {
	idx    *index.Index
	pages  map[string]crawler.Page
	prRaw  map[string]float64
	prNorm map[string]float64
}

// NewEngine dedupes pages by normalized URL (longer text wins), builds
// and finalizes the TF-IDF index over them, and precomputes the
// normalized rank vector. Rank records may be empty; pages whose URL
// has no rank score blend with pagerank 0.
func NewEngine(pages []crawler.Page, records []rank.Record) (*Engine, error) {
	byURL := make(map[string]crawler.Page, len(pages))
	order := make([]string, 0, len(pages))
	for _, p := range pages {
		u := urlutil.Normalize(p.URL)
		if prev, ok := byURL[u]; ok {
			if len(p.Text) <= len(prev.Text) {
				continue
			}
		} else {
			order = append(order, u)
		}
		p.URL = u
		byURL[u] = p
	}

	ix := index.New()
	for _, u := range order {
		if err := ix.Add(u, byURL[u].Text); err != nil {
			return nil, err
		}
	}
	if err := ix.Finalize(); err != nil {
		return nil, err
	}

	normalized := make([]rank.Record, len(records))
	for i, rec := range records {
		rec.URL = urlutil.Normalize(rec.URL)
		normalized[i] = rec
	}
	raw := rank.ByURL(normalized)

	return &Engine{
		idx:    ix,
		pages:  byURL,
		prRaw:  raw,
		prNorm: rank.MinMax(raw),
	}, nil
}

// Search over-fetches 3*topK TF-IDF candidates, blends each with its
// normalized PageRank score, and returns the topK by combined score
// with query snippets attached.
func (e *Engine) Search(q string, topK int) (*Response, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	hits, err := e.idx.Search(q, 3*topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		page, ok := e.pages[h.DocID]
		if !ok {
			continue
		}
		combined := tfidfWeight*h.Score + pagerankWeight*e.prNorm[h.DocID]
		results = append(results, Result{
			URL:           h.DocID,
			Snippet:       Snippet(page.Text, q, DefaultSnippetLen),
			TFIDFScore:    h.Score,
			PagerankScore: e.prRaw[h.DocID],
			CombinedScore: combined,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return &Response{Query: q, Count: len(results), Results: results}, nil
}

// Pages returns the number of deduped pages behind the engine.
func (e *Engine) Pages() int { return len(e.pages) }

// Ranked returns the number of URLs with a PageRank score.
func (e *Engine) Ranked() int { return len(e.prRaw) }

// Snippet returns a window of text around the earliest occurrence of
// any query term. When no term occurs, the head of the text is
// returned, with an ellipsis if truncated. Windowing is rune-based so
// multibyte text never gets cut mid-character.
func Snippet(text, query string, maxLen int) string {
	if text == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultSnippetLen
	}

	lowered := strings.ToLower(text)
	pos := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lowered, term); idx >= 0 && (pos < 0 || idx < pos) {
			pos = idx
		}
	}

	runes := []rune(text)
	if pos < 0 {
		if len(runes) <= maxLen {
			return text
		}
		return string(runes[:maxLen]) + "…"
	}

	start := utf8.RuneCountInString(lowered[:pos]) - maxLen/3
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
	}
	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "… " + snippet
	}
	if end < len(runes) {
		snippet = snippet + " …"
	}
	return snippet
}

// Package index implements an inverted-index TF-IDF retrieval engine
// with cosine-similarity scoring.
//
// An Index is append-only until Finalize, which computes IDF values and
// document norms and freezes the postings; after that it is immutable
// and safe for concurrent Search calls.
package index

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// State errors. Callers distinguish them with errors.Is.
var (
	ErrNotFinalized = errors.New("index: search before finalize")
	ErrFinalized    = errors.New("index: already finalized")
	ErrNoDocuments  = errors.New("index: no documents to finalize")
)

// tokenRE matches Unicode word-character runs. Go's \w is ASCII-only,
// so the class is spelled out.
var tokenRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize splits text into lowercased word tokens.
func Tokenize(text string) []string {
	tokens := tokenRE.FindAllString(text, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// Hit is one search result.
type Hit struct {
	DocID string
	Score float64
}

// Index is the TF-IDF inverted index.
type Index struct {
	// postings holds term -> doc -> weight. Weights are raw term
	// frequencies while building and tf*idf after Finalize.
	postings  map[string]map[string]float64
	df        map[string]int
	idf       map[string]float64
	norms     map[string]float64
	docs      int
	finalized bool
}

// New returns an empty index in the building state.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]float64),
		df:       make(map[string]int),
		idf:      make(map[string]float64),
	}
}

// Add ingests one document. Documents that tokenize to nothing are
// ignored. Adding after Finalize is a state error.
func (ix *Index) Add(docID, text string) error {
	if ix.finalized {
		return ErrFinalized
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	ix.docs++

	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	for term, freq := range tf {
		p := ix.postings[term]
		if p == nil {
			p = make(map[string]float64)
			ix.postings[term] = p
		}
		p[docID] = freq
		ix.df[term]++
	}
	return nil
}

// Finalize computes smoothed IDF values, rewrites posting weights to
// tf*idf, and precomputes document norms. Requires at least one
// document; finalizing twice is a state error.
func (ix *Index) Finalize() error {
	if ix.finalized {
		return ErrFinalized
	}
	if ix.docs == 0 {
		return ErrNoDocuments
	}

	normSq := make(map[string]float64)
	for term, posting := range ix.postings {
		idf := math.Log(float64(1+ix.docs)/float64(1+ix.df[term])) + 1.0
		ix.idf[term] = idf
		for doc, tf := range posting {
			w := tf * idf
			posting[doc] = w
			normSq[doc] += w * w
		}
	}
	ix.norms = make(map[string]float64, len(normSq))
	for doc, sq := range normSq {
		if sq > 0 {
			ix.norms[doc] = math.Sqrt(sq)
		} else {
			ix.norms[doc] = 1.0
		}
	}
	ix.finalized = true
	return nil
}

// Search returns the k documents most cosine-similar to the query,
// sorted by score descending with ties broken by doc id. Query terms
// absent from the vocabulary are skipped; an empty query returns an
// empty result. Searching before Finalize is a state error.
func (ix *Index) Search(query string, k int) ([]Hit, error) {
	if !ix.finalized {
		return nil, ErrNotFinalized
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	qtf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		qtf[t]++
	}
	qw := make(map[string]float64, len(qtf))
	var qNormSq float64
	for term, freq := range qtf {
		idf, ok := ix.idf[term]
		if !ok {
			continue
		}
		w := freq * idf
		qw[term] = w
		qNormSq += w * w
	}
	qNorm := 1.0
	if qNormSq > 0 {
		qNorm = math.Sqrt(qNormSq)
	}

	dot := make(map[string]float64)
	for term, w := range qw {
		for doc, dw := range ix.postings[term] {
			dot[doc] += w * dw
		}
	}

	hits := make([]Hit, 0, len(dot))
	for doc, d := range dot {
		hits = append(hits, Hit{DocID: doc, Score: d / (qNorm * ix.norms[doc])})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Docs returns the number of indexed (non-empty) documents.
func (ix *Index) Docs() int { return ix.docs }

// Finalized reports whether the index accepts queries.
func (ix *Index) Finalized() bool { return ix.finalized }

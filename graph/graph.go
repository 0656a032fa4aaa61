// Package graph materializes crawl output into the files the ranker and
// the search state consume: pages.json and edges.txt.
package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/begum-kara/webrank/crawler"
)

// WritePages writes the page records as a pretty-printed JSON array in
// first-visit order.
func WritePages(w io.Writer, pages []crawler.Page) error {
	if pages == nil {
		pages = []crawler.Page{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(pages)
}

// WriteEdges maps edge endpoints through urlToID and writes one
// "src dst" line per unique edge, in first-occurrence order. Self-loops
// and edges with an unmapped endpoint are dropped. Returns the number
// of lines written.
func WriteEdges(w io.Writer, edges []crawler.Edge, urlToID map[string]int) (int, error) {
	bw := bufio.NewWriter(w)
	seen := make(map[[2]int]struct{}, len(edges))
	n := 0
	for _, e := range edges {
		src, ok := urlToID[e.From]
		if !ok {
			continue
		}
		dst, ok := urlToID[e.To]
		if !ok {
			continue
		}
		if src == dst {
			continue
		}
		key := [2]int{src, dst}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, err := fmt.Fprintf(bw, "%d %d\n", src, dst); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// SavePages writes pages.json to path.
func SavePages(path string, pages []crawler.Page) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePages(f, pages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveEdges writes edges.txt to path and returns the unique edge count.
func SaveEdges(path string, edges []crawler.Edge, urlToID map[string]int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := WriteEdges(f, edges, urlToID)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

// LoadPages reads a pages.json written by SavePages.
func LoadPages(path string) ([]crawler.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pages []crawler.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pages, nil
}

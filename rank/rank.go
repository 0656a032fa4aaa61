// Package rank turns raw ranker output into per-URL PageRank records
// and provides the rank vector used to blend search results.
//
// The ranker itself is a pluggable collaborator (see Ranker): anything
// that maps an edge file to "node N : score" text lines works, whether
// an in-process power iteration or an external binary.
package rank

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// lineRE matches ranker output lines like "node 157 : 0.0013602537".
// Everything else in the output is ignored.
var lineRE = regexp.MustCompile(`node\s+(\d+)\s*:\s*([0-9.eE+-]+)`)

// Record is one ranked node. After Parse, scores over all records sum
// to 1.
type Record struct {
	ID    int     `json:"id"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Stats summarizes a Parse run.
type Stats struct {
	Parsed  int
	Kept    int
	Dropped int
}

// Parse extracts (node, score) pairs from ranker output, keeps those
// whose id maps to a known URL, renormalizes the surviving scores to
// sum to 1, and sorts descending (ties by id).
//
// It fails when the output contains no parsable entries, or when none
// of the parsed nodes joins to a URL.
func Parse(r io.Reader, idToURL map[int]string) ([]Record, Stats, error) {
	var st Stats
	var kept []Record

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		m := lineRE.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		st.Parsed++
		url, ok := idToURL[id]
		if !ok {
			st.Dropped++
			continue
		}
		kept = append(kept, Record{ID: id, URL: url, Score: score})
	}
	if err := sc.Err(); err != nil {
		return nil, st, err
	}
	if st.Parsed == 0 {
		return nil, st, errors.New("no pagerank entries found in ranker output")
	}
	if len(kept) == 0 {
		return nil, st, errors.New("all pagerank nodes were dropped: no matching page ids")
	}
	st.Kept = len(kept)

	var total float64
	for _, rec := range kept {
		total += rec.Score
	}
	if total > 0 {
		for i := range kept {
			kept[i].Score /= total
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	return kept, st, nil
}

// ByURL collapses records into a url -> raw score map. Should two
// records share a URL, the higher score wins.
func ByURL(records []Record) map[string]float64 {
	byURL := make(map[string]float64, len(records))
	for _, rec := range records {
		if prev, ok := byURL[rec.URL]; ok && rec.Score <= prev {
			continue
		}
		byURL[rec.URL] = rec.Score
	}
	return byURL
}

// MinMax rescales raw scores to [0, 1] for blending with TF-IDF.
func MinMax(byURL map[string]float64) map[string]float64 {
	if len(byURL) == 0 {
		return map[string]float64{}
	}
	first := true
	var lo, hi float64
	for _, s := range byURL {
		if first {
			lo, hi = s, s
			first = false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1.0
	}
	norm := make(map[string]float64, len(byURL))
	for u, s := range byURL {
		norm[u] = (s - lo) / span
	}
	return norm
}

// Save writes records to pagerank.json in the order given; it does not
// sort or renormalize them. Parse output is already sorted by score
// descending with scores summing to 1.
func Save(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a pagerank.json written by Save.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Package pipeline drives the full corpus build:
// crawl -> pages.json + edges.txt -> ranker -> pagerank.json ->
// TF-IDF index -> blended search engine.
//
// Each step is idempotent given the previous step's output; re-running
// with the same seed need not produce an identical page set (the
// network is not deterministic) but always produces a valid corpus.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/begum-kara/webrank/crawler"
	"github.com/begum-kara/webrank/graph"
	"github.com/begum-kara/webrank/rank"
	"github.com/begum-kara/webrank/search"
	"github.com/begum-kara/webrank/storage"
)

// Artifact file names under DataDir; also the archive keys in Store.
const (
	PagesFile    = "pages.json"
	EdgesFile    = "edges.txt"
	PagerankFile = "pagerank.json"
)

// Options configures a corpus build.
type Options struct {
	Seed      string
	MaxPages  int
	Workers   int
	Lang      string
	UserAgent string
	DataDir   string
	// Ranker defaults to the in-process power iteration.
	Ranker rank.Ranker
	// Client is passed through to the crawler (tests).
	Client *http.Client
	// Store, when non-nil, receives a copy of the three artifacts.
	Store storage.Storage
}

// Corpus is a built, queryable corpus.
type Corpus struct {
	Pages     []crawler.Page
	Records   []rank.Record
	Engine    *search.Engine
	EdgeCount int
}

// Search answers a blended query against the corpus.
func (c *Corpus) Search(q string, topK int) (*search.Response, error) {
	return c.Engine.Search(q, topK)
}

// Build runs the pipeline end to end and returns the queryable corpus.
func Build(ctx context.Context, opts Options) (*Corpus, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Ranker == nil {
		opts.Ranker = rank.PowerRanker{}
	}
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, err
	}

	res, err := crawler.Crawl(ctx, opts.Seed, crawler.Options{
		MaxPages:   opts.MaxPages,
		Workers:    opts.Workers,
		TargetLang: opts.Lang,
		UserAgent:  opts.UserAgent,
		Client:     opts.Client,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Pages visited: %d", len(res.Visited))
	log.Printf("Unique pages: %d", len(res.URLToID))
	log.Printf("Edges collected: %d", len(res.Edges))

	pagesPath := filepath.Join(opts.DataDir, PagesFile)
	if err := graph.SavePages(pagesPath, res.Pages); err != nil {
		return nil, fmt.Errorf("write %s: %w", pagesPath, err)
	}
	edgesPath := filepath.Join(opts.DataDir, EdgesFile)
	edgeCount, err := graph.SaveEdges(edgesPath, res.Edges, res.URLToID)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", edgesPath, err)
	}
	log.Printf("Wrote %d unique edges to %s", edgeCount, edgesPath)
	if edgeCount == 0 {
		return nil, errors.New("no crawlable links found from this seed")
	}

	out, err := opts.Ranker.Rank(ctx, edgesPath)
	if err != nil {
		return nil, fmt.Errorf("ranker: %w", err)
	}

	// Join via the page records: pure link targets have no text and no
	// entry in pages.json, so their rank mass is dropped and the
	// survivors renormalize to 1.
	idToURL := make(map[int]string, len(res.Pages))
	for _, p := range res.Pages {
		idToURL[p.ID] = p.URL
	}
	records, stats, err := rank.Parse(bytes.NewReader(out), idToURL)
	if err != nil {
		return nil, fmt.Errorf("rank ingest: %w", err)
	}
	log.Printf("Parsed %d rank entries, kept %d, dropped %d", stats.Parsed, stats.Kept, stats.Dropped)

	pagerankPath := filepath.Join(opts.DataDir, PagerankFile)
	if err := rank.Save(pagerankPath, records); err != nil {
		return nil, fmt.Errorf("write %s: %w", pagerankPath, err)
	}

	engine, err := search.NewEngine(res.Pages, records)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	if opts.Store != nil {
		if err := archive(opts.Store, opts.DataDir); err != nil {
			return nil, fmt.Errorf("archive corpus: %w", err)
		}
		log.Printf("Archived corpus artifacts")
	}

	return &Corpus{
		Pages:     res.Pages,
		Records:   records,
		Engine:    engine,
		EdgeCount: edgeCount,
	}, nil
}

// archive copies the three artifact files into the storage back-end
// under their file names.
func archive(st storage.Storage, dataDir string) error {
	for _, name := range []string{PagesFile, EdgesFile, PagerankFile} {
		v, err := os.ReadFile(filepath.Join(dataDir, name))
		if err != nil {
			return err
		}
		if err := st.Write(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Load rebuilds a queryable corpus from a DataDir written by Build.
// A missing pagerank.json is tolerated: searches then blend with rank
// scores of zero.
func Load(dataDir string) (*Corpus, error) {
	pages, err := graph.LoadPages(filepath.Join(dataDir, PagesFile))
	if err != nil {
		return nil, err
	}
	records, err := rank.Load(filepath.Join(dataDir, PagerankFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Warning: %s not found, pagerank scores will be zero", PagerankFile)
		records = nil
	}
	engine, err := search.NewEngine(pages, records)
	if err != nil {
		return nil, err
	}
	return &Corpus{Pages: pages, Records: records, Engine: engine}, nil
}

// LoadFromStore rebuilds a corpus from an artifact archive.
func LoadFromStore(st storage.Storage) (*Corpus, error) {
	pagesData, err := st.Read(PagesFile)
	if err != nil {
		return nil, err
	}
	var pages []crawler.Page
	if err := json.Unmarshal(pagesData, &pages); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PagesFile, err)
	}
	var records []rank.Record
	if rankData, err := st.Read(PagerankFile); err == nil {
		if err := json.Unmarshal(rankData, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", PagerankFile, err)
		}
	} else {
		log.Printf("Warning: %s not in store, pagerank scores will be zero", PagerankFile)
	}
	engine, err := search.NewEngine(pages, records)
	if err != nil {
		return nil, err
	}
	return &Corpus{Pages: pages, Records: records, Engine: engine}, nil
}

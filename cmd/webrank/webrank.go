/*
 * Builds a search corpus from a seed URL: crawls the site, writes
 * pages.json and edges.txt, runs PageRank, and optionally answers a
 * query against the freshly built index.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/begum-kara/webrank/config"
	"github.com/begum-kara/webrank/pipeline"
	"github.com/begum-kara/webrank/rank"
	"github.com/begum-kara/webrank/storage"
)

// Config flags
var configFile = flag.String("config", "", "A YAML file with pipeline parameters. Flags override it.")
var dataDir = flag.String("data", "", "Directory for pages.json, edges.txt and pagerank.json.")
var storeTarget = flag.String("store", "", "Optional storage target to archive the corpus, e.g. bbolt:corpus.db:webrank.")

// Crawl flags
var seedURL = flag.String("url", "", "Seed URL to crawl from.")
var maxPages = flag.Int("max-pages", 0, "Max URLs to visit.")
var workers = flag.Int("workers", 0, "Max concurrent fetches.")
var lang = flag.String("lang", "", "Optional language code to restrict pages (e.g. en or de).")

// Ranker flags
var rankerBin = flag.String("ranker-bin", "", "External ranker binary; empty runs the built-in power iteration.")
var damping = flag.Float64("damping", 0, "PageRank damping factor.")
var tol = flag.Float64("tol", 0, "PageRank convergence tolerance.")
var maxIter = flag.Int("max-iter", 0, "Max PageRank iterations.")
var topK = flag.Int("top-k", 0, "Top-k nodes the ranker reports.")

// Query flags
var query = flag.String("query", "", "Optional query to run against the built corpus.")
var queryK = flag.Int("query-k", 10, "Result count for --query.")

func main() {
	log.SetOutput(os.Stderr)
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		in, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatalf("Could not open config file %q: %v", *configFile, err)
		}
		if cfg, err = config.Load(in); err != nil {
			log.Fatalf("Could not parse config file %q: %v", *configFile, err)
		}
	}
	applyFlags(cfg)

	if cfg.Seed == "" {
		log.Fatal("Flag --url (or seed: in --config) is required")
	}

	var ranker rank.Ranker
	if cfg.Ranker.Bin != "" {
		ranker = rank.ExecRanker{
			Bin:     cfg.Ranker.Bin,
			Damping: cfg.Ranker.Damping,
			Tol:     cfg.Ranker.Tol,
			MaxIter: cfg.Ranker.MaxIter,
			TopK:    cfg.Ranker.TopK,
		}
	} else {
		ranker = rank.PowerRanker{
			Damping: cfg.Ranker.Damping,
			Tol:     cfg.Ranker.Tol,
			MaxIter: cfg.Ranker.MaxIter,
			TopK:    cfg.Ranker.TopK,
		}
	}

	var store storage.Storage
	if cfg.Store != "" {
		store = storage.New(cfg.Store)
		defer store.Close()
	}

	corpus, err := pipeline.Build(context.Background(), pipeline.Options{
		Seed:      cfg.Seed,
		MaxPages:  cfg.MaxPages,
		Workers:   cfg.Workers,
		Lang:      cfg.Lang,
		UserAgent: cfg.UserAgent,
		DataDir:   cfg.DataDir,
		Ranker:    ranker,
		Store:     store,
	})
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	log.Printf("Corpus ready: %d pages, %d edges, %d ranked nodes",
		len(corpus.Pages), corpus.EdgeCount, len(corpus.Records))

	if *query != "" {
		resp, err := corpus.Search(*query, *queryK)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		out, _ := json.MarshalIndent(resp, "", "  ")
		os.Stdout.Write(append(out, '\n'))
	}
}

// applyFlags lets explicit flags win over the config file.
func applyFlags(cfg *config.Config) {
	if *seedURL != "" {
		cfg.Seed = *seedURL
	}
	if *maxPages > 0 {
		cfg.MaxPages = *maxPages
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *lang != "" {
		cfg.Lang = *lang
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *storeTarget != "" {
		cfg.Store = *storeTarget
	}
	if *rankerBin != "" {
		cfg.Ranker.Bin = *rankerBin
	}
	if *damping > 0 {
		cfg.Ranker.Damping = *damping
	}
	if *tol > 0 {
		cfg.Ranker.Tol = *tol
	}
	if *maxIter > 0 {
		cfg.Ranker.MaxIter = *maxIter
	}
	if *topK > 0 {
		cfg.Ranker.TopK = *topK
	}
}

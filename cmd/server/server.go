/*
 * A simple web server answering blended TF-IDF + PageRank queries over
 * a prebuilt corpus, plus an online crawl-and-rank endpoint.
 */

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/begum-kara/webrank/pipeline"
	"github.com/begum-kara/webrank/rank"
	"github.com/begum-kara/webrank/storage"
)

var port = flag.Int("port", 8080, "TCP port to listen on.")
var dataDir = flag.String("data", "", "Corpus directory with pages.json and pagerank.json.")
var storeTarget = flag.String("store", "", "Storage target to load the corpus from instead of --data.")
var rankerBin = flag.String("ranker-bin", "", "External ranker binary for /api/pagerank/url; empty runs the built-in power iteration.")

type searchServer struct {
	mu     sync.RWMutex
	corpus *pipeline.Corpus
}

func (s *searchServer) get() *pipeline.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSearch serves GET /api/search?query=...&top_k=N.
func (s *searchServer) handleSearch(w http.ResponseWriter, req *http.Request) {
	corpus := s.get()
	if corpus == nil {
		writeError(w, http.StatusServiceUnavailable, "search index not initialized")
		return
	}
	q := req.URL.Query().Get("query")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	topK := 10
	if v := req.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "top_k must be an integer in [1, 50]")
			return
		}
		topK = n
	}
	resp, err := corpus.Search(q, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRankURL serves POST /api/pagerank/url with a JSON RankRequest.
func (s *searchServer) handleRankURL(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body pipeline.RankRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var ranker rank.Ranker
	if *rankerBin != "" {
		ranker = rank.ExecRanker{Bin: *rankerBin, TopK: body.TopK}
	} else {
		ranker = rank.PowerRanker{TopK: body.TopK}
	}

	result, err := pipeline.RankFromSeed(req.Context(), body, ranker, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *searchServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *searchServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	corpus := s.get()
	status := map[string]any{
		"has_index":    corpus != nil,
		"num_pages":    0,
		"num_pagerank": 0,
	}
	if corpus != nil {
		status["num_pages"] = corpus.Engine.Pages()
		status["num_pagerank"] = corpus.Engine.Ranked()
	}
	writeJSON(w, http.StatusOK, status)
}

func loadCorpus() *pipeline.Corpus {
	if *storeTarget != "" {
		st := storage.New(*storeTarget)
		defer st.Close()
		corpus, err := pipeline.LoadFromStore(st)
		if err != nil {
			log.Printf("Error loading corpus from store %q: %v", *storeTarget, err)
			return nil
		}
		return corpus
	}
	if *dataDir != "" {
		corpus, err := pipeline.Load(*dataDir)
		if err != nil {
			log.Printf("Error loading corpus from %q: %v", *dataDir, err)
			return nil
		}
		return corpus
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)

	if *dataDir == "" && *storeTarget == "" {
		log.Fatal("Must specify a corpus with --data= or --store=. /api/search will not work without one.")
	}

	srv := &searchServer{corpus: loadCorpus()}
	if c := srv.get(); c != nil {
		log.Printf("Loaded %d pages, %d PageRank scores.", c.Engine.Pages(), c.Engine.Ranked())
	}

	http.HandleFunc("/api/search", srv.handleSearch)
	http.HandleFunc("/api/pagerank/url", srv.handleRankURL)
	http.HandleFunc("/health", srv.handleHealth)
	http.HandleFunc("/debug/search-status", srv.handleStatus)

	log.Println("Starting server on port", *port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), nil))
}

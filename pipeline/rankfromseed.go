package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/begum-kara/webrank/crawler"
	"github.com/begum-kara/webrank/graph"
	"github.com/begum-kara/webrank/rank"
)

// RankRequest parameterizes an online crawl-and-rank run.
type RankRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
	TopK     int    `json:"top_k"`
	Lang     string `json:"lang"`
	Workers  int    `json:"workers"`
}

// RankedPage is one node of the result, in rank order.
type RankedPage struct {
	NodeID int     `json:"node_id"`
	URL    string  `json:"url"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
}

// Node maps an assigned id back to its URL.
type Node struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// GraphEdge is one unique id-edge of the crawled graph.
type GraphEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// RankResult is the full answer of RankFromSeed, shaped so a frontend
// can render both the ranking and the graph.
type RankResult struct {
	StartURL  string       `json:"start_url"`
	PageCount int          `json:"page_count"`
	EdgeCount int          `json:"edge_count"`
	Pages     []RankedPage `json:"pages"`
	Nodes     []Node       `json:"nodes"`
	Edges     []GraphEdge  `json:"edges"`
}

// RankFromSeed crawls a small graph from req.URL, runs the ranker over
// it, and returns ranked nodes plus the graph itself. Unlike Build it
// keeps pure link targets in the universe: every assigned id appears in
// Nodes whether or not its page was fetched.
func RankFromSeed(ctx context.Context, req RankRequest, ranker rank.Ranker, client *http.Client) (*RankResult, error) {
	if req.MaxPages <= 0 {
		req.MaxPages = 30
	}
	if req.TopK <= 0 {
		req.TopK = 20
	}
	if req.Workers <= 0 {
		req.Workers = 5
	}
	if ranker == nil {
		ranker = rank.PowerRanker{}
	}

	res, err := crawler.Crawl(ctx, req.URL, crawler.Options{
		MaxPages:   req.MaxPages,
		Workers:    req.Workers,
		TargetLang: req.Lang,
		Client:     client,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Edges) == 0 {
		return nil, errors.New("no crawlable links found from this url")
	}

	tmp, err := os.CreateTemp("", "webrank-edges-*.txt")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	edgeCount, err := graph.WriteEdges(tmp, res.Edges, res.URLToID)
	if err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if edgeCount == 0 {
		return nil, errors.New("crawled pages but found no internal links to rank")
	}

	out, err := ranker.Rank(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("ranker: %w", err)
	}

	// Here the join table covers every assigned id, not just fetched
	// pages: the graph view wants link-only nodes too.
	idToURL := make(map[int]string, len(res.URLToID))
	for u, id := range res.URLToID {
		idToURL[id] = u
	}
	records, _, err := rank.Parse(bytes.NewReader(out), idToURL)
	if err != nil {
		return nil, fmt.Errorf("rank ingest: %w", err)
	}

	top := records
	if len(top) > req.TopK {
		top = top[:req.TopK]
	}
	pages := make([]RankedPage, len(top))
	for i, rec := range top {
		pages[i] = RankedPage{NodeID: rec.ID, URL: rec.URL, Rank: i + 1, Score: rec.Score}
	}

	nodes := make([]Node, 0, len(idToURL))
	for id, u := range idToURL {
		nodes = append(nodes, Node{ID: id, URL: u})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]GraphEdge, 0, edgeCount)
	seen := make(map[[2]int]struct{}, edgeCount)
	for _, e := range res.Edges {
		src, ok := res.URLToID[e.From]
		if !ok {
			continue
		}
		dst, ok := res.URLToID[e.To]
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
		edges = append(edges, GraphEdge{From: src, To: dst})
	}

	return &RankResult{
		StartURL:  req.URL,
		PageCount: len(res.URLToID),
		EdgeCount: edgeCount,
		Pages:     pages,
		Nodes:     nodes,
		Edges:     edges,
	}, nil
}

package rank

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Ranker maps an edge file ("src dst" per line) to raw ranker output
// text ("node N : score" lines, possibly with other noise).
type Ranker interface {
	Rank(ctx context.Context, edgesPath string) ([]byte, error)
}

// PowerRanker computes PageRank in-process with the classic power
// iteration x <- d*M'x + (1-d)/N + d*dangling/N, stopping when the L1
// delta drops below Tol or MaxIter is reached.
type PowerRanker struct {
	Damping float64 // default 0.85
	Tol     float64 // default 1e-8
	MaxIter int     // default 100
	TopK    int     // max "node N : score" lines; <=0 means all
}

type edge struct {
	src, dst int
}

// Rank reads the edge file and emits the rank vector in the same text
// format the external GPU ranker produces, so both go through Parse.
func (pr PowerRanker) Rank(ctx context.Context, edgesPath string) ([]byte, error) {
	damping := pr.Damping
	if damping <= 0 || damping >= 1 {
		damping = 0.85
	}
	tol := pr.Tol
	if tol <= 0 {
		tol = 1e-8
	}
	maxIter := pr.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	f, err := os.Open(edgesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	edges, n, err := readEdges(f)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("edge file %s has no edges", edgesPath)
	}

	scores, iters := powerIterate(ctx, edges, n, damping, tol, maxIter)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})
	if pr.TopK > 0 && len(order) > pr.TopK {
		order = order[:pr.TopK]
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PageRank converged after %d iterations (n=%d)\n", iters, n)
	for _, id := range order {
		fmt.Fprintf(&buf, "node %d : %.10f\n", id, scores[id])
	}
	return buf.Bytes(), nil
}

// readEdges parses "src dst" lines. Node count is max id + 1: every id
// from 0 to the largest id seen is a node, including ids that appear on
// no edge (they rank as dangling nodes).
func readEdges(r io.Reader) ([]edge, int, error) {
	var edges []edge
	maxID := -1
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		src, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		dst, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		if src < 0 || dst < 0 {
			continue
		}
		edges = append(edges, edge{src: src, dst: dst})
		if src > maxID {
			maxID = src
		}
		if dst > maxID {
			maxID = dst
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return edges, maxID + 1, nil
}

func powerIterate(ctx context.Context, edges []edge, n int, damping, tol float64, maxIter int) ([]float64, int) {
	outDeg := make([]int, n)
	for _, e := range edges {
		outDeg[e.src]++
	}

	x := make([]float64, n)
	next := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}

	iters := 0
	for iter := 0; iter < maxIter; iter++ {
		if ctx.Err() != nil {
			break
		}
		iters = iter + 1

		var dangling float64
		for i := 0; i < n; i++ {
			if outDeg[i] == 0 {
				dangling += x[i]
			}
		}
		base := (1.0-damping)/float64(n) + damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for _, e := range edges {
			next[e.dst] += damping * x[e.src] / float64(outDeg[e.src])
		}

		var delta float64
		for i := range x {
			d := next[i] - x[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		x, next = next, x
		if delta < tol {
			break
		}
	}
	return x, iters
}

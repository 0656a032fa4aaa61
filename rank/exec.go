package rank

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ExecRanker invokes an external ranker binary with the argument
// convention of the GPU kernel:
//
//	bin <edges> <output> <damping> <tol> <max_iter> <top_k>
//
// and returns the contents of the output file.
type ExecRanker struct {
	Bin     string
	Damping float64
	Tol     float64
	MaxIter int
	TopK    int
}

func (er ExecRanker) Rank(ctx context.Context, edgesPath string) ([]byte, error) {
	if er.Bin == "" {
		return nil, fmt.Errorf("ranker binary not configured")
	}
	damping := er.Damping
	if damping <= 0 || damping >= 1 {
		damping = 0.85
	}
	tol := er.Tol
	if tol <= 0 {
		tol = 1e-8
	}
	maxIter := er.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	topK := er.TopK
	if topK <= 0 {
		topK = 100000
	}

	dir, err := os.MkdirTemp("", "webrank-rank")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "output.txt")

	cmd := exec.CommandContext(ctx, er.Bin,
		edgesPath,
		outPath,
		strconv.FormatFloat(damping, 'g', -1, 64),
		strconv.FormatFloat(tol, 'g', -1, 64),
		strconv.Itoa(maxIter),
		strconv.Itoa(topK),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ranker %s failed: %w: %s", er.Bin, err, out)
	}
	return os.ReadFile(outPath)
}

package rank

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExecRanker(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script ranker stub")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "fakerank.sh")
	script := `#!/bin/sh
echo "node 0 : 0.5" > "$2"
echo "args $3 $4 $5 $6" >> "$2"
`
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	edges := writeEdgeFile(t, "0 1\n")

	out, err := ExecRanker{Bin: bin}.Rank(context.Background(), edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "node 0 : 0.5") {
		t.Errorf("missing rank line in %q", out)
	}
	if !strings.Contains(string(out), "args 0.85 1e-08 100 100000") {
		t.Errorf("unexpected ranker argv: %q", out)
	}
}

func TestExecRankerMissingBinary(t *testing.T) {
	edges := writeEdgeFile(t, "0 1\n")
	if _, err := (ExecRanker{Bin: "/does/not/exist"}).Rank(context.Background(), edges); err == nil {
		t.Error("expected error for missing binary")
	}
	if _, err := (ExecRanker{}).Rank(context.Background(), edges); err == nil {
		t.Error("expected error for unconfigured binary")
	}
}

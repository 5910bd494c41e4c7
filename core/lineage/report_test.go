package lineage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	perrors "github.com/cran/provTraceR/core/errors"
	"github.com/cran/provTraceR/core/provenance"
)

func TestBuildScenario(t *testing.T) {
	l, err := Build(context.Background(), scenarioAB(), Options{ValidateOrder: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := strings.Join([]string{
		"SCRIPTS:",
		"1   /work/a.R",
		"2   /work/b.R",
		"",
		"INPUTS:",
		"1   /work/a.csv",
		"",
		"OUTPUTS:",
		"1   /work/b.csv",
		"2   /work/c.csv",
		"",
		"EXCHANGES:",
		"1 > 2   /work/b.csv",
		"",
	}, "\n")
	if diff := cmp.Diff(want, l.Render(false)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOrderError(t *testing.T) {
	records := scenarioAB()
	records[0], records[1] = records[1], records[0]

	l, err := Build(context.Background(), records, Options{ValidateOrder: true})
	if !errors.Is(err, perrors.ErrOrder) {
		t.Fatalf("expected ErrOrder, got %v", err)
	}
	if l != nil {
		t.Error("no lineage should be returned on error")
	}

	if _, err := Build(context.Background(), records, Options{}); err != nil {
		t.Errorf("order is not checked when disabled: %v", err)
	}
}

func TestRenderSingleScript(t *testing.T) {
	l, err := Build(context.Background(), scenarioAB()[:1], Options{ValidateOrder: true})
	if err != nil {
		t.Fatal(err)
	}
	got := l.Render(false)
	if strings.Contains(got, HeaderExchanges) {
		t.Errorf("single-script report must not contain %s:\n%s", HeaderExchanges, got)
	}
	want := "SCRIPTS:\n1   /work/a.R\n\nINPUTS:\n1   /work/a.csv\n\nOUTPUTS:\n1   /work/b.csv\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderNone(t *testing.T) {
	records := []*provenance.Record{
		record("/work/a.R", "t1", nil, nil),
		record("/work/b.R", "t2", nil, nil),
	}
	l, err := Build(context.Background(), records, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "SCRIPTS:\n1   /work/a.R\n2   /work/b.R\n\nINPUTS:\nNone\n\nOUTPUTS:\nNone\n\nEXCHANGES:\nNone\n"
	if diff := cmp.Diff(want, l.Render(false)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDetails(t *testing.T) {
	records := []*provenance.Record{
		record("/work/a.R", "2024-01-01T10.00.00UTC", nil, []provenance.Entity{{
			ID: "rdt:d2", Name: "out.csv", Type: provenance.TypeFile, Location: "/work/out.csv",
			Hash: "hb", Timestamp: "2024-01-01T10.00.05UTC", Value: "data/2-out.csv",
		}}),
		record("/work/b.R", "2024-01-01T11.00.00UTC", []provenance.Entity{{
			ID: "rdt:d1", Name: "in.csv", Type: provenance.TypeFile, Location: "/work/in.csv",
			Hash: "hb", Timestamp: "2024-01-01T10.30.00UTC", Value: "data/1-in.csv",
		}}, nil),
	}
	l, err := Build(context.Background(), records, Options{ValidateOrder: true})
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"SCRIPTS:",
		"1   /work/a.R",
		"   timestamp: 2024-01-01T08.00.00UTC",
		"   executed: 2024-01-01T10.00.00UTC",
		"   hash: s-a (md5)",
		"   saved copy: /prov/prov_a/scripts/a.R",
		"2   /work/b.R",
		"   timestamp: 2024-01-01T08.00.00UTC",
		"   executed: 2024-01-01T11.00.00UTC",
		"   hash: s-b (md5)",
		"   saved copy: /prov/prov_b/scripts/b.R",
		"",
		"INPUTS:",
		"None",
		"",
		"OUTPUTS:",
		"1   /work/out.csv",
		"   timestamp: 2024-01-01T10.00.05UTC",
		"   hash: hb (md5)",
		"   saved copy: /prov/prov_a/data/2-out.csv",
		"",
		"EXCHANGES:",
		"1 > 2   /work/in.csv",
		"      from /work/out.csv",
		"   timestamp: 2024-01-01T10.30.00UTC",
		"   hash: hb (md5)",
		"   producer copy: /prov/prov_a/data/2-out.csv",
		"   consumer copy: /prov/prov_b/data/1-in.csv",
		"",
	}, "\n")
	if diff := cmp.Diff(want, l.Render(true)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildLiveCheck(t *testing.T) {
	dir := t.TempDir()
	aPath, aHash := writeFile(t, dir, "a.csv", "alpha")
	bPath, bHash := writeFile(t, dir, "b.csv", "beta")
	cPath, _ := writeFile(t, dir, "c.csv", "gamma, edited")
	scriptPath, scriptHash := writeFile(t, dir, "a.R", "read.csv('a.csv')")

	rec1 := record(scriptPath, "2024-01-01T10.00.00UTC",
		[]provenance.Entity{
			file("rdt:d1", aPath, aHash),
			{ID: "rdt:d2", Name: "http://example.org/data", Type: provenance.TypeURL, Hash: "hu"},
		},
		[]provenance.Entity{file("rdt:d3", bPath, bHash)})
	rec1.Environment.ScriptHash = scriptHash
	rec2 := record(provenance.Console, "2024-01-01T11.00.00UTC",
		[]provenance.Entity{file("rdt:d1", bPath, bHash)},
		[]provenance.Entity{
			file("rdt:d2", cPath, "stale"),
			file("rdt:d3", filepath.Join(dir, "d.csv"), "hd"),
		})
	rec2.Environment.ScriptHash = ""

	fs := &stubFS{}
	fs.install(t)

	l, err := Build(context.Background(), []*provenance.Record{rec1, rec2}, Options{
		ValidateOrder: true,
		Reconciler:    &Reconciler{Enabled: true, Workers: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"SCRIPTS:",
		"1 : " + scriptPath,
		"2   console",
		"",
		"INPUTS:",
		"1 : " + aPath,
		"1   http://example.org/data",
		"",
		"OUTPUTS:",
		"1 : " + bPath,
		"2 + " + cPath,
		"2 - " + filepath.Join(dir, "d.csv"),
		"",
		"EXCHANGES:",
		"1 > 2 : " + bPath,
		"",
	}, "\n")
	if diff := cmp.Diff(want, l.Render(false)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	for _, p := range fs.touched {
		if strings.Contains(p, "example.org") || p == provenance.Console {
			t.Errorf("remote or console entry was probed: %s", p)
		}
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orig := osStat
	defer func() { osStat = orig }()
	osStat = func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }

	_, err := Build(ctx, scenarioAB(), Options{Reconciler: &Reconciler{Enabled: true}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

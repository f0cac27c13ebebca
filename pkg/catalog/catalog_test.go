package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/battkit/ocvd/pkg/ocv"
)

func writeTestTable(t *testing.T, dir, name string, header bool, f func(float64) float64) {
	t.Helper()
	content := ""
	if header {
		content = "lithiation,ocv\n"
	}
	for i := 0; i <= 100; i++ {
		s := float64(i) / 100
		content += fmt.Sprintf("%g,%g\n", s, f(s))
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeTestProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testCatalogDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestTable(t, dir, "pe.csv", true, func(s float64) float64 { return 4.2 - s })
	writeTestTable(t, dir, "ne.csv", false, func(s float64) float64 { return 1.2 - 0.5*s })
	writeTestProfile(t, dir, "cell-a.json", `{
		"id": "cell-a",
		"name": "Test cell A",
		"files": {"positive_table": "pe.csv", "negative_table": "ne.csv"},
		"endpoints": {"sol_pe_eoc": 0.1, "sol_pe_eod": 0.9, "sol_ne_eoc": 0.9, "sol_ne_eod": 0.1},
		"grid": {"num_points": 301}
	}`)
	writeTestProfile(t, dir, "cell-b.json", `{
		"id": "cell-b",
		"files": {"positive_table": "pe.csv", "negative_table": "ne.csv"},
		"endpoints": {"sol_pe_eoc": 0.0, "sol_pe_eod": 1.0, "sol_ne_eoc": 1.0, "sol_ne_eod": 0.0}
	}`)
	return dir
}

func TestProfilesSortedAndSkipsUnreadable(t *testing.T) {
	dir := testCatalogDir(t)
	writeTestProfile(t, dir, "broken.json", `{not json`)
	writeTestProfile(t, dir, "noid.json", `{"name": "missing id"}`)

	c := New(dir)
	profiles, err := c.Profiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[0].ID != "cell-a" || profiles[1].ID != "cell-b" {
		t.Errorf("got order %s, %s, want cell-a, cell-b", profiles[0].ID, profiles[1].ID)
	}
}

func TestGet(t *testing.T) {
	c := New(testCatalogDir(t))

	p, found, err := c.Get("cell-a")
	if err != nil || !found {
		t.Fatalf("Get(cell-a) = (%t, %v)", found, err)
	}
	if p.Name != "Test cell A" || p.NumPointsOrDefault(1001) != 301 {
		t.Errorf("unexpected profile: %+v", p)
	}

	if _, found, err := c.Get("nope"); err != nil || found {
		t.Errorf("Get(nope) = (%t, %v), want not found", found, err)
	}
}

func TestNumPointsOrDefault(t *testing.T) {
	if got := (Profile{}).NumPointsOrDefault(1001); got != 1001 {
		t.Errorf("got %d, want the fallback 1001", got)
	}
	p := Profile{Grid: &ProfileGrid{NumPoints: 501}}
	if got := p.NumPointsOrDefault(1001); got != 501 {
		t.Errorf("got %d, want the profile value 501", got)
	}
}

func TestBuildPristine(t *testing.T) {
	c := New(testCatalogDir(t))
	p, _, err := c.Get("cell-a")
	if err != nil {
		t.Fatal(err)
	}

	pr, err := c.BuildPristine(p, 201)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.ProfileID != "cell-a" || len(pr.OcvCell) != 201 {
		t.Errorf("got profile %s with %d points", pr.ProfileID, len(pr.OcvCell))
	}
	if pr.VMax <= pr.VMin {
		t.Errorf("VMax %g not above VMin %g", pr.VMax, pr.VMin)
	}
}

func TestBuildPristineMissingTable(t *testing.T) {
	dir := testCatalogDir(t)
	c := New(dir)
	p := Profile{
		ID:        "bad",
		Files:     ProfileFiles{PositiveTable: "missing.csv", NegativeTable: "ne.csv"},
		Endpoints: ocv.Endpoints{SolPeEod: 1, SolNeEoc: 1},
	}
	if _, err := c.BuildPristine(p, 101); err == nil {
		t.Error("expected error for a missing electrode table")
	}
}

func TestCacheInvalidatesOnModTime(t *testing.T) {
	dir := testCatalogDir(t)
	c := New(dir)

	p, _, err := c.Get("cell-a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.BuildPristine(p, 101); err != nil {
		t.Fatal(err)
	}

	// Replace a table with unusable content and force a different mtime so
	// the cache entry goes stale.
	path := filepath.Join(dir, "pe.csv")
	if err := os.WriteFile(path, []byte("0.5,1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if _, err := c.BuildPristine(p, 101); err == nil {
		t.Error("expected rebuild to pick up the changed table and fail")
	}
}

func TestCacheServesUnchangedFiles(t *testing.T) {
	dir := testCatalogDir(t)
	c := New(dir)

	p1, _, err := c.Get("cell-a")
	if err != nil {
		t.Fatal(err)
	}
	p2, _, err := c.Get("cell-a")
	if err != nil {
		t.Fatal(err)
	}
	if p1.ID != p2.ID || p1.Name != p2.Name {
		t.Error("repeated reads of an unchanged profile disagree")
	}
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.csv")
	if err := os.WriteFile(path, []byte("soc,voltage\n0,4.2\n0.5,3.7\n1,3.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sol, ocvVals, err := readTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sol) != 3 || sol[1] != 0.5 || ocvVals[2] != 3.0 {
		t.Errorf("got %v / %v", sol, ocvVals)
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("0,4.2\nx,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readTable(bad); err == nil {
		t.Error("expected error for a non-numeric body row")
	}

	short := filepath.Join(dir, "short.csv")
	if err := os.WriteFile(short, []byte("0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readTable(short); err == nil {
		t.Error("expected error for a single-column row")
	}

	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readTable(empty); err == nil {
		t.Error("expected error for a header-only table")
	}
}

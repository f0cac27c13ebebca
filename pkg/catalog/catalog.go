// Package catalog serves the on-disk catalog of pristine half-cell
// profiles: JSON profile descriptors plus two-column CSV electrode tables.
// Loaded files are cached by (path, mtime), so edits on disk are picked up
// without restarting the daemon and unchanged files are never re-parsed.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battkit/ocvd/pkg/ocv"
)

// Profile describes one pristine cell configuration.
type Profile struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Files     ProfileFiles  `json:"files"`
	Endpoints ocv.Endpoints `json:"endpoints"`
	Grid      *ProfileGrid  `json:"grid,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
}

// ProfileFiles points at the electrode tables, relative to the catalog dir.
type ProfileFiles struct {
	PositiveTable string `json:"positive_table"`
	NegativeTable string `json:"negative_table"`
}

// ProfileGrid carries the profile's default grid size.
type ProfileGrid struct {
	NumPoints int `json:"num_points"`
}

// NumPointsOrDefault returns the profile's grid size, or fallback when the
// profile does not specify one.
func (p Profile) NumPointsOrDefault(fallback int) int {
	if p.Grid != nil && p.Grid.NumPoints > 0 {
		return p.Grid.NumPoints
	}
	return fallback
}

// Catalog reads profiles and tables from a directory. Safe for concurrent
// use; the cached state is the only shared resource and is read-mostly.
type Catalog struct {
	dir string

	mu       sync.RWMutex
	profiles map[string]profileEntry // keyed by file path
	tables   map[string]tableEntry   // keyed by file path
}

type profileEntry struct {
	modTime time.Time
	profile Profile
}

type tableEntry struct {
	modTime time.Time
	sol     []float64
	ocv     []float64
}

// New creates a catalog rooted at dir. The directory is scanned lazily on
// first use.
func New(dir string) *Catalog {
	return &Catalog{
		dir:      dir,
		profiles: make(map[string]profileEntry),
		tables:   make(map[string]tableEntry),
	}
}

// Dir returns the catalog root directory.
func (c *Catalog) Dir() string { return c.dir }

// Profiles returns every readable profile, sorted by id. Unreadable
// descriptor files are logged and skipped.
func (c *Catalog) Profiles() ([]Profile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog dir %q", c.dir)
	}

	var out []Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := c.profileFromFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			logrus.Warnf("skipping unreadable profile %s: %v", e.Name(), err)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get looks a profile up by id. The second return is false when no profile
// has that id.
func (c *Catalog) Get(id string) (Profile, bool, error) {
	profiles, err := c.Profiles()
	if err != nil {
		return Profile{}, false, err
	}
	for _, p := range profiles {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

// BuildPristine loads the profile's electrode tables and builds the
// pristine cell model on numPoints grid points.
func (c *Catalog) BuildPristine(p Profile, numPoints int) (*ocv.PristineCell, error) {
	solPE, ocvPE, err := c.table(c.resolve(p.Files.PositiveTable))
	if err != nil {
		return nil, errors.Wrapf(err, "profile %q positive table", p.ID)
	}
	solNE, ocvNE, err := c.table(c.resolve(p.Files.NegativeTable))
	if err != nil {
		return nil, errors.Wrapf(err, "profile %q negative table", p.ID)
	}
	return ocv.NewPristineCell(p.ID, solPE, ocvPE, solNE, ocvNE, p.Endpoints, numPoints)
}

func (c *Catalog) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

func (c *Catalog) profileFromFile(path string) (Profile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Profile{}, err
	}

	c.mu.RLock()
	cached, hit := c.profiles[path]
	c.mu.RUnlock()
	if hit && cached.modTime.Equal(info.ModTime()) {
		return cached.profile, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, errors.Wrap(err, "parsing profile descriptor")
	}
	if p.ID == "" {
		return Profile{}, errors.New("profile descriptor has no id")
	}

	c.mu.Lock()
	c.profiles[path] = profileEntry{modTime: info.ModTime(), profile: p}
	c.mu.Unlock()
	return p, nil
}

func (c *Catalog) table(path string) ([]float64, []float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	c.mu.RLock()
	cached, hit := c.tables[path]
	c.mu.RUnlock()
	if hit && cached.modTime.Equal(info.ModTime()) {
		return cached.sol, cached.ocv, nil
	}

	sol, ocvVals, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.tables[path] = tableEntry{modTime: info.ModTime(), sol: sol, ocv: ocvVals}
	c.mu.Unlock()
	return sol, ocvVals, nil
}

// Package pool is the file-based store of saved degradation results. Each
// record is one JSON file; the store never interprets solver details beyond
// the summary fields.
package pool

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battkit/ocvd/pkg/ocv"
)

// Record is one saved degradation result.
type Record struct {
	ID          string         `json:"id"`
	CreatedAt   string         `json:"created_at"`
	Label       string         `json:"label,omitempty"`
	PristineID  string         `json:"pristine_id"`
	Degradation ocv.Parameters `json:"degradation"`
	Solver      map[string]any `json:"solver,omitempty"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"created_at"`
	Label      string  `json:"label,omitempty"`
	PristineID string  `json:"pristine_id"`
	LLI        float64 `json:"lli"`
	LAMPE      float64 `json:"lam_pe"`
	LAMNE      float64 `json:"lam_ne"`
}

// Store reads and writes records under one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save persists rec, assigning a UUID and creation timestamp when absent,
// and returns the stored record.
func (s *Store) Save(rec Record) (Record, error) {
	if rec.PristineID == "" {
		return Record{}, errors.New("record has no pristine_id")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Record{}, errors.Wrapf(err, "creating pool dir %q", s.dir)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, errors.Wrap(err, "encoding record")
	}
	path := filepath.Join(s.dir, rec.ID+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return Record{}, errors.Wrapf(err, "writing record %q", path)
	}
	return rec, nil
}

// List returns summaries of every readable record, newest first.
// Unreadable files are logged and skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading pool dir %q", s.dir)
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			logrus.Warnf("skipping unreadable pool record %s: %v", e.Name(), err)
			continue
		}
		out = append(out, Summary{
			ID:         rec.ID,
			CreatedAt:  rec.CreatedAt,
			Label:      rec.Label,
			PristineID: rec.PristineID,
			LLI:        rec.Degradation.LLI,
			LAMPE:      rec.Degradation.LAMPE,
			LAMNE:      rec.Degradation.LAMNE,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ErrNotFound is returned by Load for unknown record ids.
var ErrNotFound = errors.New("pool record not found")

// Load returns the full record with the given id.
func (s *Store) Load(id string) (Record, error) {
	if id == "" || id != filepath.Base(id) || strings.Contains(id, "..") {
		return Record{}, errors.Errorf("invalid record id %q", id)
	}
	rec, err := s.read(filepath.Join(s.dir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *Store) read(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, errors.Wrapf(err, "decoding record %q", path)
	}
	return rec, nil
}

// Package artifact persists the winning formula and parameters as versioned
// algorithm records.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrNoRecord is returned by Latest when nothing has been saved yet
var ErrNoRecord = errors.New("no algorithm record")

const firstVersion = 10 // tenths

var fileRe = regexp.MustCompile(`^xgoals_algorithm_v(\d+)\.(\d)\.json$`)

// Record is one versioned algorithm snapshot
type Record struct {
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Formula     formula.ID         `json:"formula"`
	Description string             `json:"description,omitempty"`
	Parameters  formula.Parameters `json:"parameters"`
	AvgError    float64            `json:"avg_error"`
	Accuracy    float64            `json:"accuracy"`
	Scored      int                `json:"scored"`
	Session     string             `json:"session,omitempty"`
	Iteration   int                `json:"iteration,omitempty"`
}

// FileName returns the file a version is stored under
func FileName(version string) string {
	return "xgoals_algorithm_v" + version + ".json"
}

func formatVersion(tenths int) string {
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

func parseVersion(name string) (int, bool) {
	m := fileRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minor, _ := strconv.Atoi(m[2])
	return major*10 + minor, true
}

// Store keeps algorithm records in Dir
type Store struct {
	dir   string
	clock clockwork.Clock
}

// NewStore creates dir if needed
func NewStore(dir string, clock clockwork.Clock) (*Store, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create algorithm dir %s: %w", dir, err)
	}
	return &Store{dir: dir, clock: clock}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string {
	return s.dir
}

// NextVersion returns the first free version starting at 1.0, stepping by 0.1
func (s *Store) NextVersion() string {
	v := firstVersion
	for {
		version := formatVersion(v)
		if _, err := os.Stat(filepath.Join(s.dir, FileName(version))); os.IsNotExist(err) {
			return version
		}
		v++
	}
}

// Save assigns the next free version and timestamp to rec and writes it
func (s *Store) Save(rec Record) (Record, string, error) {
	rec.Version = s.NextVersion()
	rec.GeneratedAt = s.clock.Now()
	if rec.Description == "" {
		if f, ok := formula.Lookup(rec.Formula); ok {
			rec.Description = f.Description
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rec, "", fmt.Errorf("encode algorithm v%s: %w", rec.Version, err)
	}

	path := filepath.Join(s.dir, FileName(rec.Version))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return rec, "", fmt.Errorf("create algorithm v%s: %w", rec.Version, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return rec, "", fmt.Errorf("write algorithm v%s: %w", rec.Version, err)
	}
	if err := f.Close(); err != nil {
		return rec, "", fmt.Errorf("close algorithm v%s: %w", rec.Version, err)
	}

	log.Info().
		Str("version", rec.Version).
		Str("formula", string(rec.Formula)).
		Float64("avg_error", rec.AvgError).
		Str("file", path).
		Msg("Algorithm record saved")

	return rec, path, nil
}

// Latest returns the highest-version record, or ErrNoRecord
func (s *Store) Latest() (Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Record{}, fmt.Errorf("read algorithm dir: %w", err)
	}

	best, name := -1, ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if v, ok := parseVersion(e.Name()); ok && v > best {
			best, name = v, e.Name()
		}
	}
	if name == "" {
		return Record{}, ErrNoRecord
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", name, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return rec, nil
}

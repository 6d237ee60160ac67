// Package progress records optimizer iterations on disk and recovers the best
// result across all past sessions.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SessionLayout names session directories
const SessionLayout = "20060102_150405"

const iterationPrefix = "iteration_"

// IterationRecord is one optimizer iteration as written to disk. Error is nil
// when the iteration produced no finite score.
type IterationRecord struct {
	Timestamp  time.Time           `json:"timestamp"`
	Session    string              `json:"session"`
	Iteration  int                 `json:"iteration"`
	Formula    string              `json:"formula"`
	Error      *float64            `json:"error"`
	Accuracy   *float64            `json:"accuracy,omitempty"`
	Scored     int                 `json:"scored"`
	Skipped    int                 `json:"skipped"`
	Parameters *formula.Parameters `json:"parameters,omitempty"`
	Notes      string              `json:"notes,omitempty"`
}

// FromResult builds a record from an evaluation result
func FromResult(iteration int, res formula.Result, notes string) IterationRecord {
	params := res.Parameters
	rec := IterationRecord{
		Iteration:  iteration,
		Formula:    string(res.Formula),
		Scored:     res.Scored,
		Skipped:    res.Skipped,
		Parameters: &params,
		Notes:      notes,
	}
	if res.Finite() {
		avg, acc := res.AvgError, res.Accuracy
		rec.Error = &avg
		rec.Accuracy = &acc
	}
	return rec
}

// Tracker writes iteration records into one session directory
type Tracker struct {
	root    string
	session string
	dir     string
	clock   clockwork.Clock
}

// maxSessionSuffix bounds the sessions that can start within one second
const maxSessionSuffix = 100

// NewTracker opens a new session directory named after the current time.
// A session already started in the same second gets a _2, _3... suffix so
// concurrent runs never share a directory.
func NewTracker(root string, clock clockwork.Clock) (*Tracker, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir %s: %w", root, err)
	}

	base := clock.Now().Format(SessionLayout)
	session, dir := "", ""
	for n := 1; n <= maxSessionSuffix; n++ {
		session = base
		if n > 1 {
			session = base + "_" + strconv.Itoa(n)
		}
		dir = filepath.Join(root, session)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create progress session %s: %w", dir, err)
		}
		if n == maxSessionSuffix {
			return nil, fmt.Errorf("create progress session %s: too many sessions in one second", base)
		}
	}

	log.Info().Str("session", session).Str("dir", dir).Msg("Progress session started")

	return &Tracker{root: root, session: session, dir: dir, clock: clock}, nil
}

// Session returns the session name
func (t *Tracker) Session() string {
	return t.session
}

// Dir returns the session directory
func (t *Tracker) Dir() string {
	return t.dir
}

// Save writes rec as iteration_<n>.json and returns its path
func (t *Tracker) Save(rec IterationRecord) (string, error) {
	rec.Timestamp = t.clock.Now()
	rec.Session = t.session

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode iteration %d: %w", rec.Iteration, err)
	}

	path := filepath.Join(t.dir, fmt.Sprintf("%s%d.json", iterationPrefix, rec.Iteration))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write iteration %d: %w", rec.Iteration, err)
	}

	log.Debug().
		Str("session", t.session).
		Int("iteration", rec.Iteration).
		Str("formula", rec.Formula).
		Msg("Iteration saved")

	return path, nil
}

// Best is the lowest-error record found across sessions
type Best struct {
	Found      bool
	Formula    string
	Error      float64
	Parameters *formula.Parameters
	Session    string
	Iteration  int
	Source     string
}

// ScanStats counts what a scan skipped
type ScanStats struct {
	Files   int
	Invalid int // valid JSON lacking an error or formula
	Corrupt int // unreadable JSON
}

type scanRecord struct {
	Formula    *string             `json:"formula"`
	Error      *float64            `json:"error"`
	Iteration  int                 `json:"iteration"`
	Parameters *formula.Parameters `json:"parameters"`
}

// LoadBest scans root/<session>/iteration_*.json and returns the record with
// the strictly lowest error; the first one seen wins ties. Sessions are
// visited in name order and iterations in numeric order. Skipped files are
// counted, never fatal. With no valid record it returns Found=false and
// Error=+Inf.
func LoadBest(root string) (Best, ScanStats, error) {
	best := Best{Error: math.Inf(1)}
	var stats ScanStats

	sessions, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return best, stats, nil
	}
	if err != nil {
		return best, stats, fmt.Errorf("read progress dir %s: %w", root, err)
	}

	for _, s := range sessions {
		if !s.IsDir() {
			continue
		}
		dir := filepath.Join(root, s.Name())
		files, err := iterationFiles(dir)
		if err != nil {
			log.Warn().Err(err).Str("session", s.Name()).Msg("Skipping unreadable progress session")
			continue
		}

		for _, path := range files {
			stats.Files++
			data, err := os.ReadFile(path)
			if err != nil {
				stats.Corrupt++
				continue
			}

			var rec scanRecord
			if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
				stats.Corrupt++
				continue
			}
			if rec.Formula == nil || *rec.Formula == "" || rec.Error == nil {
				stats.Invalid++
				continue
			}

			if *rec.Error < best.Error {
				best = Best{
					Found:      true,
					Formula:    *rec.Formula,
					Error:      *rec.Error,
					Parameters: rec.Parameters,
					Session:    s.Name(),
					Iteration:  rec.Iteration,
					Source:     path,
				}
			}
		}
	}

	if stats.Invalid > 0 || stats.Corrupt > 0 {
		log.Warn().
			Int("files", stats.Files).
			Int("invalid", stats.Invalid).
			Int("corrupt", stats.Corrupt).
			Msg("Progress scan skipped records")
	}

	return best, stats, nil
}

func iterationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, iterationPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, iterationPrefix), ".json"))
		if err != nil {
			n = math.MaxInt
		}
		files = append(files, numbered{n: n, path: filepath.Join(dir, name)})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].n != files[j].n {
			return files[i].n < files[j].n
		}
		return files[i].path < files[j].path
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

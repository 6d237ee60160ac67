// Package store persists collected match bundles as one JSON file per fixture.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/rs/zerolog/log"
)

const filePrefix = "match_"

// LoadStats reports what a load found on disk
type LoadStats struct {
	Loaded  int
	Corrupt int // deleted while loading
}

// MatchStore keeps match_{date}_{fixture}.json files under Root
type MatchStore struct {
	Root string
}

// NewMatchStore creates the store directory if needed
func NewMatchStore(root string) (*MatchStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create match store %s: %w", root, err)
	}
	return &MatchStore{Root: root}, nil
}

// Path returns the file for a fixture on date
func (s *MatchStore) Path(date string, fixtureID int) string {
	return filepath.Join(s.Root, fmt.Sprintf("%s%s_%d.json", filePrefix, date, fixtureID))
}

// Exists reports whether the fixture is already stored
func (s *MatchStore) Exists(date string, fixtureID int) bool {
	_, err := os.Stat(s.Path(date, fixtureID))
	return err == nil
}

// Save writes the record indented, replacing any previous file
func (s *MatchStore) Save(date string, rec *models.MatchRecord) error {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode fixture %d: %w", rec.Fixture.ID, err)
	}

	path := s.Path(date, rec.Fixture.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write fixture %d: %w", rec.Fixture.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write fixture %d: %w", rec.Fixture.ID, err)
	}
	return nil
}

// LoadDate returns the stored records for date, ordered by file name
func (s *MatchStore) LoadDate(date string) ([]models.MatchRecord, LoadStats, error) {
	return s.load(filePrefix + date + "_*.json")
}

// LoadAll returns every stored record, ordered by file name
func (s *MatchStore) LoadAll() ([]models.MatchRecord, LoadStats, error) {
	return s.load(filePrefix + "*.json")
}

// load reads files matching pattern. Unreadable JSON is deleted so the
// fixture is fetched again on the next collection.
func (s *MatchStore) load(pattern string) ([]models.MatchRecord, LoadStats, error) {
	var stats LoadStats

	paths, err := filepath.Glob(filepath.Join(s.Root, pattern))
	if err != nil {
		return nil, stats, fmt.Errorf("list match files: %w", err)
	}
	sort.Strings(paths)

	records := make([]models.MatchRecord, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return records, stats, fmt.Errorf("read %s: %w", path, err)
		}

		var rec models.MatchRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("Corrupt match file, removing")
			stats.Corrupt++
			if rmErr := os.Remove(path); rmErr != nil {
				log.Error().Err(rmErr).Str("file", path).Msg("Failed to remove corrupt match file")
			}
			continue
		}
		records = append(records, rec)
	}
	stats.Loaded = len(records)

	return records, stats, nil
}

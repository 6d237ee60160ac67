package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id int) *models.MatchRecord {
	home, away := 2, 1
	return &models.MatchRecord{
		Fixture:   models.Fixture{ID: id, Venue: models.Venue{City: "Milano"}},
		Teams:     models.Teams{Home: models.TeamRef{ID: 1, Name: "Inter"}, Away: models.TeamRef{ID: 2, Name: "Milan"}},
		Goals:     models.Goals{Home: &home, Away: &away},
		HomeStats: json.RawMessage(`{"goals":{"for":{"average":{"home":"1.5"}}}}`),
		AwayStats: json.RawMessage(`{"goals":{}}`),
	}
}

func TestNewMatchStore_CreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "match_data")

	_, err := NewMatchStore(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMatchStore_SaveAndLoadDate(t *testing.T) {
	s, err := NewMatchStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("2025-03-01", record(20)))
	require.NoError(t, s.Save("2025-03-01", record(10)))
	require.NoError(t, s.Save("2025-03-02", record(30)))

	assert.FileExists(t, filepath.Join(s.Root, "match_2025-03-01_10.json"))
	assert.True(t, s.Exists("2025-03-02", 30))
	assert.False(t, s.Exists("2025-03-02", 10))

	recs, stats, err := s.LoadDate("2025-03-01")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 10, recs[0].Fixture.ID)
	assert.Equal(t, 20, recs[1].Fixture.ID)
	assert.Equal(t, LoadStats{Loaded: 2}, stats)
	assert.JSONEq(t, `{"goals":{"for":{"average":{"home":"1.5"}}}}`, string(recs[0].HomeStats))

	all, _, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMatchStore_SaveIsIndented(t *testing.T) {
	s, err := NewMatchStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save("2025-03-01", record(1)))

	data, err := os.ReadFile(s.Path("2025-03-01", 1))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"fixture\": {")
	assert.Contains(t, string(data), `"weather": {}`)
}

func TestMatchStore_CorruptFileDeleted(t *testing.T) {
	s, err := NewMatchStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save("2025-03-01", record(1)))

	corrupt := s.Path("2025-03-01", 2)
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"fixture": {"id": 2`), 0o644))

	recs, stats, err := s.LoadDate("2025-03-01")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, LoadStats{Loaded: 1, Corrupt: 1}, stats)
	assert.NoFileExists(t, corrupt)
}

func TestMatchStore_EmptyDate(t *testing.T) {
	s, err := NewMatchStore(t.TempDir())
	require.NoError(t, err)

	recs, stats, err := s.LoadDate("2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, stats.Loaded)
}

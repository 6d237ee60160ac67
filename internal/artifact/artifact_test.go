package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 2, 3, 30, 0, 0, time.UTC))
	s, err := NewStore(t.TempDir(), clock)
	require.NoError(t, err)
	return s, clock
}

func sample() Record {
	return Record{
		Formula:    formula.RelativeStrength,
		Parameters: formula.DefaultParameters(),
		AvgError:   0.8123,
		Accuracy:   41.5,
		Scored:     12,
	}
}

func TestStore_SaveAssignsSequentialVersions(t *testing.T) {
	s, _ := newStore(t)

	first, path, err := s.Save(sample())
	require.NoError(t, err)
	assert.Equal(t, "1.0", first.Version)
	assert.Equal(t, filepath.Join(s.Dir(), "xgoals_algorithm_v1.0.json"), path)
	assert.NotEmpty(t, first.Description)

	second, _, err := s.Save(sample())
	require.NoError(t, err)
	assert.Equal(t, "1.1", second.Version)
}

func TestStore_SaveSkipsExistingFiles(t *testing.T) {
	s, _ := newStore(t)
	for _, v := range []string{"1.0", "1.1", "1.2"} {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), FileName(v)), []byte(`{}`), 0o644))
	}

	rec, _, err := s.Save(sample())
	require.NoError(t, err)
	assert.Equal(t, "1.3", rec.Version)
}

func TestStore_VersionRollsIntoMajor(t *testing.T) {
	s, _ := newStore(t)
	for v := 10; v < 20; v++ {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), FileName(formatVersion(v))), []byte(`{}`), 0o644))
	}
	assert.Equal(t, "2.0", s.NextVersion())
}

func TestStore_SaveWritesRecord(t *testing.T) {
	s, clock := newStore(t)

	_, path, err := s.Save(sample())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, formula.RelativeStrength, rec.Formula)
	assert.Equal(t, formula.DefaultParameters(), rec.Parameters)
	assert.True(t, rec.GeneratedAt.Equal(clock.Now()))
}

func TestStore_Latest(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Latest()
	assert.True(t, errors.Is(err, ErrNoRecord))

	_, _, err = s.Save(sample())
	require.NoError(t, err)
	better := sample()
	better.AvgError = 0.6
	_, _, err = s.Save(better)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.json"), []byte(`x`), 0o644))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "1.1", latest.Version)
	assert.Equal(t, 0.6, latest.AvgError)
}

func TestParseVersion(t *testing.T) {
	v, ok := parseVersion("xgoals_algorithm_v12.3.json")
	require.True(t, ok)
	assert.Equal(t, 123, v)

	_, ok = parseVersion("xgoals_algorithm_v1.json")
	assert.False(t, ok)
	_, ok = parseVersion("algoritmo_xgoals_v1.0.py")
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	rec := sample()
	rec.Version = "1.4"
	rec.GeneratedAt = time.Date(2025, time.March, 2, 3, 30, 0, 0, time.UTC)
	rec.Session = "20250302_033000"
	rec.Iteration = 2

	out, err := Render(rec)
	require.NoError(t, err)
	assert.Contains(t, out, "xGoals Algorithm Version 1.4")
	assert.Contains(t, out, "Generated on: 2025-03-02 03:30:00")
	assert.Contains(t, out, "Formula: relative_strength")
	assert.Contains(t, out, "home_weight   0.60")
	assert.Contains(t, out, "average error 0.8123")
	assert.Contains(t, out, "accuracy      41.50%")
	assert.Contains(t, out, "session       20250302_033000 iteration 2")
}

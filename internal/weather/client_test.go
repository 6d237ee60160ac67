package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hourlyBody returns 24 hours where hour h has temperature h, precipitation
// h/10, wind h*2 and weather code 61 at hour 20.
func hourlyBody() string {
	var temps, precip, wind, codes []string
	for h := 0; h < 24; h++ {
		temps = append(temps, fmt.Sprintf("%d", h))
		precip = append(precip, fmt.Sprintf("%.1f", float64(h)/10))
		wind = append(wind, fmt.Sprintf("%d", h*2))
		code := "3"
		if h == 20 {
			code = "61"
		}
		codes = append(codes, code)
	}
	return fmt.Sprintf(`{"hourly":{"time":[],"temperature_2m":[%s],"precipitation":[%s],"windspeed_10m":[%s],"weathercode":[%s]}}`,
		strings.Join(temps, ","), strings.Join(precip, ","), strings.Join(wind, ","), strings.Join(codes, ","))
}

type fakeOpenMeteo struct {
	geocodeHits atomic.Int32
	archiveHits atomic.Int32
	found       bool
	archive     string
	lastDay     atomic.Value
}

func (f *fakeOpenMeteo) server(t *testing.T) (*httptest.Server, *Client) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeHits.Add(1)
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		if !f.found {
			_, _ = w.Write([]byte(`{"generationtime_ms":0.1}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"latitude":45.46,"longitude":9.19}]}`))
	})
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		f.archiveHits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, q.Get("start_date"), q.Get("end_date"))
		assert.Equal(t, hourlyVariables, q.Get("hourly"))
		assert.Equal(t, "Europe/Rome", q.Get("timezone"))
		assert.Equal(t, "45.46", q.Get("latitude"))
		f.lastDay.Store(q.Get("start_date"))
		_, _ = w.Write([]byte(f.archive))
	})

	srv := httptest.NewServer(mux)
	c := NewClient(Options{
		GeocodingURL: srv.URL + "/search",
		ArchiveURL:   srv.URL + "/archive",
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	})
	return srv, c
}

// 2025-03-01 20:45 Europe/Rome
var kickoff = time.Date(2025, time.March, 1, 19, 45, 0, 0, time.UTC).Unix()

func TestCleanCityName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ciudad de Córdoba, Provincia de Córdoba", "Cordoba,Argentina"},
		{"Capital Federal, Ciudad de Buenos Aires", "Buenos Aires,Argentina"},
		{"Junín, Provincia de Buenos Aires", "Junin,Argentina"},
		{"La Plata, Provincia de Buenos Aires", "La Plata,Argentina"},
		{"Milano, Lombardia", "Milano"},
		{"London", "London"},
		{" Rome , Lazio", "Rome"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCityName(tt.in), tt.in)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Clear sky", Describe(0))
	assert.Equal(t, "Thunderstorm with heavy hail", Describe(99))
	assert.Equal(t, UnclassifiedDescription, Describe(42))
}

func TestLookup_Success(t *testing.T) {
	fake := &fakeOpenMeteo{found: true, archive: hourlyBody()}
	srv, c := fake.server(t)
	defer srv.Close()

	sample := c.Lookup(context.Background(), 1001, "Milano, Lombardia", kickoff)

	require.False(t, sample.IsEmpty())
	assert.Equal(t, "Milano, Lombardia", sample.City)
	require.NotNil(t, sample.Temperature)
	assert.Equal(t, 20.0, *sample.Temperature)
	assert.Equal(t, 2.0, *sample.Precipitation)
	assert.Equal(t, 40.0, *sample.WindSpeed)
	assert.Equal(t, 61, *sample.WeatherCode)
	assert.Equal(t, "Light rain", sample.Description)
	assert.Equal(t, kickoff, sample.Timestamp)
	assert.Equal(t, "2025-03-01", fake.lastDay.Load())
}

func TestLookup_GeocodeMemoized(t *testing.T) {
	fake := &fakeOpenMeteo{found: true, archive: hourlyBody()}
	srv, c := fake.server(t)
	defer srv.Close()

	c.Lookup(context.Background(), 1, "Milano, Lombardia", kickoff)
	c.Lookup(context.Background(), 2, "Milano", kickoff)

	assert.Equal(t, int32(1), fake.geocodeHits.Load())
	assert.Equal(t, int32(2), fake.archiveHits.Load())
}

func TestLookup_CityNotFoundIsEmptyAndNotMemoized(t *testing.T) {
	fake := &fakeOpenMeteo{found: false, archive: hourlyBody()}
	srv, c := fake.server(t)
	defer srv.Close()

	assert.True(t, c.Lookup(context.Background(), 1, "Atlantis", kickoff).IsEmpty())
	assert.True(t, c.Lookup(context.Background(), 1, "Atlantis", kickoff).IsEmpty())

	assert.Equal(t, int32(2), fake.geocodeHits.Load())
	assert.Zero(t, fake.archiveHits.Load())
}

func TestLookup_MissingHourlyIsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"no hourly block": `{"latitude":45.46}`,
		"short series":    `{"hourly":{"temperature_2m":[1],"precipitation":[0],"windspeed_10m":[3],"weathercode":[0]}}`,
		"not json":        `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			fake := &fakeOpenMeteo{found: true, archive: body}
			srv, c := fake.server(t)
			defer srv.Close()

			assert.True(t, c.Lookup(context.Background(), 1, "Milano", kickoff).IsEmpty())
		})
	}
}

func TestLookup_InvalidInputsAreEmpty(t *testing.T) {
	fake := &fakeOpenMeteo{found: true, archive: hourlyBody()}
	srv, c := fake.server(t)
	defer srv.Close()

	assert.True(t, c.Lookup(context.Background(), 1, "", kickoff).IsEmpty())
	assert.True(t, c.Lookup(context.Background(), 1, "Milano", 0).IsEmpty())
	assert.Zero(t, fake.geocodeHits.Load())
}

func TestLookup_NullHourlyValues(t *testing.T) {
	fake := &fakeOpenMeteo{found: true, archive: `{"hourly":{"temperature_2m":[null],"precipitation":[null],"windspeed_10m":[null],"weathercode":[null]}}`}
	srv, c := fake.server(t)
	defer srv.Close()

	// 00:30 Europe/Rome indexes hour 0
	midnight := time.Date(2025, time.March, 1, 23, 30, 0, 0, time.UTC).Unix()
	sample := c.Lookup(context.Background(), 1, "Milano", midnight)

	assert.False(t, sample.IsEmpty())
	assert.Nil(t, sample.Temperature)
	assert.Equal(t, UnclassifiedDescription, sample.Description)
	assert.Equal(t, "2025-03-02", fake.lastDay.Load())
}

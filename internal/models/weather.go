package models

// WeatherSample is the weather at kickoff for a venue city.
// The zero value is the empty sample used when any lookup step fails.
type WeatherSample struct {
	City          string   `json:"city,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	WeatherCode   *int     `json:"weather_code,omitempty"`
	Description   string   `json:"weather_description,omitempty"`
	Timestamp     int64    `json:"timestamp,omitempty"`
}

// IsEmpty reports whether the sample carries no data.
func (w WeatherSample) IsEmpty() bool {
	return w.City == "" && w.Timestamp == 0 && w.Temperature == nil &&
		w.Precipitation == nil && w.WindSpeed == nil && w.WeatherCode == nil
}

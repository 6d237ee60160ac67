package weather

// UnclassifiedDescription is used for WMO codes outside the table
const UnclassifiedDescription = "Unclassified conditions"

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Light rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Light snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Light showers",
	81: "Moderate showers",
	82: "Violent showers",
	85: "Light snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with light hail",
	99: "Thunderstorm with heavy hail",
}

// Describe returns the description for a WMO weather code
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return UnclassifiedDescription
}

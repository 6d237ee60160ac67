package weather

import "strings"

// Venue strings the geocoder cannot resolve as delivered
var cityReplacements = map[string]string{
	"Ciudad de Córdoba, Provincia de Córdoba": "Cordoba,Argentina",
	"Capital Federal, Ciudad de Buenos Aires": "Buenos Aires,Argentina",
	"Junín, Provincia de Buenos Aires":        "Junin,Argentina",
	"La Plata, Provincia de Buenos Aires":     "La Plata,Argentina",
}

// CleanCityName normalizes a venue city for geocoding: known problem names
// are replaced, anything else is cut at the first comma.
func CleanCityName(city string) string {
	if replacement, ok := cityReplacements[city]; ok {
		return replacement
	}
	if i := strings.Index(city, ","); i >= 0 {
		return strings.TrimSpace(city[:i])
	}
	return city
}

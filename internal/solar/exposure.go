package solar

import (
	"math"

	"watermate-backend/internal/model"
)

// maxAxialTilt is Earth's obliquity in degrees, the amplitude of the
// declination curve over a year.
const maxAxialTilt = 23.44

// DayLengthHours returns the length of daylight in hours for a latitude and
// day of year, using the solar declination and the sunset hour angle. The
// result is clamped to [0, 24] to cover polar night and polar day.
func DayLengthHours(latitude float64, dayOfYear int) float64 {
	lat := latitude * math.Pi / 180
	decl := -maxAxialTilt * (math.Pi / 180) * math.Cos(2*math.Pi*float64(dayOfYear+10)/365)

	x := -math.Tan(lat) * math.Tan(decl)
	switch {
	case x <= -1:
		return 24 // sun never sets
	case x >= 1:
		return 0 // sun never rises
	}
	return 24 / math.Pi * math.Acos(x)
}

// daylightShare is the fraction of daylight hours that actually reach a
// window face, keyed by orientation as seen from the northern hemisphere
// (equator to the south). Equator-facing glass collects direct light for
// most of the day; pole-facing glass only ever sees diffuse light.
var daylightShare = map[model.LightExposure]float64{
	model.ExposureSouth:     0.95,
	model.ExposureSoutheast: 0.80,
	model.ExposureSouthwest: 0.80,
	model.ExposureEast:      0.60,
	model.ExposureWest:      0.60,
	model.ExposureNortheast: 0.40,
	model.ExposureNorthwest: 0.40,
	model.ExposureNorth:     0.25,
}

// mirrored maps each orientation to its north/south mirror, used to reuse the
// share table in the southern hemisphere where the equator is to the north.
var mirrored = map[model.LightExposure]model.LightExposure{
	model.ExposureSouth:     model.ExposureNorth,
	model.ExposureNorth:     model.ExposureSouth,
	model.ExposureSoutheast: model.ExposureNortheast,
	model.ExposureSouthwest: model.ExposureNorthwest,
	model.ExposureNortheast: model.ExposureSoutheast,
	model.ExposureNorthwest: model.ExposureSouthwest,
	model.ExposureEast:      model.ExposureEast,
	model.ExposureWest:      model.ExposureWest,
}

// EstimateDailyLightHours estimates how many hours of usable light a window
// with the given orientation receives per day at the given latitude and day
// of year. Not meaningful for artificial exposures.
func EstimateDailyLightHours(latitude float64, dayOfYear int, exposure model.LightExposure) float64 {
	oriented := exposure
	if latitude < 0 {
		oriented = mirrored[exposure]
	}
	share, ok := daylightShare[oriented]
	if !ok {
		return 0
	}
	return DayLengthHours(latitude, dayOfYear) * share
}

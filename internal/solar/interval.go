// Package solar computes recommended watering intervals from a plant type,
// a light source orientation and the owner's geolocation. Every function is
// pure: no clock, no database, deterministic for fixed inputs.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"watermate-backend/internal/model"
)

// ErrMissingLocation is returned when a natural light exposure needs solar
// adjustment but the owner never stored coordinates. Callers must surface it
// or fall back explicitly; it is never defaulted away.
var ErrMissingLocation = errors.New("solar: no location set for owner")

// The realized/baseline exposure ratio is bounded before scaling so extreme
// latitudes or seasons cannot produce runaway intervals.
const (
	minExposureRatio = 0.25
	maxExposureRatio = 4.0
)

// ComputeInterval returns the recommended watering interval in whole days.
//
// Artificial exposures return the species baseline unchanged. Natural
// exposures scale the baseline inversely with the ratio of estimated daily
// light to the species' nominal need: more realized light means a shorter
// interval. The result is clamped to [1, pt.MaxDaysWithoutWater].
func ComputeInterval(pt model.PlantType, exposure model.LightExposure, loc *model.Coordinates, ref time.Time) (int, error) {
	if !exposure.Valid() {
		return 0, fmt.Errorf("solar: unknown light exposure %q", exposure)
	}
	if exposure.Artificial() {
		return clampInterval(pt.BaseWaterDays, pt.MaxDaysWithoutWater), nil
	}
	if loc == nil {
		return 0, ErrMissingLocation
	}

	estimated := EstimateDailyLightHours(loc.Latitude, ref.YearDay(), exposure)

	baseline := float64(pt.BaseSunlightHours)
	if baseline <= 0 {
		baseline = model.DefaultDailyLightHours
	}

	ratio := estimated / baseline
	if ratio < minExposureRatio {
		ratio = minExposureRatio
	} else if ratio > maxExposureRatio {
		ratio = maxExposureRatio
	}

	days := int(math.Round(float64(pt.BaseWaterDays) / ratio))
	return clampInterval(days, pt.MaxDaysWithoutWater), nil
}

func clampInterval(days, max int) int {
	if days < 1 {
		days = 1
	}
	if max >= 1 && days > max {
		days = max
	}
	return days
}

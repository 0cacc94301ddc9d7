package solar

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watermate-backend/internal/model"
)

var fern = model.PlantType{
	Name:                "Boston Fern",
	BaseWaterDays:       7,
	BaseSunlightHours:   8,
	MaxDaysWithoutWater: 21,
}

func june21() time.Time { return time.Date(2021, 6, 21, 12, 0, 0, 0, time.UTC) }
func dec21() time.Time  { return time.Date(2021, 12, 21, 12, 0, 0, 0, time.UTC) }

func TestDayLengthHours(t *testing.T) {
	testCases := []struct {
		name      string
		latitude  float64
		dayOfYear int
		min       float64
		max       float64
	}{
		{"Equator mid-year", 0, 172, 11.5, 12.5},
		{"Equator winter", 0, 355, 11.5, 12.5},
		{"Mid-north summer solstice", 45, 172, 14, 17},
		{"Mid-north winter solstice", 45, 355, 7, 10},
		{"Polar day", 80, 172, 24, 24},
		{"Polar night", 80, 355, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DayLengthHours(tc.latitude, tc.dayOfYear)
			assert.GreaterOrEqual(t, got, tc.min)
			assert.LessOrEqual(t, got, tc.max)
		})
	}
}

func TestEstimateDailyLightHoursHemisphereMirror(t *testing.T) {
	// South of the equator the equator-facing orientation is North, so a
	// North window must collect more light than a South window there.
	north := EstimateDailyLightHours(-35, 20, model.ExposureNorth)
	south := EstimateDailyLightHours(-35, 20, model.ExposureSouth)
	assert.Greater(t, north, south)

	// And the reverse on the northern side.
	north = EstimateDailyLightHours(35, 20, model.ExposureNorth)
	south = EstimateDailyLightHours(35, 20, model.ExposureSouth)
	assert.Greater(t, south, north)
}

func TestComputeIntervalArtificialIgnoresLocationAndSeason(t *testing.T) {
	locations := []*model.Coordinates{
		nil,
		{Latitude: 64.1, Longitude: -21.9},
		{Latitude: -33.8, Longitude: 151.2},
	}
	for _, loc := range locations {
		for _, ref := range []time.Time{june21(), dec21()} {
			got, err := ComputeInterval(fern, model.ExposureArtificial, loc, ref)
			require.NoError(t, err)
			assert.Equal(t, fern.BaseWaterDays, got)
		}
	}
}

func TestComputeIntervalMissingLocation(t *testing.T) {
	_, err := ComputeInterval(fern, model.ExposureSouth, nil, june21())
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestComputeIntervalUnknownExposure(t *testing.T) {
	_, err := ComputeInterval(fern, model.LightExposure("Skylight"), &model.Coordinates{Latitude: 40}, june21())
	assert.Error(t, err)
}

// More realized light must never lengthen the interval.
func TestComputeIntervalMonotonicInExposure(t *testing.T) {
	loc := &model.Coordinates{Latitude: 40.7, Longitude: -74.0}
	ref := june21()

	type sample struct {
		exposure model.LightExposure
		hours    float64
		interval int
	}
	var samples []sample
	for _, e := range model.AllExposures {
		if e.Artificial() {
			continue
		}
		interval, err := ComputeInterval(fern, e, loc, ref)
		require.NoError(t, err)
		samples = append(samples, sample{
			exposure: e,
			hours:    EstimateDailyLightHours(loc.Latitude, ref.YearDay(), e),
			interval: interval,
		})
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].hours < samples[j].hours })
	for i := 1; i < len(samples); i++ {
		assert.LessOrEqual(t, samples[i].interval, samples[i-1].interval,
			"%s (%.1fh) should not water less often than %s (%.1fh)",
			samples[i].exposure, samples[i].hours, samples[i-1].exposure, samples[i-1].hours)
	}
}

func TestComputeIntervalSeasonShift(t *testing.T) {
	// A south window in New York sees far more light in June than December,
	// so the June interval must not be longer.
	loc := &model.Coordinates{Latitude: 40.7, Longitude: -74.0}

	summer, err := ComputeInterval(fern, model.ExposureSouth, loc, june21())
	require.NoError(t, err)
	winter, err := ComputeInterval(fern, model.ExposureSouth, loc, dec21())
	require.NoError(t, err)

	assert.LessOrEqual(t, summer, winter)
}

func TestComputeIntervalClamping(t *testing.T) {
	// Starved of light, a thirsty species still caps out at its maximum.
	cactusShade := model.PlantType{Name: "Shade test", BaseWaterDays: 30, BaseSunlightHours: 12, MaxDaysWithoutWater: 10}
	got, err := ComputeInterval(cactusShade, model.ExposureNorth, &model.Coordinates{Latitude: 60}, dec21())
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	// Flooded with light, the interval never drops below one day.
	herb := model.PlantType{Name: "Thirsty test", BaseWaterDays: 2, BaseSunlightHours: 4, MaxDaysWithoutWater: 5}
	got, err = ComputeInterval(herb, model.ExposureSouth, &model.Coordinates{Latitude: 10}, june21())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 1)

	// Bounds hold for every orientation, latitude and season.
	for _, e := range model.AllExposures {
		for _, lat := range []float64{-80, -45, 0, 45, 80} {
			for _, ref := range []time.Time{june21(), dec21()} {
				got, err := ComputeInterval(fern, e, &model.Coordinates{Latitude: lat}, ref)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, 1)
				assert.LessOrEqual(t, got, fern.MaxDaysWithoutWater)
			}
		}
	}
}

func TestComputeIntervalDeterministic(t *testing.T) {
	loc := &model.Coordinates{Latitude: 51.5, Longitude: -0.1}
	first, err := ComputeInterval(fern, model.ExposureSouthwest, loc, june21())
	require.NoError(t, err)
	second, err := ComputeInterval(fern, model.ExposureSouthwest, loc, june21())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

package weather

import (
	"time"
)

// PrecipitationType is a normalized label for the kind of precipitation.
type PrecipitationType string

const (
	PrecipitationNone  PrecipitationType = "no precipitation"
	PrecipitationRain  PrecipitationType = "rain"
	PrecipitationSnow  PrecipitationType = "snow"
	PrecipitationMixed PrecipitationType = "mixed precipitation"
)

// PrecipitationIntensity is a normalized label for how strong precipitation is.
type PrecipitationIntensity string

const (
	IntensityNone     PrecipitationIntensity = "none"
	IntensityLight    PrecipitationIntensity = "light"
	IntensityModerate PrecipitationIntensity = "moderate"
	IntensityHeavy    PrecipitationIntensity = "heavy"
)

// Site is a physical location we poll weather for.
// ID is unique and stable across runs.
type Site struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawObservation is what the weather API reports before normalization.
type RawObservation struct {
	TemperatureC      float64
	PrecipitationType int
	Intensity         int
}

// Observation is the durable, normalized reading for one site.
// A new cycle always produces a new value; existing ones are never mutated.
type Observation struct {
	SiteID            string                 `json:"index" validate:"required"`
	Date              time.Time              `json:"date" validate:"required"`
	Temperature       float64                `json:"temperature"`
	PrecipitationType PrecipitationType      `json:"precipitation type" validate:"required"`
	Intensity         PrecipitationIntensity `json:"precipitation intensity" validate:"required"`
}

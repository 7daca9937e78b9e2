package weather

import "time"

var precipitationTypes = map[int]PrecipitationType{
	0: PrecipitationNone,
	1: PrecipitationRain,
	2: PrecipitationSnow,
	3: PrecipitationMixed,
}

var precipitationIntensities = map[int]PrecipitationIntensity{
	0: IntensityNone,
	1: IntensityLight,
	2: IntensityModerate,
	3: IntensityHeavy,
}

// Valid reports whether t is one of the known precipitation type labels.
func (t PrecipitationType) Valid() bool {
	for _, label := range precipitationTypes {
		if label == t {
			return true
		}
	}
	return false
}

// Valid reports whether i is one of the known intensity labels.
func (i PrecipitationIntensity) Valid() bool {
	for _, label := range precipitationIntensities {
		if label == i {
			return true
		}
	}
	return false
}

// MapPrecipitationType maps an API precipitation type code to its label.
func MapPrecipitationType(code int) (PrecipitationType, error) {
	label, ok := precipitationTypes[code]
	if !ok {
		return "", &UnknownCodeError{Kind: "precipitation type", Code: code}
	}
	return label, nil
}

// MapPrecipitationIntensity maps an API precipitation intensity code to its label.
func MapPrecipitationIntensity(code int) (PrecipitationIntensity, error) {
	label, ok := precipitationIntensities[code]
	if !ok {
		return "", &UnknownCodeError{Kind: "precipitation intensity", Code: code}
	}
	return label, nil
}

// Normalize builds an Observation for site from a raw reading taken at ts.
func Normalize(siteID string, raw RawObservation, ts time.Time) (Observation, error) {
	pt, err := MapPrecipitationType(raw.PrecipitationType)
	if err != nil {
		return Observation{}, err
	}
	pi, err := MapPrecipitationIntensity(raw.Intensity)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		SiteID:            siteID,
		Date:              ts,
		Temperature:       raw.TemperatureC,
		PrecipitationType: pt,
		Intensity:         pi,
	}, nil
}

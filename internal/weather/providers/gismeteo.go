package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/weather"
)

const tokenHeader = "X-Gismeteo-Token"

// GismeteoProvider implements weather.Source for the Gismeteo current weather API.
type GismeteoProvider struct {
	name     string
	apiToken string
	endpoint string
	client   *http.Client
	upstream *upstreamMonitor
}

// NewGismeteoProvider builds the provider from the master section of the runtime config.
func NewGismeteoProvider(rt *app.Runtime, client *http.Client) *GismeteoProvider {
	mc := rt.Config.Master
	return &GismeteoProvider{
		name:     "gismeteo",
		apiToken: mc.APIToken,
		endpoint: strings.TrimRight(mc.APIBaseURL, "/") + "/weather/current/",
		client:   client,
		upstream: newUpstreamMonitor(rt, "gismeteo", mc.BreakerThreshold),
	}
}

func (p *GismeteoProvider) Name() string {
	return p.name
}

// Fetch requests the current weather at the site's coordinates.
func (p *GismeteoProvider) Fetch(ctx context.Context, site weather.Site) (weather.RawObservation, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(site.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(site.Longitude, 'f', -1, 64))

	req, err := http.NewRequest(http.MethodGet, p.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return weather.RawObservation{}, err
	}
	req.Header.Set(tokenHeader, p.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := doRequest(ctx, p.client, p.upstream, req)
	if err != nil {
		return weather.RawObservation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Response *struct {
			Temperature struct {
				Air struct {
					C *float64 `json:"C"`
				} `json:"air"`
			} `json:"temperature"`
			Precipitation struct {
				Type      *int `json:"type"`
				Intensity *int `json:"intensity"`
			} `json:"precipitation"`
		} `json:"response"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.RawObservation{}, &weather.ResponseFormatError{URL: p.endpoint, Err: err}
	}

	r := payload.Response
	switch {
	case r == nil:
		return weather.RawObservation{}, formatErr(p.endpoint, "response")
	case r.Temperature.Air.C == nil:
		return weather.RawObservation{}, formatErr(p.endpoint, "response.temperature.air.C")
	case r.Precipitation.Type == nil:
		return weather.RawObservation{}, formatErr(p.endpoint, "response.precipitation.type")
	case r.Precipitation.Intensity == nil:
		return weather.RawObservation{}, formatErr(p.endpoint, "response.precipitation.intensity")
	}

	return weather.RawObservation{
		TemperatureC:      *r.Temperature.Air.C,
		PrecipitationType: *r.Precipitation.Type,
		Intensity:         *r.Precipitation.Intensity,
	}, nil
}

func formatErr(endpoint, field string) error {
	return &weather.ResponseFormatError{URL: endpoint, Err: fmt.Errorf("missing field %s", field)}
}

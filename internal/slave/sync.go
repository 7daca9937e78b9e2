// Package slave pulls one site's store object from the master and caches it locally.
package slave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/common"
	"github.com/i474232898/weather-sync/internal/store"
	"github.com/i474232898/weather-sync/internal/weather"
)

var validate = validator.New()

// Result describes a completed sync.
type Result struct {
	Observation weather.Observation
	Path        string
}

// Syncer fetches store objects over HTTP.
type Syncer struct {
	rt         *app.Runtime
	client     *resty.Client
	baseURL    string
	targetPath string
}

// NewSyncer builds a Syncer from the slave section of the runtime config.
func NewSyncer(rt *app.Runtime) *Syncer {
	sc := rt.Config.Slave
	client := resty.New().
		SetTimeout(sc.HTTPTimeout).
		SetHeader("Accept", "application/json")

	return &Syncer{
		rt:         rt,
		client:     client,
		baseURL:    sc.StoreURL,
		targetPath: sc.TargetPath,
	}
}

// ObjectURL returns the address of siteID's store object.
func (s *Syncer) ObjectURL(siteID string) string {
	return strings.TrimRight(s.baseURL, "/") + "/" + url.PathEscape(siteID) + store.ObjectExt
}

// Sync fetches siteID's store object and writes it to the local target path,
// replacing any previous copy.
func (s *Syncer) Sync(ctx context.Context, siteID string) (Result, error) {
	res, err := s.sync(ctx, siteID)
	s.rt.Metrics.SlaveSync(err == nil)
	return res, err
}

func (s *Syncer) sync(ctx context.Context, siteID string) (Result, error) {
	if !store.ValidSiteID(siteID) {
		return Result{}, fmt.Errorf("invalid site id %q", siteID)
	}

	uri := s.ObjectURL(siteID)
	log := s.rt.Log.With(zap.String("site_id", siteID), zap.String("url", uri))
	log.Info("fetching store object")

	resp, err := s.client.R().SetContext(ctx).Get(uri)
	if err != nil {
		return Result{}, &weather.RemoteServiceError{URL: uri, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return Result{}, &weather.RemoteServiceError{URL: uri, StatusCode: resp.StatusCode()}
	}

	obs, err := decodeObservation(resp.Body())
	if err != nil {
		return Result{}, &weather.ResponseFormatError{URL: uri, Err: err}
	}
	if obs.SiteID != siteID {
		return Result{}, &weather.ResponseFormatError{URL: uri, Err: fmt.Errorf("object is for site %q", obs.SiteID)}
	}
	log.Info("store object received", zap.Time("date", obs.Date))

	path := s.targetPath
	if path == "" {
		path = siteID + store.ObjectExt
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, &weather.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	if err := common.WriteJSONAtomic(path, obs); err != nil {
		return Result{}, &weather.PersistenceError{Op: "write", Path: path, Err: err}
	}

	log.Info("store object saved", zap.String("path", path))
	return Result{Observation: obs, Path: path}, nil
}

func decodeObservation(body []byte) (weather.Observation, error) {
	var obs weather.Observation
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&obs); err != nil {
		return weather.Observation{}, err
	}
	if dec.More() {
		return weather.Observation{}, errors.New("trailing data after observation")
	}
	if err := validate.Struct(obs); err != nil {
		return weather.Observation{}, err
	}
	if !obs.PrecipitationType.Valid() {
		return weather.Observation{}, fmt.Errorf("unknown precipitation type %q", obs.PrecipitationType)
	}
	if !obs.Intensity.Valid() {
		return weather.Observation{}, fmt.Errorf("unknown precipitation intensity %q", obs.Intensity)
	}

	// A zero temperature is a valid reading, so presence is checked separately.
	var fields struct {
		Temperature *float64 `json:"temperature"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&fields); err != nil {
		return weather.Observation{}, err
	}
	if fields.Temperature == nil {
		return weather.Observation{}, errors.New("missing temperature")
	}
	return obs, nil
}

// ReadSiteID reads the site identifier this slave is responsible for.
func ReadSiteID(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read object code file: %w", err)
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", fmt.Errorf("object code file %s is empty", path)
	}
	return id, nil
}

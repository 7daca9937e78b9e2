// Package sites loads the list of polled locations.
package sites

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-sync/internal/weather"
)

var validate = validator.New()

type file struct {
	Sites []row `yaml:"sites"`
}

// row mirrors one line of the site sheet. Coordinates are optional so rows
// without them can be told apart from (0, 0).
type row struct {
	ID        string   `yaml:"id" validate:"required,excludesall=/\\"`
	Latitude  *float64 `yaml:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `yaml:"longitude" validate:"omitempty,longitude"`
}

// Load reads sites from a YAML file, preserving file order.
func Load(path string, log *zap.Logger) ([]weather.Site, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	return Parse(raw, log)
}

// Parse decodes sites from YAML. Rows without both coordinates, rows that fail
// validation and repeated identifiers after their first occurrence are logged
// and skipped. Only an unparseable document is an error.
func Parse(raw []byte, log *zap.Logger) ([]weather.Site, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sites))
	out := make([]weather.Site, 0, len(f.Sites))

	for i, r := range f.Sites {
		r.ID = strings.TrimSpace(r.ID)
		if r.Latitude == nil || r.Longitude == nil {
			log.Info("site has no coordinates; skipped", zap.String("site_id", r.ID), zap.Int("row", i+1))
			continue
		}
		if err := validate.Struct(r); err != nil {
			log.Warn("invalid site row; skipped", zap.String("site_id", r.ID), zap.Int("row", i+1), zap.Error(err))
			continue
		}
		if _, dup := seen[r.ID]; dup {
			log.Warn("duplicate site id; keeping first row", zap.String("site_id", r.ID), zap.Int("row", i+1))
			continue
		}
		seen[r.ID] = struct{}{}

		out = append(out, weather.Site{ID: r.ID, Latitude: *r.Latitude, Longitude: *r.Longitude})
	}

	return out, nil
}

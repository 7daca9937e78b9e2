package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/common"
	"github.com/i474232898/weather-sync/internal/weather"
)

// ObjectExt is the suffix of every store object.
const ObjectExt = ".json"

var errBadSiteID = errors.New("site id cannot be used as a file name")

// Publisher writes one JSON file per site under the publication root.
type Publisher struct {
	root string
}

// NewPublisher returns a Publisher rooted at the configured store directory.
func NewPublisher(rt *app.Runtime) *Publisher {
	return &Publisher{root: rt.Config.Master.PublishRoot}
}

// Root returns the publication root directory.
func (p *Publisher) Root() string {
	return p.root
}

// ObjectPath returns where the store object for siteID lives.
func (p *Publisher) ObjectPath(siteID string) (string, error) {
	if !ValidSiteID(siteID) {
		return "", errBadSiteID
	}
	return filepath.Join(p.root, siteID+ObjectExt), nil
}

// Publish (re)creates the store object for obs.SiteID.
func (p *Publisher) Publish(obs weather.Observation) error {
	path, err := p.ObjectPath(obs.SiteID)
	if err != nil {
		return &weather.PersistenceError{Op: "publish", Path: obs.SiteID, Err: err}
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return &weather.PersistenceError{Op: "mkdir", Path: p.root, Err: err}
	}
	if err := common.WriteJSONAtomic(path, obs); err != nil {
		return &weather.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// ValidSiteID reports whether id maps to a single file name.
func ValidSiteID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}

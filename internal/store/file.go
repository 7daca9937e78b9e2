package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/common"
	"github.com/i474232898/weather-sync/internal/weather"
)

var (
	// ErrNotFound is returned when no observation is stored for a site.
	ErrNotFound = errors.New("no weather data for site")
)

// Collection maps a site identifier to its latest observation.
type Collection map[string]weather.Observation

// FileStore is the aggregate result store, kept as one JSON object on disk.
// Every Upsert reads the file, replaces one key and rewrites the whole file.
type FileStore struct {
	// mu guards the read-modify-write in Upsert.
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewFileStore creates a FileStore at the configured result file path.
func NewFileStore(rt *app.Runtime) *FileStore {
	return &FileStore{
		path: rt.Config.Master.ResultFile,
		log:  rt.Log.Named("store"),
	}
}

// Path returns the aggregate file location.
func (s *FileStore) Path() string {
	return s.path
}

// Upsert stores obs as the latest entry for its site, leaving other sites
// untouched, and persists the collection before returning.
func (s *FileStore) Upsert(obs weather.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data[obs.SiteID] = obs

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &weather.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	if err := common.WriteJSONAtomic(s.path, data); err != nil {
		return &weather.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Load returns the current collection. A missing or unreadable file yields an
// empty collection.
func (s *FileStore) Load() Collection {
	return s.load()
}

// Get returns the latest observation for siteID.
func (s *FileStore) Get(siteID string) (weather.Observation, error) {
	obs, ok := s.load()[siteID]
	if !ok {
		return weather.Observation{}, ErrNotFound
	}
	return obs, nil
}

func (s *FileStore) load() Collection {
	data := make(Collection)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cannot read result store; starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return data
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("result store is corrupt; starting empty", zap.String("path", s.path), zap.Error(err))
		return make(Collection)
	}
	if data == nil {
		// literal null
		data = make(Collection)
	}
	return data
}

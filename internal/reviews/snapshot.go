// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// DefaultSnapshotPath is where the warm-start cache lives unless configured.
const DefaultSnapshotPath = "/tmp/review_cache.json"

// snapshotDocument is the on-disk layout:
//
//	{"expiration": <unix seconds>, "cache": {"<product>": [<record>, ...]}}
type snapshotDocument struct {
	Expiration int64               `json:"expiration"`
	Cache      map[string][]Record `json:"cache"`
}

// SnapshotFile persists review data between restarts so an unexpired dataset
// can be reused without fetching the spreadsheet again.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile returns a snapshot stored at path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the snapshot location.
func (f *SnapshotFile) Path() string { return f.path }

// Load reads the snapshot. A missing file yields a *PersistenceError that
// wraps os.ErrNotExist.
func (f *SnapshotFile) Load() (map[string][]Record, time.Time, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, time.Time{}, &PersistenceError{Op: "load", Path: f.path, Err: err}
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, time.Time{}, &PersistenceError{Op: "load", Path: f.path, Err: err}
	}
	if doc.Cache == nil {
		return nil, time.Time{}, &PersistenceError{Op: "load", Path: f.path, Err: errors.New("missing cache object")}
	}

	return doc.Cache, time.Unix(doc.Expiration, 0), nil
}

// Save writes the snapshot atomically: the document goes to a temporary file
// in the same directory which is then renamed over the old snapshot.
func (f *SnapshotFile) Save(groups map[string][]Record, expiration time.Time) error {
	data, err := json.Marshal(snapshotDocument{
		Expiration: expiration.Unix(),
		Cache:      groups,
	})
	if err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: f.path, Err: err}
	}
	return nil
}

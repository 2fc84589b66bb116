// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshotRoundTripPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review_cache.json")
	file := NewSnapshotFile(path)

	records := []Record{
		{Name: "Zeta", Username: "a", Date: "2020-01-01", Rating: intPtr(90), Seq: 0},
		{Name: "Alpha", Username: "b", Date: "2021-01-01", Seq: 1},
		{Name: "Zeta", Username: "c", Date: "2019-01-01", Rating: intPtr(80), Seq: 2},
	}
	expiration := time.Unix(1_900_000_000, 0)
	original := newDataset(records, expiration, "hash")

	if err := file.Save(original.groups, original.expiration); err != nil {
		t.Fatalf("Save: %v", err)
	}

	groups, exp, err := file.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exp.Equal(expiration) {
		t.Errorf("expiration = %v, want %v", exp, expiration)
	}

	restored := datasetFromGroups(groups, exp)
	if len(restored.names) != 2 || restored.names[0] != "Zeta" || restored.names[1] != "Alpha" {
		t.Errorf("id order not recovered: %v", restored.names)
	}
	if got := restored.groups["Zeta"]; len(got) != 2 || got[0].Username != "a" || got[1].Username != "c" {
		t.Errorf("group order not recovered: %+v", got)
	}
	if restored.groups["Alpha"][0].Rating != nil {
		t.Error("absent rating should survive as null")
	}
	if restored.stats != original.stats {
		t.Errorf("stats differ after restore: %+v vs %+v", restored.stats, original.stats)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestSnapshotFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	file := NewSnapshotFile(path)

	groups := map[string][]Record{
		"Lagavulin 16": {{Name: "Lagavulin 16", Username: "u", Link: "l", Price: "$70", Date: "2018-05-01", Rating: intPtr(91), Seq: 3}},
	}
	if err := file.Save(groups, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"expiration":1700000000`, `"cache":{"Lagavulin 16":[`, `"rating":91`, `"id":3`, `"date":"2018-05-01"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("snapshot missing %s: %s", want, data)
		}
	}
}

func TestSnapshotLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := NewSnapshotFile(filepath.Join(dir, "missing.json")).Load()
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "load" {
		t.Fatalf("expected load PersistenceError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file should wrap fs.ErrNotExist: %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"expiration": 12, "cache": [`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewSnapshotFile(corrupt).Load(); !errors.As(err, &perr) {
		t.Errorf("expected PersistenceError for corrupt file, got %v", err)
	}

	noCache := filepath.Join(dir, "nocache.json")
	if err := os.WriteFile(noCache, []byte(`{"expiration": 12}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewSnapshotFile(noCache).Load(); !errors.As(err, &perr) {
		t.Errorf("expected PersistenceError for missing cache, got %v", err)
	}
}

func TestSnapshotSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	// The parent "directory" is a regular file, so nothing can be created.
	err := NewSnapshotFile(filepath.Join(blocker, "cache.json")).Save(map[string][]Record{}, time.Now())
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "save" {
		t.Errorf("expected save PersistenceError, got %v", err)
	}
}

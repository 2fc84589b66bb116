// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package feed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/elmerbot/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	cursorKeyPrefix = "cursor:"
	seenKeyPrefix   = "seen:"
)

// DefaultSeenTTL keeps seen markers well past the listing window.
const DefaultSeenTTL = 7 * 24 * time.Hour

// State persists the per-subreddit poll cursor and the ids of posts already
// scheduled for announcement, so a restart neither skips nor repeats posts.
type State struct {
	db       *badger.DB
	seenTTL  time.Duration
	inMemory bool
}

// OpenState opens (or creates) the store in dir. An empty dir keeps
// everything in memory.
func OpenState(dir string, seenTTL time.Duration) (*State, error) {
	if seenTTL <= 0 {
		seenTTL = DefaultSeenTTL
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feed state: %w", err)
	}
	return &State{db: db, seenTTL: seenTTL, inMemory: dir == ""}, nil
}

// Cursor returns the last poll time of subreddit, and false if it was never
// polled.
func (s *State) Cursor(subreddit string) (time.Time, bool, error) {
	var cursor time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cursorKeyPrefix + subreddit))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("cursor for %s has %d bytes", subreddit, len(val))
			}
			cursor = time.Unix(0, int64(binary.BigEndian.Uint64(val))).UTC()
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get cursor: %w", err)
	}
	return cursor, true, nil
}

// SetCursor records t as the last poll time of subreddit.
func (s *State) SetCursor(subreddit string, t time.Time) error {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(t.UnixNano()))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cursorKeyPrefix+subreddit), val)
	})
}

// MarkSeen records a post id and reports whether it was new. The marker
// expires after the seen TTL.
func (s *State) MarkSeen(id string) (bool, error) {
	key := []byte(seenKeyPrefix + id)
	fresh := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		fresh = true
		return txn.SetEntry(badger.NewEntry(key, nil).WithTTL(s.seenTTL))
	})
	if err != nil {
		return false, fmt.Errorf("mark %s seen: %w", id, err)
	}
	return fresh, nil
}

// Seen reports whether id has been marked.
func (s *State) Seen(id string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(seenKeyPrefix + id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get seen %s: %w", id, err)
	}
	return true, nil
}

// RunGC reclaims value log space until ctx is done. It returns at once for
// an in-memory store.
func (s *State) RunGC(ctx context.Context, interval time.Duration) {
	if s.inMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rewrites := 0
			for s.db.RunValueLogGC(0.5) == nil {
				rewrites++
			}
			logging.Debug().Int("rewrites", rewrites).Msg("Feed state value log GC done")
		}
	}
}

// Close flushes and closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// Package mute holds per-recipient notification mute flags.
//
// The default for an unknown recipient is "notifications enabled"; an
// entry is created on first toggle and lives for the process lifetime.
package mute

import (
	"context"
	"sync"
	"time"

	"duelbot/internal/kit"
	"duelbot/internal/storage"
	"duelbot/pkg/logx"
)

type Store struct {
	mu    sync.RWMutex
	muted map[kit.Recipient]bool

	// persistMu serializes write-through so concurrent toggles cannot
	// land on disk in the opposite order of their in-memory flips.
	persistMu sync.Mutex
	persist   storage.Store
	log       logx.Logger
}

// New creates the store, seeding it from persisted flags when a
// storage backend is configured. A nil persist store is valid and
// keeps the flags in memory only.
func New(persist storage.Store, log logx.Logger) *Store {
	s := &Store{
		muted:   map[kit.Recipient]bool{},
		persist: persist,
		log:     log,
	}
	if persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flags, err := persist.LoadMuted(ctx)
		if err != nil {
			log.Warn("loading persisted mute flags failed", logx.Err(err))
		} else {
			for r, m := range flags {
				if m {
					s.muted[r] = true
				}
			}
			log.Info("mute flags loaded", logx.Int("muted", len(s.muted)))
		}
	}
	return s
}

// IsMuted reports whether notifications are muted for r.
func (s *Store) IsMuted(r kit.Recipient) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted[r]
}

// Toggle flips the mute flag for r and returns the new state
// (true = muted). Persistence is write-through, best-effort: a failed
// write is logged and the in-memory flag stays authoritative.
func (s *Store) Toggle(r kit.Recipient) bool {
	s.mu.Lock()
	now := !s.muted[r]
	if now {
		s.muted[r] = true
	} else {
		delete(s.muted, r)
	}
	s.mu.Unlock()

	if s.persist != nil {
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		// Persist the current flag, not this call's result: whichever
		// write runs last then matches the in-memory state.
		cur := s.IsMuted(r)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.persist.SetMuted(ctx, r, cur); err != nil {
			s.log.Warn("persisting mute flag failed", logx.String("recipient", string(r)), logx.Err(err))
		}
	}
	return now
}

// MutedCount returns the number of recipients currently muted.
func (s *Store) MutedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.muted)
}
